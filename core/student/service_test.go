package student_test

import (
	"context"
	"mime/multipart"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
	"github.com/shulehq/shule/core/student"
	emailsvc "github.com/shulehq/shule/services/email"
	logsvc "github.com/shulehq/shule/services/logger"
	"github.com/shulehq/shule/storage/database/inmem"
)

var admin = core.Principal{ID: "admin-id", Email: "admin@test.cd", Role: core.RoleAdmin}

func TestMain(m *testing.M) {
	core.Conf = &core.Config{
		AppName:              "Shule",
		Env:                  "TEST",
		TestMode:             true,
		WorkDir:              core.Getwd(),
		SecretKey:            "secret",
		PasswordResetTimeout: 10 * time.Minute,
		FrontendBaseURL:      "http://localhost:3000",
		PublicBaseURL:        "http://localhost:8000",
		DefaultFromEmail:     mail.Address{Name: "Shule", Address: "noreply@localhost"},
		Server:               core.ServerConfig{JWTExpirationDelta: time.Hour},
	}
	os.Exit(m.Run())
}

type fakeFiles struct{}

func (fakeFiles) Save(fh *multipart.FileHeader, _ string) (string, error) { return fh.Filename, nil }
func (fakeFiles) Remove(_, _ string) error                                { return nil }
func (fakeFiles) URL(folder, filename string) string {
	if filename == "" {
		return ""
	}
	return core.Conf.PublicBaseURL + "/upload/" + folder + "/" + filename
}

type fixture struct {
	svc    *student.Service
	schSvc *school.Service
	sch    school.School
}

func setup(t *testing.T) fixture {
	t.Helper()
	emailsvc.ClearSentMessages()
	db := inmem.NewDB()
	schSvc := school.NewService(inmem.NewSchoolRepo(db), emailsvc.NewConsoleServiceMock(), fakeFiles{}, logsvc.NewTestLogger())
	svc := student.NewService(inmem.NewStudentRepo(db), fakeFiles{}, logsvc.NewTestLogger())

	sch, err := schSvc.Register(context.Background(), admin, school.NewSchool{
		Name:    "Green Hills",
		Email:   "green@test.cd",
		Address: "1 Main St",
		ZipCode: "00100",
		City:    "Goma",
		State:   "Nord-Kivu",
		Country: "CD",
	}, nil)
	require.NoError(t, err)
	return fixture{svc: svc, schSvc: schSvc, sch: sch}
}

func newStudent(name string, std int, schoolID string) student.NewStudent {
	return student.NewStudent{
		Name:         name,
		ParentNumber: "+243970000000",
		Address:      "2 Side St",
		Std:          std,
		DOB:          "2012-05-01",
		School:       schoolID,
	}
}

func createStudent(t *testing.T, f fixture, p core.Principal, name string, std int, schoolID string) student.Student {
	t.Helper()
	st, err := f.svc.Create(context.Background(), p, newStudent(name, std, schoolID), nil)
	require.NoError(t, err)
	return st
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	st := createStudent(t, f, admin, "Ada", 5, f.sch.ID)
	assert.NotEmpty(t, st.ID)
	assert.True(t, st.Status)
	assert.Equal(t, f.sch.ID, st.SchoolID)

	t.Run("admin must name the school", func(t *testing.T) {
		_, err := f.svc.Create(ctx, admin, newStudent("Ben", 5, ""), nil)
		assert.Equal(t, student.ErrSchoolNotSelected, err)
	})

	t.Run("unknown school", func(t *testing.T) {
		_, err := f.svc.Create(ctx, admin, newStudent("Ben", 5, "4dcd71a9-3c4e-4b0e-9a51-6f2b1d6f8b01"), nil)
		assert.Equal(t, school.ErrNotFound, err)
	})

	t.Run("school principal enrolls into own school", func(t *testing.T) {
		// an explicit foreign school id is ignored
		st, err := f.svc.Create(ctx, f.sch.Principal(), newStudent("Ben", 6, "some-other-id"), nil)
		require.NoError(t, err)
		assert.Equal(t, f.sch.ID, st.SchoolID)
	})

	t.Run("reader may not enroll", func(t *testing.T) {
		reader := core.Principal{ID: "r", Role: core.RoleReader}
		_, err := f.svc.Create(ctx, reader, newStudent("Eve", 5, f.sch.ID), nil)
		assert.True(t, core.IsKind(err, core.KindAuthorization))
	})
}

func TestService_StandardsCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// stds 1, 2, 1 populate the cache as {1, 2} with count 2
	createStudent(t, f, admin, "Ada", 1, f.sch.ID)
	createStudent(t, f, admin, "Ben", 2, f.sch.ID)
	createStudent(t, f, admin, "Cleo", 1, f.sch.ID)

	sch, err := f.schSvc.GetByID(ctx, admin, f.sch.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, []int64(sch.Standards))
	assert.Equal(t, 2, sch.Count)

	stds, err := f.svc.Standards(ctx, f.sch.Principal(), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, stds)
}

func TestService_Query(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	other, err := f.schSvc.Register(ctx, admin, school.NewSchool{
		Name:    "Other School",
		Email:   "other@test.cd",
		Address: "3 Back St",
		ZipCode: "00200",
		City:    "Bukavu",
		State:   "Sud-Kivu",
		Country: "CD",
	}, nil)
	require.NoError(t, err)

	createStudent(t, f, admin, "Ada", 1, f.sch.ID)
	createStudent(t, f, admin, "Ben", 2, f.sch.ID)
	createStudent(t, f, admin, "Cleo", 2, other.ID)

	t.Run("admin sees all", func(t *testing.T) {
		students, pageInfo, err := f.svc.Query(ctx, admin, core.ListParams{})
		require.NoError(t, err)
		assert.Len(t, students, 3)
		assert.Equal(t, int64(3), pageInfo.TotalCount)
	})

	t.Run("school principal sees own students only", func(t *testing.T) {
		students, _, err := f.svc.Query(ctx, f.sch.Principal(), core.ListParams{})
		require.NoError(t, err)
		require.Len(t, students, 2)
		for _, st := range students {
			assert.Equal(t, f.sch.ID, st.SchoolID)
		}
	})

	t.Run("numeric std filter", func(t *testing.T) {
		students, _, err := f.svc.Query(ctx, admin, core.ListParams{FieldName: "std", FieldValue: "2"})
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})

	t.Run("school filter", func(t *testing.T) {
		students, _, err := f.svc.Query(ctx, admin, core.ListParams{FieldName: "school", FieldValue: other.ID})
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, "Cleo", students[0].Name)
	})
}

func TestService_FindOne(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ada := createStudent(t, f, admin, "Ada", 1, f.sch.ID)

	got, err := f.svc.FindOne(ctx, admin, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)

	got, err = f.svc.FindOne(ctx, admin, "ada")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)

	_, err = f.svc.FindOne(ctx, admin, "ghost")
	assert.Equal(t, student.ErrNotFound, err)

	// an empty key must not degenerate into a match-anything lookup
	_, err = f.svc.FindOne(ctx, admin, "")
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_SetActiveStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	st := createStudent(t, f, admin, "Ada", 1, f.sch.ID)

	// asking for the current status is a no-op error
	_, err := f.svc.SetActiveStatus(ctx, admin, st.ID, true)
	assert.Equal(t, student.ErrNoChange, err)

	got, err := f.svc.SetActiveStatus(ctx, admin, st.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Status)

	got, err = f.svc.SetActiveStatus(ctx, admin, st.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Status)
}

func TestService_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	st := createStudent(t, f, admin, "Ada", 3, f.sch.ID)
	require.NoError(t, f.svc.Delete(ctx, admin, st.ID))

	_, err := f.svc.FindOne(ctx, admin, st.ID)
	assert.Equal(t, student.ErrNotFound, err)

	// the standards cache is a historical record; deletion never shrinks it
	sch, err := f.schSvc.GetByID(ctx, admin, f.sch.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{3}, []int64(sch.Standards))
	assert.Equal(t, 1, sch.Count)
}

func TestService_Counts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	createStudent(t, f, admin, "Ada", 1, f.sch.ID)
	createStudent(t, f, admin, "Ben", 1, f.sch.ID)
	createStudent(t, f, admin, "Cleo", 4, f.sch.ID)

	counts, err := f.svc.StandardCounts(ctx, f.sch.Principal(), "")
	require.NoError(t, err)
	assert.Equal(t, []student.StdCount{{Std: 1, Count: 2}, {Std: 4, Count: 1}}, counts)

	total, err := f.svc.Total(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	// the global count is Admin only
	_, err = f.svc.Total(ctx, f.sch.Principal())
	assert.True(t, core.IsKind(err, core.KindAuthorization))
}
