package school_test

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

// fakeFiles stores nothing; filenames pass through untouched.
type fakeFiles struct {
	removed []string
}

func (f *fakeFiles) Save(fh *multipart.FileHeader, _ string) (string, error) { return fh.Filename, nil }
func (f *fakeFiles) Remove(_, filename string) error {
	f.removed = append(f.removed, filename)
	return nil
}
func (f *fakeFiles) URL(folder, filename string) string {
	if filename == "" {
		return ""
	}
	return core.Conf.PublicBaseURL + "/upload/" + folder + "/" + filename
}

func setup(t *testing.T) (*school.Service, *fakeFiles) {
	t.Helper()
	emailsvc.ClearSentMessages()
	files := &fakeFiles{}
	repo := inmem.NewSchoolRepo(inmem.NewDB())
	return school.NewService(repo, emailsvc.NewConsoleServiceMock(), files, logsvc.NewTestLogger()), files
}

func newSchool(name, email, city string) school.NewSchool {
	return school.NewSchool{
		Name:    name,
		Email:   email,
		Address: "1 Main St",
		ZipCode: "00100",
		City:    city,
		State:   "Nairobi",
		Country: "KE",
	}
}

func registerSchool(t *testing.T, svc *school.Service, name, email, city string) school.School {
	t.Helper()
	sch, err := svc.Register(context.Background(), admin, newSchool(name, email, city), nil)
	require.NoError(t, err)
	return sch
}

func TestService_Register(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	sch := registerSchool(t, svc, "Green Hills", "green@test.cd", "Goma")
	assert.NotEmpty(t, sch.ID)
	assert.Equal(t, core.RoleSchool, sch.Role)
	assert.Empty(t, sch.Standards)
	assert.Zero(t, sch.Count)

	require.Len(t, emailsvc.SentMessages, 1)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, "Password:")

	// only Admins may register schools
	reader := core.Principal{ID: "r", Role: core.RoleReader}
	_, err := svc.Register(ctx, reader, newSchool("X", "x@test.cd", "Bukavu"), nil)
	assert.True(t, core.IsKind(err, core.KindAuthorization))

	_, err = svc.Register(ctx, admin, newSchool("Dup", "green@test.cd", "Goma"), nil)
	assert.Equal(t, school.ErrEmailExists, err)
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	registerSchool(t, svc, "Green Hills", "green@test.cd", "Goma")

	_, err := svc.Authenticate(ctx, school.Login{Email: "green@test.cd", Password: "wrong"})
	assert.Equal(t, school.ErrBadCredentials, err)

	_, err = svc.Authenticate(ctx, school.Login{Email: "ghost@test.cd", Password: "x"})
	assert.Equal(t, school.ErrNotFound, err)
}

func TestService_ScopeIsolation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	sch1 := registerSchool(t, svc, "One", "one@test.cd", "Goma")
	sch2 := registerSchool(t, svc, "Two", "two@test.cd", "Bukavu")

	// a School principal reaches only its own record
	got, err := svc.GetByID(ctx, admin, sch2.ID)
	require.NoError(t, err)
	assert.Equal(t, sch2.ID, got.ID)

	_, err = svc.Update(ctx, sch1.Principal(), sch2.ID, school.UpdateSchool{Name: "hacked"}, nil)
	assert.Equal(t, school.ErrNotFound, err)

	got, err = svc.Update(ctx, sch1.Principal(), sch1.ID, school.UpdateSchool{Name: "Renamed"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestService_Update_photoSwap(t *testing.T) {
	svc, files := setup(t)
	ctx := context.Background()

	sch := registerSchool(t, svc, "One", "one@test.cd", "Goma")

	first := &multipart.FileHeader{Filename: "first.png"}
	got, err := svc.Update(ctx, admin, sch.ID, school.UpdateSchool{}, first)
	require.NoError(t, err)
	assert.Contains(t, got.PhotoURL, "first.png")
	assert.Empty(t, files.removed)

	second := &multipart.FileHeader{Filename: "second.png"}
	got, err = svc.Update(ctx, admin, sch.ID, school.UpdateSchool{}, second)
	require.NoError(t, err)
	assert.Contains(t, got.PhotoURL, "second.png")
	// the replaced file is removed best-effort
	assert.Equal(t, []string{"first.png"}, files.removed)
}

func TestService_Query(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	sch1 := registerSchool(t, svc, "Alpha Academy", "alpha@test.cd", "Goma")
	registerSchool(t, svc, "Beta College", "beta@test.cd", "Bukavu")

	t.Run("keyword on name", func(t *testing.T) {
		schools, pageInfo, err := svc.Query(ctx, admin, core.ListParams{Keyword: "alpha"})
		require.NoError(t, err)
		require.Len(t, schools, 1)
		assert.Equal(t, sch1.ID, schools[0].ID)
		assert.Equal(t, int64(1), pageInfo.TotalCount)
	})

	t.Run("field filter on city", func(t *testing.T) {
		schools, _, err := svc.Query(ctx, admin, core.ListParams{FieldName: "city", FieldValue: "buka"})
		require.NoError(t, err)
		require.Len(t, schools, 1)
		assert.Equal(t, "Beta College", schools[0].Name)
	})

	t.Run("unknown field is ignored", func(t *testing.T) {
		schools, _, err := svc.Query(ctx, admin, core.ListParams{FieldName: "password", FieldValue: "x"})
		require.NoError(t, err)
		assert.Len(t, schools, 2)
	})

	t.Run("descending sort", func(t *testing.T) {
		schools, _, err := svc.Query(ctx, admin, core.ListParams{SortOrder: core.SortDescending})
		require.NoError(t, err)
		require.Len(t, schools, 2)
		assert.Equal(t, "Beta College", schools[0].Name)
	})
}

func TestService_FindByName(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	registerSchool(t, svc, "Green Hills", "green@test.cd", "Goma")

	schools, err := svc.FindByName(ctx, admin, "hill")
	require.NoError(t, err)
	assert.Len(t, schools, 1)

	_, err = svc.FindByName(ctx, admin, "nope")
	assert.Equal(t, school.ErrNotFound, err)
}

func TestService_CitiesAndNames(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	registerSchool(t, svc, "One", "one@test.cd", "Goma")
	registerSchool(t, svc, "Two", "two@test.cd", "Goma")
	registerSchool(t, svc, "Three", "three@test.cd", "Bukavu")

	cities, err := svc.Cities(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bukavu", "Goma"}, cities)

	names, err := svc.Names(ctx, admin)
	require.NoError(t, err)
	require.Len(t, names, 3)
	assert.Equal(t, "One", names[0].Name)
	assert.NotEmpty(t, names[0].ID)
}

func TestService_Delete(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	sch := registerSchool(t, svc, "One", "one@test.cd", "Goma")
	require.NoError(t, svc.Delete(ctx, admin, sch.ID))

	_, err := svc.GetByID(ctx, admin, sch.ID)
	assert.Equal(t, school.ErrNotFound, err)

	// the email is free for reuse
	_, err = svc.Register(ctx, admin, newSchool("Again", "one@test.cd", "Goma"), nil)
	assert.NoError(t, err)
}

func TestService_PasswordReset(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	registerSchool(t, svc, "One", "one@test.cd", "Goma")

	err := svc.RequestPasswordReset(ctx, "ghost@test.cd")
	assert.Equal(t, school.ErrEmailNotLinked, err)

	emailsvc.ClearSentMessages()
	require.NoError(t, svc.RequestPasswordReset(ctx, "one@test.cd"))
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, "/schools/reset?token=")

	// an empty token must never match an account, even one with a pending reset
	err = svc.ResetPassword(ctx, school.ResetPassword{NewPass: "h1jack#pass", ConfirmPass: "h1jack#pass"})
	assert.Equal(t, school.ErrLinkExpired, err)
	_, err = svc.Authenticate(ctx, school.Login{Email: "one@test.cd", Password: "h1jack#pass"})
	assert.Equal(t, school.ErrBadCredentials, err)
}
