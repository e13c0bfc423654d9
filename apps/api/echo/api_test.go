package echoapi_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/shulehq/shule/apps/api/echo"
	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
	"github.com/shulehq/shule/core/student"
	"github.com/shulehq/shule/core/user"
	emailsvc "github.com/shulehq/shule/services/email"
	logsvc "github.com/shulehq/shule/services/logger"
	"github.com/shulehq/shule/storage/database/inmem"
)

var (
	app echoapi.Server

	adminToken  string
	readerToken string
)

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

	db := inmem.NewDB()
	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := logsvc.NewTestLogger()
	files := fakeFiles{}

	usrSvc := user.NewService(inmem.NewUserRepo(db), mailSvc)
	schSvc := school.NewService(inmem.NewSchoolRepo(db), mailSvc, files, logger)
	stdSvc := student.NewService(inmem.NewStudentRepo(db), files, logger)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	app = echoapi.NewServer(&echoapi.Options{
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		SchoolSvc:      schSvc,
		StudentSvc:     stdSvc,
		Validate:       validate,
		Translator:     translator,
		Logger:         logger,
	})

	adminToken = tokenFor(core.Principal{ID: "admin-id", Email: "admin@test.cd", Role: core.RoleAdmin})
	readerToken = tokenFor(core.Principal{ID: "reader-id", Email: "reader@test.cd", Role: core.RoleReader})

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

func tokenFor(p core.Principal) string {
	token, err := echoapi.GenerateToken(echoapi.GetClaims(p))
	if err != nil {
		panic(err)
	}
	return token
}

func doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func TestHome(t *testing.T) {
	rec := doJSON(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Shule API!", rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	rec := doJSON(t, http.MethodGet, "/v1/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPermissionDenied(t *testing.T) {
	rec := doJSON(t, http.MethodGet, "/v1/schools", readerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
		Endpoint   string `json:"endpoint"`
	}
	decode(t, rec, &body)
	assert.Equal(t, http.StatusForbidden, body.StatusCode)
	assert.Equal(t, "permission denied", body.Message)
	assert.Equal(t, "/v1/schools", body.Endpoint)
}

func TestSchoolAndStudentFlow(t *testing.T) {
	// an Admin registers a school
	rec := doJSON(t, http.MethodPost, "/v1/schools/register", adminToken, map[string]string{
		"name":    "Green Hills",
		"email":   "green@test.cd",
		"address": "1 Main St",
		"zipCode": "00100",
		"city":    "Goma",
		"state":   "Nord-Kivu",
		"country": "CD",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
		Message string `json:"message"`
	}
	decode(t, rec, &created)
	assert.NotEmpty(t, created.AccessToken)
	assert.Equal(t, "School", created.User.Role)
	assert.Equal(t, "School created!", created.Message)

	// a wrong password is an authentication failure
	rec = doJSON(t, http.MethodPost, "/v1/schools/login", "", map[string]string{
		"email":    "green@test.cd",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var loginErr struct {
		Message string `json:"message"`
	}
	decode(t, rec, &loginErr)
	assert.Equal(t, "Bad Credentials!", loginErr.Message)

	// the school enrolls a student with its own session
	rec = doJSON(t, http.MethodPost, "/v1/students", created.AccessToken, map[string]interface{}{
		"name":         "Ada",
		"parentNumber": "+243970000000",
		"address":      "2 Side St",
		"std":          5,
		"dob":          "2012-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// the standards cache picked up the new grade
	rec = doJSON(t, http.MethodGet, "/v1/students/standards", created.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stds struct {
		Standards []int64 `json:"standards"`
	}
	decode(t, rec, &stds)
	assert.Equal(t, []int64{5}, stds.Standards)

	// list envelope
	rec = doJSON(t, http.MethodGet, "/v1/students", created.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items      []student.Student `json:"items"`
		TotalCount int64             `json:"totalCount"`
		TotalPages int               `json:"totalPages"`
		Message    string            `json:"message"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(1), list.TotalCount)
	assert.Equal(t, 1, list.TotalPages)
	assert.Equal(t, "Found all students!", list.Message)
}

func TestUserRegisterRequiresAdmin(t *testing.T) {
	rec := doJSON(t, http.MethodPost, "/v1/users/register", readerToken, map[string]string{
		"userName": "eve",
		"email":    "eve@test.cd",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, http.MethodPost, "/v1/users/register", adminToken, map[string]string{
		"userName": "eve",
		"email":    "eve@test.cd",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestValidationErrors(t *testing.T) {
	rec := doJSON(t, http.MethodPost, "/v1/users/register", adminToken, map[string]string{
		"userName": "",
		"email":    "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Message map[string]string `json:"message"`
	}
	decode(t, rec, &body)
	assert.Contains(t, body.Message, "userName")
	assert.Contains(t, body.Message, "email")
}
