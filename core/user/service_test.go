package user_test

import (
	"context"
	"fmt"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/user"
	emailsvc "github.com/shulehq/shule/services/email"
	"github.com/shulehq/shule/storage/database/inmem"
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
	os.Exit(m.Run())
}

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	emailsvc.ClearSentMessages()
	repo := inmem.NewUserRepo(inmem.NewDB())
	return user.NewService(repo, emailsvc.NewConsoleServiceMock()), repo
}

func registerUser(t *testing.T, svc *user.Service, name, email string, role core.Role) user.User {
	t.Helper()
	usr, err := svc.Register(context.Background(), user.NewUser{UserName: name, Email: email, Role: role})
	require.NoError(t, err)
	return usr
}

func TestService_Register(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr := registerUser(t, svc, "awe", "awe@test.cd", "")
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, core.RoleReader, usr.Role, "role defaults to Reader")
	assert.NotEmpty(t, usr.PasswordHash)

	// the generated initial password is mailed
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, "Password:")

	// email uniqueness among non-deleted accounts
	_, err := svc.Register(ctx, user.NewUser{UserName: "dup", Email: "awe@test.cd"})
	assert.Equal(t, user.ErrEmailExists, err)

	// a soft-deleted account frees its email
	admin := core.Principal{ID: "x", Role: core.RoleAdmin}
	require.NoError(t, svc.Delete(ctx, admin, usr.ID))
	_, err = svc.Register(ctx, user.NewUser{UserName: "dup", Email: "awe@test.cd"})
	assert.NoError(t, err)
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := registerUser(t, svc, "awe", "awe@test.cd", "")
	require.NoError(t, usr.SetPassword("s3cret"))
	require.NoError(t, repo.SetPassword(ctx, usr.ID, usr.PasswordHash, false))

	got, err := svc.Authenticate(ctx, user.Login{Email: "awe@test.cd", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = svc.Authenticate(ctx, user.Login{Email: "awe@test.cd", Password: "nope"})
	assert.Equal(t, user.ErrBadCredentials, err)

	_, err = svc.Authenticate(ctx, user.Login{Email: "ghost@test.cd", Password: "s3cret"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_PasswordReset(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := registerUser(t, svc, "awe", "awe@test.cd", "")

	t.Run("unknown email is reported", func(t *testing.T) {
		err := svc.RequestPasswordReset(ctx, "ghost@test.cd")
		assert.Equal(t, user.ErrEmailNotLinked, err)
	})

	t.Run("reset link is mailed", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		require.NoError(t, svc.RequestPasswordReset(ctx, "awe@test.cd"))
		require.Len(t, emailsvc.SentMessages, 1)
		assert.Contains(t, emailsvc.SentMessages[0].TextContent, "/users/reset?token=")
	})

	t.Run("token is single use", func(t *testing.T) {
		token := core.MakeResetToken()
		require.NoError(t, repo.SetResetToken(ctx, usr.ID, token, time.Now().UTC().Add(10*time.Minute)))

		rp := user.ResetPassword{Token: token, NewPass: "str0ng#pass", ConfirmPass: "str0ng#pass"}
		require.NoError(t, svc.ResetPassword(ctx, rp))

		got, err := svc.Authenticate(ctx, user.Login{Email: "awe@test.cd", Password: "str0ng#pass"})
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)

		// both token fields were cleared
		err = svc.ResetPassword(ctx, rp)
		assert.Equal(t, user.ErrLinkExpired, err)
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		// no reset requested: both token fields are empty on the account, so
		// an empty token must never be treated as a match
		err := svc.ResetPassword(ctx, user.ResetPassword{NewPass: "h1jack#pass", ConfirmPass: "h1jack#pass"})
		assert.Equal(t, user.ErrLinkExpired, err)

		_, err = svc.Authenticate(ctx, user.Login{Email: "awe@test.cd", Password: "h1jack#pass"})
		assert.Equal(t, user.ErrBadCredentials, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token := core.MakeResetToken()
		require.NoError(t, repo.SetResetToken(ctx, usr.ID, token, time.Now().UTC().Add(-time.Minute)))

		err := svc.ResetPassword(ctx, user.ResetPassword{Token: token, NewPass: "x", ConfirmPass: "x"})
		assert.Equal(t, user.ErrLinkExpired, err)
	})

	t.Run("password mismatch", func(t *testing.T) {
		token := core.MakeResetToken()
		require.NoError(t, repo.SetResetToken(ctx, usr.ID, token, time.Now().UTC().Add(10*time.Minute)))

		err := svc.ResetPassword(ctx, user.ResetPassword{Token: token, NewPass: "a", ConfirmPass: "b"})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("weak passwords are rejected", func(t *testing.T) {
		for _, pwd := range []string{"short", "123456789", "awe@test.cd"} {
			token := core.MakeResetToken()
			require.NoError(t, repo.SetResetToken(ctx, usr.ID, token, time.Now().UTC().Add(10*time.Minute)))

			err := svc.ResetPassword(ctx, user.ResetPassword{Token: token, NewPass: pwd, ConfirmPass: pwd})
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr, pwd)
		}
	})
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr := registerUser(t, svc, "awe", "awe@test.cd", "")

	rp := user.ResetPassword{NewPass: "ch@nged-4-good", ConfirmPass: "ch@nged-4-good"}
	require.NoError(t, svc.ChangePassword(ctx, usr.Principal(), rp))

	_, err := svc.Authenticate(ctx, user.Login{Email: "awe@test.cd", Password: "ch@nged-4-good"})
	assert.NoError(t, err)
}

func TestService_Query(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	reader := registerUser(t, svc, "reader", "reader@test.cd", "")
	admin := registerUser(t, svc, "admin", "admin@test.cd", core.RoleAdmin)

	t.Run("reader may not list", func(t *testing.T) {
		_, _, err := svc.Query(ctx, reader.Principal(), core.ListParams{})
		assert.True(t, core.IsKind(err, core.KindAuthorization))
	})

	t.Run("admin sees all", func(t *testing.T) {
		users, pageInfo, err := svc.Query(ctx, admin.Principal(), core.ListParams{})
		require.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, int64(2), pageInfo.TotalCount)
	})

	t.Run("keyword filters userName", func(t *testing.T) {
		users, _, err := svc.Query(ctx, admin.Principal(), core.ListParams{Keyword: "READ"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, reader.ID, users[0].ID)
	})

	t.Run("pagination math", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			registerUser(t, svc, fmt.Sprintf("extra%02d", i), fmt.Sprintf("extra%02d@test.cd", i), "")
		}
		users, pageInfo, err := svc.Query(ctx, admin.Principal(), core.ListParams{PageNumber: 2, Limit: 5})
		require.NoError(t, err)
		assert.Len(t, users, 5)
		assert.Equal(t, int64(12), pageInfo.TotalCount)
		assert.Equal(t, 3, pageInfo.TotalPages)
		assert.Equal(t, 2, pageInfo.PageNumber)
	})
}

func TestService_ScopeIsolation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr1 := registerUser(t, svc, "one", "one@test.cd", "")
	usr2 := registerUser(t, svc, "two", "two@test.cd", "")

	// a reader reads itself but not others; out-of-scope reads as absent
	got, err := svc.GetByID(ctx, usr1.Principal(), usr1.ID)
	require.NoError(t, err)
	assert.Equal(t, usr1.ID, got.ID)

	_, err = svc.GetByID(ctx, usr1.Principal(), usr2.ID)
	assert.Equal(t, user.ErrNotFound, err)

	_, err = svc.Update(ctx, usr1.Principal(), usr2.ID, user.UpdateUser{UserName: "hacked"})
	assert.Equal(t, user.ErrNotFound, err)

	err = svc.Delete(ctx, usr1.Principal(), usr2.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Update(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr1 := registerUser(t, svc, "one", "one@test.cd", "")
	registerUser(t, svc, "two", "two@test.cd", "")
	admin := core.Principal{ID: "x", Role: core.RoleAdmin}

	// taking another account's email conflicts
	_, err := svc.Update(ctx, admin, usr1.ID, user.UpdateUser{Email: "two@test.cd"})
	assert.Equal(t, user.ErrEmailExists, err)

	// keeping one's own email is fine
	got, err := svc.Update(ctx, admin, usr1.ID, user.UpdateUser{UserName: "renamed", Email: "one@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.UserName)
}

func TestService_Delete(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr := registerUser(t, svc, "one", "one@test.cd", "")
	admin := core.Principal{ID: "x", Role: core.RoleAdmin}

	require.NoError(t, svc.Delete(ctx, admin, usr.ID))

	// reads as absent afterwards; a second delete reports not found
	_, err := svc.GetByID(ctx, admin, usr.ID)
	assert.Equal(t, user.ErrNotFound, err)
	assert.Equal(t, user.ErrNotFound, svc.Delete(ctx, admin, usr.ID))

	users, _, err := svc.Query(ctx, admin, core.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, users)
}
