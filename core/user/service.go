package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

var (
	// errors
	ErrNotFound       = core.NotFoundError("User not found!")
	ErrEmailExists    = core.ConflictError("Entered email is not available to use! Please use another!")
	ErrEmailNotLinked = core.NotFoundError("Provided email is not linked with any account! Please enter a valid email!")
	ErrBadCredentials = core.AuthenticationError("Bad Credentials!")
	ErrLinkExpired    = core.StateError("Password reset token is invalid or has expired!")

	errPwdMismatch = errors.New("Password's don't match!")
)

type (
	// GetFilter selects a single non-deleted User. A non-zero Scope is folded
	// into the lookup so out-of-scope records read as absent. ResetToken also
	// requires an unexpired reset window.
	GetFilter struct {
		ID         string
		Email      string
		ResetToken string
		Scope      core.Scope
	}

	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// FilterUsers applies scope, keyword/field filtering, ordering and
		// pagination; returns the page and the unpaginated total.
		FilterUsers(ctx context.Context, scope core.Scope, params core.ListParams) ([]User, int64, error)
		EmailTaken(ctx context.Context, email string, excludedIDs ...string) (bool, error)
		UpdateUser(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetPassword(ctx context.Context, id string, hash []byte, clearResetToken bool) error
		SetResetToken(ctx context.Context, id, token string, expires time.Time) error
		SoftDeleteUser(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Register creates a User with a generated initial password and mails it.
// Mail delivery is fire-and-forget; its failure never fails registration.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	taken, err := svc.repo.EmailTaken(ctx, nu.Email)
	if err != nil {
		return User{}, errors.Wrap(err, "checking email uniqueness")
	}
	if taken {
		return User{}, ErrEmailExists
	}

	role := nu.Role
	if role == "" {
		role = core.RoleReader
	}
	usr := User{
		UserName: nu.UserName,
		Email:    nu.Email,
		Role:     role,
	}
	pwd := core.RandomPassword(8)
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.sendWelcomeMail(usr, pwd)
	return usr, nil
}

func (svc *Service) Authenticate(ctx context.Context, login Login) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: login.Email})
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(login.Password); err != nil {
		return User{}, ErrBadCredentials
	}
	return usr, nil
}

// RequestPasswordReset stores a single-use reset token with a short expiry
// window and mails a reset link. An unknown email is reported as
// ErrEmailNotLinked, matching the original behavior.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return ErrEmailNotLinked
		}
		return errors.Wrap(err, "finding user by email")
	}

	token := core.MakeResetToken()
	expires := time.Now().UTC().Add(core.Conf.PasswordResetTimeout)
	if err = svc.repo.SetResetToken(ctx, usr.ID, token, expires); err != nil {
		return errors.Wrap(err, "storing reset token")
	}

	svc.sendPasswordResetMail(usr, token)
	return nil
}

// ResetPassword consumes a reset token: the token is honored at most once and
// only within its expiry window, then both token fields are cleared. An empty
// token never matches; without this guard the lookup would drop the token
// predicate entirely.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	if rp.Token == "" {
		return ErrLinkExpired
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ResetToken: rp.Token})
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return ErrLinkExpired
		}
		return errors.Wrap(err, "finding user by reset token")
	}
	return svc.setNewPassword(ctx, usr, rp, true /* clear token */)
}

// ChangePassword is the self-service variant for an authenticated principal.
func (svc *Service) ChangePassword(ctx context.Context, p core.Principal, rp ResetPassword) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: p.ID})
	if err != nil {
		return err
	}
	return svc.setNewPassword(ctx, usr, rp, true)
}

func (svc *Service) setNewPassword(ctx context.Context, usr User, rp ResetPassword, clearToken bool) error {
	if rp.NewPass != rp.ConfirmPass {
		return core.NewValidationError(errPwdMismatch, core.FieldError{Field: "confirmPass", Error: errPwdMismatch.Error()})
	}
	if err := core.ValidatePassword(rp.NewPass, usr.UserName, usr.Email); err != nil {
		return err
	}
	if err := usr.SetPassword(rp.NewPass); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.SetPassword(ctx, usr.ID, usr.PasswordHash, clearToken), "storing password")
}

func (svc *Service) Query(ctx context.Context, p core.Principal, params core.ListParams) ([]User, core.PageInfo, error) {
	if err := core.Authorize(p, core.OpUserList); err != nil {
		return nil, core.PageInfo{}, err
	}
	params.Clean()
	users, total, err := svc.repo.FilterUsers(ctx, p.UserScope(), params)
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying users")
	}
	return users, core.NewPageInfo(total, params), nil
}

func (svc *Service) GetByID(ctx context.Context, p core.Principal, id string) (User, error) {
	if err := core.Authorize(p, core.OpUserRead); err != nil {
		return User{}, err
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id, Scope: p.UserScope()})
}

func (svc *Service) Update(ctx context.Context, p core.Principal, id string, uu UpdateUser) (User, error) {
	if err := core.Authorize(p, core.OpUserUpdate); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id, Scope: p.UserScope()})
	if err != nil {
		return User{}, err
	}
	if uu.Email != "" && uu.Email != usr.Email {
		taken, err := svc.repo.EmailTaken(ctx, uu.Email, usr.ID)
		if err != nil {
			return User{}, errors.Wrap(err, "checking email uniqueness")
		}
		if taken {
			return User{}, ErrEmailExists
		}
	}
	return svc.repo.UpdateUser(ctx, usr.ID, uu)
}

func (svc *Service) Delete(ctx context.Context, p core.Principal, id string) error {
	if err := core.Authorize(p, core.OpUserDelete); err != nil {
		return err
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id, Scope: p.UserScope()})
	if err != nil {
		return err
	}
	return svc.repo.SoftDeleteUser(ctx, usr.ID)
}

func (svc *Service) sendWelcomeMail(usr User, pwd string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.UserName, Address: usr.Email}},
		Subject:      "Successfull Registration!",
		TemplateName: "password",
		TemplateData: struct {
			Name     string
			Username string
			Password string
		}{usr.UserName, usr.Email, pwd},
	})
}

func (svc *Service) sendPasswordResetMail(usr User, token string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.UserName, Address: usr.Email}},
		Subject:      "Forget Password Request!",
		TemplateName: "resetPwd",
		TemplateData: struct {
			Name       string
			ButtonLink string
			ButtonText string
		}{usr.UserName, core.Conf.FrontendBaseURL + "/users/reset?token=" + token, "RESET"},
	})
}
