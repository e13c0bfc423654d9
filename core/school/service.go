package school

import (
	"context"
	"mime/multipart"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

var (
	// errors
	ErrNotFound       = core.NotFoundError("School not found!")
	ErrEmailExists    = core.ConflictError("Entered email is not available to use! Please use another!")
	ErrEmailNotLinked = core.NotFoundError("Provided email is not linked with any account! Please enter a valid email!")
	ErrBadCredentials = core.AuthenticationError("Bad Credentials!")
	ErrLinkExpired    = core.StateError("Password reset token is invalid or has expired!")

	errPwdMismatch = errors.New("Password's don't match!")
)

type (
	// GetFilter selects a single non-deleted School. A non-zero Scope is
	// folded into the lookup so out-of-scope records read as absent.
	GetFilter struct {
		ID         string
		Email      string
		ResetToken string
		Scope      core.Scope
	}

	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchool(ctx context.Context, filter GetFilter) (School, error)
		FilterSchools(ctx context.Context, scope core.Scope, params core.ListParams) ([]School, int64, error)
		// AllSchools returns every non-deleted school, unpaginated.
		AllSchools(ctx context.Context) ([]School, error)
		// SearchSchoolsByName matches the keyword against names,
		// case-insensitively, without pagination.
		SearchSchoolsByName(ctx context.Context, keyword string) ([]School, error)
		EmailTaken(ctx context.Context, email string, excludedIDs ...string) (bool, error)
		UpdateSchool(ctx context.Context, id string, us UpdateSchool, photo string) (School, error)
		SetPassword(ctx context.Context, id string, hash []byte, clearResetToken bool) error
		SetResetToken(ctx context.Context, id, token string, expires time.Time) error
		SoftDeleteSchool(ctx context.Context, id string) error
		// Cities returns the distinct cities of non-deleted schools.
		Cities(ctx context.Context) ([]string, error)
		// Names returns the id+name of every non-deleted school.
		Names(ctx context.Context) ([]NameEntry, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		files   core.FileStorage
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, files core.FileStorage, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, files: files, logger: logger}
}

// Register creates a School account with a generated initial password and
// mails it. Only Admins may register schools. Mail delivery is
// fire-and-forget; its failure never fails registration.
func (svc *Service) Register(ctx context.Context, p core.Principal, ns NewSchool, photo *multipart.FileHeader) (School, error) {
	if err := core.Authorize(p, core.OpSchoolRegister); err != nil {
		return School{}, err
	}

	taken, err := svc.repo.EmailTaken(ctx, ns.Email)
	if err != nil {
		return School{}, errors.Wrap(err, "checking email uniqueness")
	}
	if taken {
		return School{}, ErrEmailExists
	}

	sch := School{
		Name:      ns.Name,
		Email:     ns.Email,
		Address:   ns.Address,
		ZipCode:   ns.ZipCode,
		City:      ns.City,
		State:     ns.State,
		Country:   ns.Country,
		Role:      core.RoleSchool,
		Standards: []int64{},
	}
	if photo != nil {
		if sch.Photo, err = svc.files.Save(photo, PhotoFolder); err != nil {
			return School{}, errors.Wrap(err, "saving photo")
		}
	}
	pwd := core.RandomPassword(8)
	if err = sch.SetPassword(pwd); err != nil {
		return School{}, errors.Wrap(err, "hashing password")
	}
	if sch, err = svc.repo.CreateSchool(ctx, sch); err != nil {
		return School{}, errors.Wrap(err, "creating school")
	}

	svc.sendWelcomeMail(sch, pwd)
	return svc.withPhotoURL(sch), nil
}

func (svc *Service) Authenticate(ctx context.Context, login Login) (School, error) {
	sch, err := svc.repo.GetSchool(ctx, GetFilter{Email: login.Email})
	if err != nil {
		return School{}, err
	}
	if err = sch.CheckPassword(login.Password); err != nil {
		return School{}, ErrBadCredentials
	}
	return svc.withPhotoURL(sch), nil
}

// RequestPasswordReset stores a single-use reset token with a short expiry
// window and mails a reset link.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	sch, err := svc.repo.GetSchool(ctx, GetFilter{Email: email})
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return ErrEmailNotLinked
		}
		return errors.Wrap(err, "finding school by email")
	}

	token := core.MakeResetToken()
	expires := time.Now().UTC().Add(core.Conf.PasswordResetTimeout)
	if err = svc.repo.SetResetToken(ctx, sch.ID, token, expires); err != nil {
		return errors.Wrap(err, "storing reset token")
	}

	svc.sendPasswordResetMail(sch, token)
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
	sch, err := svc.repo.GetSchool(ctx, GetFilter{ResetToken: rp.Token})
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return ErrLinkExpired
		}
		return errors.Wrap(err, "finding school by reset token")
	}
	return svc.setNewPassword(ctx, sch, rp, true /* clear token */)
}

// ChangePassword is the self-service variant for an authenticated principal.
func (svc *Service) ChangePassword(ctx context.Context, p core.Principal, rp ResetPassword) error {
	sch, err := svc.repo.GetSchool(ctx, GetFilter{ID: p.ID})
	if err != nil {
		return err
	}
	return svc.setNewPassword(ctx, sch, rp, true)
}

func (svc *Service) setNewPassword(ctx context.Context, sch School, rp ResetPassword, clearToken bool) error {
	if rp.NewPass != rp.ConfirmPass {
		return core.NewValidationError(errPwdMismatch, core.FieldError{Field: "confirmPass", Error: errPwdMismatch.Error()})
	}
	if err := core.ValidatePassword(rp.NewPass, sch.Name, sch.Email); err != nil {
		return err
	}
	if err := sch.SetPassword(rp.NewPass); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.SetPassword(ctx, sch.ID, sch.PasswordHash, clearToken), "storing password")
}

func (svc *Service) Query(ctx context.Context, p core.Principal, params core.ListParams) ([]School, core.PageInfo, error) {
	if err := core.Authorize(p, core.OpSchoolList); err != nil {
		return nil, core.PageInfo{}, err
	}
	params.Clean()
	schools, total, err := svc.repo.FilterSchools(ctx, p.SchoolScope(), params)
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying schools")
	}
	return svc.withPhotoURLs(schools), core.NewPageInfo(total, params), nil
}

// All returns every non-deleted school. Admin only; used by dashboards that
// need the full list without paging.
func (svc *Service) All(ctx context.Context, p core.Principal) ([]School, error) {
	if err := core.Authorize(p, core.OpSchoolList); err != nil {
		return nil, err
	}
	schools, err := svc.repo.AllSchools(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing schools")
	}
	return svc.withPhotoURLs(schools), nil
}

func (svc *Service) GetByID(ctx context.Context, p core.Principal, id string) (School, error) {
	if err := core.Authorize(p, core.OpSchoolRead); err != nil {
		return School{}, err
	}
	sch, err := svc.repo.GetSchool(ctx, GetFilter{ID: id, Scope: p.SchoolScope()})
	if err != nil {
		return School{}, err
	}
	return svc.withPhotoURL(sch), nil
}

// FindByName searches schools by name keyword, case-insensitively.
func (svc *Service) FindByName(ctx context.Context, p core.Principal, keyword string) ([]School, error) {
	if err := core.Authorize(p, core.OpSchoolFind); err != nil {
		return nil, err
	}
	schools, err := svc.repo.SearchSchoolsByName(ctx, keyword)
	if err != nil {
		return nil, errors.Wrap(err, "searching schools")
	}
	if len(schools) == 0 {
		return nil, ErrNotFound
	}
	return svc.withPhotoURLs(schools), nil
}

// Update modifies a school's profile. When a new photo is uploaded the old
// file is removed best-effort after the record is updated.
func (svc *Service) Update(ctx context.Context, p core.Principal, id string, us UpdateSchool, photo *multipart.FileHeader) (School, error) {
	if err := core.Authorize(p, core.OpSchoolUpdate); err != nil {
		return School{}, err
	}
	sch, err := svc.repo.GetSchool(ctx, GetFilter{ID: id, Scope: p.SchoolScope()})
	if err != nil {
		return School{}, err
	}
	if us.Email != "" && us.Email != sch.Email {
		taken, err := svc.repo.EmailTaken(ctx, us.Email, sch.ID)
		if err != nil {
			return School{}, errors.Wrap(err, "checking email uniqueness")
		}
		if taken {
			return School{}, ErrEmailExists
		}
	}

	var newPhoto string
	if photo != nil {
		if newPhoto, err = svc.files.Save(photo, PhotoFolder); err != nil {
			return School{}, errors.Wrap(err, "saving photo")
		}
	}
	oldPhoto := sch.Photo
	if sch, err = svc.repo.UpdateSchool(ctx, sch.ID, us, newPhoto); err != nil {
		return School{}, err
	}
	if newPhoto != "" && oldPhoto != "" {
		if err = svc.files.Remove(PhotoFolder, oldPhoto); err != nil {
			svc.logger.Warn("removing replaced school photo", "error", err)
		}
	}
	return svc.withPhotoURL(sch), nil
}

func (svc *Service) Delete(ctx context.Context, p core.Principal, id string) error {
	if err := core.Authorize(p, core.OpSchoolDelete); err != nil {
		return err
	}
	sch, err := svc.repo.GetSchool(ctx, GetFilter{ID: id, Scope: p.SchoolScope()})
	if err != nil {
		return err
	}
	return svc.repo.SoftDeleteSchool(ctx, sch.ID)
}

func (svc *Service) Cities(ctx context.Context, p core.Principal) ([]string, error) {
	if err := core.Authorize(p, core.OpSchoolCities); err != nil {
		return nil, err
	}
	return svc.repo.Cities(ctx)
}

func (svc *Service) Names(ctx context.Context, p core.Principal) ([]NameEntry, error) {
	if err := core.Authorize(p, core.OpSchoolNames); err != nil {
		return nil, err
	}
	return svc.repo.Names(ctx)
}

func (svc *Service) withPhotoURL(sch School) School {
	sch.PhotoURL = svc.files.URL(PhotoFolder, sch.Photo)
	return sch
}

func (svc *Service) withPhotoURLs(schools []School) []School {
	for i := range schools {
		schools[i] = svc.withPhotoURL(schools[i])
	}
	return schools
}

func (svc *Service) sendWelcomeMail(sch School, pwd string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: sch.Name, Address: sch.Email}},
		Subject:      "Successfull Registration!",
		TemplateName: "password",
		TemplateData: struct {
			Name     string
			Username string
			Password string
		}{sch.Name, sch.Email, pwd},
	})
}

func (svc *Service) sendPasswordResetMail(sch School, token string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: sch.Name, Address: sch.Email}},
		Subject:      "Forget Password Request!",
		TemplateName: "resetPwd",
		TemplateData: struct {
			Name       string
			ButtonLink string
			ButtonText string
		}{sch.Name, core.Conf.FrontendBaseURL + "/schools/reset?token=" + token, "RESET"},
	})
}
