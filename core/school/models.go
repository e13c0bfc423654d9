package school

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/shulehq/shule/core"
)

// PhotoFolder is the upload subfolder for school photos.
const PhotoFolder = "schoolImages"

// School is a tenant account. Standards is the denormalized set of distinct
// grade-levels currently populated by its students; Count mirrors its length.
// Both only ever grow (see Repository.CreateStudent in core/student).
type School struct {
	ID               string        `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string        `gorm:"index;not null" json:"name"`
	Email            string        `gorm:"index;not null" json:"email"`
	PasswordHash     []byte        `json:"-"`
	Address          string        `gorm:"not null" json:"address"`
	Photo            string        `json:"-"`
	PhotoURL         string        `gorm:"-" json:"photo"`
	ZipCode          string        `gorm:"not null" json:"zipCode"`
	City             string        `gorm:"not null" json:"city"`
	State            string        `gorm:"not null" json:"state"`
	Country          string        `gorm:"not null" json:"country"`
	Role             core.Role     `gorm:"type:varchar(16);not null" json:"role"`
	Standards        pq.Int64Array `gorm:"type:integer[]" json:"standards"`
	Count            int           `gorm:"not null;default:0" json:"count"`
	ForgetPwdToken   string        `json:"-"`
	ForgetPwdExpires time.Time     `json:"-"`
	Deleted          bool          `gorm:"not null;default:false;index" json:"deleted"`
	CreatedAt        time.Time     `json:"created_at"` // UTC
	UpdatedAt        time.Time     `json:"updated_at"` // UTC
}

func (s *School) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *School) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

func (s School) Principal() core.Principal {
	return core.Principal{ID: s.ID, Email: s.Email, Role: s.Role}
}

func (s School) HasStandard(std int) bool {
	for _, v := range s.Standards {
		if int(v) == std {
			return true
		}
	}
	return false
}

// NewSchool contains information needed to register a new School. The initial
// password is generated server-side and mailed.
type NewSchool struct {
	Name    string `json:"name" form:"name" validate:"required"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Address string `json:"address" form:"address" validate:"required"`
	ZipCode string `json:"zipCode" form:"zipCode" validate:"required"`
	City    string `json:"city" form:"city" validate:"required"`
	State   string `json:"state" form:"state" validate:"required"`
	Country string `json:"country" form:"country" validate:"required"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.City = core.CleanString(ns.City)
	return validate.Struct(ns)
}

// UpdateSchool defines what information may be provided to modify an existing
// School. Absent fields are left untouched; Standards and Count are never
// caller-writable.
type UpdateSchool struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email" validate:"omitempty,email"`
	Address string `json:"address" form:"address"`
	ZipCode string `json:"zipCode" form:"zipCode"`
	City    string `json:"city" form:"city"`
	State   string `json:"state" form:"state"`
	Country string `json:"country" form:"country"`
}

func (us *UpdateSchool) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.City = core.CleanString(us.City)
	return validate.Struct(us)
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Validate(validate *validator.Validate) error {
	l.Email = core.CleanString(l.Email, true /* lower */)
	return validate.Struct(l)
}

type ForgottenPassword struct {
	Email string `json:"email" validate:"required,email"`
}

func (fp *ForgottenPassword) Validate(validate *validator.Validate) error {
	fp.Email = core.CleanString(fp.Email, true /* lower */)
	return validate.Struct(fp)
}

type ResetPassword struct {
	Token       string `json:"token"`
	NewPass     string `json:"newPass" validate:"required"`
	ConfirmPass string `json:"confirmPass" validate:"required"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// NameEntry is the id+name projection served to school pickers.
type NameEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
