package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/shulehq/shule/core"
)

// User is a platform account. The zero Role defaults to Reader at creation.
type User struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserName         string    `gorm:"not null" json:"userName"`
	Email            string    `gorm:"index;not null" json:"email"`
	PasswordHash     []byte    `json:"-"`
	Role             core.Role `gorm:"type:varchar(16);not null" json:"role"`
	ForgetPwdToken   string    `json:"-"`
	ForgetPwdExpires time.Time `json:"-"`
	Deleted          bool      `gorm:"not null;default:false;index" json:"deleted"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) Principal() core.Principal {
	return core.Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

// NewUser contains information needed to register a new User. The initial
// password is generated server-side and mailed, never supplied by the caller.
type NewUser struct {
	UserName string    `json:"userName" validate:"required"`
	Email    string    `json:"email" validate:"required,email"`
	Role     core.Role `json:"role" validate:"omitempty,role"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.UserName = core.CleanString(nu.UserName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing
// User. Absent fields are left untouched.
type UpdateUser struct {
	UserName string `json:"userName"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.UserName = core.CleanString(uu.UserName)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	return validate.Struct(uu)
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

// ResetPassword consumes a reset token, or changes the authenticated
// principal's own password when Token is empty.
type ResetPassword struct {
	Token       string `json:"token"`
	NewPass     string `json:"newPass" validate:"required"`
	ConfirmPass string `json:"confirmPass" validate:"required"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}
