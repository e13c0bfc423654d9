package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulehq/shule/core"
)

// PhotoFolder is the upload subfolder for student photos.
const PhotoFolder = "studentImages"

// Student belongs to exactly one school. Status distinguishes active from
// inactive students without removing them; Deleted hides the record entirely.
type Student struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"index;not null" json:"name"`
	ParentNumber string    `gorm:"not null" json:"parentNumber"`
	Address      string    `gorm:"not null" json:"address"`
	Std          int       `gorm:"not null;index" json:"std"`
	Photo        string    `json:"-"`
	PhotoURL     string    `gorm:"-" json:"photo"`
	DOB          string    `json:"dob"`
	Status       bool      `gorm:"not null;default:true" json:"status"`
	Deleted      bool      `gorm:"not null;default:false;index" json:"deleted"`
	SchoolID     string    `gorm:"type:uuid;not null;index" json:"school"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to enroll a student. School is the
// owning school's id; it is required for Admins and ignored for School
// principals, who always enroll into their own school.
type NewStudent struct {
	Name         string `json:"name" form:"name" validate:"required"`
	ParentNumber string `json:"parentNumber" form:"parentNumber" validate:"required"`
	Address      string `json:"address" form:"address" validate:"required"`
	Std          int    `json:"std" form:"std" validate:"required,min=1"`
	DOB          string `json:"dob" form:"dob"`
	School       string `json:"school" form:"school"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Address = core.CleanString(ns.Address)
	ns.School = core.CleanString(ns.School)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an
// existing student. Absent fields are left untouched; the owning school and
// the active status are never changed here.
type UpdateStudent struct {
	Name         string `json:"name" form:"name"`
	ParentNumber string `json:"parentNumber" form:"parentNumber"`
	Address      string `json:"address" form:"address"`
	Std          int    `json:"std" form:"std" validate:"omitempty,min=1"`
	DOB          string `json:"dob" form:"dob"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Address = core.CleanString(us.Address)
	return validate.Struct(us)
}

type SetStatus struct {
	Status *bool `json:"status" validate:"required"`
}

func (ss *SetStatus) Validate(validate *validator.Validate) error {
	return validate.Struct(ss)
}

// StdCount is the number of students in one grade-level of a school.
type StdCount struct {
	Std   int   `json:"std"`
	Count int64 `json:"count"`
}
