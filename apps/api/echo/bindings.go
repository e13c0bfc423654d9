package echoapi

import (
	"mime/multipart"

	"github.com/labstack/echo/v4"

	"github.com/shulehq/shule/core"
)

// Success messages carried alongside response payloads.
const (
	msgUserCreated     = "User created!"
	msgLoggedIn        = "User logged in successfully!"
	msgSchoolLoggedIn  = "School logged in successfully!"
	msgFindAllUsers    = "Found all users!"
	msgFoundOneUser    = "Found one user!"
	msgUpdatedUser     = "User updated successfully!"
	msgUserDeleted     = "User Deleted!"
	msgMailSent        = "Please check your email for details to reset password!"
	msgPwdChanged      = "Password changed successfully!"
	msgSchoolCreated   = "School created!"
	msgFindAllSchools  = "Found all schools!"
	msgFoundOneSchool  = "Found one school!"
	msgUpdatedSchool   = "School updated successfully!"
	msgSchoolDeleted   = "School Deleted!"
	msgStudentCreated  = "Student created!"
	msgFindAllStudents = "Found all students!"
	msgFoundOneStudent = "Found one student!"
	msgUpdatedStudent  = "Student updated successfully!"
	msgStatusChanged   = "Status changed successfully!"
	msgStudentDeleted  = "Student Deleted!"
)

type (
	// LoginResponse is returned on successful authentication and on account
	// creation, which also opens a session for the new account.
	LoginResponse struct {
		AccessToken string      `json:"access_token"`
		User        interface{} `json:"user"`
		Message     string      `json:"message"`
	}

	SuccessResponse struct {
		Message string `json:"message"`
	}

	// ListResponse is the shared paginated list envelope.
	ListResponse struct {
		Items      interface{} `json:"items"`
		TotalCount int64       `json:"totalCount"`
		PageNumber int         `json:"pageNumber"`
		Limit      int         `json:"limit"`
		TotalPages int         `json:"totalPages"`
		Message    string      `json:"message"`
	}
)

// formPhoto extracts the optional "photo" upload; a non-multipart request or
// a missing part simply means no photo.
func formPhoto(ctx echo.Context) (*multipart.FileHeader, error) {
	fh, err := ctx.FormFile("photo")
	if err != nil {
		return nil, nil
	}
	return fh, nil
}

func newListResponse(items interface{}, pi core.PageInfo, msg string) ListResponse {
	return ListResponse{
		Items:      items,
		TotalCount: pi.TotalCount,
		PageNumber: pi.PageNumber,
		Limit:      pi.Limit,
		TotalPages: pi.TotalPages,
		Message:    msg,
	}
}
