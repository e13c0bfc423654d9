package student

import (
	"context"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
)

var (
	// errors
	ErrNotFound          = core.NotFoundError("Student not found!")
	ErrNoChange          = core.StateError("No change detected!")
	ErrSchoolNotSelected = core.StateError("School not selected!")
)

type (
	// GetFilter selects a single non-deleted Student. A non-zero Scope is
	// folded into the lookup so out-of-scope records read as absent.
	GetFilter struct {
		ID          string
		NameKeyword string
		Scope       core.Scope
	}

	Repository interface {
		// CreateStudent inserts the student and maintains the owning school's
		// standards cache in a single transaction: the school must exist and
		// be non-deleted, its Standards gains st.Std if absent, and Count is
		// bumped alongside. ErrNotFound from core/school signals a missing
		// owner.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		FilterStudents(ctx context.Context, scope core.Scope, params core.ListParams) ([]Student, int64, error)
		UpdateStudent(ctx context.Context, id string, us UpdateStudent, photo string) (Student, error)
		SetStudentStatus(ctx context.Context, id string, status bool) error
		SoftDeleteStudent(ctx context.Context, id string) error
		// StandardCounts groups a school's non-deleted students by std.
		StandardCounts(ctx context.Context, schoolID string) ([]StdCount, error)
		CountStudents(ctx context.Context, scope core.Scope) (int64, error)
		// SchoolStandards reads the owning school's standards cache.
		SchoolStandards(ctx context.Context, schoolID string) ([]int64, error)
	}

	Service struct {
		repo   Repository
		files  core.FileStorage
		logger core.Logger
	}
)

func NewService(repo Repository, files core.FileStorage, logger core.Logger) *Service {
	return &Service{repo: repo, files: files, logger: logger}
}

// Create enrolls a student. A School principal always enrolls into its own
// school; an Admin must name the school explicitly.
func (svc *Service) Create(ctx context.Context, p core.Principal, ns NewStudent, photo *multipart.FileHeader) (Student, error) {
	if err := core.Authorize(p, core.OpStudentCreate); err != nil {
		return Student{}, err
	}

	schoolID := ns.School
	if p.IsSchool() {
		schoolID = p.ID
	}
	if schoolID == "" {
		return Student{}, ErrSchoolNotSelected
	}

	st := Student{
		Name:         ns.Name,
		ParentNumber: ns.ParentNumber,
		Address:      ns.Address,
		Std:          ns.Std,
		DOB:          ns.DOB,
		Status:       true,
		SchoolID:     schoolID,
	}
	if photo != nil {
		var err error
		if st.Photo, err = svc.files.Save(photo, PhotoFolder); err != nil {
			return Student{}, errors.Wrap(err, "saving photo")
		}
	}

	st, err := svc.repo.CreateStudent(ctx, st)
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return Student{}, school.ErrNotFound
		}
		return Student{}, errors.Wrap(err, "creating student")
	}
	return svc.withPhotoURL(st), nil
}

func (svc *Service) Query(ctx context.Context, p core.Principal, params core.ListParams) ([]Student, core.PageInfo, error) {
	if err := core.Authorize(p, core.OpStudentList); err != nil {
		return nil, core.PageInfo{}, err
	}
	params.Clean()
	students, total, err := svc.repo.FilterStudents(ctx, p.StudentScope(), params)
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying students")
	}
	return svc.withPhotoURLs(students), core.NewPageInfo(total, params), nil
}

// FindOne resolves a student by id when key parses as a UUID, otherwise by
// name keyword, returning the first match within the caller's scope. An empty
// key matches nothing; without the guard the filter would match every
// in-scope record.
func (svc *Service) FindOne(ctx context.Context, p core.Principal, key string) (Student, error) {
	if err := core.Authorize(p, core.OpStudentFind); err != nil {
		return Student{}, err
	}
	if key == "" {
		return Student{}, ErrNotFound
	}
	filter := GetFilter{Scope: p.StudentScope()}
	if _, err := uuid.Parse(key); err == nil {
		filter.ID = key
	} else {
		filter.NameKeyword = key
	}
	st, err := svc.repo.GetStudent(ctx, filter)
	if err != nil {
		return Student{}, err
	}
	return svc.withPhotoURL(st), nil
}

// Update modifies a student's profile. When a new photo is uploaded the old
// file is removed best-effort after the record is updated.
func (svc *Service) Update(ctx context.Context, p core.Principal, id string, us UpdateStudent, photo *multipart.FileHeader) (Student, error) {
	if err := core.Authorize(p, core.OpStudentUpdate); err != nil {
		return Student{}, err
	}
	st, err := svc.repo.GetStudent(ctx, GetFilter{ID: id, Scope: p.StudentScope()})
	if err != nil {
		return Student{}, err
	}

	var newPhoto string
	if photo != nil {
		if newPhoto, err = svc.files.Save(photo, PhotoFolder); err != nil {
			return Student{}, errors.Wrap(err, "saving photo")
		}
	}
	oldPhoto := st.Photo
	if st, err = svc.repo.UpdateStudent(ctx, st.ID, us, newPhoto); err != nil {
		return Student{}, err
	}
	if newPhoto != "" && oldPhoto != "" {
		if err = svc.files.Remove(PhotoFolder, oldPhoto); err != nil {
			svc.logger.Warn("removing replaced student photo", "error", err)
		}
	}
	return svc.withPhotoURL(st), nil
}

// SetActiveStatus toggles a student between active and inactive. Asking for
// the status the student already has is reported as ErrNoChange.
func (svc *Service) SetActiveStatus(ctx context.Context, p core.Principal, id string, status bool) (Student, error) {
	if err := core.Authorize(p, core.OpStudentStatus); err != nil {
		return Student{}, err
	}
	st, err := svc.repo.GetStudent(ctx, GetFilter{ID: id, Scope: p.StudentScope()})
	if err != nil {
		return Student{}, err
	}
	if st.Status == status {
		return Student{}, ErrNoChange
	}
	if err = svc.repo.SetStudentStatus(ctx, st.ID, status); err != nil {
		return Student{}, errors.Wrap(err, "updating status")
	}
	st.Status = status
	return svc.withPhotoURL(st), nil
}

// Delete soft-deletes a student. The owning school's standards cache is a
// historical record and is left untouched.
func (svc *Service) Delete(ctx context.Context, p core.Principal, id string) error {
	if err := core.Authorize(p, core.OpStudentDelete); err != nil {
		return err
	}
	st, err := svc.repo.GetStudent(ctx, GetFilter{ID: id, Scope: p.StudentScope()})
	if err != nil {
		return err
	}
	return svc.repo.SoftDeleteStudent(ctx, st.ID)
}

// StandardCounts reports per-grade student counts for one school. A School
// principal always reads its own school.
func (svc *Service) StandardCounts(ctx context.Context, p core.Principal, schoolID string) ([]StdCount, error) {
	if err := core.Authorize(p, core.OpStudentCounts); err != nil {
		return nil, err
	}
	if p.IsSchool() {
		schoolID = p.ID
	}
	if schoolID == "" {
		return nil, ErrSchoolNotSelected
	}
	return svc.repo.StandardCounts(ctx, schoolID)
}

// Total counts every non-deleted student on the platform.
func (svc *Service) Total(ctx context.Context, p core.Principal) (int64, error) {
	if err := core.Authorize(p, core.OpStudentTotal); err != nil {
		return 0, err
	}
	return svc.repo.CountStudents(ctx, core.Scope{})
}

// Standards returns the owning school's populated grade-levels. A School
// principal always reads its own school.
func (svc *Service) Standards(ctx context.Context, p core.Principal, schoolID string) ([]int64, error) {
	if err := core.Authorize(p, core.OpStudentStandards); err != nil {
		return nil, err
	}
	if p.IsSchool() {
		schoolID = p.ID
	}
	if schoolID == "" {
		return nil, ErrSchoolNotSelected
	}
	return svc.repo.SchoolStandards(ctx, schoolID)
}

func (svc *Service) withPhotoURL(st Student) Student {
	st.PhotoURL = svc.files.URL(PhotoFolder, st.Photo)
	return st
}

func (svc *Service) withPhotoURLs(students []Student) []Student {
	for i := range students {
		students[i] = svc.withPhotoURL(students[i])
	}
	return students
}
