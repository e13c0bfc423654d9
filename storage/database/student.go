package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
	"github.com/shulehq/shule/core/student"
)

var studentList = listSpec{
	searchColumn: "name",
	defaultSort:  "std",
	columns: map[string]column{
		"name":   {"name", colText},
		"std":    {"std", colNumber},
		"school": {"school_id", colExact},
	},
}

type StudentRepo struct {
	db *gorm.DB
}

var _ student.Repository = (*StudentRepo)(nil)

func NewStudentRepo(db *gorm.DB) *StudentRepo {
	return &StudentRepo{db: db}
}

// CreateStudent inserts the student and folds its grade into the owning
// school's standards cache in one transaction. The array update is guarded by
// a containment check so concurrent enrollments into the same grade cannot
// append it twice.
func (repo *StudentRepo) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = uuid.NewString()
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		err := tx.Model(&school.School{}).
			Where("id = ? AND deleted = ?", st.SchoolID, false).
			Count(&owners).Error
		if err != nil {
			return err
		}
		if owners == 0 {
			return school.ErrNotFound
		}

		err = tx.Model(&school.School{}).
			Where("id = ? AND NOT (standards @> ?)", st.SchoolID, pq.Int64Array{int64(st.Std)}).
			Updates(map[string]interface{}{
				"standards": gorm.Expr("array_append(standards, ?)", st.Std),
				"count":     gorm.Expr(`"count" + 1`),
			}).Error
		if err != nil {
			return err
		}

		return tx.Create(&st).Error
	})
	if err != nil {
		return student.Student{}, err
	}
	return st, nil
}

func (repo *StudentRepo) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	q := repo.db.WithContext(ctx).Where("deleted = ?", false)
	if filter.ID != "" {
		q = q.Where("id = ?", filter.ID)
	}
	if filter.NameKeyword != "" {
		q = q.Where("name ILIKE ?", "%"+filter.NameKeyword+"%").Order("name ASC")
	}
	if filter.Scope.SchoolID != "" {
		q = q.Where("school_id = ?", filter.Scope.SchoolID)
	}

	var st student.Student
	if err := q.First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, err
	}
	return st, nil
}

func (repo *StudentRepo) FilterStudents(ctx context.Context, scope core.Scope, params core.ListParams) ([]student.Student, int64, error) {
	q := repo.db.WithContext(ctx).Model(&student.Student{}).Where("deleted = ?", false)
	if scope.SchoolID != "" {
		q = q.Where("school_id = ?", scope.SchoolID)
	}

	students := []student.Student{}
	total, err := studentList.list(q, params, &students)
	return students, total, err
}

func (repo *StudentRepo) UpdateStudent(ctx context.Context, id string, us student.UpdateStudent, photo string) (student.Student, error) {
	updates := make(map[string]interface{})
	if us.Name != "" {
		updates["name"] = us.Name
	}
	if us.ParentNumber != "" {
		updates["parent_number"] = us.ParentNumber
	}
	if us.Address != "" {
		updates["address"] = us.Address
	}
	if us.Std > 0 {
		updates["std"] = us.Std
	}
	if us.DOB != "" {
		updates["dob"] = us.DOB
	}
	if photo != "" {
		updates["photo"] = photo
	}
	if len(updates) > 0 {
		err := repo.db.WithContext(ctx).Model(&student.Student{}).
			Where("id = ? AND deleted = ?", id, false).
			Updates(updates).Error
		if err != nil {
			return student.Student{}, err
		}
	}
	return repo.GetStudent(ctx, student.GetFilter{ID: id})
}

func (repo *StudentRepo) SetStudentStatus(ctx context.Context, id string, status bool) error {
	return repo.db.WithContext(ctx).Model(&student.Student{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (repo *StudentRepo) SoftDeleteStudent(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Model(&student.Student{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}

func (repo *StudentRepo) StandardCounts(ctx context.Context, schoolID string) ([]student.StdCount, error) {
	counts := []student.StdCount{}
	err := repo.db.WithContext(ctx).Model(&student.Student{}).
		Select("std, count(*) AS count").
		Where("school_id = ? AND deleted = ?", schoolID, false).
		Group("std").
		Order("std ASC").
		Scan(&counts).Error
	return counts, err
}

func (repo *StudentRepo) CountStudents(ctx context.Context, scope core.Scope) (int64, error) {
	q := repo.db.WithContext(ctx).Model(&student.Student{}).Where("deleted = ?", false)
	if scope.SchoolID != "" {
		q = q.Where("school_id = ?", scope.SchoolID)
	}

	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (repo *StudentRepo) SchoolStandards(ctx context.Context, schoolID string) ([]int64, error) {
	var sch school.School
	err := repo.db.WithContext(ctx).
		Select("standards").
		Where("id = ? AND deleted = ?", schoolID, false).
		First(&sch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, school.ErrNotFound
		}
		return nil, err
	}
	return []int64(sch.Standards), nil
}
