package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
)

var schoolList = listSpec{
	searchColumn: "name",
	defaultSort:  "name",
	columns: map[string]column{
		"name":    {"name", colText},
		"city":    {"city", colText},
		"state":   {"state", colText},
		"country": {"country", colText},
		"zipCode": {"zip_code", colText},
		"email":   {"email", colExact},
	},
}

type SchoolRepo struct {
	db *gorm.DB
}

var _ school.Repository = (*SchoolRepo)(nil)

func NewSchoolRepo(db *gorm.DB) *SchoolRepo {
	return &SchoolRepo{db: db}
}

func (repo *SchoolRepo) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	sch.ID = uuid.NewString()
	if err := repo.db.WithContext(ctx).Create(&sch).Error; err != nil {
		return school.School{}, err
	}
	return sch, nil
}

func (repo *SchoolRepo) GetSchool(ctx context.Context, filter school.GetFilter) (school.School, error) {
	q := repo.db.WithContext(ctx).Where("deleted = ?", false)
	if filter.ID != "" {
		q = q.Where("id = ?", filter.ID)
	}
	if filter.Email != "" {
		q = q.Where("email = ?", filter.Email)
	}
	if filter.ResetToken != "" {
		q = q.Where("forget_pwd_token = ? AND forget_pwd_expires > ?", filter.ResetToken, time.Now().UTC())
	}
	if filter.Scope.SchoolID != "" {
		q = q.Where("id = ?", filter.Scope.SchoolID)
	}

	var sch school.School
	if err := q.First(&sch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, err
	}
	return sch, nil
}

func (repo *SchoolRepo) FilterSchools(ctx context.Context, scope core.Scope, params core.ListParams) ([]school.School, int64, error) {
	q := repo.db.WithContext(ctx).Model(&school.School{}).Where("deleted = ?", false)
	if scope.SchoolID != "" {
		q = q.Where("id = ?", scope.SchoolID)
	}

	schools := []school.School{}
	total, err := schoolList.list(q, params, &schools)
	return schools, total, err
}

func (repo *SchoolRepo) AllSchools(ctx context.Context) ([]school.School, error) {
	schools := []school.School{}
	err := repo.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("name ASC").
		Find(&schools).Error
	return schools, err
}

func (repo *SchoolRepo) SearchSchoolsByName(ctx context.Context, keyword string) ([]school.School, error) {
	schools := []school.School{}
	err := repo.db.WithContext(ctx).
		Where("deleted = ? AND name ILIKE ?", false, "%"+keyword+"%").
		Order("name ASC").
		Find(&schools).Error
	return schools, err
}

func (repo *SchoolRepo) EmailTaken(ctx context.Context, email string, excludedIDs ...string) (bool, error) {
	q := repo.db.WithContext(ctx).Model(&school.School{}).
		Where("email = ? AND deleted = ?", email, false)
	if len(excludedIDs) > 0 {
		q = q.Where("id NOT IN ?", excludedIDs)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (repo *SchoolRepo) UpdateSchool(ctx context.Context, id string, us school.UpdateSchool, photo string) (school.School, error) {
	updates := make(map[string]interface{})
	if us.Name != "" {
		updates["name"] = us.Name
	}
	if us.Email != "" {
		updates["email"] = us.Email
	}
	if us.Address != "" {
		updates["address"] = us.Address
	}
	if us.ZipCode != "" {
		updates["zip_code"] = us.ZipCode
	}
	if us.City != "" {
		updates["city"] = us.City
	}
	if us.State != "" {
		updates["state"] = us.State
	}
	if us.Country != "" {
		updates["country"] = us.Country
	}
	if photo != "" {
		updates["photo"] = photo
	}
	if len(updates) > 0 {
		err := repo.db.WithContext(ctx).Model(&school.School{}).
			Where("id = ? AND deleted = ?", id, false).
			Updates(updates).Error
		if err != nil {
			return school.School{}, err
		}
	}
	return repo.GetSchool(ctx, school.GetFilter{ID: id})
}

func (repo *SchoolRepo) SetPassword(ctx context.Context, id string, hash []byte, clearResetToken bool) error {
	updates := map[string]interface{}{"password_hash": hash}
	if clearResetToken {
		updates["forget_pwd_token"] = ""
		updates["forget_pwd_expires"] = time.Time{}
	}
	return repo.db.WithContext(ctx).Model(&school.School{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (repo *SchoolRepo) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return repo.db.WithContext(ctx).Model(&school.School{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"forget_pwd_token":   token,
			"forget_pwd_expires": expires,
		}).Error
}

func (repo *SchoolRepo) SoftDeleteSchool(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Model(&school.School{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}

func (repo *SchoolRepo) Cities(ctx context.Context) ([]string, error) {
	cities := []string{}
	err := repo.db.WithContext(ctx).Model(&school.School{}).
		Where("deleted = ?", false).
		Distinct().
		Order("city ASC").
		Pluck("city", &cities).Error
	return cities, err
}

func (repo *SchoolRepo) Names(ctx context.Context) ([]school.NameEntry, error) {
	names := []school.NameEntry{}
	err := repo.db.WithContext(ctx).Model(&school.School{}).
		Select("id", "name").
		Where("deleted = ?", false).
		Order("name ASC").
		Find(&names).Error
	return names, err
}
