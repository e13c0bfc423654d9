package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
)

type SchoolRepo struct {
	db *DB
}

var _ school.Repository = (*SchoolRepo)(nil)

func NewSchoolRepo(db *DB) *SchoolRepo {
	return &SchoolRepo{db: db}
}

func (repo *SchoolRepo) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch.ID = uuid.NewString()
	sch.CreatedAt = time.Now().UTC()
	sch.UpdatedAt = sch.CreatedAt
	repo.db.schools[sch.ID] = sch
	return sch, nil
}

func (repo *SchoolRepo) GetSchool(_ context.Context, filter school.GetFilter) (school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sch := range repo.db.schools {
		if sch.Deleted {
			continue
		}
		if filter.ID != "" && sch.ID != filter.ID {
			continue
		}
		if filter.Email != "" && sch.Email != filter.Email {
			continue
		}
		if filter.ResetToken != "" {
			if sch.ForgetPwdToken != filter.ResetToken || !sch.ForgetPwdExpires.After(time.Now().UTC()) {
				continue
			}
		}
		if filter.Scope.SchoolID != "" && sch.ID != filter.Scope.SchoolID {
			continue
		}
		return sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *SchoolRepo) FilterSchools(_ context.Context, scope core.Scope, params core.ListParams) ([]school.School, int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schools := []school.School{}
	for _, sch := range repo.db.schools {
		if sch.Deleted {
			continue
		}
		if scope.SchoolID != "" && sch.ID != scope.SchoolID {
			continue
		}
		if params.Keyword != "" && !containsFold(sch.Name, params.Keyword) {
			continue
		}
		if params.FieldName != "" && params.FieldValue != "" {
			switch params.FieldName {
			case "name":
				if !containsFold(sch.Name, params.FieldValue) {
					continue
				}
			case "city":
				if !containsFold(sch.City, params.FieldValue) {
					continue
				}
			case "state":
				if !containsFold(sch.State, params.FieldValue) {
					continue
				}
			case "country":
				if !containsFold(sch.Country, params.FieldValue) {
					continue
				}
			case "zipCode":
				if !containsFold(sch.ZipCode, params.FieldValue) {
					continue
				}
			case "email":
				if sch.Email != params.FieldValue {
					continue
				}
			}
		}
		schools = append(schools, sch)
	}

	less := func(i, j int) bool { return schools[i].Name < schools[j].Name }
	switch params.SortBy {
	case "city":
		less = func(i, j int) bool { return schools[i].City < schools[j].City }
	case "state":
		less = func(i, j int) bool { return schools[i].State < schools[j].State }
	case "country":
		less = func(i, j int) bool { return schools[i].Country < schools[j].Country }
	case "zipCode":
		less = func(i, j int) bool { return schools[i].ZipCode < schools[j].ZipCode }
	case "email":
		less = func(i, j int) bool { return schools[i].Email < schools[j].Email }
	}
	sort.SliceStable(schools, orderBy(params, less))

	total := int64(len(schools))
	lo, hi := paginate(len(schools), params)
	return schools[lo:hi], total, nil
}

func (repo *SchoolRepo) AllSchools(_ context.Context) ([]school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schools := []school.School{}
	for _, sch := range repo.db.schools {
		if !sch.Deleted {
			schools = append(schools, sch)
		}
	}
	sort.SliceStable(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *SchoolRepo) SearchSchoolsByName(_ context.Context, keyword string) ([]school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schools := []school.School{}
	for _, sch := range repo.db.schools {
		if !sch.Deleted && containsFold(sch.Name, keyword) {
			schools = append(schools, sch)
		}
	}
	sort.SliceStable(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *SchoolRepo) EmailTaken(_ context.Context, email string, excludedIDs ...string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sch := range repo.db.schools {
		if sch.Deleted || sch.Email != email {
			continue
		}
		excluded := false
		for _, id := range excludedIDs {
			if sch.ID == id {
				excluded = true
				break
			}
		}
		if !excluded {
			return true, nil
		}
	}
	return false, nil
}

func (repo *SchoolRepo) UpdateSchool(_ context.Context, id string, us school.UpdateSchool, photo string) (school.School, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch, ok := repo.db.schools[id]
	if !ok || sch.Deleted {
		return school.School{}, school.ErrNotFound
	}
	if us.Name != "" {
		sch.Name = us.Name
	}
	if us.Email != "" {
		sch.Email = us.Email
	}
	if us.Address != "" {
		sch.Address = us.Address
	}
	if us.ZipCode != "" {
		sch.ZipCode = us.ZipCode
	}
	if us.City != "" {
		sch.City = us.City
	}
	if us.State != "" {
		sch.State = us.State
	}
	if us.Country != "" {
		sch.Country = us.Country
	}
	if photo != "" {
		sch.Photo = photo
	}
	sch.UpdatedAt = time.Now().UTC()
	repo.db.schools[id] = sch
	return sch, nil
}

func (repo *SchoolRepo) SetPassword(_ context.Context, id string, hash []byte, clearResetToken bool) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch, ok := repo.db.schools[id]
	if !ok {
		return school.ErrNotFound
	}
	sch.PasswordHash = hash
	if clearResetToken {
		sch.ForgetPwdToken = ""
		sch.ForgetPwdExpires = time.Time{}
	}
	sch.UpdatedAt = time.Now().UTC()
	repo.db.schools[id] = sch
	return nil
}

func (repo *SchoolRepo) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch, ok := repo.db.schools[id]
	if !ok {
		return school.ErrNotFound
	}
	sch.ForgetPwdToken = token
	sch.ForgetPwdExpires = expires
	sch.UpdatedAt = time.Now().UTC()
	repo.db.schools[id] = sch
	return nil
}

func (repo *SchoolRepo) SoftDeleteSchool(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch, ok := repo.db.schools[id]
	if !ok {
		return school.ErrNotFound
	}
	sch.Deleted = true
	sch.UpdatedAt = time.Now().UTC()
	repo.db.schools[id] = sch
	return nil
}

func (repo *SchoolRepo) Cities(_ context.Context) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[string]bool)
	cities := []string{}
	for _, sch := range repo.db.schools {
		if sch.Deleted || seen[sch.City] {
			continue
		}
		seen[sch.City] = true
		cities = append(cities, sch.City)
	}
	sort.Strings(cities)
	return cities, nil
}

func (repo *SchoolRepo) Names(_ context.Context) ([]school.NameEntry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	names := []school.NameEntry{}
	for _, sch := range repo.db.schools {
		if !sch.Deleted {
			names = append(names, school.NameEntry{ID: sch.ID, Name: sch.Name})
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return names[i].Name < names[j].Name })
	return names, nil
}
