package inmem

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
	"github.com/shulehq/shule/core/student"
)

type StudentRepo struct {
	db *DB
}

var _ student.Repository = (*StudentRepo)(nil)

func NewStudentRepo(db *DB) *StudentRepo {
	return &StudentRepo{db: db}
}

func (repo *StudentRepo) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch, ok := repo.db.schools[st.SchoolID]
	if !ok || sch.Deleted {
		return student.Student{}, school.ErrNotFound
	}
	if !sch.HasStandard(st.Std) {
		sch.Standards = append(sch.Standards, int64(st.Std))
		sch.Count++
		repo.db.schools[sch.ID] = sch
	}

	st.ID = uuid.NewString()
	st.CreatedAt = time.Now().UTC()
	st.UpdatedAt = st.CreatedAt
	repo.db.students[st.ID] = st
	return st, nil
}

func (repo *StudentRepo) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matches := []student.Student{}
	for _, st := range repo.db.students {
		if st.Deleted {
			continue
		}
		if filter.ID != "" && st.ID != filter.ID {
			continue
		}
		if filter.NameKeyword != "" && !containsFold(st.Name, filter.NameKeyword) {
			continue
		}
		if filter.Scope.SchoolID != "" && st.SchoolID != filter.Scope.SchoolID {
			continue
		}
		matches = append(matches, st)
	}
	if len(matches) == 0 {
		return student.Student{}, student.ErrNotFound
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return matches[0], nil
}

func (repo *StudentRepo) FilterStudents(_ context.Context, scope core.Scope, params core.ListParams) ([]student.Student, int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := []student.Student{}
	for _, st := range repo.db.students {
		if st.Deleted {
			continue
		}
		if scope.SchoolID != "" && st.SchoolID != scope.SchoolID {
			continue
		}
		if params.Keyword != "" && !containsFold(st.Name, params.Keyword) {
			continue
		}
		if params.FieldName != "" && params.FieldValue != "" {
			switch params.FieldName {
			case "name":
				if !containsFold(st.Name, params.FieldValue) {
					continue
				}
			case "std":
				n, err := strconv.Atoi(params.FieldValue)
				if err == nil && st.Std != n {
					continue
				}
			case "school":
				if st.SchoolID != params.FieldValue {
					continue
				}
			}
		}
		students = append(students, st)
	}

	less := func(i, j int) bool { return students[i].Std < students[j].Std }
	switch params.SortBy {
	case "name":
		less = func(i, j int) bool { return students[i].Name < students[j].Name }
	case "school":
		less = func(i, j int) bool { return students[i].SchoolID < students[j].SchoolID }
	}
	sort.SliceStable(students, orderBy(params, less))

	total := int64(len(students))
	lo, hi := paginate(len(students), params)
	return students[lo:hi], total, nil
}

func (repo *StudentRepo) UpdateStudent(_ context.Context, id string, us student.UpdateStudent, photo string) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	st, ok := repo.db.students[id]
	if !ok || st.Deleted {
		return student.Student{}, student.ErrNotFound
	}
	if us.Name != "" {
		st.Name = us.Name
	}
	if us.ParentNumber != "" {
		st.ParentNumber = us.ParentNumber
	}
	if us.Address != "" {
		st.Address = us.Address
	}
	if us.Std > 0 {
		st.Std = us.Std
	}
	if us.DOB != "" {
		st.DOB = us.DOB
	}
	if photo != "" {
		st.Photo = photo
	}
	st.UpdatedAt = time.Now().UTC()
	repo.db.students[id] = st
	return st, nil
}

func (repo *StudentRepo) SetStudentStatus(_ context.Context, id string, status bool) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	st, ok := repo.db.students[id]
	if !ok {
		return student.ErrNotFound
	}
	st.Status = status
	st.UpdatedAt = time.Now().UTC()
	repo.db.students[id] = st
	return nil
}

func (repo *StudentRepo) SoftDeleteStudent(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	st, ok := repo.db.students[id]
	if !ok {
		return student.ErrNotFound
	}
	st.Deleted = true
	st.UpdatedAt = time.Now().UTC()
	repo.db.students[id] = st
	return nil
}

func (repo *StudentRepo) StandardCounts(_ context.Context, schoolID string) ([]student.StdCount, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byStd := make(map[int]int64)
	for _, st := range repo.db.students {
		if !st.Deleted && st.SchoolID == schoolID {
			byStd[st.Std]++
		}
	}
	counts := []student.StdCount{}
	for std, count := range byStd {
		counts = append(counts, student.StdCount{Std: std, Count: count})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Std < counts[j].Std })
	return counts, nil
}

func (repo *StudentRepo) CountStudents(_ context.Context, scope core.Scope) (int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int64
	for _, st := range repo.db.students {
		if st.Deleted {
			continue
		}
		if scope.SchoolID != "" && st.SchoolID != scope.SchoolID {
			continue
		}
		count++
	}
	return count, nil
}

func (repo *StudentRepo) SchoolStandards(_ context.Context, schoolID string) ([]int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sch, ok := repo.db.schools[schoolID]
	if !ok || sch.Deleted {
		return nil, school.ErrNotFound
	}
	return []int64(sch.Standards), nil
}
