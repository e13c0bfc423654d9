package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/user"
)

type UserRepo struct {
	db *DB
}

var _ user.Repository = (*UserRepo)(nil)

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (repo *UserRepo) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = uuid.NewString()
	usr.CreatedAt = time.Now().UTC()
	usr.UpdatedAt = usr.CreatedAt
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *UserRepo) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Deleted {
			continue
		}
		if filter.ID != "" && usr.ID != filter.ID {
			continue
		}
		if filter.Email != "" && usr.Email != filter.Email {
			continue
		}
		if filter.ResetToken != "" {
			if usr.ForgetPwdToken != filter.ResetToken || !usr.ForgetPwdExpires.After(time.Now().UTC()) {
				continue
			}
		}
		if filter.Scope.UserID != "" && usr.ID != filter.Scope.UserID {
			continue
		}
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *UserRepo) FilterUsers(_ context.Context, scope core.Scope, params core.ListParams) ([]user.User, int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := []user.User{}
	for _, usr := range repo.db.users {
		if usr.Deleted {
			continue
		}
		if scope.UserID != "" && usr.ID != scope.UserID {
			continue
		}
		if params.Keyword != "" && !containsFold(usr.UserName, params.Keyword) {
			continue
		}
		if params.FieldName != "" && params.FieldValue != "" {
			switch params.FieldName {
			case "userName":
				if !containsFold(usr.UserName, params.FieldValue) {
					continue
				}
			case "email":
				if usr.Email != params.FieldValue {
					continue
				}
			case "role":
				if string(usr.Role) != params.FieldValue {
					continue
				}
			}
		}
		users = append(users, usr)
	}

	less := func(i, j int) bool { return users[i].UserName < users[j].UserName }
	if params.SortBy == "email" {
		less = func(i, j int) bool { return users[i].Email < users[j].Email }
	} else if params.SortBy == "role" {
		less = func(i, j int) bool { return users[i].Role < users[j].Role }
	}
	sort.SliceStable(users, orderBy(params, less))

	total := int64(len(users))
	lo, hi := paginate(len(users), params)
	return users[lo:hi], total, nil
}

func (repo *UserRepo) EmailTaken(_ context.Context, email string, excludedIDs ...string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Deleted || usr.Email != email {
			continue
		}
		excluded := false
		for _, id := range excludedIDs {
			if usr.ID == id {
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

func (repo *UserRepo) UpdateUser(ctx context.Context, id string, uu user.UpdateUser) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok || usr.Deleted {
		return user.User{}, user.ErrNotFound
	}
	if uu.UserName != "" {
		usr.UserName = uu.UserName
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	usr.UpdatedAt = time.Now().UTC()
	repo.db.users[id] = usr
	return usr, nil
}

func (repo *UserRepo) SetPassword(_ context.Context, id string, hash []byte, clearResetToken bool) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.PasswordHash = hash
	if clearResetToken {
		usr.ForgetPwdToken = ""
		usr.ForgetPwdExpires = time.Time{}
	}
	usr.UpdatedAt = time.Now().UTC()
	repo.db.users[id] = usr
	return nil
}

func (repo *UserRepo) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.ForgetPwdToken = token
	usr.ForgetPwdExpires = expires
	usr.UpdatedAt = time.Now().UTC()
	repo.db.users[id] = usr
	return nil
}

func (repo *UserRepo) SoftDeleteUser(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.Deleted = true
	usr.UpdatedAt = time.Now().UTC()
	repo.db.users[id] = usr
	return nil
}
