package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/user"
)

var userList = listSpec{
	searchColumn: "user_name",
	defaultSort:  "user_name",
	columns: map[string]column{
		"userName": {"user_name", colText},
		"email":    {"email", colExact},
		"role":     {"role", colExact},
	},
}

type UserRepo struct {
	db *gorm.DB
}

var _ user.Repository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (repo *UserRepo) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.NewString()
	if err := repo.db.WithContext(ctx).Create(&usr).Error; err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *UserRepo) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
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
	if filter.Scope.UserID != "" {
		q = q.Where("id = ?", filter.Scope.UserID)
	}

	var usr user.User
	if err := q.First(&usr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return usr, nil
}

func (repo *UserRepo) FilterUsers(ctx context.Context, scope core.Scope, params core.ListParams) ([]user.User, int64, error) {
	q := repo.db.WithContext(ctx).Model(&user.User{}).Where("deleted = ?", false)
	if scope.UserID != "" {
		q = q.Where("id = ?", scope.UserID)
	}

	users := []user.User{}
	total, err := userList.list(q, params, &users)
	return users, total, err
}

func (repo *UserRepo) EmailTaken(ctx context.Context, email string, excludedIDs ...string) (bool, error) {
	q := repo.db.WithContext(ctx).Model(&user.User{}).
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

func (repo *UserRepo) UpdateUser(ctx context.Context, id string, uu user.UpdateUser) (user.User, error) {
	updates := make(map[string]interface{})
	if uu.UserName != "" {
		updates["user_name"] = uu.UserName
	}
	if uu.Email != "" {
		updates["email"] = uu.Email
	}
	if len(updates) > 0 {
		err := repo.db.WithContext(ctx).Model(&user.User{}).
			Where("id = ? AND deleted = ?", id, false).
			Updates(updates).Error
		if err != nil {
			return user.User{}, err
		}
	}
	return repo.GetUser(ctx, user.GetFilter{ID: id})
}

func (repo *UserRepo) SetPassword(ctx context.Context, id string, hash []byte, clearResetToken bool) error {
	updates := map[string]interface{}{"password_hash": hash}
	if clearResetToken {
		updates["forget_pwd_token"] = ""
		updates["forget_pwd_expires"] = time.Time{}
	}
	return repo.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (repo *UserRepo) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return repo.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"forget_pwd_token":   token,
			"forget_pwd_expires": expires,
		}).Error
}

func (repo *UserRepo) SoftDeleteUser(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}
