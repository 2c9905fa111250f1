package inmemdb

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
)

type userRepository struct {
	*repository[model.User]
}

var _ model.UserRepository = (*userRepository)(nil) // interface compliance check

func NewUserRepository() model.UserRepository {
	repo := &userRepository{repository: newRepository[model.User]("user")}
	// password hashes only change through SetPasswordHash
	repo.preserve = func(stored, updated model.User) model.User {
		updated.PasswordHash = stored.PasswordHash
		return updated
	}
	return repo
}

func (repo *userRepository) Create(_ context.Context, usr model.User) (model.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.query() {
		if strings.EqualFold(u.Email, usr.Email) {
			return model.User{}, errors.Wrapf(core.ErrConflict, "inserting user with email %q", usr.Email)
		}
	}
	return repo.insert(usr)
}

func (repo *userRepository) GetByEmail(_ context.Context, email string) (model.User, error) {
	usr, ok := repo.find(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
	if !ok {
		return model.User{}, errors.Wrapf(core.ErrNotFound, "getting user by email %q", email)
	}
	return usr, nil
}

func (repo *userRepository) SetPasswordHash(_ context.Context, id string, hash []byte) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.rows[id]
	if !ok {
		return errors.Wrapf(core.ErrNotFound, "setting password of user %q", id)
	}
	usr.PasswordHash = hash
	repo.db.rows[id] = usr
	return nil
}
