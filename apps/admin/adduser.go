package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
)

var errUnknownRole = errors.New("unknown role")

// addUser creates a user, or resets the password of the user holding that email.
// The password policy is not applied: the operator is trusted.
func (cli *commandLine) addUser(name, email, pwd string, role model.Role) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if !role.IsValid() {
		return errUnknownRole
	}

	usr, err := cli.usrRepo.GetByEmail(ctx, email)
	if err == nil {
		return cli.usrSvc.SetPassword(ctx, usr.ID, pwd)
	}
	if errors.Cause(err) != core.ErrNotFound {
		return err
	}

	hash, err := user.HashPassword(pwd)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = cli.usrRepo.Create(ctx, model.User{
		ID:             model.NewID(),
		Name:           name,
		Email:          email,
		Role:           role,
		ChildIDs:       model.Strings{},
		ParentIDs:      model.Strings{},
		EarnedBadgeIDs: model.Strings{},
		PasswordHash:   hash,
	})
	return err
}
