package main

import (
	"context"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/user"
)

// createAdmin creates an Admin account, or resets the password of an existing
// account with the same email.
func (cli *commandLine) createAdmin(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if err := core.ValidatePassword(pwd, name, email); err != nil {
		return err
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			UserName: name,
			Email:    email,
			Role:     core.RoleAdmin,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	return cli.usrRepo.SetPassword(ctx, usr.ID, usr.PasswordHash, true)
}
