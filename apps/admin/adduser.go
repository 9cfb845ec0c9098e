package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

// addUser updates or creates a user.User. Updated users are reactivated.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	existing, err := cli.findUser(ctx, nu.Username, nu.Email)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, nu)
		return err
	}

	active := true
	_, err = cli.usrSvc.Update(ctx, existing.ID, user.UpdateUser{
		Name:            nu.Name,
		Username:        nu.Username,
		Email:           nu.Email,
		IsActive:        &active,
		Roles:           nu.Roles,
		Password:        nu.Password,
		PasswordConfirm: nu.PasswordConfirm,
	})
	return err
}

func (cli *commandLine) findUser(ctx context.Context, identifiers ...string) (user.User, error) {
	for _, id := range identifiers {
		if id = core.CleanString(id, true /* lower */); id == "" {
			continue
		}
		usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, id)
		if err == nil || !errors.Is(err, core.ErrNotFound) {
			return usr, err
		}
	}
	return user.User{}, user.ErrNotFound
}
