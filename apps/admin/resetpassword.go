package main

import (
	"context"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd, confirm string) error {
	usr, err := cli.findUser(ctx, uname)
	if err != nil {
		return err
	}
	return cli.usrSvc.ResetPassword(ctx, usr.ID, user.SetPassword{Password: pwd, PasswordConfirm: confirm})
}
