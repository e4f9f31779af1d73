package main

import (
	"context"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = core.Now()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
