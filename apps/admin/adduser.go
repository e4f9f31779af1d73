package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/user"
)

var errInvalidRole = errors.New("invalid role")

type newUserArgs struct {
	email, role, firstName, lastName, password string
}

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(args newUserArgs) error {
	ctx := context.Background()
	email := core.CleanString(args.email, true /* lower */)
	role := core.CleanString(args.role, true /* lower */)
	if !validRole(role) {
		return errInvalidRole
	}

	now := core.Now()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, CreatedAt: now}
	}
	if first := core.CleanString(args.firstName); first != "" {
		usr.FirstName = first
	}
	if last := core.CleanString(args.lastName); last != "" {
		usr.LastName = last
	}
	usr.Role = role
	usr.Status = user.StatusActive
	usr.UpdatedAt = now
	if err = usr.SetPassword(args.password); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}

func validRole(role string) bool {
	for _, r := range user.AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
