package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/storage/database"
)

var (
	migrateFunc = database.RunMigrations // mockable

	errNoSQL = errors.New("migrations only apply to the postgres engine")
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.repos == nil || cli.repos.SQL == nil {
		return errNoSQL
	}
	return migrateFunc(ctx, cli.repos.SQL.DB, args[0], args[1:]...)
}
