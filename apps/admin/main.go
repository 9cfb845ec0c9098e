package main

import (
	"context"
	"log"
	"os"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
	logsvc "github.com/rcarvalhopiaget/escutapiaget-sub000/services/logger"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/services/validation"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()

	ctx := context.Background()

	// `migrate` drives the migrations itself
	skipMigrations := len(os.Args) > 1 && os.Args[1] == "migrate"
	repos, err := storage.Open(ctx, conf, skipMigrations)
	if err != nil {
		logger.Error("setting up database", err)
		return 1
	}
	defer func() {
		if err := repos.Close(ctx); err != nil {
			logger.Error("closing database", err)
		}
	}()

	validate, _ := validation.New()
	cli := commandLine{
		repos:       repos,
		usrSvc:      user.NewService(repos.User, validate, logger),
		questionSvc: question.NewService(repos.Question, validate, logger),
		out:         os.Stdout,
	}
	if err = cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		return 1
	}
	return 0
}
