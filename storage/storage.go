// Package storage opens the repositories of the configured database engine.
package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/storage/database"
	inmemdb "github.com/rcarvalhopiaget/escutapiaget-sub000/storage/database/inmem"
	sqlxrepos "github.com/rcarvalhopiaget/escutapiaget-sub000/storage/database/sqlx"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/storage/mongodb"
)

const (
	EnginePostgres = "postgres"
	EngineMongoDB  = "mongodb"
	EngineMemory   = "memory"
)

var ErrUnknownEngine = errors.New("unknown database engine")

type Repositories struct {
	Question question.Repository
	Ticket   ticket.Repository
	User     user.Repository

	// SQL is set for the postgres engine only.
	SQL   *sqlx.DB
	close func(ctx context.Context) error
}

func (r *Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

// Open connects to conf.Database.Engine. Postgres databases are created if needed,
// then migrated unless skipMigrations is set.
func Open(ctx context.Context, conf *core.Config, skipMigrations bool) (*Repositories, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		return openPostgres(ctx, conf, skipMigrations)
	case EngineMongoDB:
		return openMongo(ctx, conf)
	case EngineMemory:
		db := inmemdb.Open()
		return &Repositories{
			Question: inmemdb.NewQuestionRepository(db),
			Ticket:   inmemdb.NewTicketRepository(db),
			User:     inmemdb.NewUserRepository(db),
		}, nil
	}
	return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
}

func openPostgres(ctx context.Context, conf *core.Config, skipMigrations bool) (*Repositories, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if !skipMigrations {
		if err = database.Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Repositories{
		Question: sqlxrepos.NewQuestionRepository(db),
		Ticket:   sqlxrepos.NewTicketRepository(db),
		User:     sqlxrepos.NewUserRepository(db),
		SQL:      db,
		close:    func(context.Context) error { return db.Close() },
	}, nil
}

func openMongo(ctx context.Context, conf *core.Config) (*Repositories, error) {
	db, err := mongodb.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Question: mongodb.NewQuestionRepository(db),
		Ticket:   mongodb.NewTicketRepository(db),
		User:     mongodb.NewUserRepository(db),
		close:    func(ctx context.Context) error { return closeMongo(ctx, db) },
	}, nil
}

func closeMongo(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}
