// Package mongodb implements the repositories on MongoDB.
package mongodb

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
)

const (
	questionCollection = "questions"
	ticketCollection   = "tickets"
	userCollection     = "users"
)

// Open connects to conf.Database.URI, waits for the server and ensures the indexes.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = ping(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(conf.Database.Name)
	if err = EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx, readpref.Primary()); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "mongodb ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "mongodb ping timeout")
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	nonEmpty := func(field string) bson.D {
		return bson.D{{Key: field, Value: bson.D{{Key: "$gt", Value: ""}}}}
	}
	indexes := map[string][]mongo.IndexModel{
		questionCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "order", Value: 1}}},
		},
		ticketCollection: {
			{Keys: bson.D{{Key: "protocol", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		userCollection: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(nonEmpty("username")),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(nonEmpty("email")),
			},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}

// sortDoc builds a sort document from orderings already filtered against an allow list.
func sortDoc(orderings []core.DBOrdering, def bson.D) bson.D {
	if len(orderings) == 0 {
		return def
	}
	sort := make(bson.D, 0, len(orderings))
	for _, ord := range orderings {
		direction := -1
		if ord.Ascending {
			direction = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: direction})
	}
	return sort
}

// searchRegex matches s anywhere, case-insensitively.
func searchRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func createdRange(filter bson.M, from, to time.Time) {
	rng := bson.M{}
	if !from.IsZero() {
		rng["$gte"] = from
	}
	if !to.IsZero() {
		rng["$lte"] = to
	}
	if len(rng) > 0 {
		filter["created_at"] = rng
	}
}

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
