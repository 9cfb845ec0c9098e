package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

type questionDoc struct {
	ID        string            `bson:"_id"`
	Text      string            `bson:"text"`
	Type      string            `bson:"type"`
	Category  string            `bson:"category"`
	Order     int               `bson:"order"`
	Required  bool              `bson:"required"`
	Options   []question.Option `bson:"options"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

func newQuestionDoc(q question.Question) questionDoc {
	return questionDoc{
		ID:        q.ID,
		Text:      q.Text,
		Type:      string(q.Type),
		Category:  q.Category,
		Order:     q.Order,
		Required:  q.Required,
		Options:   q.Options,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func (d questionDoc) question() question.Question {
	opts := d.Options
	if len(opts) == 0 {
		opts = nil
	}
	return question.Question{
		ID:        d.ID,
		Text:      d.Text,
		Type:      question.Type(d.Type),
		Category:  d.Category,
		Order:     d.Order,
		Required:  d.Required,
		Options:   opts,
		CreatedAt: utc(d.CreatedAt),
		UpdatedAt: utc(d.UpdatedAt),
	}
}

type questionRepository struct {
	coll *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) question.Repository {
	return &questionRepository{coll: db.Collection(questionCollection)}
}

func (repo *questionRepository) QueryQuestions(ctx context.Context, filter question.QueryFilter) ([]question.Question, error) {
	f := bson.M{}
	if categories := filter.Categories(); len(categories) > 0 {
		f["category"] = bson.M{"$in": categories}
	}
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "order", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := repo.coll.Find(ctx, f, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding questions")
	}
	var docs []questionDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding questions")
	}
	qs := make([]question.Question, 0, len(docs))
	for _, d := range docs {
		qs = append(qs, d.question())
	}
	return qs, nil
}

func (repo *questionRepository) GetQuestion(ctx context.Context, id string) (question.Question, error) {
	var d questionDoc
	err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return question.Question{}, question.ErrNotFound
	}
	if err != nil {
		return question.Question{}, errors.Wrap(err, "finding question")
	}
	return d.question(), nil
}

func (repo *questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	if q.ID == "" {
		q.ID = newID()
	}
	if _, err := repo.coll.InsertOne(ctx, newQuestionDoc(q)); err != nil {
		return question.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo *questionRepository) UpdateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	d := newQuestionDoc(q)
	update := bson.M{"$set": bson.M{
		"text":       d.Text,
		"type":       d.Type,
		"category":   d.Category,
		"order":      d.Order,
		"required":   d.Required,
		"options":    d.Options,
		"updated_at": d.UpdatedAt,
	}}
	res, err := repo.coll.UpdateByID(ctx, q.ID, update)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "updating question")
	}
	if res.MatchedCount == 0 {
		return question.Question{}, question.ErrNotFound
	}
	return repo.GetQuestion(ctx, q.ID)
}

func (repo *questionRepository) DeleteQuestion(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	if res.DeletedCount == 0 {
		return question.ErrNotFound
	}
	return nil
}
