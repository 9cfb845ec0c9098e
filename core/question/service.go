package question

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
)

// ErrNotFound is returned when a question does not exist.
var ErrNotFound = errors.Wrap(core.ErrNotFound, "question")

type (
	Repository interface {
		// QueryQuestions returns the questions of the filter's categories (all if empty),
		// sorted by category then order.
		QueryQuestions(ctx context.Context, filter QueryFilter) ([]Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		DeleteQuestion(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(repo Repository, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, validate: validate, logger: logger}
}

// QueryByCategory returns the questions of exactly `category`, sorted by order.
// This is what public forms are rendered from.
func (svc *Service) QueryByCategory(ctx context.Context, category string) ([]Question, error) {
	filter := QueryFilter{Category: category}
	filter.Clean()
	if filter.Category == "" {
		return []Question{}, nil
	}
	qs, err := svc.repo.QueryQuestions(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	sortByOrder(qs)
	return qs, nil
}

// Query returns the questions of `category` plus the global ones (every question if
// `category` is empty), sorted by category then order. Used by the admin question manager.
func (svc *Service) Query(ctx context.Context, category string) ([]Question, error) {
	filter := QueryFilter{Category: category, IncludeGlobal: true}
	filter.Clean()
	qs, err := svc.repo.QueryQuestions(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Category != qs[j].Category {
			return qs[i].Category < qs[j].Category
		}
		return qs[i].Order < qs[j].Order
	})
	return qs, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Question, error) {
	return svc.repo.GetQuestion(ctx, id)
}

func (svc *Service) Create(ctx context.Context, nq NewQuestion) (Question, error) {
	if err := nq.Validate(svc.validate); err != nil {
		return Question{}, err
	}
	now := time.Now().UTC()
	q := Question{
		Text:      nq.Text,
		Type:      nq.Type,
		Category:  nq.Category,
		Order:     nq.Order,
		Required:  nq.Required,
		Options:   nq.Options,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateQuestion(ctx, q)
}

func (svc *Service) Update(ctx context.Context, id string, nq NewQuestion) (Question, error) {
	if err := nq.Validate(svc.validate); err != nil {
		return Question{}, err
	}
	q, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	q.Text = nq.Text
	q.Type = nq.Type
	q.Category = nq.Category
	q.Order = nq.Order
	q.Required = nq.Required
	q.Options = nq.Options
	q.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateQuestion(ctx, q)
}

// Delete removes a question and unlinks it from every option pointing to it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetQuestion(ctx, id); err != nil {
		return err
	}
	all, err := svc.repo.QueryQuestions(ctx, QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	for _, q := range all {
		if q.ID == id || !q.linksTo(id) {
			continue
		}
		for i := range q.Options {
			q.Options[i].Unlink(id)
		}
		q.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateQuestion(ctx, q); err != nil {
			return errors.Wrap(err, "unlinking question")
		}
		svc.logger.Info("question unlinked", map[string]interface{}{"question": q.ID, "target": id})
	}
	return svc.repo.DeleteQuestion(ctx, id)
}

// Resolve loads the form of `category` and computes its active set for `answers`.
func (svc *Service) Resolve(ctx context.Context, category string, answers Answers) (ActiveSet, error) {
	qs, err := svc.QueryByCategory(ctx, category)
	if err != nil {
		return ActiveSet{}, err
	}
	return NewGraph(qs).Resolve(answers), nil
}

func (q Question) linksTo(id string) bool {
	for _, opt := range q.Options {
		if opt.LinksTo(id) {
			return true
		}
	}
	return false
}

func sortByOrder(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
}
