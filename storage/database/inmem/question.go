package inmemdb

import (
	"context"
	"sort"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

type questionRepository struct {
	db *table[question.Question]
}

func NewQuestionRepository(db *DB) question.Repository {
	return &questionRepository{db: db.question}
}

// cloneQuestion copies the options so callers never share them with the table.
func cloneQuestion(q question.Question) question.Question {
	if q.Options == nil {
		return q
	}
	opts := make([]question.Option, len(q.Options))
	for i, opt := range q.Options {
		opts[i] = opt
		if opt.NextQuestionsIDs != nil {
			opts[i].NextQuestionsIDs = append([]string{}, opt.NextQuestionsIDs...)
		}
	}
	q.Options = opts
	return q
}

func (repo *questionRepository) QueryQuestions(_ context.Context, filter question.QueryFilter) ([]question.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	categories := filter.Categories()
	qs := make([]question.Question, 0)
	for _, q := range repo.db.all() {
		if len(categories) > 0 && !containsString(categories, q.Category) {
			continue
		}
		qs = append(qs, cloneQuestion(q))
	}
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Category != qs[j].Category {
			return qs[i].Category < qs[j].Category
		}
		return qs[i].Order < qs[j].Order
	})
	return qs, nil
}

func (repo *questionRepository) GetQuestion(_ context.Context, id string) (question.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.get(id); ok {
		return cloneQuestion(q), nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) CreateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if q.ID == "" {
		q.ID = newID()
	}
	repo.db.insert(q.ID, cloneQuestion(q))
	return q, nil
}

func (repo *questionRepository) UpdateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.get(q.ID)
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	q.CreatedAt = orig.CreatedAt
	repo.db.insert(q.ID, cloneQuestion(q))
	return q, nil
}

func (repo *questionRepository) DeleteQuestion(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.get(id); !ok {
		return question.ErrNotFound
	}
	repo.db.delete(id)
	return nil
}

func containsString(ss []string, s string) bool {
	for _, item := range ss {
		if item == s {
			return true
		}
	}
	return false
}
