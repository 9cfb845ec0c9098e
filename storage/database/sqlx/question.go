package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

type questionRow struct {
	ID        string                   `db:"id"`
	Text      string                   `db:"text"`
	Type      string                   `db:"type"`
	Category  string                   `db:"category"`
	Order     int                      `db:"order"`
	Required  bool                     `db:"required"`
	Options   jsonb[[]question.Option] `db:"options"`
	CreatedAt time.Time                `db:"created_at"`
	UpdatedAt time.Time                `db:"updated_at"`
}

func newQuestionRow(q question.Question) questionRow {
	opts := q.Options
	if opts == nil {
		opts = []question.Option{}
	}
	return questionRow{
		ID:        q.ID,
		Text:      q.Text,
		Type:      string(q.Type),
		Category:  q.Category,
		Order:     q.Order,
		Required:  q.Required,
		Options:   jsonb[[]question.Option]{V: opts},
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func (r questionRow) question() question.Question {
	opts := r.Options.V
	if len(opts) == 0 {
		opts = nil
	}
	return question.Question{
		ID:        r.ID,
		Text:      r.Text,
		Type:      question.Type(r.Type),
		Category:  r.Category,
		Order:     r.Order,
		Required:  r.Required,
		Options:   opts,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const questionColumns = `id, text, type, category, "order", required, options, created_at, updated_at`

type questionRepository struct {
	db *sqlx.DB
}

func NewQuestionRepository(db *sqlx.DB) question.Repository {
	return &questionRepository{db: db}
}

func (repo *questionRepository) QueryQuestions(ctx context.Context, filter question.QueryFilter) ([]question.Question, error) {
	var w where
	if cats := filter.Categories(); len(cats) > 0 {
		w.add("category = ANY(?)", pq.Array(cats))
	}
	var rows []questionRow
	q := `SELECT ` + questionColumns + ` FROM question` + w.String() + ` ORDER BY category, "order", created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}
	qs := make([]question.Question, 0, len(rows))
	for _, r := range rows {
		qs = append(qs, r.question())
	}
	return qs, nil
}

func (repo *questionRepository) GetQuestion(ctx context.Context, id string) (question.Question, error) {
	var r questionRow
	err := repo.db.GetContext(ctx, &r, `SELECT `+questionColumns+` FROM question WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return question.Question{}, question.ErrNotFound
	}
	if err != nil {
		return question.Question{}, errors.Wrap(err, "selecting question")
	}
	return r.question(), nil
}

func (repo *questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	if q.ID == "" {
		q.ID = newID()
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO question (`+questionColumns+`)
		VALUES (:id, :text, :type, :category, :order, :required, :options, :created_at, :updated_at)`,
		newQuestionRow(q))
	if err != nil {
		return question.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo *questionRepository) UpdateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE question
		SET text = :text, type = :type, category = :category, "order" = :order,
			required = :required, options = :options, updated_at = :updated_at
		WHERE id = :id`,
		newQuestionRow(q))
	if err != nil {
		return question.Question{}, errors.Wrap(err, "updating question")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return question.Question{}, question.ErrNotFound
	}
	return repo.GetQuestion(ctx, q.ID)
}

func (repo *questionRepository) DeleteQuestion(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM question WHERE id = $1`, id)
	if isInvalidUUID(err) {
		return question.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return question.ErrNotFound
	}
	return nil
}
