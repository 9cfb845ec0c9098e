package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

type ticketRow struct {
	ID          string                  `db:"id"`
	Protocol    string                  `db:"protocol"`
	Type        string                  `db:"type"`
	Category    string                  `db:"category"`
	Name        string                  `db:"name"`
	Email       string                  `db:"email"`
	Message     string                  `db:"message"`
	Answers     jsonb[question.Answers] `db:"answers"`
	Status      string                  `db:"status"`
	Response    string                  `db:"response"`
	RespondedAt sql.NullTime            `db:"responded_at"`
	Deadline    time.Time               `db:"deadline"`
	CreatedAt   time.Time               `db:"created_at"`
	UpdatedAt   time.Time               `db:"updated_at"`
}

func newTicketRow(t ticket.Ticket) ticketRow {
	answers := t.Answers
	if answers == nil {
		answers = question.Answers{}
	}
	return ticketRow{
		ID:          t.ID,
		Protocol:    t.Protocol,
		Type:        string(t.Type),
		Category:    t.Category,
		Name:        t.Name,
		Email:       t.Email,
		Message:     t.Message,
		Answers:     jsonb[question.Answers]{V: answers},
		Status:      string(t.Status),
		Response:    t.Response,
		RespondedAt: nullTime(t.RespondedAt),
		Deadline:    t.Deadline,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r ticketRow) ticket() ticket.Ticket {
	return ticket.Ticket{
		ID:          r.ID,
		Protocol:    r.Protocol,
		Type:        ticket.Type(r.Type),
		Category:    r.Category,
		Name:        r.Name,
		Email:       r.Email,
		Message:     r.Message,
		Answers:     r.Answers.V,
		Status:      ticket.Status(r.Status),
		Response:    r.Response,
		RespondedAt: fromNullTime(r.RespondedAt),
		Deadline:    r.Deadline.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const (
	ticketColumns = `id, protocol, type, category, name, email, message, answers, status, response,
		responded_at, deadline, created_at, updated_at`
	ticketProtocolKey = "ticket_protocol_key"
)

var ticketOrderColumns = map[string]string{
	"created_at": "created_at",
	"deadline":   "deadline",
	"status":     "status",
	"type":       "type",
	"protocol":   "protocol",
}

type ticketRepository struct {
	db *sqlx.DB
}

func NewTicketRepository(db *sqlx.DB) ticket.Repository {
	return &ticketRepository{db: db}
}

func (repo *ticketRepository) CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO ticket (`+ticketColumns+`)
		VALUES (:id, :protocol, :type, :category, :name, :email, :message, :answers, :status, :response,
			:responded_at, :deadline, :created_at, :updated_at)`,
		newTicketRow(t))
	if isUniqueViolation(err, ticketProtocolKey) {
		return ticket.Ticket{}, ticket.ErrProtocolExists
	}
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "inserting ticket")
	}
	return t, nil
}

func (repo *ticketRepository) QueryTickets(ctx context.Context, filter ticket.QueryFilter, orderings ...core.DBOrdering) ([]ticket.Ticket, error) {
	var w where
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add("(protocol ILIKE ? OR name ILIKE ? OR email ILIKE ? OR message ILIKE ?)", pattern, pattern, pattern, pattern)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, 0, len(filter.Status))
		for _, s := range filter.Status {
			statuses = append(statuses, string(s))
		}
		w.add("status = ANY(?)", pq.Array(statuses))
	}
	if len(filter.Type) > 0 {
		types := make([]string, 0, len(filter.Type))
		for _, t := range filter.Type {
			types = append(types, string(t))
		}
		w.add("type = ANY(?)", pq.Array(types))
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at <= ?", filter.CreatedTo)
	}

	var rows []ticketRow
	q := `SELECT ` + ticketColumns + ` FROM ticket` + w.String() + orderBy(orderings, ticketOrderColumns, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting tickets")
	}
	tickets := make([]ticket.Ticket, 0, len(rows))
	for _, r := range rows {
		tickets = append(tickets, r.ticket())
	}
	return tickets, nil
}

func (repo *ticketRepository) get(ctx context.Context, cond string, arg interface{}) (ticket.Ticket, error) {
	var r ticketRow
	err := repo.db.GetContext(ctx, &r, `SELECT `+ticketColumns+` FROM ticket WHERE `+cond, arg)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "selecting ticket")
	}
	return r.ticket(), nil
}

func (repo *ticketRepository) GetTicketByID(ctx context.Context, id string) (ticket.Ticket, error) {
	return repo.get(ctx, "id = $1", id)
}

func (repo *ticketRepository) GetTicketByProtocol(ctx context.Context, protocol string) (ticket.Ticket, error) {
	return repo.get(ctx, "protocol = $1", protocol)
}

func (repo *ticketRepository) UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE ticket
		SET status = :status, response = :response, responded_at = :responded_at, updated_at = :updated_at
		WHERE id = :id`,
		newTicketRow(t))
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "updating ticket")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	return repo.GetTicketByID(ctx, t.ID)
}
