package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

type ticketRepository struct {
	db *table[ticket.Ticket]
}

func NewTicketRepository(db *DB) ticket.Repository {
	return &ticketRepository{db: db.ticket}
}

func cloneTicket(t ticket.Ticket) ticket.Ticket {
	if t.Answers != nil {
		t.Answers = t.Answers.Copy()
	}
	return t
}

func (repo *ticketRepository) CreateTicket(_ context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.rows {
		if other.Protocol == t.Protocol {
			return ticket.Ticket{}, ticket.ErrProtocolExists
		}
	}
	if t.ID == "" {
		t.ID = newID()
	}
	repo.db.insert(t.ID, cloneTicket(t))
	return t, nil
}

func (repo *ticketRepository) QueryTickets(_ context.Context, filter ticket.QueryFilter, orderings ...core.DBOrdering) ([]ticket.Ticket, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tickets := make([]ticket.Ticket, 0)
	for _, t := range repo.db.all() {
		if filter.Search != "" &&
			!core.ContainsAnyFold(t.Protocol, filter.Search) &&
			!core.ContainsAnyFold(t.Name, filter.Search) &&
			!core.ContainsAnyFold(t.Email, filter.Search) &&
			!core.ContainsAnyFold(t.Message, filter.Search) {
			continue
		}
		if len(filter.Status) > 0 && !containsStatus(filter.Status, t.Status) {
			continue
		}
		if len(filter.Type) > 0 && !containsType(filter.Type, t.Type) {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if !inRange(t.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		tickets = append(tickets, cloneTicket(t))
	}

	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		for _, ord := range orderings {
			if c := compareTickets(tickets[i], tickets[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return false
	})
	return tickets, nil
}

func (repo *ticketRepository) GetTicketByID(_ context.Context, id string) (ticket.Ticket, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.get(id); ok {
		return cloneTicket(t), nil
	}
	return ticket.Ticket{}, ticket.ErrNotFound
}

func (repo *ticketRepository) GetTicketByProtocol(_ context.Context, protocol string) (ticket.Ticket, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, t := range repo.db.all() {
		if t.Protocol == protocol {
			return cloneTicket(t), nil
		}
	}
	return ticket.Ticket{}, ticket.ErrNotFound
}

func (repo *ticketRepository) UpdateTicket(_ context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.get(t.ID)
	if !ok {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	// filing data is immutable
	orig.Status = t.Status
	orig.Response = t.Response
	orig.RespondedAt = t.RespondedAt
	orig.UpdatedAt = t.UpdatedAt
	repo.db.insert(orig.ID, orig)
	return cloneTicket(orig), nil
}

func containsStatus(ss []ticket.Status, s ticket.Status) bool {
	for _, item := range ss {
		if item == s {
			return true
		}
	}
	return false
}

func containsType(ts []ticket.Type, t ticket.Type) bool {
	for _, item := range ts {
		if item == t {
			return true
		}
	}
	return false
}

func compareTickets(a, b ticket.Ticket, field string) int {
	switch field {
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "deadline":
		return compareTimes(a.Deadline, b.Deadline)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "type":
		return strings.Compare(string(a.Type), string(b.Type))
	case "protocol":
		return strings.Compare(a.Protocol, b.Protocol)
	}
	return 0
}
