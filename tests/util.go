package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// CreateQuestion stores q as is: no validation, so tests may build any graph.
func CreateQuestion(t *testing.T, repo question.Repository, q question.Question) question.Question {
	t.Helper()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
		q.UpdatedAt = q.CreatedAt
	}
	q, err := repo.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("createQuestion() failed: %v", err)
	}
	return q
}

func CreateTicket(
	t *testing.T,
	repo ticket.Repository,
	protocol string,
	typ ticket.Type,
	category, name, email string,
	status ticket.Status,
	createdAt time.Time,
) ticket.Ticket {
	t.Helper()
	createdAt = createdAt.UTC()
	tk, err := repo.CreateTicket(context.Background(), ticket.Ticket{
		Protocol:  protocol,
		Type:      typ,
		Category:  category,
		Name:      name,
		Email:     email,
		Message:   "test message",
		Answers:   question.Answers{},
		Status:    status,
		Deadline:  ticket.AddBusinessDays(createdAt, 10),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("createTicket() failed: %v", err)
	}
	return tk
}
