// Package inmemdb implements the repositories in memory; used by tests and the "memory" engine.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

type DB struct {
	question *table[question.Question]
	ticket   *table[ticket.Ticket]
	user     *table[user.User]
}

func Open() *DB {
	return &DB{
		question: newTable[question.Question](),
		ticket:   newTable[ticket.Ticket](),
		user:     newTable[user.User](),
	}
}

// table keeps rows in insertion order.
type table[T any] struct {
	mutex sync.RWMutex
	rows  map[string]*T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

// all returns copies of the rows in insertion order. Callers hold the lock.
func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.rows[id])
	}
	return out
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return *row, true
}

func (t *table[T]) insert(id string, row T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = &row
}

func (t *table[T]) delete(ids ...string) {
	del := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := t.rows[id]; ok {
			del[id] = true
			delete(t.rows, id)
		}
	}
	if len(del) == 0 {
		return
	}
	kept := t.order[:0]
	for _, id := range t.order {
		if !del[id] {
			kept = append(kept, id)
		}
	}
	t.order = kept
}

func newID() string {
	return uuid.New().String()
}
