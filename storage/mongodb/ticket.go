package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

type ticketDoc struct {
	ID          string                 `bson:"_id"`
	Protocol    string                 `bson:"protocol"`
	Type        string                 `bson:"type"`
	Category    string                 `bson:"category"`
	Name        string                 `bson:"name"`
	Email       string                 `bson:"email"`
	Message     string                 `bson:"message"`
	Answers     map[string]interface{} `bson:"answers"`
	Status      string                 `bson:"status"`
	Response    string                 `bson:"response"`
	RespondedAt time.Time              `bson:"responded_at,omitempty"`
	Deadline    time.Time              `bson:"deadline"`
	CreatedAt   time.Time              `bson:"created_at"`
	UpdatedAt   time.Time              `bson:"updated_at"`
}

func newTicketDoc(t ticket.Ticket) ticketDoc {
	answers := map[string]interface{}(t.Answers)
	if answers == nil {
		answers = map[string]interface{}{}
	}
	return ticketDoc{
		ID:          t.ID,
		Protocol:    t.Protocol,
		Type:        string(t.Type),
		Category:    t.Category,
		Name:        t.Name,
		Email:       t.Email,
		Message:     t.Message,
		Answers:     answers,
		Status:      string(t.Status),
		Response:    t.Response,
		RespondedAt: t.RespondedAt,
		Deadline:    t.Deadline,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d ticketDoc) ticket() ticket.Ticket {
	answers := make(question.Answers, len(d.Answers))
	for id, v := range d.Answers {
		answers[id] = plain(v)
	}
	return ticket.Ticket{
		ID:          d.ID,
		Protocol:    d.Protocol,
		Type:        ticket.Type(d.Type),
		Category:    d.Category,
		Name:        d.Name,
		Email:       d.Email,
		Message:     d.Message,
		Answers:     answers,
		Status:      ticket.Status(d.Status),
		Response:    d.Response,
		RespondedAt: utc(d.RespondedAt),
		Deadline:    utc(d.Deadline),
		CreatedAt:   utc(d.CreatedAt),
		UpdatedAt:   utc(d.UpdatedAt),
	}
}

// plain turns decoded BSON containers into the shapes encoding/json produces.
func plain(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	}
	return v
}

type ticketRepository struct {
	coll *mongo.Collection
}

func NewTicketRepository(db *mongo.Database) ticket.Repository {
	return &ticketRepository{coll: db.Collection(ticketCollection)}
}

func (repo *ticketRepository) CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	_, err := repo.coll.InsertOne(ctx, newTicketDoc(t))
	if isDuplicateKey(err) {
		return ticket.Ticket{}, ticket.ErrProtocolExists
	}
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "inserting ticket")
	}
	return t, nil
}

func (repo *ticketRepository) QueryTickets(ctx context.Context, filter ticket.QueryFilter, orderings ...core.DBOrdering) ([]ticket.Ticket, error) {
	f := bson.M{}
	if filter.Search != "" {
		re := searchRegex(filter.Search)
		f["$or"] = bson.A{
			bson.M{"protocol": re},
			bson.M{"name": re},
			bson.M{"email": re},
			bson.M{"message": re},
		}
	}
	if len(filter.Status) > 0 {
		f["status"] = bson.M{"$in": filter.Status}
	}
	if len(filter.Type) > 0 {
		f["type"] = bson.M{"$in": filter.Type}
	}
	if filter.Category != "" {
		f["category"] = filter.Category
	}
	createdRange(f, filter.CreatedFrom, filter.CreatedTo)

	opts := options.Find().SetSort(sortDoc(orderings, bson.D{{Key: "created_at", Value: -1}}))
	cur, err := repo.coll.Find(ctx, f, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding tickets")
	}
	var docs []ticketDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding tickets")
	}
	tickets := make([]ticket.Ticket, 0, len(docs))
	for _, d := range docs {
		tickets = append(tickets, d.ticket())
	}
	return tickets, nil
}

func (repo *ticketRepository) findOne(ctx context.Context, filter bson.M) (ticket.Ticket, error) {
	var d ticketDoc
	err := repo.coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "finding ticket")
	}
	return d.ticket(), nil
}

func (repo *ticketRepository) GetTicketByID(ctx context.Context, id string) (ticket.Ticket, error) {
	return repo.findOne(ctx, bson.M{"_id": id})
}

func (repo *ticketRepository) GetTicketByProtocol(ctx context.Context, protocol string) (ticket.Ticket, error) {
	return repo.findOne(ctx, bson.M{"protocol": protocol})
}

func (repo *ticketRepository) UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	update := bson.M{"$set": bson.M{
		"status":       string(t.Status),
		"response":     t.Response,
		"responded_at": t.RespondedAt,
		"updated_at":   t.UpdatedAt,
	}}
	res, err := repo.coll.UpdateByID(ctx, t.ID, update)
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "updating ticket")
	}
	if res.MatchedCount == 0 {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	return repo.GetTicketByID(ctx, t.ID)
}
