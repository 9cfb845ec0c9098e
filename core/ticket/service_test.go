package ticket_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
	emailsvc "github.com/rcarvalhopiaget/escutapiaget-sub000/services/email"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/services/validation"
	inmemdb "github.com/rcarvalhopiaget/escutapiaget-sub000/storage/database/inmem"
	testutil "github.com/rcarvalhopiaget/escutapiaget-sub000/tests"
)

var friday = time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *ticket.Service
	repo  ticket.Repository
	mails *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T, repo ticket.Repository) fixture {
	t.Helper()
	t.Cleanup(ticket.SetNow(func() time.Time { return friday }))

	conf := core.NewTestConfig()
	validate, _ := validation.New()
	if repo == nil {
		repo = inmemdb.NewTicketRepository(inmemdb.Open())
	}
	mails := emailsvc.NewConsoleServiceMock(conf)
	return fixture{
		svc:   ticket.NewService(repo, mails, validate, conf, core.NopLogger{}),
		repo:  repo,
		mails: mails,
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t, nil)

	tk, err := f.svc.Create(context.Background(), ticket.Submission{
		Type:     ticket.TypeComplaint,
		Category: " Infraestrutura ",
		Name:     " Ana ",
		Email:    "Ana@Test.br",
		Message:  "Deseja se identificar?: SIM\nAssunto: Barulho",
		Answers:  question.Answers{"q1": "SIM"},
	})
	require.NoError(t, err)

	assert.True(t, ticket.ValidProtocol(tk.Protocol))
	assert.Equal(t, "20240315", tk.Protocol[:8])
	assert.Equal(t, "infraestrutura", tk.Category)
	assert.Equal(t, "Ana", tk.Name)
	assert.Equal(t, "ana@test.br", tk.Email)
	assert.Equal(t, ticket.StatusNew, tk.Status)
	assert.Equal(t, friday, tk.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 29, 13, 0, 0, 0, time.UTC), tk.Deadline)
	assert.Equal(t, "até 10 dias úteis", tk.Receipt().DeadlineText)

	got, err := f.svc.GetByProtocol(context.Background(), " "+tk.Protocol+" ")
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)

	sent := f.mails.Messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "ouvidoria@test.br", sent[0].To[0].Address)
	assert.Equal(t, "ticket_created", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, "Tipo: Reclamação")
	assert.Contains(t, sent[0].TextContent, "Assunto: Barulho")
	assert.Equal(t, "ana@test.br", sent[1].To[0].Address)
	assert.Equal(t, "ticket_receipt", sent[1].TemplateName)
	assert.Contains(t, sent[1].TextContent, "Prazo de resposta: até 10 dias úteis (29/03/2024)")
}

func TestService_Create_privacyDeadline(t *testing.T) {
	f := setup(t, nil)

	tk, err := f.svc.Create(context.Background(), ticket.Submission{Type: ticket.TypePrivacy, Category: "lgpd"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 5, 13, 0, 0, 0, time.UTC), tk.Deadline)
	assert.Equal(t, "até 15 dias úteis", tk.Receipt().DeadlineText)
}

func TestService_Create_anonymousBullying(t *testing.T) {
	f := setup(t, nil)

	tk, err := f.svc.Create(context.Background(), ticket.Submission{Type: ticket.TypeBullying, Category: "geral"})
	require.NoError(t, err)
	assert.Equal(t, ticket.BullyingCategory, tk.Category)
	assert.True(t, tk.IsAnonymous())

	// staff only
	sent := f.mails.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ticket_created", sent[0].TemplateName)
}

func TestService_Create_invalid(t *testing.T) {
	f := setup(t, nil)

	tests := []struct {
		name      string
		sub       ticket.Submission
		wantField string
	}{
		{"no type", ticket.Submission{Category: "x"}, "type"},
		{"bad type", ticket.Submission{Type: "ELOGIO", Category: "x"}, "type"},
		{"no category", ticket.Submission{Type: ticket.TypeComplaint}, "category"},
		{"bad email", ticket.Submission{Type: ticket.TypeComplaint, Category: "x", Email: "ana"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.sub)
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "%v", err)
			assert.Equal(t, tt.wantField, verrs[0].Field())
		})
	}
	assert.Empty(t, f.mails.Messages())
}

// collidingRepo reports the first `collisions` protocols as taken.
type collidingRepo struct {
	ticket.Repository
	collisions int
	tried      []string
}

func (r *collidingRepo) CreateTicket(ctx context.Context, tk ticket.Ticket) (ticket.Ticket, error) {
	r.tried = append(r.tried, tk.Protocol)
	if len(r.tried) <= r.collisions {
		return ticket.Ticket{}, ticket.ErrProtocolExists
	}
	return r.Repository.CreateTicket(ctx, tk)
}

func TestService_Create_protocolCollision(t *testing.T) {
	repo := &collidingRepo{Repository: inmemdb.NewTicketRepository(inmemdb.Open()), collisions: 2}
	f := setup(t, repo)

	tk, err := f.svc.Create(context.Background(), ticket.Submission{Type: ticket.TypeQuestion, Category: "x"})
	require.NoError(t, err)
	require.Len(t, repo.tried, 3)
	assert.Equal(t, repo.tried[2], tk.Protocol)

	repo.tried, repo.collisions = nil, 100
	_, err = f.svc.Create(context.Background(), ticket.Submission{Type: ticket.TypeQuestion, Category: "x"})
	assert.True(t, errors.Is(err, ticket.ErrProtocolExists))
	assert.Len(t, repo.tried, 5)
}

func TestService_GetByProtocol_invalid(t *testing.T) {
	f := setup(t, nil)
	_, err := f.svc.GetByProtocol(context.Background(), "../../etc")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_UpdateStatus(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	tk := testutil.CreateTicket(t, f.repo, "20240315-AAAAAA", ticket.TypeComplaint, "x", "", "", ticket.StatusNew, friday)

	got, err := f.svc.UpdateStatus(ctx, tk.ID, ticket.StatusUpdate{Status: ticket.StatusAnalyzing})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusAnalyzing, got.Status)

	_, err = f.svc.UpdateStatus(ctx, tk.ID, ticket.StatusUpdate{Status: ticket.StatusNew})
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	assert.True(t, errors.Is(err, ticket.ErrInvalidTransition))

	_, err = f.svc.UpdateStatus(ctx, tk.ID, ticket.StatusUpdate{Status: "ARQUIVADO"})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	_, err = f.svc.UpdateStatus(ctx, "missing", ticket.StatusUpdate{Status: ticket.StatusClosed})
	assert.True(t, errors.Is(err, ticket.ErrNotFound))
}

func TestService_Respond(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	tk := testutil.CreateTicket(t, f.repo, "20240315-BBBBBB", ticket.TypeComplaint, "x", "Ana", "ana@test.br", ticket.StatusAnalyzing, friday)
	anon := testutil.CreateTicket(t, f.repo, "20240315-CCCCCC", ticket.TypeBullying, "bullying", "", "", ticket.StatusNew, friday)

	_, err := f.svc.Respond(ctx, tk.ID, ticket.Response{Response: "   "})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	got, err := f.svc.Respond(ctx, tk.ID, ticket.Response{Response: " Resolvido. "})
	require.NoError(t, err)
	assert.Equal(t, "Resolvido.", got.Response)
	assert.Equal(t, ticket.StatusAnswered, got.Status)
	assert.Equal(t, friday, got.RespondedAt)

	sent := f.mails.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ticket_response", sent[0].TemplateName)
	assert.Equal(t, "ana@test.br", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Resolvido.")

	// answered again: response replaced
	got, err = f.svc.Respond(ctx, tk.ID, ticket.Response{Response: "Complemento."})
	require.NoError(t, err)
	assert.Equal(t, "Complemento.", got.Response)

	// anonymous: nobody to email
	f.mails.Reset()
	_, err = f.svc.Respond(ctx, anon.ID, ticket.Response{Response: "Ok."})
	require.NoError(t, err)
	assert.Empty(t, f.mails.Messages())

	_, err = f.svc.UpdateStatus(ctx, tk.ID, ticket.StatusUpdate{Status: ticket.StatusClosed})
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, tk.ID, ticket.Response{Response: "Tarde."})
	assert.True(t, errors.Is(err, ticket.ErrClosed))
}

func TestService_Query(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	t1 := testutil.CreateTicket(t, f.repo, "20240311-000001", ticket.TypeComplaint, "infra", "Ana", "", ticket.StatusNew, friday.AddDate(0, 0, -4))
	t2 := testutil.CreateTicket(t, f.repo, "20240312-000002", ticket.TypeBullying, "bullying", "", "", ticket.StatusAnswered, friday.AddDate(0, 0, -3))
	t3 := testutil.CreateTicket(t, f.repo, "20240313-000003", ticket.TypeComplaint, "infra", "Bruno", "", ticket.StatusClosed, friday.AddDate(0, 0, -2))

	tests := []struct {
		name      string
		filter    ticket.QueryFilter
		orderings []core.DBOrdering
		want      []ticket.Ticket
	}{
		{name: "all, newest first", want: []ticket.Ticket{t3, t2, t1}},
		{name: "oldest first", orderings: []core.DBOrdering{{Field: "created_at", Ascending: true}}, want: []ticket.Ticket{t1, t2, t3}},
		{name: "unknown ordering ignored", orderings: []core.DBOrdering{{Field: "message; DROP TABLE ticket"}}, want: []ticket.Ticket{t3, t2, t1}},
		{name: "by status", filter: ticket.QueryFilter{Status: []ticket.Status{ticket.StatusNew, ticket.StatusClosed}}, want: []ticket.Ticket{t3, t1}},
		{name: "by type", filter: ticket.QueryFilter{Type: []ticket.Type{ticket.TypeBullying}}, want: []ticket.Ticket{t2}},
		{name: "by category", filter: ticket.QueryFilter{Category: " INFRA "}, want: []ticket.Ticket{t3, t1}},
		{name: "search name", filter: ticket.QueryFilter{Search: "bru"}, want: []ticket.Ticket{t3}},
		{name: "search protocol", filter: ticket.QueryFilter{Search: "20240312"}, want: []ticket.Ticket{t2}},
		{name: "created range", filter: ticket.QueryFilter{CreatedFrom: friday.AddDate(0, 0, -3), CreatedTo: friday.AddDate(0, 0, -3)}, want: []ticket.Ticket{t2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Query(ctx, tt.filter, tt.orderings...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
