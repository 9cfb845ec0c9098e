package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

var errNetwork = errors.New("network down")

type fakeSource struct {
	mu         sync.Mutex
	questions  []question.Question
	failFirst  int
	calls      int
	categories []string
	block      chan struct{} // if set, Questions waits on it (or ctx)
}

func (s *fakeSource) Questions(ctx context.Context, category string) ([]question.Question, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.categories = append(s.categories, category)
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if call <= s.failFirst {
		return nil, errNetwork
	}
	return s.questions, nil
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeTickets struct {
	subs []ticket.Submission
	err  error
}

func (t *fakeTickets) CreateTicket(_ context.Context, sub ticket.Submission) (ticket.Receipt, error) {
	t.subs = append(t.subs, sub)
	if t.err != nil {
		return ticket.Receipt{}, t.err
	}
	return ticket.Receipt{Protocol: "20240102-ABCDEF", DeadlineText: "até 10 dias úteis", Deadline: "16/01/2024"}, nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestController(src QuestionSource, tickets TicketCreator, opts Options) (*Controller, *sleepRecorder) {
	c := NewController(src, tickets, opts)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	return c, rec
}

func bullyingForm() []question.Question {
	return []question.Question{
		{ID: "qid", Text: question.IdentificationPrompt, Type: question.TypeRadio, Order: 0,
			Options: []question.Option{{Text: question.AnswerYes}, {Text: question.AnswerNo}}},
		{ID: "qname", Text: "Nome completo", Type: question.TypeText, Order: 1},
		{ID: "qmail", Text: "E-mail para contato", Type: question.TypeText, Order: 2},
		{ID: "qwhere", Text: "Onde aconteceu?", Type: question.TypeSelect, Order: 3, Required: true,
			Options: []question.Option{
				{Text: "Sala de aula"},
				{Text: "Outro lugar", NextQuestionsIDs: []string{"qother"}},
			}},
		{ID: "qother", Text: "Qual lugar?", Type: question.TypeText, Order: 4},
		{ID: "qwhen", Text: "Quando?", Type: question.TypeDate, Order: 5},
		{ID: "qwho", Text: "Quem estava envolvido?", Type: question.TypeCheckbox, Order: 6,
			Options: []question.Option{{Text: "Alunos"}, {Text: "Funcionários"}}},
		{ID: "qfiles", Text: "Anexos", Type: question.TypeFile, Order: 7},
	}
}

func TestController_Load_retries(t *testing.T) {
	src := &fakeSource{questions: bullyingForm(), failFirst: 2}
	c, rec := newTestController(src, &fakeTickets{}, Options{TicketType: ticket.TypeComplaint, Category: "x"})

	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
	assert.IsType(t, Loaded{}, c.State())
	assert.Equal(t, []string{"x", "x", "x"}, src.categories)
}

func TestController_Load_exhausted(t *testing.T) {
	src := &fakeSource{questions: bullyingForm(), failFirst: 5}
	c, rec := newTestController(src, &fakeTickets{}, Options{Category: "x"})

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errNetwork))

	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays, "no wait after the last attempt")
	st, ok := c.State().(Failed)
	require.True(t, ok, "state = %v", c.State())
	assert.Error(t, st.Err)

	// SetAnswer and Submit are rejected until loaded
	assert.Equal(t, ErrInvalidState, c.SetAnswer("qname", "x"))
	_, err = c.Submit(context.Background())
	assert.Equal(t, ErrInvalidState, err)

	// manual retry
	src.failFirst = 0
	require.NoError(t, c.Retry(context.Background()))
	assert.Equal(t, 4, src.Calls())
	assert.IsType(t, Loaded{}, c.State())

	assert.Equal(t, ErrInvalidState, c.Retry(context.Background()), "retry only from Failed")
}

func TestController_Load_backoffDoubles(t *testing.T) {
	src := &fakeSource{failFirst: 10}
	c, rec := newTestController(src, &fakeTickets{}, Options{MaxAttempts: 5, BaseDelay: time.Second})
	require.Error(t, c.Load(context.Background()))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.delays)
	assert.Equal(t, 5, src.Calls())
}

func TestController_Load_cancelled(t *testing.T) {
	src := &fakeSource{failFirst: 10}
	c := NewController(src, &fakeTickets{}, Options{BaseDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Load(ctx) }()

	require.Eventually(t, func() bool { return src.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Load did not return after cancel")
	}
	assert.IsType(t, Failed{}, c.State())
	assert.Equal(t, 1, src.Calls())
}

func TestController_Load_supersedes(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{questions: bullyingForm(), block: block}
	c := NewController(src, &fakeTickets{}, Options{})

	first := make(chan error)
	go func() { first <- c.Load(context.Background()) }()
	require.Eventually(t, func() bool { return src.Calls() == 1 }, time.Second, time.Millisecond)

	src.mu.Lock()
	src.block = nil
	src.mu.Unlock()
	require.NoError(t, c.Load(context.Background()))

	err := <-first
	assert.Equal(t, errSuperseded, err)
	assert.IsType(t, Loaded{}, c.State(), "a stale load never overwrites a newer one")
	close(block)
}

func TestController_Load_seedsDefaults(t *testing.T) {
	c, _ := newTestController(&fakeSource{questions: bullyingForm()}, &fakeTickets{}, Options{})
	require.NoError(t, c.Load(context.Background()))

	answers := c.Answers()
	assert.Equal(t, "", answers["qname"])
	assert.Equal(t, "", answers["qwhen"])
	assert.Equal(t, []string{}, answers["qwho"])
	assert.Equal(t, []question.FileMeta{}, answers["qfiles"])
	assert.Len(t, answers, len(bullyingForm()))
}

func TestController_SetAnswer(t *testing.T) {
	c, _ := newTestController(&fakeSource{questions: bullyingForm()}, &fakeTickets{}, Options{})
	require.NoError(t, c.Load(context.Background()))

	require.NotNil(t, c.Active().Identification)
	assert.Equal(t, []string{"qname", "qmail", "qwhere", "qwhen", "qwho", "qfiles"}, c.Active().IDs())

	require.NoError(t, c.SetAnswer("qwhere", "Outro lugar"))
	assert.Contains(t, c.Active().IDs(), "qother")

	require.NoError(t, c.SetAnswer("qother", "Pátio"))
	require.NoError(t, c.SetAnswer("qwhere", "Sala de aula"))
	assert.NotContains(t, c.Active().IDs(), "qother")
	assert.Equal(t, "Pátio", c.Answers()["qother"], "orphaned answers are kept")

	require.NoError(t, c.SetAnswer("qid", question.AnswerNo))
	assert.Equal(t, []string{"qwhere", "qwhen", "qwho", "qfiles"}, c.Active().IDs())

	require.NoError(t, c.SetAnswer("qwhen", "15/03/2024"))
	assert.Equal(t, "2024-03-15", c.Answers()["qwhen"])

	// errors leave the answers untouched
	err := c.SetAnswer("qwhere", "Cantina")
	assert.True(t, core.IsValidationError(err))
	assert.Equal(t, "Sala de aula", c.Answers()["qwhere"])

	err = c.SetAnswer("nope", "x")
	assert.True(t, errors.Is(err, ErrUnknownQuestion))
}

func TestController_Answers_isACopy(t *testing.T) {
	c, _ := newTestController(&fakeSource{questions: bullyingForm()}, &fakeTickets{}, Options{})
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.SetAnswer("qwho", []string{"Alunos"}))

	answers := c.Answers()
	answers["qwho"].([]string)[0] = "changed"
	answers["qname"] = "changed"
	assert.Equal(t, []string{"Alunos"}, c.Answers()["qwho"])
	assert.Equal(t, "", c.Answers()["qname"])
}

func TestController_Missing(t *testing.T) {
	c, _ := newTestController(&fakeSource{questions: bullyingForm()}, &fakeTickets{}, Options{EnforceRequired: true})
	require.NoError(t, c.Load(context.Background()))

	missing := c.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, "qwhere", missing[0].ID)

	_, err := c.Submit(context.Background())
	require.True(t, core.IsValidationError(err))
	assert.IsType(t, Loaded{}, c.State())

	require.NoError(t, c.SetAnswer("qwhere", "Sala de aula"))
	assert.Empty(t, c.Missing())
	_, err = c.Submit(context.Background())
	assert.NoError(t, err)
}

func TestController_Submit(t *testing.T) {
	tickets := &fakeTickets{}
	c, _ := newTestController(&fakeSource{questions: bullyingForm()}, tickets, Options{
		TicketType: ticket.TypeComplaint,
		Category:   "infraestrutura",
	})
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.SetAnswer("qid", question.AnswerYes))
	require.NoError(t, c.SetAnswer("qname", "Maria Silva"))
	require.NoError(t, c.SetAnswer("qmail", "maria@test.br"))
	require.NoError(t, c.SetAnswer("qwhere", "Sala de aula"))
	require.NoError(t, c.SetAnswer("qwho", []interface{}{"Alunos", "Funcionários"}))

	rcpt, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20240102-ABCDEF", rcpt.Protocol)
	assert.Equal(t, Submitted{Receipt: rcpt}, c.State())

	require.Len(t, tickets.subs, 1)
	sub := tickets.subs[0]
	assert.Equal(t, ticket.TypeComplaint, sub.Type)
	assert.Equal(t, "infraestrutura", sub.Category)
	assert.Equal(t, "Maria Silva", sub.Name)
	assert.Equal(t, "maria@test.br", sub.Email)
	assert.Equal(t, "Deseja se identificar?: SIM\n"+
		"Nome completo: Maria Silva\n"+
		"E-mail para contato: maria@test.br\n"+
		"Onde aconteceu?: Sala de aula\n"+
		"Quem estava envolvido?: Alunos, Funcionários", sub.Message)
	assert.Equal(t, []string{"Alunos", "Funcionários"}, sub.Answers["qwho"])

	// terminal
	assert.Equal(t, ErrInvalidState, c.SetAnswer("qname", "x"))
	_, err = c.Submit(context.Background())
	assert.Equal(t, ErrInvalidState, err)
	assert.Equal(t, ErrInvalidState, c.Load(context.Background()))
}

func TestController_Submit_anonymous(t *testing.T) {
	tickets := &fakeTickets{}
	c, _ := newTestController(&fakeSource{questions: bullyingForm()}, tickets, Options{TicketType: ticket.TypeComplaint, Category: "x"})
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.SetAnswer("qname", "Maria Silva"))
	require.NoError(t, c.SetAnswer("qmail", "maria@test.br"))
	require.NoError(t, c.SetAnswer("qid", question.AnswerNo))

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	sub := tickets.subs[0]
	assert.Empty(t, sub.Name)
	assert.Empty(t, sub.Email)
	assert.NotContains(t, sub.Message, "Maria")
	assert.Equal(t, "Maria Silva", sub.Answers["qname"], "answers are submitted as given")
}

func TestController_Submit_bullyingCategory(t *testing.T) {
	tickets := &fakeTickets{}
	c, _ := newTestController(&fakeSource{questions: bullyingForm()}, tickets, Options{TicketType: ticket.TypeBullying, Category: "X"})
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets.subs, 1)
	assert.Equal(t, ticket.BullyingCategory, tickets.subs[0].Category)
	assert.Equal(t, ticket.TypeBullying, tickets.subs[0].Type)
}

func TestController_Submit_failureKeepsAnswers(t *testing.T) {
	tickets := &fakeTickets{err: errNetwork}
	c, _ := newTestController(&fakeSource{questions: bullyingForm()}, tickets, Options{TicketType: ticket.TypeQuestion, Category: "x"})
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.SetAnswer("qwhere", "Outro lugar"))
	require.NoError(t, c.SetAnswer("qother", "Quadra"))
	before := c.Answers()

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errNetwork))
	assert.IsType(t, Loaded{}, c.State())
	assert.Equal(t, before, c.Answers())
	assert.Len(t, tickets.subs, 1, "no automatic retry")

	tickets.err = nil
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, tickets.subs, 2)
	assert.Equal(t, tickets.subs[0], tickets.subs[1])
}

func TestController_emptyForm(t *testing.T) {
	c, _ := newTestController(&fakeSource{}, &fakeTickets{}, Options{})
	require.NoError(t, c.Load(context.Background()))
	assert.Nil(t, c.Active().Identification)
	assert.Empty(t, c.Active().Questions)
	assert.Empty(t, c.Missing())
}
