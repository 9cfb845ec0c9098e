// Package form runs one session of a dynamic ticket form: it fetches the question
// set of a category, keeps the answers, recomputes the active questions on every
// change and files the ticket.
package form

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

var (
	// errors
	ErrInvalidState    = errors.New("operation not allowed in the current form state")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrUnknownType     = errors.New("unknown question type")
	errSuperseded      = errors.New("load superseded by a newer one")
)

type (
	// QuestionSource returns the questions of exactly one category, bypassing any cache.
	QuestionSource interface {
		Questions(ctx context.Context, category string) ([]question.Question, error)
	}

	// TicketCreator files a ticket in a single all-or-nothing call.
	TicketCreator interface {
		CreateTicket(ctx context.Context, sub ticket.Submission) (ticket.Receipt, error)
	}

	Options struct {
		TicketType ticket.Type
		Category   string

		MaxAttempts int           // fetch attempts before Failed
		BaseDelay   time.Duration // wait after the 1st failed fetch; doubled after each one

		// EnforceRequired rejects submissions with unanswered required questions.
		EnforceRequired bool

		Logger core.Logger
	}

	Controller struct {
		src     QuestionSource
		tickets TicketCreator
		opts    Options
		sleep   func(ctx context.Context, d time.Duration) error

		mu      sync.Mutex
		state   State
		gen     uint64 // incremented by every Load
		cancel  context.CancelFunc
		graph   *question.Graph
		answers question.Answers
		active  question.ActiveSet
	}
)

func NewController(src QuestionSource, tickets TicketCreator, opts Options) *Controller {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	return &Controller{
		src:     src,
		tickets: tickets,
		opts:    opts,
		sleep:   sleepCtx,
		state:   Loading{},
		graph:   question.NewGraph(nil),
		answers: question.Answers{},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the wait after the n-th failed fetch (n >= 1).
func (c *Controller) Backoff(n int) time.Duration {
	return c.opts.BaseDelay << uint(n-1)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load fetches the question set, retrying with exponential backoff, and blocks
// until the controller is Loaded or Failed. A Load cancels any Load still in flight;
// the superseded one returns without touching the controller.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	switch c.state.(type) {
	case Submitting, Submitted:
		c.mu.Unlock()
		return ErrInvalidState
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = Loading{}
	c.mu.Unlock()
	defer cancel()

	var (
		qs  []question.Question
		err error
	)
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if !c.setLoading(gen, attempt) {
			return errSuperseded
		}
		if qs, err = c.src.Questions(ctx, c.opts.Category); err == nil {
			break
		}
		c.opts.Logger.Warn("fetching questions failed", err, map[string]interface{}{
			"category": c.opts.Category,
			"attempt":  attempt,
		})
		if ctx.Err() != nil || attempt == c.opts.MaxAttempts {
			break
		}
		if serr := c.sleep(ctx, c.Backoff(attempt)); serr != nil {
			err = serr
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return errSuperseded
	}
	c.cancel = nil
	if err != nil {
		err = errors.Wrap(err, "fetching questions")
		c.state = Failed{Err: err}
		return err
	}

	c.graph = question.NewGraph(qs)
	c.answers = make(question.Answers, c.graph.Len())
	for _, q := range c.graph.Questions() {
		if w, ok := WidgetFor(q.Type); ok {
			c.answers[q.ID] = w.Default()
		}
	}
	c.active = c.graph.Resolve(c.answers)
	c.state = Loaded{}
	return nil
}

func (c *Controller) setLoading(gen uint64, attempt int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.state = Loading{Attempt: attempt}
	return true
}

// Retry reloads the question set after a failed Load.
func (c *Controller) Retry(ctx context.Context) error {
	if _, ok := c.State().(Failed); !ok {
		return ErrInvalidState
	}
	return c.Load(ctx)
}

// Questions returns every question of the form, active or not, in display order.
func (c *Controller) Questions() []question.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph.Questions()
}

// SetAnswer normalizes `value` with the widget of question `id`, stores it and
// recomputes the active questions. The answers are left untouched on error.
func (c *Controller) SetAnswer(id string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.state.(Loaded); !ok {
		return ErrInvalidState
	}
	q, ok := c.graph.Question(id)
	if !ok {
		return errors.Wrap(ErrUnknownQuestion, id)
	}
	w, ok := WidgetFor(q.Type)
	if !ok {
		return errors.Wrap(ErrUnknownType, string(q.Type))
	}
	v, err := w.Normalize(q, value)
	if err != nil {
		return err
	}
	c.answers[id] = v
	c.active = c.graph.Resolve(c.answers)
	return nil
}

// ParseAnswer is SetAnswer for a line of terminal input.
func (c *Controller) ParseAnswer(id, raw string) error {
	c.mu.Lock()
	q, ok := c.graph.Question(id)
	c.mu.Unlock()
	if !ok {
		return errors.Wrap(ErrUnknownQuestion, id)
	}
	w, ok := WidgetFor(q.Type)
	if !ok {
		return errors.Wrap(ErrUnknownType, string(q.Type))
	}
	v, err := w.Parse(q, raw)
	if err != nil {
		return err
	}
	return c.SetAnswer(id, v)
}

// Active returns the questions to render, identification first and apart.
func (c *Controller) Active() question.ActiveSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Answers returns a copy of every answer given, including those of questions
// that are no longer active.
func (c *Controller) Answers() question.Answers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Copy()
}

// Missing returns the active required questions that have no answer.
func (c *Controller) Missing() []question.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.missing()
}

func (c *Controller) missing() []question.Question {
	var out []question.Question
	if idq := c.active.Identification; idq != nil && idq.Required && !isAnswered(c.answers[idq.ID]) {
		out = append(out, *idq)
	}
	for _, q := range c.active.Questions {
		if q.Required && !isAnswered(c.answers[q.ID]) {
			out = append(out, q)
		}
	}
	return out
}

// Submission builds what Submit would send.
func (c *Controller) Submission() ticket.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submission()
}

func (c *Controller) submission() ticket.Submission {
	name, email := reporter(c.active, c.answers)
	return ticket.Submission{
		Type:     c.opts.TicketType,
		Category: submissionCategory(c.opts.TicketType, c.opts.Category),
		Name:     name,
		Email:    email,
		Message:  Summarize(c.active, c.answers),
		Answers:  c.answers.Copy(),
	}
}

// Submit files the ticket. On failure the controller goes back to Loaded with
// every answer kept, so the caller may submit again.
func (c *Controller) Submit(ctx context.Context) (ticket.Receipt, error) {
	c.mu.Lock()
	if _, ok := c.state.(Loaded); !ok {
		c.mu.Unlock()
		return ticket.Receipt{}, ErrInvalidState
	}
	if c.opts.EnforceRequired {
		if missing := c.missing(); len(missing) > 0 {
			c.mu.Unlock()
			flds := make([]core.FieldError, 0, len(missing))
			for _, q := range missing {
				flds = append(flds, core.FieldError{Field: q.ID, Error: "this field is required"})
			}
			return ticket.Receipt{}, core.NewValidationError(nil, flds...)
		}
	}
	sub := c.submission()
	c.state = Submitting{}
	c.mu.Unlock()

	receipt, err := c.tickets.CreateTicket(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = Loaded{}
		c.opts.Logger.Warn("submitting ticket failed", err, map[string]interface{}{"type": sub.Type, "category": sub.Category})
		return ticket.Receipt{}, errors.Wrap(err, "submitting ticket")
	}
	c.state = Submitted{Receipt: receipt}
	c.answers = question.Answers{}
	return receipt, nil
}

// Close cancels any Load in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
