package ticket

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
)

var (
	// errors
	ErrNotFound          = errors.Wrap(core.ErrNotFound, "ticket")
	ErrProtocolExists    = errors.New("a ticket with this protocol already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrClosed            = errors.New("ticket is closed")

	// nowFunc is replaced in tests
	nowFunc = time.Now

	maxProtocolAttempts = 5
)

type (
	Repository interface {
		// CreateTicket returns ErrProtocolExists if t.Protocol is taken.
		CreateTicket(ctx context.Context, t Ticket) (Ticket, error)
		// QueryTickets applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Ticket.Protocol, Ticket.Name,
		// Ticket.Email or Ticket.Message. Orderings default to created_at DESC.
		QueryTickets(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Ticket, error)
		GetTicketByID(ctx context.Context, id string) (Ticket, error)
		GetTicketByProtocol(ctx context.Context, protocol string) (Ticket, error)
		UpdateTicket(ctx context.Context, t Ticket) (Ticket, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
		conf     *core.Config
		logger   core.Logger
	}

	// mailData is the data ticket email templates are rendered with.
	mailData struct {
		Protocol     string
		TypeLabel    string
		Category     string
		DeadlineText string
		Deadline     string
		Message      string
		Response     string
	}
)

func NewService(
	repo Repository,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, validate: validate, conf: conf, logger: logger}
}

// ResponseDays returns the number of business days staff have to answer a ticket of type `typ`.
func (svc *Service) ResponseDays(typ Type) int {
	if typ == TypePrivacy && svc.conf.Ticket.PrivacyResponseDays > 0 {
		return svc.conf.Ticket.PrivacyResponseDays
	}
	if svc.conf.Ticket.ResponseDays > 0 {
		return svc.conf.Ticket.ResponseDays
	}
	return 10
}

// Create validates and files a submission, then notifies staff and the reporter.
func (svc *Service) Create(ctx context.Context, sub Submission) (Ticket, error) {
	if err := sub.Validate(svc.validate); err != nil {
		return Ticket{}, err
	}

	now := nowFunc().UTC()
	t := Ticket{
		Type:      sub.Type,
		Category:  sub.Category,
		Name:      sub.Name,
		Email:     sub.Email,
		Message:   sub.Message,
		Answers:   sub.Answers,
		Status:    StatusNew,
		Deadline:  AddBusinessDays(now, svc.ResponseDays(sub.Type)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var err error
	for attempt := 1; attempt <= maxProtocolAttempts; attempt++ {
		t.Protocol = NewProtocol(now)
		var created Ticket
		created, err = svc.repo.CreateTicket(ctx, t)
		if err == nil {
			t = created
			break
		}
		if errors.Cause(err) != ErrProtocolExists {
			return Ticket{}, errors.Wrap(err, "creating ticket")
		}
	}
	if err != nil {
		return Ticket{}, errors.Wrap(err, "creating ticket")
	}

	svc.logger.Info("ticket created", map[string]interface{}{"protocol": t.Protocol, "type": t.Type})
	svc.sendCreatedMails(t)
	return t, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Ticket, error) {
	filter.Clean()
	orderings = core.FilterOrderings(orderings, OrderingFields...)
	return svc.repo.QueryTickets(ctx, filter, orderings...)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Ticket, error) {
	return svc.repo.GetTicketByID(ctx, id)
}

func (svc *Service) GetByProtocol(ctx context.Context, protocol string) (Ticket, error) {
	protocol = core.CleanString(protocol)
	if !ValidProtocol(protocol) {
		return Ticket{}, ErrNotFound
	}
	return svc.repo.GetTicketByProtocol(ctx, protocol)
}

// UpdateStatus moves ticket `id` forward to su.Status.
func (svc *Service) UpdateStatus(ctx context.Context, id string, su StatusUpdate) (Ticket, error) {
	if err := su.Validate(svc.validate); err != nil {
		return Ticket{}, err
	}
	t, err := svc.repo.GetTicketByID(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if !t.Status.CanTransitionTo(su.Status) {
		return Ticket{}, core.NewValidationError(ErrInvalidTransition, core.FieldError{
			Field: "status",
			Error: "cannot go from " + string(t.Status) + " to " + string(su.Status),
		})
	}
	t.Status = su.Status
	t.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateTicket(ctx, t)
}

// Respond stores the staff response, marks the ticket as answered and emails the reporter.
// A ticket may be answered again (the response is replaced) until it is closed.
func (svc *Service) Respond(ctx context.Context, id string, r Response) (Ticket, error) {
	if err := r.Validate(svc.validate); err != nil {
		return Ticket{}, err
	}
	t, err := svc.repo.GetTicketByID(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if t.Status == StatusClosed {
		return Ticket{}, core.NewValidationError(ErrClosed, core.FieldError{Field: "status", Error: ErrClosed.Error()})
	}

	now := nowFunc().UTC()
	t.Response = r.Response
	t.RespondedAt = now
	t.Status = StatusAnswered
	t.UpdatedAt = now
	if t, err = svc.repo.UpdateTicket(ctx, t); err != nil {
		return Ticket{}, err
	}

	if t.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: t.Name, Address: t.Email}},
			Subject:      "Resposta ao registro " + t.Protocol,
			TemplateName: "ticket_response",
			TemplateData: svc.mailData(t),
		})
	}
	return t, nil
}

func (svc *Service) mailData(t Ticket) mailData {
	rcpt := t.Receipt()
	return mailData{
		Protocol:     t.Protocol,
		TypeLabel:    t.Type.Label(),
		Category:     t.Category,
		DeadlineText: rcpt.DeadlineText,
		Deadline:     rcpt.Deadline,
		Message:      t.Message,
		Response:     t.Response,
	}
}

func (svc *Service) sendCreatedMails(t Ticket) {
	data := svc.mailData(t)
	msgs := make([]*core.EmailMessage, 0, 2)

	if len(svc.conf.Ticket.NotifyEmails) > 0 {
		staff := make([]mail.Address, 0, len(svc.conf.Ticket.NotifyEmails))
		for _, addr := range svc.conf.Ticket.NotifyEmails {
			staff = append(staff, mail.Address{Address: addr})
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           staff,
			Subject:      "Novo registro: " + t.Type.Label() + " " + t.Protocol,
			TemplateName: "ticket_created",
			TemplateData: data,
		})
	}
	if t.Email != "" {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: t.Name, Address: t.Email}},
			Subject:      "Registro " + t.Protocol + " recebido",
			TemplateName: "ticket_receipt",
			TemplateData: data,
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}
