package ticket

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

type Type string

const (
	TypeComplaint  Type = "RECLAMACAO"
	TypeBullying   Type = "BULLYING"
	TypeSuggestion Type = "SUGESTAO"
	TypeQuestion   Type = "DUVIDA"
	TypePrivacy    Type = "PRIVACIDADE"
)

// BullyingCategory is the category every bullying report is filed under,
// whatever form it was submitted from.
const BullyingCategory = "bullying"

var (
	AllTypes = []Type{TypeComplaint, TypeBullying, TypeSuggestion, TypeQuestion, TypePrivacy}

	typeLabels = map[Type]string{
		TypeComplaint:  "Reclamação",
		TypeBullying:   "Bullying",
		TypeSuggestion: "Sugestão",
		TypeQuestion:   "Dúvida",
		TypePrivacy:    "Privacidade",
	}
)

func (t Type) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

type Status string

// Statuses, in lifecycle order.
const (
	StatusNew       Status = "NOVO"
	StatusAnalyzing Status = "EM_ANALISE"
	StatusAnswered  Status = "RESPONDIDO"
	StatusClosed    Status = "FECHADO"
)

var (
	AllStatuses = []Status{StatusNew, StatusAnalyzing, StatusAnswered, StatusClosed}

	statusRanks = map[Status]int{
		StatusNew:       1,
		StatusAnalyzing: 2,
		StatusAnswered:  3,
		StatusClosed:    4,
	}
	statusLabels = map[Status]string{
		StatusNew:       "Novo",
		StatusAnalyzing: "Em análise",
		StatusAnswered:  "Respondido",
		StatusClosed:    "Fechado",
	}
)

func (s Status) Valid() bool {
	_, ok := statusRanks[s]
	return ok
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// CanTransitionTo reports whether a ticket in status s may move to `to`.
// Tickets only move forward.
func (s Status) CanTransitionTo(to Status) bool {
	return s.Valid() && to.Valid() && statusRanks[to] > statusRanks[s]
}

type Ticket struct {
	ID          string           `json:"id"`
	Protocol    string           `json:"protocol"`
	Type        Type             `json:"type"`
	Category    string           `json:"category"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Message     string           `json:"message"`
	Answers     question.Answers `json:"answers"`
	Status      Status           `json:"status"`
	Response    string           `json:"response"`
	RespondedAt time.Time        `json:"responded_at"` // UTC; zero until answered
	Deadline    time.Time        `json:"deadline"`     // UTC
	CreatedAt   time.Time        `json:"created_at"`   // UTC
	UpdatedAt   time.Time        `json:"updated_at"`   // UTC
}

// IsAnonymous reports whether the reporter left no way to be contacted.
func (t Ticket) IsAnonymous() bool {
	return t.Name == "" && t.Email == ""
}

func (t Ticket) Receipt() Receipt {
	return Receipt{
		Protocol:     t.Protocol,
		DeadlineText: DeadlineText(BusinessDaysBetween(t.CreatedAt, t.Deadline)),
		Deadline:     t.Deadline.Format(DeadlineLayout),
	}
}

// Receipt is what a reporter gets back once a ticket is filed.
type Receipt struct {
	Protocol     string `json:"protocol"`
	DeadlineText string `json:"deadline_text"`
	Deadline     string `json:"deadline"` // DeadlineLayout
}

// DeadlineLayout formats deadline dates the way they are shown to reporters.
const DeadlineLayout = "02/01/2006"

// DeadlineText labels a response delay of `days` business days.
func DeadlineText(days int) string {
	if days == 1 {
		return "até 1 dia útil"
	}
	return "até " + strconv.Itoa(days) + " dias úteis"
}

// Submission contains the information needed to file a Ticket.
type Submission struct {
	Type     Type             `json:"type" validate:"required,tickettype"`
	Category string           `json:"category" validate:"required"`
	Name     string           `json:"name" validate:"max=200"`
	Email    string           `json:"email" validate:"omitempty,email"`
	Message  string           `json:"message" validate:"max=20000"`
	Answers  question.Answers `json:"answers"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	s.Type = Type(core.CleanString(string(s.Type)))
	s.Category = core.CleanString(s.Category, true /* lower */)
	s.Name = core.CleanString(s.Name)
	s.Email = core.CleanString(s.Email, true /* lower */)
	s.Message = core.CleanString(s.Message)
	if s.Type == TypeBullying {
		s.Category = BullyingCategory
	}
	return validate.Struct(s)
}

// StatusUpdate moves a ticket forward in its lifecycle.
type StatusUpdate struct {
	Status Status `json:"status" validate:"required,ticketstatus"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = Status(core.CleanString(string(su.Status)))
	return validate.Struct(su)
}

// Response is the staff answer to a ticket.
type Response struct {
	Response string `json:"response" validate:"required"`
}

func (r *Response) Validate(validate *validator.Validate) error {
	r.Response = core.CleanString(r.Response)
	return validate.Struct(r)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Status      []Status  `query:"status"`
	Type        []Type    `query:"type"`
	Category    string    `query:"category"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == nil && qf.Type == nil && qf.Category == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
}

// OrderingFields are the fields tickets can be sorted on.
var OrderingFields = []string{"created_at", "deadline", "status", "type", "protocol"}
