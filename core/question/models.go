package question

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
)

// Type is the kind of answer widget a Question is rendered with.
type Type string

const (
	TypeText        Type = "TEXT"
	TypeTextArea    Type = "TEXTAREA"
	TypeSelect      Type = "SELECT"
	TypeMultiSelect Type = "MULTISELECT"
	TypeRadio       Type = "RADIO"
	TypeCheckbox    Type = "CHECKBOX"
	TypeDate        Type = "DATE"
	TypeFile        Type = "FILE"
)

var AllTypes = []Type{
	TypeText, TypeTextArea, TypeSelect, TypeMultiSelect,
	TypeRadio, TypeCheckbox, TypeDate, TypeFile,
}

func (t Type) Valid() bool {
	for _, typ := range AllTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// IsChoice reports whether questions of this type carry options.
func (t Type) IsChoice() bool {
	switch t {
	case TypeSelect, TypeMultiSelect, TypeRadio, TypeCheckbox:
		return true
	}
	return false
}

// IsMulti reports whether answers of this type are lists of option texts.
func (t Type) IsMulti() bool {
	return t == TypeMultiSelect || t == TypeCheckbox
}

// DrivesSkips reports whether answers of this type activate follow-up questions.
// Multi-valued answers never do.
func (t Type) DrivesSkips() bool {
	return t == TypeRadio || t == TypeSelect
}

const (
	// IdentificationPrompt is the exact text of the question gating name/email fields.
	IdentificationPrompt = "Deseja se identificar?"
	AnswerYes            = "SIM"
	AnswerNo             = "NAO"

	// GlobalCategory questions are listed with every category in the admin question manager.
	GlobalCategory = "all"
)

// identityKeywords flag name/full-name/email questions, hidden from anonymous reporters.
var identityKeywords = []string{"nome", "completo", "email", "e-mail"}

// Option is a choice of a SELECT, MULTISELECT, RADIO or CHECKBOX question.
// Text is both the label and the stored answer value.
type Option struct {
	Text             string   `json:"text" bson:"text" yaml:"text" validate:"required"`
	NextQuestionID   string   `json:"next_question_id,omitempty" bson:"next_question_id,omitempty" yaml:"next_question_id,omitempty"`
	NextQuestionsIDs []string `json:"next_questions_ids,omitempty" bson:"next_questions_ids,omitempty" yaml:"next_questions_ids,omitempty"`
}

// Targets returns the ids of the questions this option activates, without duplicates.
func (o Option) Targets() []string {
	if o.NextQuestionID == "" && len(o.NextQuestionsIDs) == 0 {
		return nil
	}
	targets := make([]string, 0, len(o.NextQuestionsIDs)+1)
	seen := make(map[string]bool, len(o.NextQuestionsIDs)+1)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			targets = append(targets, id)
		}
	}
	add(o.NextQuestionID)
	for _, id := range o.NextQuestionsIDs {
		add(id)
	}
	return targets
}

// LinksTo reports whether the option activates question `id`.
func (o Option) LinksTo(id string) bool {
	if o.NextQuestionID == id {
		return true
	}
	for _, target := range o.NextQuestionsIDs {
		if target == id {
			return true
		}
	}
	return false
}

// Unlink removes question `id` from the option's targets.
func (o *Option) Unlink(id string) {
	if o.NextQuestionID == id {
		o.NextQuestionID = ""
	}
	if len(o.NextQuestionsIDs) == 0 {
		return
	}
	kept := o.NextQuestionsIDs[:0]
	for _, target := range o.NextQuestionsIDs {
		if target != id {
			kept = append(kept, target)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	o.NextQuestionsIDs = kept
}

type Question struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      Type      `json:"type"`
	Category  string    `json:"category"`
	Order     int       `json:"order"`
	Required  bool      `json:"required"` // advisory
	Options   []Option  `json:"options,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// IsIdentification reports whether q is the identification question.
func (q Question) IsIdentification() bool {
	return q.Text == IdentificationPrompt
}

// AsksIdentity reports whether q asks for the reporter's name or email.
func (q Question) AsksIdentity() bool {
	return core.ContainsAnyFold(q.Text, identityKeywords...)
}

// Option returns the first option whose text equals `text`.
func (q Question) Option(text string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.Text == text {
			return opt, true
		}
	}
	return Option{}, false
}

// OptionTexts returns the option labels in display order.
func (q Question) OptionTexts() []string {
	texts := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		texts = append(texts, opt.Text)
	}
	return texts
}

// FileMeta is what is kept of an uploaded file on the client: never its content.
type FileMeta struct {
	Name         string `json:"name" bson:"name"`
	Size         int64  `json:"size" bson:"size"`
	Type         string `json:"type" bson:"type"`
	LastModified int64  `json:"last_modified" bson:"last_modified"` // unix millis
}

// Answers maps question ids to answer values:
// string for TEXT, TEXTAREA, SELECT, RADIO and DATE; []string for MULTISELECT
// and CHECKBOX; []FileMeta for FILE.
type Answers map[string]interface{}

// String returns the answer to question `id` if it is a string.
func (a Answers) String(id string) (string, bool) {
	s, ok := a[id].(string)
	return s, ok
}

// Copy returns a shallow copy of the map; slices are copied too.
func (a Answers) Copy() Answers {
	out := make(Answers, len(a))
	for id, val := range a {
		switch v := val.(type) {
		case []string:
			out[id] = append(make([]string, 0, len(v)), v...)
		case []FileMeta:
			out[id] = append(make([]FileMeta, 0, len(v)), v...)
		default:
			out[id] = v
		}
	}
	return out
}

// NewQuestion contains information needed to create or replace a Question.
type NewQuestion struct {
	Text     string   `json:"text" yaml:"text" validate:"required"`
	Type     Type     `json:"type" yaml:"type" validate:"required,questiontype"`
	Category string   `json:"category" yaml:"category" validate:"required"`
	Order    int      `json:"order" yaml:"order" validate:"min=0"`
	Required bool     `json:"required" yaml:"required"`
	Options  []Option `json:"options" yaml:"options" validate:"omitempty,dive"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	nq.Category = core.CleanString(nq.Category, true /* lower */)
	nq.Type = Type(core.CleanString(string(nq.Type)))
	for i := range nq.Options {
		nq.Options[i].Text = core.CleanString(nq.Options[i].Text)
		nq.Options[i].NextQuestionID = core.CleanString(nq.Options[i].NextQuestionID)
	}
	return validate.Struct(nq)
}

type QueryFilter struct {
	Category      string `query:"category"`
	IncludeGlobal bool   `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Category = core.CleanString(qf.Category, true /* lower */)
}

// Categories returns the categories matched by the filter.
func (qf QueryFilter) Categories() []string {
	if qf.Category == "" {
		return nil
	}
	if qf.IncludeGlobal && qf.Category != GlobalCategory {
		return []string{qf.Category, GlobalCategory}
	}
	return []string{qf.Category}
}
