package question

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
)

// MinChoiceOptions is the minimum number of options of a choice question.
const MinChoiceOptions = 2

var (
	questionTypeTag  = "questiontype"
	questionTypeText = "invalid question type"

	choiceOptionsTag  = "choiceoptions"
	choiceOptionsText = "choice questions need at least 2 options"

	noOptionsTag  = "nooptions"
	noOptionsText = "only choice questions can have options"

	uniqueOptionsTag  = "uniqueoptions"
	uniqueOptionsText = "option texts must be unique"
)

// InitValidators registers the question validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)

	validate.RegisterStructValidation(newQuestionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, choiceOptionsTag, choiceOptionsText)
	core.RegisterCustomTranslation(validate, translator, noOptionsTag, noOptionsText)
	core.RegisterCustomTranslation(validate, translator, uniqueOptionsTag, uniqueOptionsText)
}

// Custom Validators

func questionTypeValidation(fl validator.FieldLevel) bool {
	switch t := fl.Field().Interface().(type) {
	case Type:
		return t.Valid()
	case string:
		return Type(t).Valid()
	}
	return false
}

// newQuestionStructValidation checks the options against the question type.
func newQuestionStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuestion)
	if !ok || !nq.Type.Valid() {
		return
	}

	if !nq.Type.IsChoice() {
		if len(nq.Options) > 0 {
			sl.ReportError(nq.Options, "options", "Options", noOptionsTag, "")
		}
		return
	}

	if len(nq.Options) < MinChoiceOptions {
		sl.ReportError(nq.Options, "options", "Options", choiceOptionsTag, "")
		return
	}
	seen := make(map[string]bool, len(nq.Options))
	for _, opt := range nq.Options {
		if seen[opt.Text] {
			sl.ReportError(nq.Options, "options", "Options", uniqueOptionsTag, "")
			return
		}
		seen[opt.Text] = true
	}
}
