// Package validation builds the validator shared by every service, with the custom
// tags and english translations of each domain package registered.
package validation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

func New() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()

	core.InitValidators(validate, translator)
	question.InitValidators(validate, translator)
	ticket.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}
