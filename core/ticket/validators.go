package ticket

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
)

var (
	ticketTypeTag  = "tickettype"
	ticketTypeText = "invalid ticket type"

	ticketStatusTag  = "ticketstatus"
	ticketStatusText = "invalid ticket status"
)

// InitValidators registers the ticket validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(ticketTypeTag, ticketTypeValidation)
	core.RegisterCustomTranslation(validate, translator, ticketTypeTag, ticketTypeText)

	_ = validate.RegisterValidation(ticketStatusTag, ticketStatusValidation)
	core.RegisterCustomTranslation(validate, translator, ticketStatusTag, ticketStatusText)
}

func ticketTypeValidation(fl validator.FieldLevel) bool {
	return Type(fl.Field().String()).Valid()
}

func ticketStatusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}
