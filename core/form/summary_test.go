package form

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

func TestReporter(t *testing.T) {
	aggressor := question.Question{ID: "qagg", Text: "Nome do agressor", Type: question.TypeText, Order: 1}
	full := question.Question{ID: "qfull", Text: "Nome completo", Type: question.TypeText, Order: 2}
	mail := question.Question{ID: "qmail", Text: "E-mail para contato", Type: question.TypeText, Order: 3}
	answers := question.Answers{"qagg": "João", "qfull": "Maria Silva", "qmail": "maria@test.br"}

	t.Run("full name outranks an earlier name question", func(t *testing.T) {
		name, email := reporter(question.ActiveSet{Questions: []question.Question{aggressor, full, mail}}, answers)
		assert.Equal(t, "Maria Silva", name)
		assert.Equal(t, "maria@test.br", email)
	})

	t.Run("first name question without a full name one", func(t *testing.T) {
		other := question.Question{ID: "qother", Text: "Nome da turma", Type: question.TypeText, Order: 4}
		name, _ := reporter(question.ActiveSet{Questions: []question.Question{aggressor, other}}, answers)
		assert.Equal(t, "João", name)
	})

	t.Run("anonymous", func(t *testing.T) {
		ident := question.Question{ID: "qid", Text: question.IdentificationPrompt, Type: question.TypeRadio}
		set := question.ActiveSet{Identification: &ident, Questions: []question.Question{full, mail}}
		withNo := question.Answers{"qid": question.AnswerNo, "qfull": "Maria Silva", "qmail": "maria@test.br"}
		name, email := reporter(set, withNo)
		assert.Empty(t, name)
		assert.Empty(t, email)
	})
}
