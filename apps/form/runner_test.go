package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/form"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

type fakeAPI struct {
	questions []question.Question
	loadErrs  []error
	sendErrs  []error
	sent      []ticket.Submission
}

func (api *fakeAPI) Questions(_ context.Context, _ string) ([]question.Question, error) {
	if len(api.loadErrs) > 0 {
		err := api.loadErrs[0]
		api.loadErrs = api.loadErrs[1:]
		return nil, err
	}
	return api.questions, nil
}

func (api *fakeAPI) CreateTicket(_ context.Context, sub ticket.Submission) (ticket.Receipt, error) {
	if len(api.sendErrs) > 0 {
		err := api.sendErrs[0]
		api.sendErrs = api.sendErrs[1:]
		return ticket.Receipt{}, err
	}
	api.sent = append(api.sent, sub)
	return ticket.Receipt{Protocol: "20240315-ABC123", DeadlineText: "até 10 dias úteis", Deadline: "29/03/2024"}, nil
}

func bullyingForm() []question.Question {
	return []question.Question{
		{
			ID: "ident", Text: question.IdentificationPrompt, Type: question.TypeRadio, Order: 1, Required: true,
			Options: []question.Option{{Text: question.AnswerYes, NextQuestionID: "name"}, {Text: question.AnswerNo}},
		},
		{ID: "name", Text: "Nome completo", Type: question.TypeText, Order: 2},
		{
			ID: "where", Text: "Onde aconteceu?", Type: question.TypeSelect, Order: 3,
			Options: []question.Option{{Text: "Escola", NextQuestionID: "room"}, {Text: "Internet"}},
		},
		{ID: "room", Text: "Qual sala?", Type: question.TypeText, Order: 4, Required: true},
	}
}

func newTestRunner(api *fakeAPI, input string) (*runner, *bytes.Buffer) {
	ctrl := form.NewController(api, api, form.Options{
		TicketType:  ticket.TypeBullying,
		Category:    ticket.BullyingCategory,
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
	})
	var out bytes.Buffer
	return newRunner(ctrl, strings.NewReader(input), &out, 10), &out
}

func TestRunner_run(t *testing.T) {
	api := &fakeAPI{questions: bullyingForm()}
	r, out := newTestRunner(api, strings.Join([]string{
		"1",      // identify: SIM
		"Ana",    // name
		"9",      // no such option
		"escola", // where
		"3B",     // room
		"",       // send
	}, "\n")+"\n")

	require.NoError(t, r.run(context.Background()))

	require.Len(t, api.sent, 1)
	sub := api.sent[0]
	assert.Equal(t, ticket.TypeBullying, sub.Type)
	assert.Equal(t, ticket.BullyingCategory, sub.Category)
	assert.Equal(t, "Ana", sub.Name)
	assert.Equal(t, "Escola", sub.Answers["where"])
	assert.Equal(t, "3B", sub.Answers["room"])
	assert.Contains(t, sub.Message, "Qual sala?: 3B")

	text := out.String()
	assert.Contains(t, text, "Resposta inválida")
	assert.Contains(t, text, "  [ ] 1. Escola")
	assert.Contains(t, text, "Protocolo: 20240315-ABC123")
	assert.Contains(t, text, "Prazo de resposta: até 10 dias úteis (29/03/2024)")
	assert.Contains(t, text, "----------")
}

func TestRunner_anonymous(t *testing.T) {
	api := &fakeAPI{questions: bullyingForm()}
	r, out := newTestRunner(api, "NAO\nInternet\n\n")

	require.NoError(t, r.run(context.Background()))

	require.Len(t, api.sent, 1)
	assert.Empty(t, api.sent[0].Name)
	assert.NotContains(t, out.String(), "Nome completo")
	assert.NotContains(t, out.String(), "Qual sala?")
}

func TestRunner_retries(t *testing.T) {
	t.Run("load", func(t *testing.T) {
		api := &fakeAPI{questions: bullyingForm(), loadErrs: []error{errors.New("connection refused")}}
		r, out := newTestRunner(api, "s\n2\nInternet\ns\n")

		require.NoError(t, r.run(context.Background()))
		assert.Contains(t, out.String(), "ERROR: fetching questions: connection refused")
		assert.Len(t, api.sent, 1)
	})

	t.Run("load given up", func(t *testing.T) {
		api := &fakeAPI{loadErrs: []error{errors.New("connection refused")}}
		r, _ := newTestRunner(api, "n\n")

		err := r.run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("submit", func(t *testing.T) {
		api := &fakeAPI{questions: bullyingForm(), sendErrs: []error{errors.New("timeout")}}
		r, out := newTestRunner(api, "2\n\n\ns\n")

		require.NoError(t, r.run(context.Background()))
		assert.Contains(t, out.String(), "Falha ao enviar: submitting ticket: timeout")
		assert.Len(t, api.sent, 1)
	})

	t.Run("review then abort", func(t *testing.T) {
		api := &fakeAPI{questions: bullyingForm()}
		r, out := newTestRunner(api, "2\n\nn\n")

		assert.Equal(t, errAborted, r.run(context.Background()))
		assert.Empty(t, api.sent)
		// asked, summarized, asked again
		assert.Equal(t, 3, strings.Count(out.String(), question.IdentificationPrompt))
	})
}

func Test_defaultCategory(t *testing.T) {
	assert.Equal(t, "bullying", defaultCategory(ticket.TypeBullying))
	assert.Equal(t, "reclamacao", defaultCategory(ticket.TypeComplaint))
	assert.Equal(t, "privacidade", defaultCategory(ticket.TypePrivacy))
}
