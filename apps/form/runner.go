package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/form"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

var errAborted = errors.New("aborted")

// runner walks a form.Controller session on a line-oriented terminal.
type runner struct {
	ctrl  *form.Controller
	in    *bufio.Scanner
	out   io.Writer
	width int
}

func newRunner(ctrl *form.Controller, in io.Reader, out io.Writer, width int) *runner {
	return &runner{ctrl: ctrl, in: bufio.NewScanner(in), out: out, width: width}
}

func (r *runner) rule() {
	fmt.Fprintln(r.out, strings.Repeat("-", r.width))
}

// readLine returns errAborted at end of input.
func (r *runner) readLine() (string, error) {
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", err
		}
		return "", errAborted
	}
	return strings.TrimSpace(r.in.Text()), nil
}

// confirm asks a yes/no question; `def` is the answer to an empty line.
func (r *runner) confirm(prompt string, def bool) (bool, error) {
	hint := " [s/N] "
	if def {
		hint = " [S/n] "
	}
	fmt.Fprint(r.out, prompt+hint)
	line, err := r.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return def, nil
	case "s", "sim", "y", "yes":
		return true, nil
	}
	return false, nil
}

func (r *runner) run(ctx context.Context) error {
	if err := r.load(ctx); err != nil {
		return err
	}
	for {
		if err := r.ask(); err != nil {
			return err
		}
		sent, err := r.submit(ctx)
		if sent || err != nil {
			return err
		}
	}
}

func (r *runner) load(ctx context.Context) error {
	fmt.Fprintln(r.out, "Carregando perguntas...")
	err := r.ctrl.Load(ctx)
	for err != nil {
		fmt.Fprintln(r.out, r.ctrl.State().String())
		again, cerr := r.confirm("Tentar novamente?", false)
		if cerr != nil {
			return cerr
		}
		if !again {
			return err
		}
		err = r.ctrl.Retry(ctx)
	}
	return nil
}

// activeQuestions lists the questions to render, identification first.
func activeQuestions(set question.ActiveSet) []question.Question {
	qs := make([]question.Question, 0, len(set.Questions)+1)
	if set.Identification != nil {
		qs = append(qs, *set.Identification)
	}
	return append(qs, set.Questions...)
}

// ask prompts every active question once; questions activated by an answer are
// asked in turn. An empty line keeps the current answer.
func (r *runner) ask() error {
	asked := make(map[string]bool)
	for {
		var next *question.Question
		for _, q := range activeQuestions(r.ctrl.Active()) {
			if !asked[q.ID] {
				q := q
				next = &q
				break
			}
		}
		if next == nil {
			return nil
		}
		if err := r.askOne(*next); err != nil {
			return err
		}
		asked[next.ID] = true
	}
}

func (r *runner) askOne(q question.Question) error {
	w, ok := form.WidgetFor(q.Type)
	if !ok {
		fmt.Fprintf(r.out, "(pergunta %q ignorada: tipo %s desconhecido)\n", q.Text, q.Type)
		return nil
	}
	for {
		r.rule()
		if err := w.Render(r.out, q, r.ctrl.Answers()[q.ID]); err != nil {
			return err
		}
		fmt.Fprint(r.out, "> ")
		line, err := r.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		err = r.ctrl.ParseAnswer(q.ID, line)
		if err == nil {
			return nil
		}
		if !core.IsValidationError(err) {
			return err
		}
		fmt.Fprintln(r.out, "Resposta inválida: "+err.Error())
	}
}

// submit shows the summary and files the ticket. It reports false when the
// reporter wants to review the answers.
func (r *runner) submit(ctx context.Context) (bool, error) {
	r.rule()
	summary := form.Summarize(r.ctrl.Active(), r.ctrl.Answers())
	if summary == "" {
		summary = "(nenhuma resposta)"
	}
	fmt.Fprintln(r.out, summary)
	for _, q := range r.ctrl.Missing() {
		fmt.Fprintf(r.out, "Obrigatória sem resposta: %s\n", q.Text)
	}
	r.rule()

	for {
		send, err := r.confirm("Enviar?", true)
		if err != nil {
			return false, err
		}
		if !send {
			return false, nil
		}
		rcpt, err := r.ctrl.Submit(ctx)
		if err == nil {
			fmt.Fprintf(r.out, "Registro enviado. Protocolo: %s\n", rcpt.Protocol)
			fmt.Fprintf(r.out, "Prazo de resposta: %s (%s)\n", rcpt.DeadlineText, rcpt.Deadline)
			return true, nil
		}
		fmt.Fprintln(r.out, "Falha ao enviar: "+err.Error())
		if core.IsValidationError(err) {
			return false, nil
		}
	}
}
