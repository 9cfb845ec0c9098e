package form

import (
	"strings"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

var (
	nameKeywords  = []string{"nome"}
	fullNameHint  = "completo"
	emailKeywords = []string{"email", "e-mail"}
)

// FormatAnswer renders an answer value as a single line of text; empty if unanswered.
func FormatAnswer(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		return strings.Join(val, ", ")
	case []question.FileMeta:
		names := make([]string, 0, len(val))
		for _, f := range val {
			names = append(names, f.Name)
		}
		return strings.Join(names, ", ")
	}
	return ""
}

func isAnswered(v interface{}) bool {
	return FormatAnswer(v) != ""
}

// Summarize renders the answers of the active questions, in display order,
// as "question: answer" lines. Unanswered questions are left out.
func Summarize(active question.ActiveSet, answers question.Answers) string {
	var b strings.Builder
	write := func(q question.Question) {
		ans := FormatAnswer(answers[q.ID])
		if ans == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(q.Text)
		b.WriteString(": ")
		b.WriteString(ans)
	}
	if active.Identification != nil {
		write(*active.Identification)
	}
	for _, q := range active.Questions {
		write(q)
	}
	return b.String()
}

// reporter returns the name and email given in the active questions.
// Reporters who chose not to identify themselves are always anonymous.
func reporter(active question.ActiveSet, answers question.Answers) (name, email string) {
	if active.Identification != nil {
		if ans, _ := answers.String(active.Identification.ID); ans == question.AnswerNo {
			return "", ""
		}
	}
	var nameFound, fullNameFound, emailFound bool
	for _, q := range active.Questions {
		switch {
		case !emailFound && core.ContainsAnyFold(q.Text, emailKeywords...):
			email, emailFound = FormatAnswer(answers[q.ID]), true
		case !fullNameFound && core.ContainsAnyFold(q.Text, nameKeywords...):
			// a "nome completo" question outranks any other "nome" question
			if core.ContainsAnyFold(q.Text, fullNameHint) {
				name, nameFound, fullNameFound = FormatAnswer(answers[q.ID]), true, true
			} else if !nameFound {
				name, nameFound = FormatAnswer(answers[q.ID]), true
			}
		}
	}
	return name, email
}

// submissionCategory is the category a ticket of type `typ` is filed under
// when its form was fetched for `category`.
func submissionCategory(typ ticket.Type, category string) string {
	if typ == ticket.TypeBullying {
		return ticket.BullyingCategory
	}
	return category
}
