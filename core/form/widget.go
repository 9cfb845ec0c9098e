package form

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

// DateLayout is the calendar-date format DATE answers are stored in.
const DateLayout = "2006-01-02"

// dateInputLayouts are the formats DATE answers are accepted in.
var dateInputLayouts = []string{DateLayout, "02/01/2006", time.RFC3339}

// Widget renders a question of one type and turns user input into an answer value
// of the shape that type stores.
type Widget interface {
	// Default is the value of an unanswered question.
	Default() interface{}
	// Normalize checks and converts a value coming from an API client (e.g. decoded JSON).
	Normalize(q question.Question, v interface{}) (interface{}, error)
	// Parse converts a line of terminal input.
	Parse(q question.Question, raw string) (interface{}, error)
	// Render writes the prompt of `q` and its current answer.
	Render(w io.Writer, q question.Question, current interface{}) error

	widget()
}

var widgets = map[question.Type]Widget{
	question.TypeText:        textWidget{},
	question.TypeTextArea:    textWidget{multiline: true},
	question.TypeSelect:      choiceWidget{hint: "escolha uma opção"},
	question.TypeRadio:       choiceWidget{hint: "marque uma opção"},
	question.TypeMultiSelect: multiChoiceWidget{hint: "escolha uma ou mais opções, separadas por vírgula"},
	question.TypeCheckbox:    multiChoiceWidget{hint: "marque as opções desejadas, separadas por vírgula"},
	question.TypeDate:        dateWidget{},
	question.TypeFile:        fileWidget{},
}

// WidgetFor returns the widget questions of type `t` are answered with.
func WidgetFor(t question.Type) (Widget, bool) {
	w, ok := widgets[t]
	return w, ok
}

func invalidValue(q question.Question, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: q.ID, Error: msg})
}

func renderPrompt(w io.Writer, q question.Question, hint string) error {
	req := ""
	if q.Required {
		req = " *"
	}
	if hint != "" {
		hint = " (" + hint + ")"
	}
	_, err := fmt.Fprintf(w, "%s%s%s\n", q.Text, req, hint)
	return err
}

// Text

type textWidget struct {
	multiline bool
}

func (textWidget) widget()              {}
func (textWidget) Default() interface{} { return "" }

func (tw textWidget) Normalize(q question.Question, v interface{}) (interface{}, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		if !tw.multiline {
			s = strings.ReplaceAll(s, "\n", " ")
		}
		return s, nil
	}
	return nil, invalidValue(q, "expected text")
}

func (tw textWidget) Parse(q question.Question, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if tw.multiline {
		raw = strings.ReplaceAll(raw, `\n`, "\n")
	}
	return tw.Normalize(q, raw)
}

func (tw textWidget) Render(w io.Writer, q question.Question, current interface{}) error {
	hint := ""
	if tw.multiline {
		hint = `use \n para quebrar linha`
	}
	if err := renderPrompt(w, q, hint); err != nil {
		return err
	}
	if s, _ := current.(string); s != "" {
		_, err := fmt.Fprintf(w, "  [%s]\n", s)
		return err
	}
	return nil
}

// Choice

type choiceWidget struct {
	hint string
}

func (choiceWidget) widget()              {}
func (choiceWidget) Default() interface{} { return "" }

func (choiceWidget) Normalize(q question.Question, v interface{}) (interface{}, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		if s == "" {
			return "", nil
		}
		if _, ok := q.Option(s); ok {
			return s, nil
		}
		return nil, invalidValue(q, fmt.Sprintf("%q is not an option", s))
	}
	return nil, invalidValue(q, "expected one option")
}

func (cw choiceWidget) Parse(q question.Question, raw string) (interface{}, error) {
	text, err := parseOption(q, strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	return cw.Normalize(q, text)
}

func (cw choiceWidget) Render(w io.Writer, q question.Question, current interface{}) error {
	selected, _ := current.(string)
	return renderOptions(w, q, cw.hint, func(text string) bool { return text == selected })
}

// parseOption accepts an option text or its 1-based position.
func parseOption(q question.Question, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if _, ok := q.Option(raw); ok {
		return raw, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n >= 1 && n <= len(q.Options) {
			return q.Options[n-1].Text, nil
		}
		return "", invalidValue(q, "option "+raw+" does not exist")
	}
	for _, opt := range q.Options {
		if strings.EqualFold(opt.Text, raw) {
			return opt.Text, nil
		}
	}
	return "", invalidValue(q, fmt.Sprintf("%q is not an option", raw))
}

func renderOptions(w io.Writer, q question.Question, hint string, isSelected func(string) bool) error {
	if err := renderPrompt(w, q, hint); err != nil {
		return err
	}
	for i, opt := range q.Options {
		mark := " "
		if isSelected(opt.Text) {
			mark = "x"
		}
		if _, err := fmt.Fprintf(w, "  [%s] %d. %s\n", mark, i+1, opt.Text); err != nil {
			return err
		}
	}
	return nil
}

// Multiple choice

type multiChoiceWidget struct {
	hint string
}

func (multiChoiceWidget) widget()              {}
func (multiChoiceWidget) Default() interface{} { return []string{} }

func (multiChoiceWidget) Normalize(q question.Question, v interface{}) (interface{}, error) {
	var texts []string
	switch vals := v.(type) {
	case nil:
	case []string:
		texts = vals
	case []interface{}:
		texts = make([]string, 0, len(vals))
		for _, val := range vals {
			s, ok := val.(string)
			if !ok {
				return nil, invalidValue(q, "expected a list of options")
			}
			texts = append(texts, s)
		}
	default:
		return nil, invalidValue(q, "expected a list of options")
	}

	out := make([]string, 0, len(texts))
	seen := make(map[string]bool, len(texts))
	for _, s := range texts {
		if _, ok := q.Option(s); !ok {
			return nil, invalidValue(q, fmt.Sprintf("%q is not an option", s))
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

func (mw multiChoiceWidget) Parse(q question.Question, raw string) (interface{}, error) {
	texts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		text, err := parseOption(q, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	return mw.Normalize(q, texts)
}

func (mw multiChoiceWidget) Render(w io.Writer, q question.Question, current interface{}) error {
	selected := make(map[string]bool)
	if texts, ok := current.([]string); ok {
		for _, t := range texts {
			selected[t] = true
		}
	}
	return renderOptions(w, q, mw.hint, func(text string) bool { return selected[text] })
}

// Date

type dateWidget struct{}

func (dateWidget) widget()              {}
func (dateWidget) Default() interface{} { return "" }

func (dateWidget) Normalize(q question.Question, v interface{}) (interface{}, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case time.Time:
		if d.IsZero() {
			return "", nil
		}
		return d.Format(DateLayout), nil
	case string:
		d = strings.TrimSpace(d)
		if d == "" {
			return "", nil
		}
		for _, layout := range dateInputLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t.Format(DateLayout), nil
			}
		}
		return nil, invalidValue(q, fmt.Sprintf("%q is not a date", d))
	}
	return nil, invalidValue(q, "expected a date")
}

func (dw dateWidget) Parse(q question.Question, raw string) (interface{}, error) {
	return dw.Normalize(q, raw)
}

func (dateWidget) Render(w io.Writer, q question.Question, current interface{}) error {
	if err := renderPrompt(w, q, "dd/mm/aaaa"); err != nil {
		return err
	}
	if s, _ := current.(string); s != "" {
		if t, err := time.Parse(DateLayout, s); err == nil {
			s = t.Format("02/01/2006")
		}
		_, err := fmt.Fprintf(w, "  [%s]\n", s)
		return err
	}
	return nil
}

// File

type fileWidget struct{}

func (fileWidget) widget()              {}
func (fileWidget) Default() interface{} { return []question.FileMeta{} }

func (fileWidget) Normalize(q question.Question, v interface{}) (interface{}, error) {
	var files []question.FileMeta
	switch f := v.(type) {
	case nil:
		files = []question.FileMeta{}
	case []question.FileMeta:
		files = append([]question.FileMeta{}, f...)
	case question.FileMeta:
		files = []question.FileMeta{f}
	case []interface{}:
		// decoded JSON
		b, err := json.Marshal(f)
		if err != nil {
			return nil, invalidValue(q, "expected a list of files")
		}
		if err = json.Unmarshal(b, &files); err != nil {
			return nil, invalidValue(q, "expected a list of files")
		}
	default:
		return nil, invalidValue(q, "expected a list of files")
	}
	for _, fm := range files {
		if fm.Name == "" || fm.Size < 0 {
			return nil, invalidValue(q, "files need a name and a size")
		}
	}
	return files, nil
}

// Parse reads the metadata of comma-separated local file paths. Contents are never read.
func (fw fileWidget) Parse(q question.Question, raw string) (interface{}, error) {
	files := make([]question.FileMeta, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		fi, err := os.Stat(p)
		if err != nil {
			return nil, invalidValue(q, err.Error())
		}
		if fi.IsDir() {
			return nil, invalidValue(q, p+" is a directory")
		}
		files = append(files, question.FileMeta{
			Name:         fi.Name(),
			Size:         fi.Size(),
			Type:         mime.TypeByExtension(filepath.Ext(fi.Name())),
			LastModified: fi.ModTime().UnixNano() / int64(time.Millisecond),
		})
	}
	return fw.Normalize(q, files)
}

func (fileWidget) Render(w io.Writer, q question.Question, current interface{}) error {
	if err := renderPrompt(w, q, "caminhos dos arquivos, separados por vírgula"); err != nil {
		return err
	}
	files, _ := current.([]question.FileMeta)
	for _, f := range files {
		if _, err := fmt.Fprintf(w, "  - %s (%d bytes)\n", f.Name, f.Size); err != nil {
			return err
		}
	}
	return nil
}
