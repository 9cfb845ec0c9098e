package question

import "sort"

// ActiveSet is what must currently be rendered for a form.
// The identification question, if any, is always active and rendered first,
// apart from Questions.
type ActiveSet struct {
	Identification *Question  `json:"identification"`
	Questions      []Question `json:"questions"`
}

// IDs returns the ids of the active questions, identification excluded.
func (s ActiveSet) IDs() []string {
	ids := make([]string, 0, len(s.Questions))
	for _, q := range s.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// Contains reports whether question `id` is active (identification included).
func (s ActiveSet) Contains(id string) bool {
	if s.Identification != nil && s.Identification.ID == id {
		return true
	}
	for _, q := range s.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Graph is an immutable index over the questions of one form.
// It is built once per question-set load; Resolve is pure and safe for concurrent use.
type Graph struct {
	questions        []Question                     // sorted by Order (stable)
	byID             map[string]int                 // id -> index in questions
	links            map[string]map[string][]string // question id -> option text -> targets
	skipTargets      map[string]bool                // ids linked from an option of another question
	identificationID string
}

// NewGraph indexes `questions`; the slice is copied, not retained.
func NewGraph(questions []Question) *Graph {
	g := &Graph{
		questions:   make([]Question, len(questions)),
		byID:        make(map[string]int, len(questions)),
		links:       make(map[string]map[string][]string),
		skipTargets: make(map[string]bool),
	}
	copy(g.questions, questions)
	sort.SliceStable(g.questions, func(i, j int) bool { return g.questions[i].Order < g.questions[j].Order })

	for i, q := range g.questions {
		g.byID[q.ID] = i
		if g.identificationID == "" && q.IsIdentification() {
			g.identificationID = q.ID
		}
		if len(q.Options) == 0 {
			continue
		}

		byText := make(map[string][]string, len(q.Options))
		for _, opt := range q.Options {
			targets := opt.Targets()
			for _, target := range targets {
				if target != q.ID {
					g.skipTargets[target] = true
				}
			}
			if _, dup := byText[opt.Text]; !dup { // the first option with a given text wins
				byText[opt.Text] = targets
			}
		}
		g.links[q.ID] = byText
	}
	return g
}

// Questions returns all questions sorted by Order.
func (g *Graph) Questions() []Question {
	out := make([]Question, len(g.questions))
	copy(out, g.questions)
	return out
}

func (g *Graph) Len() int { return len(g.questions) }

func (g *Graph) Question(id string) (Question, bool) {
	if i, ok := g.byID[id]; ok {
		return g.questions[i], true
	}
	return Question{}, false
}

// Identification returns the identification question, if the form has one.
func (g *Graph) Identification() (Question, bool) {
	if g.identificationID == "" {
		return Question{}, false
	}
	return g.Question(g.identificationID)
}

// IsRoot reports whether question `id` is active regardless of the answers.
func (g *Graph) IsRoot(id string) bool {
	_, ok := g.byID[id]
	return ok && !g.skipTargets[id]
}

// Resolve computes the active set for `answers`. It never modifies `answers`:
// answers to questions that became inactive are kept by the caller.
func (g *Graph) Resolve(answers Answers) ActiveSet {
	var set ActiveSet
	if len(g.questions) == 0 {
		return set
	}

	active := make(map[string]bool, len(g.questions))
	for _, q := range g.questions {
		if !g.skipTargets[q.ID] {
			active[q.ID] = true
		}
	}

	for id, val := range answers {
		i, ok := g.byID[id]
		if !ok || len(g.questions[i].Options) == 0 || !g.questions[i].Type.DrivesSkips() {
			continue
		}
		text, ok := val.(string)
		if !ok {
			continue
		}
		for _, target := range g.links[id][text] {
			active[target] = true
		}
	}

	hideIdentity := false
	if g.identificationID != "" {
		idq := g.questions[g.byID[g.identificationID]]
		set.Identification = &idq
		if ans, ok := answers.String(g.identificationID); ok && ans == AnswerNo {
			hideIdentity = true
		}
	}

	set.Questions = make([]Question, 0, len(active))
	for _, q := range g.questions {
		if !active[q.ID] || q.ID == g.identificationID {
			continue
		}
		if hideIdentity && q.AsksIdentity() {
			continue
		}
		set.Questions = append(set.Questions, q)
	}
	return set
}
