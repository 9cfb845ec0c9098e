package form

import (
	"strconv"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

// State is the lifecycle state of a form session. It is one of
// Loading, Failed, Loaded, Submitting or Submitted.
type State interface {
	state()
	String() string
}

type (
	// Loading is the initial state: the question set is being fetched.
	// Attempt is 0 until the first fetch starts.
	Loading struct{ Attempt int }

	// Failed means every fetch attempt failed. Retry re-enters Loading.
	Failed struct{ Err error }

	// Loaded means questions are available and answers can be edited.
	Loaded struct{}

	// Submitting means the ticket is being created; answers are frozen.
	Submitting struct{}

	// Submitted is terminal.
	Submitted struct{ Receipt ticket.Receipt }
)

func (Loading) state()    {}
func (Failed) state()     {}
func (Loaded) state()     {}
func (Submitting) state() {}
func (Submitted) state()  {}

func (s Loading) String() string {
	if s.Attempt == 0 {
		return "LOADING"
	}
	return "LOADING (attempt " + strconv.Itoa(s.Attempt) + ")"
}

func (s Failed) String() string {
	if s.Err == nil {
		return "ERROR"
	}
	return "ERROR: " + s.Err.Error()
}

func (Loaded) String() string     { return "LOADED" }
func (Submitting) String() string { return "SUBMITTING" }

func (s Submitted) String() string { return "SUBMITTED " + s.Receipt.Protocol }
