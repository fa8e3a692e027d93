// Package controller owns the observable state of a wave session and reconciles user actions,
// gateway results and live contract events.
//
// Transition is a pure function of (State, Event). Controller is the runtime around it: a single
// event loop goroutine that applies events and executes the returned effects asynchronously.
package controller

import "github.com/and161185/wave-portal/internal/model"

// Phase is the session phase.
type Phase int

const (
	// PhaseDisconnected means no account is bound.
	PhaseDisconnected Phase = iota
	// PhaseConnectedIdle means an account is bound and nothing is in flight.
	PhaseConnectedIdle
	// PhaseSubmitting means exactly one submission is in flight.
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnectedIdle:
		return "connected"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

const (
	NoticeNoProvider   = "No wallet detected. Configure a wallet to connect and wave."
	NoticeConnectFirst = "Connect a wallet before waving."
	AlertNoProvider    = "No wallet is available to connect."
	AlertRejected      = "The connection request was declined."
)

// State is the observable session state. Values are treated as immutable.
type State struct {
	Phase           Phase
	Account         model.Account
	ProviderPresent bool
	Mounted         bool
	Subscribed      bool
	Connecting      bool

	// History is the last successful refresh followed by live arrivals.
	History []model.WaveEntry
	Draft   string
	// Pending is the message of the in-flight submission.
	Pending string

	// Notice is an informational line; Alert is a blocking notification the user must dismiss.
	Notice string
	Alert  string
}

// Initial returns the state before mount.
func Initial() State {
	return State{Phase: PhaseDisconnected, History: []model.WaveEntry{}}
}

// Connected reports whether an account is bound.
func (s State) Connected() bool { return s.Phase != PhaseDisconnected }

// CanSubmit reports whether a SubmitRequested event would start a submission.
func (s State) CanSubmit() bool { return s.Phase == PhaseConnectedIdle }
