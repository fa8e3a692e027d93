package controller

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/and161185/wave-portal/internal/model"
)

// Event is an input to Transition.
type Event interface{ isEvent() }

// AccountDiscovered carries the passive discovery result; zero Account means none.
type AccountDiscovered struct{ Account model.Account }

// SubmitConfirmed reports that the submission was mined.
type SubmitConfirmed struct{ Tx common.Hash }

// WaveObserved is a live NewWave event.
type WaveObserved struct{ Entry model.WaveEntry }

type (
	Mounted            struct{ ProviderPresent bool }
	Unmounted          struct{}
	ConnectRequested   struct{}
	ConnectSucceeded   struct{ Account model.Account }
	ConnectFailed      struct{ Err error }
	AlertDismissed     struct{}
	DraftChanged       struct{ Text string }
	SubmitRequested    struct{}
	SubmitFailed       struct{ Err error }
	HistoryLoaded      struct{ Entries []model.WaveEntry }
	HistoryFailed      struct{ Err error }
	SubscriptionFailed struct{ Err error }
)

func (Mounted) isEvent()            {}
func (Unmounted) isEvent()          {}
func (AccountDiscovered) isEvent()  {}
func (ConnectRequested) isEvent()   {}
func (ConnectSucceeded) isEvent()   {}
func (ConnectFailed) isEvent()      {}
func (AlertDismissed) isEvent()     {}
func (DraftChanged) isEvent()       {}
func (SubmitRequested) isEvent()    {}
func (SubmitConfirmed) isEvent()    {}
func (SubmitFailed) isEvent()       {}
func (HistoryLoaded) isEvent()      {}
func (HistoryFailed) isEvent()      {}
func (WaveObserved) isEvent()       {}
func (SubscriptionFailed) isEvent() {}

// Effect is work requested by Transition. The runtime executes it and reports back with events.
type Effect interface{ isEffect() }

type (
	DiscoverAccount   struct{}
	FetchHistory      struct{}
	Subscribe         struct{}
	Unsubscribe       struct{}
	RequestConnection struct{}
)

// Submit sends Message signed by Account.
type Submit struct {
	Account model.Account
	Message string
}

// LogTotalCount records the contract's wave count for diagnostics.
type LogTotalCount struct{ Stage string }

type LogFailure struct {
	Op  string
	Err error
}

func (DiscoverAccount) isEffect()   {}
func (FetchHistory) isEffect()      {}
func (Subscribe) isEffect()         {}
func (Unsubscribe) isEffect()       {}
func (RequestConnection) isEffect() {}
func (Submit) isEffect()            {}
func (LogTotalCount) isEffect()     {}
func (LogFailure) isEffect()        {}
