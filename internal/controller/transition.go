package controller

import (
	"errors"

	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/model"
)

// Transition computes the next state and the effects to run. It never mutates s.
func Transition(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Mounted:
		if s.Mounted {
			return s, nil
		}
		s.Mounted = true
		s.ProviderPresent = ev.ProviderPresent
		if !ev.ProviderPresent {
			s.Notice = NoticeNoProvider
			return s, nil
		}
		s.Subscribed = true
		return s, []Effect{FetchHistory{}, DiscoverAccount{}, Subscribe{}}

	case Unmounted:
		if !s.Mounted {
			return s, nil
		}
		s.Mounted = false
		if !s.Subscribed {
			return s, nil
		}
		s.Subscribed = false
		return s, []Effect{Unsubscribe{}}

	case AccountDiscovered:
		if ev.Account.IsZero() || s.Phase != PhaseDisconnected {
			return s, nil
		}
		s.Phase = PhaseConnectedIdle
		s.Account = ev.Account
		s.Notice = ""
		return s, nil

	case ConnectRequested:
		if !s.ProviderPresent {
			s.Alert = AlertNoProvider
			return s, nil
		}
		if s.Connecting {
			return s, nil
		}
		s.Connecting = true
		return s, []Effect{RequestConnection{}}

	case ConnectSucceeded:
		s.Connecting = false
		if ev.Account.IsZero() {
			return s, nil
		}
		prev := s.Account
		s.Account = ev.Account
		s.Notice = ""
		if s.Phase == PhaseDisconnected {
			s.Phase = PhaseConnectedIdle
		}
		if s.Subscribed && !prev.IsZero() && prev != ev.Account {
			return s, []Effect{Unsubscribe{}, Subscribe{}}
		}
		return s, nil

	case ConnectFailed:
		s.Connecting = false
		switch {
		case errors.Is(ev.Err, errs.ErrNoProvider):
			s.Alert = AlertNoProvider
		case errors.Is(ev.Err, errs.ErrUserRejected):
			s.Alert = AlertRejected
		default:
			return s, []Effect{LogFailure{Op: "connect", Err: ev.Err}}
		}
		return s, nil

	case AlertDismissed:
		s.Alert = ""
		return s, nil

	case DraftChanged:
		s.Draft = ev.Text
		return s, nil

	case SubmitRequested:
		switch s.Phase {
		case PhaseDisconnected:
			s.Notice = NoticeConnectFirst
			return s, nil
		case PhaseSubmitting:
			return s, nil
		}
		s.Phase = PhaseSubmitting
		s.Pending = s.Draft
		s.Notice = ""
		return s, []Effect{
			LogTotalCount{Stage: "before submit"},
			Submit{Account: s.Account, Message: s.Draft},
		}

	case SubmitConfirmed:
		if s.Phase != PhaseSubmitting {
			return s, nil
		}
		s.Phase = PhaseConnectedIdle
		if s.Draft == s.Pending {
			s.Draft = ""
		}
		s.Pending = ""
		return s, []Effect{FetchHistory{}, LogTotalCount{Stage: "after confirmation"}}

	case SubmitFailed:
		if s.Phase != PhaseSubmitting {
			return s, nil
		}
		s.Phase = PhaseConnectedIdle
		s.Pending = ""
		return s, []Effect{LogFailure{Op: "submit", Err: ev.Err}}

	case HistoryLoaded:
		s.History = cloneEntries(ev.Entries)
		return s, nil

	case HistoryFailed:
		return s, []Effect{LogFailure{Op: "history", Err: ev.Err}}

	case WaveObserved:
		if !s.Mounted {
			return s, nil
		}
		s.History = appendEntry(s.History, ev.Entry)
		return s, nil

	case SubscriptionFailed:
		if !s.Subscribed {
			return s, nil
		}
		s.Subscribed = false
		return s, []Effect{LogFailure{Op: "subscribe", Err: ev.Err}}
	}
	return s, nil
}

func cloneEntries(in []model.WaveEntry) []model.WaveEntry {
	out := make([]model.WaveEntry, len(in))
	copy(out, in)
	return out
}

// appendEntry always reallocates so earlier states keep their own backing array.
func appendEntry(in []model.WaveEntry, e model.WaveEntry) []model.WaveEntry {
	return append(in[:len(in):len(in)], e)
}
