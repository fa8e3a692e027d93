package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/and161185/wave-portal/internal/controller"
	"github.com/and161185/wave-portal/internal/model"
)

type recorder struct{ events []controller.Event }

func (r *recorder) Dispatch(ev controller.Event) { r.events = append(r.events, ev) }

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func connected() controller.State {
	s, _ := controller.Transition(controller.Initial(), controller.Mounted{ProviderPresent: true})
	s, _ = controller.Transition(s, controller.AccountDiscovered{Account: "0x00000000000000000000000000000000000A11CE"})
	return s
}

func TestModel_TypingDispatchesDraft(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	m := update(t, New(rec, nil), StateMsg(connected()))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	require.Equal(t, []controller.Event{
		controller.DraftChanged{Text: "h"},
		controller.DraftChanged{Text: "hi"},
	}, rec.events)

	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, controller.SubmitRequested{}, rec.events[len(rec.events)-1])
}

func TestModel_ConnectKey(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	update(t, New(rec, nil), tea.KeyMsg{Type: tea.KeyCtrlO})
	require.Equal(t, []controller.Event{controller.ConnectRequested{}}, rec.events)
}

func TestModel_AlertSwallowsKeysUntilDismissed(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	s := connected()
	s.Alert = controller.AlertRejected
	m := update(t, New(rec, nil), StateMsg(s))
	require.Contains(t, m.View(), controller.AlertRejected)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.Empty(t, rec.events)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []controller.Event{controller.AlertDismissed{}}, rec.events)
	require.NotContains(t, m.View(), controller.AlertRejected)
}

func TestModel_StateResetsInput(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	s := connected()
	s.Draft = "hello"
	m := update(t, New(rec, nil), StateMsg(s))
	require.Equal(t, "hello", m.input.Value())

	s.Draft = ""
	m = update(t, m, StateMsg(s))
	require.Empty(t, m.input.Value())
	require.Empty(t, rec.events, "syncing from state dispatches nothing")
}

func TestModel_LaggingStateKeepsTyping(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	m := update(t, New(rec, nil), StateMsg(connected()))
	for _, r := range "hey" {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	// Published after the first keystroke, delivered after the third.
	s := connected()
	s.Draft = "h"
	m = update(t, m, StateMsg(s))
	require.Equal(t, "hey", m.input.Value())

	s.Draft = "hey"
	m = update(t, m, StateMsg(s))
	require.Equal(t, "hey", m.input.Value())
	require.Empty(t, m.pending)

	// A clear after a confirmed submit is not an echo and does reset the input.
	s.Draft = ""
	m = update(t, m, StateMsg(s))
	require.Empty(t, m.input.Value())
}

func TestModel_SubmitHintFollowsPhase(t *testing.T) {
	t.Parallel()
	s := connected()
	m := update(t, New(&recorder{}, nil), StateMsg(s))
	require.Contains(t, m.View(), "enter wave")

	s.Phase = controller.PhaseSubmitting
	m = update(t, m, StateMsg(s))
	require.NotContains(t, m.View(), "enter wave")

	d, _ := controller.Transition(controller.Initial(), controller.Mounted{ProviderPresent: true})
	m = update(t, m, StateMsg(d))
	require.NotContains(t, m.View(), "enter wave")
}

func TestModel_ViewListsHistoryInOrder(t *testing.T) {
	t.Parallel()
	s := connected()
	s.History = []model.WaveEntry{
		{Author: "0x00000000000000000000000000000000000A11CE", SubmittedAt: time.Unix(1, 0), Message: "first"},
		{Author: "0x0000000000000000000000000000000000000B0B", SubmittedAt: time.Unix(2, 0), Message: "second"},
	}
	s.Phase = controller.PhaseSubmitting
	m := update(t, New(&recorder{}, nil), StateMsg(s))

	v := m.View()
	require.Contains(t, v, "mining your wave")
	first, second := strings.Index(v, "first"), strings.Index(v, "second")
	require.True(t, first >= 0 && second > first, "chronological order")
}

func TestModel_ViewNoWallet(t *testing.T) {
	t.Parallel()
	s, _ := controller.Transition(controller.Initial(), controller.Mounted{ProviderPresent: false})
	m := update(t, New(&recorder{}, nil), StateMsg(s))
	v := m.View()
	require.Contains(t, v, "no wallet")
	require.Contains(t, v, controller.NoticeNoProvider)
	require.Contains(t, v, "no waves yet")
}

func TestRenderHistory_Truncates(t *testing.T) {
	t.Parallel()
	var es []model.WaveEntry
	for i := range 5 {
		es = append(es, model.WaveEntry{Author: "0x00000000000000000000000000000000000A11CE", SubmittedAt: time.Unix(int64(i), 0), Message: string(rune('a' + i))})
	}
	out := renderHistory(es, 2)
	require.Contains(t, out, "3 earlier")
	require.Contains(t, out, "  e")
	require.NotContains(t, out, "  a")
}

func TestFeed_KeepsLatest(t *testing.T) {
	t.Parallel()
	f := NewFeed()
	a, b := controller.Initial(), controller.Initial()
	b.Draft = "latest"
	f.Publish(a)
	f.Publish(b)

	msg := f.next()()
	require.Equal(t, "latest", controller.State(msg.(StateMsg)).Draft)
}
