package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/recall/internal/deck"
	"github.com/verte-zerg/recall/internal/gate"
	"github.com/verte-zerg/recall/internal/model"
	"github.com/verte-zerg/recall/internal/store"
)

func newTestModel(t *testing.T, cards []deck.Card) (*Model, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "recall.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	if err := st.ImportDeck(context.Background(), "n5", cards); err != nil {
		t.Fatalf("import deck: %v", err)
	}
	m, err := NewModel(model.Config{Deck: "n5"}, st)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	m.width = 80
	m.height = 24
	return m, st
}

// expireGates resolves every open debounce window immediately.
func expireGates(m *Model) {
	for _, g := range []*gate.Gate{m.revealGate, m.correctGate, m.incorrectGate} {
		if deadline, open := g.Deadline(); open {
			g.Expire(deadline)
		}
	}
}

func pressKey(m *Model, keyType tea.KeyType, runes ...rune) {
	msg := tea.KeyMsg{Type: keyType, Runes: runes}
	_, _ = m.Update(msg)
	expireGates(m)
}

func sampleCards() []deck.Card {
	return []deck.Card{
		{Key: "水", Meanings: []string{"water"}},
		{Key: "火", Meanings: []string{"fire", "flame"}},
	}
}

func TestSessionFlowToCompletion(t *testing.T) {
	m, st := newTestModel(t, sampleCards())

	if m.screen != screenPrompt {
		t.Fatalf("screen = %v, want prompt", m.screen)
	}
	if m.remaining != 2 {
		t.Fatalf("remaining = %d, want 2", m.remaining)
	}
	first := m.engine.Head().Key

	// Judging before reveal must do nothing.
	pressKey(m, tea.KeyRunes, 'k')
	if m.engine.Head().Key != first {
		t.Fatalf("judgment before reveal must not advance the queue")
	}

	// First card: reveal, answer correct; a new card exits for good.
	pressKey(m, tea.KeySpace)
	if m.screen != screenRevealed {
		t.Fatalf("screen = %v, want revealed", m.screen)
	}
	pressKey(m, tea.KeyRunes, 'k')
	if m.remaining != 1 {
		t.Fatalf("remaining = %d, want 1", m.remaining)
	}
	if m.screen != screenPrompt {
		t.Fatalf("screen = %v, want prompt for next card", m.screen)
	}

	// Second card: miss it, then answer correctly twice to escape relearning.
	pressKey(m, tea.KeySpace)
	pressKey(m, tea.KeyRunes, 'j')
	if m.engine.Head().State != model.StateRelearning1 {
		t.Fatalf("state = %v, want relearning1 after miss", m.engine.Head().State)
	}
	pressKey(m, tea.KeySpace)
	pressKey(m, tea.KeyRunes, 'k')
	if m.engine.Head().State != model.StateRelearning2 {
		t.Fatalf("state = %v, want relearning2", m.engine.Head().State)
	}
	pressKey(m, tea.KeySpace)
	pressKey(m, tea.KeyRunes, 'k')

	if m.screen != screenDone {
		t.Fatalf("screen = %v, want done", m.screen)
	}
	if st := m.engine.Stats(); st.Correct != 3 || st.Incorrect != 1 {
		t.Fatalf("stats = %+v, want 3 correct 1 incorrect", st)
	}

	// Completion persists a session summary.
	sessions, err := st.ListSessions(context.Background(), model.StatsConfig{Deck: "n5"})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if sessions[0].Correct != 3 || sessions[0].Incorrect != 1 {
		t.Fatalf("summary = %+v", sessions[0])
	}
}

func TestKeySpamCoalescesIntoOneJudgment(t *testing.T) {
	m, _ := newTestModel(t, sampleCards())

	pressKey(m, tea.KeySpace)
	remaining := m.engine.Remaining()

	// Three rapid presses before any debounce window expires.
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}
	_, _ = m.Update(msg)
	_, _ = m.Update(msg)
	_, _ = m.Update(msg)
	expireGates(m)

	if got := m.engine.Remaining(); got != remaining-1 {
		t.Fatalf("remaining = %d, want exactly one judgment applied", got)
	}
}

func TestMouseJudgmentThroughGate(t *testing.T) {
	m, _ := newTestModel(t, sampleCards())

	// Click anywhere in the body to reveal.
	press := tea.MouseMsg{X: 10, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	release := tea.MouseMsg{X: 10, Y: 5, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}
	_, _ = m.Update(press)
	_, _ = m.Update(release)
	expireGates(m)
	if m.screen != screenRevealed {
		t.Fatalf("screen = %v, want revealed after body click", m.screen)
	}

	// Click the correct button.
	_, incEnd, corStart, _ := m.buttonSpans()
	if incEnd <= 0 || corStart <= incEnd {
		t.Fatalf("unexpected button spans: incEnd=%d corStart=%d", incEnd, corStart)
	}
	y := m.buttonLine()
	remaining := m.engine.Remaining()
	_, _ = m.Update(tea.MouseMsg{X: corStart, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	_, _ = m.Update(tea.MouseMsg{X: corStart, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	expireGates(m)
	if got := m.engine.Remaining(); got != remaining-1 {
		t.Fatalf("remaining = %d, want %d after correct click", got, remaining-1)
	}
}

func TestRightClickIsIgnored(t *testing.T) {
	m, _ := newTestModel(t, sampleCards())

	_, _ = m.Update(tea.MouseMsg{X: 10, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonRight})
	_, _ = m.Update(tea.MouseMsg{X: 10, Y: 5, Action: tea.MouseActionRelease, Button: tea.MouseButtonRight})
	expireGates(m)
	if m.screen != screenPrompt {
		t.Fatalf("right click must not reveal")
	}
}

func TestZoneMapping(t *testing.T) {
	m, _ := newTestModel(t, sampleCards())

	if zone := m.zoneAt(10, 5); zone != controlReveal {
		t.Errorf("prompt body zone = %v, want reveal", zone)
	}
	m.screen = screenRevealed
	if zone := m.zoneAt(10, 5); zone != controlNone {
		t.Errorf("revealed body zone = %v, want none", zone)
	}
	incStart, _, _, corEnd := m.buttonSpans()
	y := m.buttonLine()
	if zone := m.zoneAt(incStart, y); zone != controlIncorrect {
		t.Errorf("zone at incorrect button = %v", zone)
	}
	if zone := m.zoneAt(corEnd-1, y); zone != controlCorrect {
		t.Errorf("zone at correct button = %v", zone)
	}
	if zone := m.zoneAt(corEnd+1, y); zone != controlNone {
		t.Errorf("zone past buttons = %v, want none", zone)
	}
}

func TestRestartAfterCompletion(t *testing.T) {
	m, _ := newTestModel(t, []deck.Card{{Key: "水", Meanings: []string{"water"}}})

	pressKey(m, tea.KeySpace)
	pressKey(m, tea.KeyRunes, 'k')
	if m.screen != screenDone {
		t.Fatalf("screen = %v, want done", m.screen)
	}

	pressKey(m, tea.KeyRunes, 'r')
	if m.screen != screenPrompt {
		t.Fatalf("screen = %v, want prompt after restart", m.screen)
	}
	if m.engine.Remaining() != 1 {
		t.Fatalf("remaining = %d, want 1", m.engine.Remaining())
	}
	if st := m.engine.Stats(); st.Correct != 0 || st.Incorrect != 0 {
		t.Fatalf("stats = %+v, want zeroed after restart", st)
	}
}

func TestFooterSegments(t *testing.T) {
	m, _ := newTestModel(t, sampleCards())

	out := m.renderFooter()
	if !strings.Contains(out, "Remaining 2") {
		t.Fatalf("footer missing remaining count: %q", out)
	}

	pressKey(m, tea.KeySpace)
	pressKey(m, tea.KeyRunes, 'j')
	out = m.renderFooter()
	if !strings.Contains(out, "Session 0.0%") {
		t.Fatalf("footer missing session accuracy: %q", out)
	}
}

func TestViewShowsMeaningsOnlyWhenRevealed(t *testing.T) {
	m, _ := newTestModel(t, sampleCards())

	head := m.engine.Head()
	view := m.View()
	if !strings.Contains(view, head.Key) {
		t.Fatalf("view missing card key")
	}
	if strings.Contains(view, head.Meanings[0]) {
		t.Fatalf("meanings must be hidden before reveal")
	}

	pressKey(m, tea.KeySpace)
	view = m.View()
	if !strings.Contains(view, head.Meanings[0]) {
		t.Fatalf("meanings missing after reveal")
	}
}
