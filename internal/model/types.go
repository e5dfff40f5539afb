// Package model defines shared data structures.
package model

import (
	"encoding"
	"fmt"
	"time"
)

// ItemState is the within-session mastery state of a card.
type ItemState int

const (
	StateNew         ItemState = iota // never answered correctly before
	StateLearned                      // answered correctly in a prior session
	StateRelearning1                  // missed; needs two consecutive correct answers
	StateRelearning2                  // one correct answer away from exiting
)

var (
	stateNames = [...]string{
		StateNew:         "new",
		StateLearned:     "learned",
		StateRelearning1: "relearning1",
		StateRelearning2: "relearning2",
	}
	stateByName = map[string]ItemState{
		"new":         StateNew,
		"learned":     StateLearned,
		"relearning1": StateRelearning1,
		"relearning2": StateRelearning2,
	}
)

var (
	_ fmt.Stringer             = ItemState(0)
	_ encoding.TextMarshaler   = ItemState(0)
	_ encoding.TextUnmarshaler = (*ItemState)(nil)
)

func (s ItemState) isValid() bool {
	return s >= StateNew && s <= StateRelearning2
}

// String returns the state name ("new", "learned", "relearning1", "relearning2").
func (s ItemState) String() string {
	if s.isValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("ItemState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s ItemState) MarshalText() ([]byte, error) {
	if !s.isValid() {
		return nil, fmt.Errorf("model: invalid item state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ItemState) UnmarshalText(text []byte) error {
	v, ok := stateByName[string(text)]
	if !ok {
		return fmt.Errorf("model: invalid item state: %q", text)
	}
	*s = v
	return nil
}

// Item is one reviewable card inside a session queue.
type Item struct {
	Key      string
	Meanings []string
	State    ItemState
}

// Config defines review session settings.
type Config struct {
	Deck  string
	Limit int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Deck        string
	Since       *time.Time
	Last        int
	CurveWindow int
	Cards       string
}

// SessionSummary captures a completed review session.
type SessionSummary struct {
	SessionID  string
	StartedAt  time.Time
	EndedAt    time.Time
	Deck       string
	Correct    int
	Incorrect  int
	DurationMs int64
}

// SessionAggregate summarizes a session row for reporting.
type SessionAggregate struct {
	SessionID  string
	EndedAt    time.Time
	Deck       string
	Correct    int
	Incorrect  int
	DurationMs int64
}

// CardAggregate aggregates review outcomes for one card across sessions.
type CardAggregate struct {
	Key       string
	Correct   int
	Incorrect int
}

// DeckInfo describes an imported deck.
type DeckInfo struct {
	Name  string
	Cards int
}
