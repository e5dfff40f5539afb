// Package gate deduplicates physical press/release events into logical activations.
//
// Interactive controls receive a noisy event stream: platforms that speak both
// touch and pointer protocols report a single physical tap twice, users
// double-tap faster than an action can finish, and long presses or secondary
// buttons arrive on the same channel as taps. A Gate owns the per-control state
// needed to turn that stream into exactly one activation per intended tap.
//
// The gate is a pure state machine. It never starts goroutines or timers;
// instead it exposes the deadline of the currently open debounce window so the
// event loop that drives it (a Bubble Tea program in this repo) can schedule a
// tick and call Expire. All methods must be called from a single goroutine.
package gate

import "time"

// Source identifies the input family that produced an event.
type Source int

const (
	SourceTouch   Source = iota // touch protocol
	SourcePointer               // pointer/mouse protocol
)

// Button identifies which button produced a press or release.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonOther
)

// Event is one half of a physical gesture on a control.
type Event struct {
	Source Source
	Button Button
	At     time.Time
}

const (
	// maxTapDuration is the longest press that still counts as a tap.
	// Anything slower is treated as a long press and discarded.
	maxTapDuration = 200 * time.Millisecond
	// debounceWindow is how long an accepted tap is held before its
	// activation fires. Further taps inside the window are dropped.
	debounceWindow = 250 * time.Millisecond
)

type phase int

const (
	phaseIdle phase = iota
	phaseArmed
	phaseDebouncing
)

// Gate converts press/release pairs on one control into activations.
// Gates are independent; use one per control.
type Gate struct {
	onActivate func()

	phase       phase
	pressStart  time.Time
	pressButton Button

	// touchLatched is sticky: once the control has seen a touch event, all
	// pointer events on it are synthetic duplicates and are dropped.
	touchLatched bool

	windowOpen      bool
	windowDeadline  time.Time
	dupDuringWindow bool
}

// New returns a gate that calls onActivate once per accepted tap.
func New(onActivate func()) *Gate {
	return &Gate{onActivate: onActivate}
}

// Press feeds a press-down event into the gate.
func (g *Gate) Press(ev Event) {
	if ev.Source == SourcePointer && g.touchLatched {
		return
	}
	if g.phase == phaseArmed {
		// A press is already in flight on this control.
		return
	}
	if ev.Source == SourceTouch {
		g.touchLatched = true
	}
	g.pressStart = ev.At
	g.pressButton = ev.Button
	g.phase = phaseArmed
}

// Release feeds a release-up event into the gate. An accepted tap opens the
// debounce window; the activation fires when Expire observes the deadline.
func (g *Gate) Release(ev Event) {
	if ev.Source == SourcePointer && g.touchLatched {
		return
	}
	if g.phase != phaseArmed {
		return
	}
	elapsed := ev.At.Sub(g.pressStart)
	g.pressStart = time.Time{}
	g.settlePhase()

	if elapsed > maxTapDuration || g.pressButton != ButtonPrimary {
		// Long press or non-primary button: not a tap.
		return
	}
	if g.windowOpen {
		// A tap completed while the previous activation is still being
		// finalized. Record it and drop it; it is never queued.
		g.dupDuringWindow = true
		return
	}
	g.windowOpen = true
	g.windowDeadline = ev.At.Add(debounceWindow)
	g.phase = phaseDebouncing
}

// Deadline reports the open debounce window's deadline, if any.
func (g *Gate) Deadline() (time.Time, bool) {
	return g.windowDeadline, g.windowOpen
}

// Expire resolves the debounce window once its deadline has passed. The pending
// activation fires exactly once; any taps recorded during the window stay
// dropped. Calling Expire early or with no open window is a no-op.
func (g *Gate) Expire(now time.Time) {
	if !g.windowOpen || now.Before(g.windowDeadline) {
		return
	}
	g.windowOpen = false
	g.dupDuringWindow = false
	if g.phase == phaseDebouncing {
		g.phase = phaseIdle
	}
	if g.onActivate != nil {
		g.onActivate()
	}
}

// Tap feeds a synthesized zero-duration press/release pair, used for inputs
// that have no release half (terminal key events).
func (g *Gate) Tap(at time.Time) {
	g.Press(Event{Source: SourcePointer, Button: ButtonPrimary, At: at})
	g.Release(Event{Source: SourcePointer, Button: ButtonPrimary, At: at})
}

// settlePhase returns the gate to its rest phase after a gesture resolves:
// Debouncing while a window is open, Idle otherwise.
func (g *Gate) settlePhase() {
	if g.windowOpen {
		g.phase = phaseDebouncing
		return
	}
	g.phase = phaseIdle
}
