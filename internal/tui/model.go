// Package tui provides the Bubble Tea review interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/recall/internal/gate"
	"github.com/verte-zerg/recall/internal/model"
	"github.com/verte-zerg/recall/internal/queue"
	statsPkg "github.com/verte-zerg/recall/internal/stats"
	"github.com/verte-zerg/recall/internal/store"
)

type screen int

const (
	screenPrompt screen = iota
	screenRevealed
	screenDone
)

// control identifies an interactive zone with its own deduplication gate.
type control int

const (
	controlNone control = iota
	controlReveal
	controlCorrect
	controlIncorrect
)

type gateTickMsg time.Time

var (
	keyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	meaningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	stateStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	correctBtn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	incorrectBtn   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	doneTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

const (
	correctLabel   = "[ ✓ correct (k) ]"
	incorrectLabel = "[ ✗ incorrect (j) ]"
	buttonGap      = 3
)

// Model implements the Bubble Tea review UI.
type Model struct {
	config  model.Config
	store   *store.Store
	session *store.ReviewSession
	engine  *queue.Engine

	revealGate    *gate.Gate
	correctGate   *gate.Gate
	incorrectGate *gate.Gate
	pressedZone   control

	screen    screen
	remaining int
	errMsg    string

	width  int
	height int

	started   bool
	startedAt time.Time

	lastAcc float64
	hasLast bool
	allAcc  float64
	allRevs int
	allCorr int
}

// NewModel constructs a review TUI model and loads the first due batch.
func NewModel(cfg model.Config, st *store.Store) (*Model, error) {
	m := &Model{
		config:  cfg,
		store:   st,
		session: st.NewReviewSession(cfg.Deck, cfg.Limit),
	}
	m.engine = queue.New(m.session, m.session, func(n int) { m.remaining = n })
	m.revealGate = gate.New(m.reveal)
	m.correctGate = gate.New(func() { m.judge(true) })
	m.incorrectGate = gate.New(func() { m.judge(false) })

	if err := m.startSession(); err != nil {
		return nil, err
	}
	m.loadFooterStats()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case gateTickMsg:
		now := time.Now()
		m.revealGate.Expire(now)
		m.correctGate.Expire(now)
		m.incorrectGate.Expire(now)
		return m, m.scheduleGates()
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeySpace, tea.KeyEnter:
		if m.screen == screenPrompt {
			m.revealGate.Tap(now)
		}
		return m, m.scheduleGates()
	case tea.KeyLeft:
		m.incorrectGate.Tap(now)
		return m, m.scheduleGates()
	case tea.KeyRight:
		m.correctGate.Tap(now)
		return m, m.scheduleGates()
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			switch r {
			case 'j':
				m.incorrectGate.Tap(now)
			case 'k':
				m.correctGate.Tap(now)
			case 'r':
				if m.screen == screenDone {
					if err := m.startSession(); err != nil {
						m.errMsg = err.Error()
					}
				}
			case 'q':
				if m.screen == screenDone {
					return m, tea.Quit
				}
			}
		}
		return m, m.scheduleGates()
	default:
		return m, nil
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	ev := gate.Event{
		Source: gate.SourcePointer,
		Button: mouseButton(msg.Button),
		At:     time.Now(),
	}
	switch msg.Action {
	case tea.MouseActionPress:
		zone := m.zoneAt(msg.X, msg.Y)
		m.pressedZone = zone
		if g := m.gateFor(zone); g != nil {
			g.Press(ev)
		}
	case tea.MouseActionRelease:
		// The release belongs to the control that saw the press, even if
		// the pointer drifted off it.
		if g := m.gateFor(m.pressedZone); g != nil {
			g.Release(ev)
		}
		m.pressedZone = controlNone
	}
	return m, m.scheduleGates()
}

func mouseButton(b tea.MouseButton) gate.Button {
	switch b {
	case tea.MouseButtonLeft:
		return gate.ButtonPrimary
	case tea.MouseButtonRight:
		return gate.ButtonSecondary
	default:
		return gate.ButtonOther
	}
}

func (m *Model) gateFor(zone control) *gate.Gate {
	switch zone {
	case controlReveal:
		return m.revealGate
	case controlCorrect:
		return m.correctGate
	case controlIncorrect:
		return m.incorrectGate
	default:
		return nil
	}
}

// zoneAt maps a screen position to the control under it. During the prompt the
// whole body is the reveal control; once revealed, the two judgment buttons
// occupy the button line.
func (m *Model) zoneAt(x, y int) control {
	if m.width == 0 || m.height == 0 {
		return controlNone
	}
	switch m.screen {
	case screenPrompt:
		if y < m.buttonLine() {
			return controlReveal
		}
	case screenRevealed:
		if y != m.buttonLine() {
			return controlNone
		}
		incStart, incEnd, corStart, corEnd := m.buttonSpans()
		if x >= incStart && x < incEnd {
			return controlIncorrect
		}
		if x >= corStart && x < corEnd {
			return controlCorrect
		}
	}
	return controlNone
}

func (m *Model) buttonLine() int {
	return m.height - 2
}

func (m *Model) buttonSpans() (incStart, incEnd, corStart, corEnd int) {
	total := len([]rune(incorrectLabel)) + buttonGap + len([]rune(correctLabel))
	offset := (m.width - total) / 2
	if offset < 0 {
		offset = 0
	}
	incStart = offset
	incEnd = incStart + len([]rune(incorrectLabel))
	corStart = incEnd + buttonGap
	corEnd = corStart + len([]rune(correctLabel))
	return incStart, incEnd, corStart, corEnd
}

// scheduleGates returns a tick for the earliest open debounce window.
func (m *Model) scheduleGates() tea.Cmd {
	var earliest time.Time
	for _, g := range []*gate.Gate{m.revealGate, m.correctGate, m.incorrectGate} {
		if deadline, open := g.Deadline(); open {
			if earliest.IsZero() || deadline.Before(earliest) {
				earliest = deadline
			}
		}
	}
	if earliest.IsZero() {
		return nil
	}
	wait := time.Until(earliest) + time.Millisecond
	if wait < 0 {
		wait = 0
	}
	return tea.Tick(wait, func(t time.Time) tea.Msg {
		return gateTickMsg(t)
	})
}

func (m *Model) reveal() {
	if m.screen != screenPrompt || m.engine.Head() == nil {
		return
	}
	if !m.started {
		m.started = true
		m.startedAt = time.Now()
	}
	m.screen = screenRevealed
}

func (m *Model) judge(correct bool) {
	if m.screen != screenRevealed {
		return
	}
	item := m.engine.Head()
	if item == nil {
		return
	}
	if err := m.engine.Process(context.Background(), item, correct); err != nil {
		if errors.Is(err, queue.ErrRecordFailed) {
			m.errMsg = "failed to save review; answer again to retry"
			logErrf("failed to record review: %v\n", err)
			return
		}
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	if m.engine.Complete() {
		m.finishSession()
		m.screen = screenDone
		return
	}
	m.screen = screenPrompt
}

func (m *Model) startSession() error {
	if err := m.engine.Reset(context.Background()); err != nil {
		return fmt.Errorf("failed to load due cards: %w", err)
	}
	m.remaining = m.engine.Remaining()
	m.screen = screenPrompt
	m.started = false
	m.startedAt = time.Time{}
	m.errMsg = ""
	if m.engine.Head() == nil {
		m.screen = screenDone
	}
	return nil
}

func (m *Model) finishSession() {
	if !m.started {
		return
	}
	endedAt := time.Now()
	st := m.engine.Stats()
	sum := model.SessionSummary{
		SessionID:  m.session.ID(),
		StartedAt:  m.startedAt,
		EndedAt:    endedAt,
		Deck:       m.session.Deck(),
		Correct:    st.Correct,
		Incorrect:  st.Incorrect,
		DurationMs: endedAt.Sub(m.startedAt).Milliseconds(),
	}
	if err := m.store.InsertSession(context.Background(), sum); err != nil {
		logErrf("failed to save session: %v\n", err)
	}
	_, acc := statsPkg.SessionMetrics(st.Correct, st.Incorrect, sum.DurationMs)
	m.lastAcc = acc
	m.hasLast = true
	m.allCorr += st.Correct
	m.allRevs += st.Correct + st.Incorrect
	m.recomputeAllTime()
}

func (m *Model) loadFooterStats() {
	ctx := context.Background()
	sessions, err := m.store.ListSessions(ctx, model.StatsConfig{Deck: m.config.Deck})
	if err != nil {
		logErrf("failed to load session stats: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		return
	}
	last := sessions[len(sessions)-1]
	_, acc := statsPkg.SessionMetrics(last.Correct, last.Incorrect, last.DurationMs)
	m.lastAcc = acc
	m.hasLast = true

	for _, s := range sessions {
		m.allCorr += s.Correct
		m.allRevs += s.Correct + s.Incorrect
	}
	m.recomputeAllTime()
}

func (m *Model) recomputeAllTime() {
	if m.allRevs == 0 {
		m.allAcc = 0
		return
	}
	m.allAcc = float64(m.allCorr) / float64(m.allRevs)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	body := m.renderBody()
	buttons := m.renderButtons()
	footer := m.renderFooter()

	bodyHeight := m.height - 2
	if bodyHeight < 1 {
		return body
	}
	placed := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, body)
	buttonLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, buttons)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return placed + "\n" + buttonLine + "\n" + footerLine
}

func (m *Model) renderBody() string {
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}

	switch m.screen {
	case screenDone:
		st := m.engine.Stats()
		lines := []string{
			doneTitleStyle.Render("Session complete"),
			"",
			meaningStyle.Render(fmt.Sprintf("%d correct · %d incorrect", st.Correct, st.Incorrect)),
			"",
			hintStyle.Render("r new session · q quit"),
		}
		if m.errMsg != "" {
			lines = append(lines, "", errorStyle.Render(m.errMsg))
		}
		return strings.Join(lines, "\n")
	default:
		item := m.engine.Head()
		if item == nil {
			return hintStyle.Render("No cards due.")
		}
		lines := []string{
			keyStyle.Render(wrapText(item.Key, contentWidth)),
			stateStyle.Render(item.State.String()),
			"",
		}
		if m.screen == screenRevealed {
			for _, meaning := range item.Meanings {
				lines = append(lines, meaningStyle.Render(wrapText(meaning, contentWidth)))
			}
		} else {
			lines = append(lines, hintStyle.Render("space to reveal"))
		}
		if m.errMsg != "" {
			lines = append(lines, "", errorStyle.Render(m.errMsg))
		}
		return strings.Join(lines, "\n")
	}
}

func (m *Model) renderButtons() string {
	if m.screen != screenRevealed {
		return ""
	}
	return incorrectBtn.Render(incorrectLabel) +
		strings.Repeat(" ", buttonGap) +
		correctBtn.Render(correctLabel)
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Remaining %d", m.remaining)}
	st := m.engine.Stats()
	if st.Correct+st.Incorrect > 0 {
		acc := float64(st.Correct) / float64(st.Correct+st.Incorrect)
		segments = append(segments, fmt.Sprintf("Session %.1f%%", acc*100))
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f%%", m.lastAcc*100))
	}
	if m.allRevs > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.1f%%", m.allAcc*100))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
