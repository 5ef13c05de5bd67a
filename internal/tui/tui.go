// Package tui provides the Bubble Tea terminal interface for FoodSave.
//
// The model is a thin view over chat.Controller: the controller owns the
// conversation, the session identity and the mode flags; the TUI owns
// only presentation state (input, viewport, spinner, transient notices).
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/foodsave-ai/foodsave/internal/chat"
)

// State is the TUI state machine.
type State int

// States: waiting for input or waiting for the backend.
const (
	StateInput State = iota
	StateThinking
)

// maxHistory bounds the command history.
const maxHistory = 100

// Layout constants for viewport height calculation.
const (
	separatorLines = 2
	helpLines      = 1
	promptLines    = 1
	minViewport    = 3
)

// Model is the Bubble Tea model for the FoodSave chat surface.
type Model struct {
	input      textarea.Model
	history    []string
	historyIdx int

	state     State
	lastCtrlC time.Time

	spinner spinner.Model
	viewBuf strings.Builder

	viewport viewport.Model
	help     help.Model
	keys     keyMap

	// note is a transient system notice (toggle feedback, cancel info)
	// shown above the input until the next submit.
	note string

	controller *chat.Controller
	sendCancel context.CancelFunc

	ctx       context.Context
	ctxCancel context.CancelFunc

	width  int
	height int

	styles   Styles
	markdown *markdownRenderer
}

// New creates a Model around an existing chat controller.
//
// ctx must be the same context passed to tea.WithContext so cancellation
// behaves consistently.
func New(ctx context.Context, controller *chat.Controller) (*Model, error) {
	if controller == nil {
		return nil, errors.New("tui.New: controller is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	// Enter submits, Shift+Enter adds a newline.
	ta := textarea.New()
	ta.Placeholder = "Zapytaj o cokolwiek..."
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{Focused: cleanStyle, Blurred: cleanStyle})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Keys are routed explicitly in handleKey; the viewport's own
	// bindings would fight with the textarea.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	return &Model{
		controller: controller,
		ctx:        ctx,
		ctxCancel:  cancel,
		input:      ta,
		spinner:    sp,
		viewport:   vp,
		help:       help.New(),
		keys:       newKeyMap(),
		styles:     DefaultStyles(),
		history:    make([]string, 0, maxHistory),
		markdown:   newMarkdownRenderer(80),
		width:      80,
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.rebuildViewportContent()
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(),
	)
}

// addHistory records a submitted line, enforcing the cap.
func (m *Model) addHistory(line string) {
	m.history = append(m.history, line)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.historyIdx = len(m.history)
}
