package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash commands. The toggles mirror the mode switches of the web UI.
const (
	cmdHelp     = "/help"
	cmdClear    = "/clear"
	cmdBielik   = "/bielik"
	cmdSearch   = "/search"
	cmdShopping = "/shopping"
	cmdCooking  = "/cooking"
	cmdExit     = "/exit"
	cmdQuit     = "/quit"
)

// keyMap holds key bindings for the help bar.
type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "wyślij")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "nowa linia")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "historia")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "anuluj")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "wyjście")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "przewiń w górę")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "przewiń w dół")),
		EscCancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "anuluj")),
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			return m, m.cleanup()
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		// Enter submits; Shift+Enter falls through to the textarea.
		if m.state == StateInput && k.Mod&tea.ModShift == 0 {
			return m.handleSubmit()
		}

	case tea.KeyUp:
		if m.state == StateInput && m.input.Line() == 0 {
			return m.navigateHistory(-1)
		}

	case tea.KeyDown:
		if m.state == StateInput && m.input.Line() == m.input.LineCount()-1 {
			return m.navigateHistory(1)
		}

	case tea.KeyEscape:
		if m.state == StateThinking {
			m.cancelSend()
			m.state = StateInput
			m.note = "(Anulowano)"
			m.rebuildViewportContent()
			return m, nil
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	// Typing is always allowed, even while a request is in flight.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within a second quits.
	if now.Sub(m.lastCtrlC) < time.Second {
		return m, m.cleanup()
	}
	m.lastCtrlC = now

	switch m.state {
	case StateInput:
		m.input.Reset()
	case StateThinking:
		m.cancelSend()
		m.state = StateInput
		m.note = "(Anulowano)"
		m.rebuildViewportContent()
	}
	return m, nil
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}

	if strings.HasPrefix(query, "/") {
		return m.handleSlashCommand(query)
	}

	m.addHistory(query)
	m.note = ""
	m.input.Reset()
	m.state = StateThinking

	cmd := m.sendCmd(query)
	m.rebuildViewportContent()
	m.viewport.GotoBottom()

	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m *Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case cmdHelp:
		m.note = "Komendy: " + strings.Join([]string{
			cmdHelp, cmdClear, cmdBielik, cmdSearch, cmdShopping, cmdCooking, cmdExit,
		}, ", ")
	case cmdClear:
		m.controller.Clear()
		m.note = "Rozpoczęto nową rozmowę."
	case cmdBielik:
		m.note = toggleNote("Bielik", m.controller.ToggleBielik())
	case cmdSearch:
		m.note = toggleNote("Wyszukiwanie w internecie", m.controller.TogglePerplexity())
	case cmdShopping:
		m.note = toggleNote("Tryb zakupowy", m.controller.ToggleShopping())
	case cmdCooking:
		m.note = toggleNote("Tryb kulinarny", m.controller.ToggleCooking())
	case cmdExit, cmdQuit:
		return m, m.cleanup()
	default:
		m.note = "Nieznana komenda: " + cmd
	}
	m.input.Reset()
	m.rebuildViewportContent()
	return m, nil
}

func toggleNote(name string, on bool) string {
	if on {
		return name + ": włączony"
	}
	return name + ": wyłączony"
}

func (m *Model) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m, nil
	}

	m.historyIdx += delta
	if m.historyIdx < 0 {
		m.historyIdx = 0
	}
	if m.historyIdx > len(m.history) {
		m.historyIdx = len(m.history)
	}

	if m.historyIdx == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[m.historyIdx])
		m.input.CursorEnd()
	}
	return m, nil
}

func (m *Model) cancelSend() {
	if m.sendCancel != nil {
		m.sendCancel()
		m.sendCancel = nil
	}
}

// cleanup closes the controller, cancels everything and quits.
func (m *Model) cleanup() tea.Cmd {
	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}
	m.cancelSend()
	m.controller.Close()
	return tea.Quit
}
