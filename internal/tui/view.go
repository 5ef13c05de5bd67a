package tui

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/bubbles/v2/key"
)

// View implements tea.Model. AltScreen with a scrollable viewport.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	_, _ = m.viewBuf.WriteString(m.viewport.View())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	if m.note != "" {
		_, _ = m.viewBuf.WriteString(m.styles.System.Render(m.note))
		_, _ = m.viewBuf.WriteString("\n")
	}

	// Input stays visible and editable even while a request runs.
	_, _ = m.viewBuf.WriteString(m.styles.Prompt.Render("> "))
	_, _ = m.viewBuf.WriteString(m.input.View())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderStatusBar())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the viewport from the controller's
// conversation. Called when the conversation, state or size changes.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder

	_, _ = b.WriteString(m.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(m.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	for _, msg := range m.controller.Messages() {
		switch {
		case msg.IsError:
			_, _ = b.WriteString(m.styles.Error.Render(msg.Content))
		case msg.Role == "user":
			_, _ = b.WriteString(m.styles.User.Render("Ty> "))
			_, _ = b.WriteString(msg.Content)
		default:
			_, _ = b.WriteString(m.styles.Assistant.Render("FoodSave> "))
			_, _ = b.WriteString(m.markdown.Render(msg.Content))
		}
		_, _ = b.WriteString("\n\n")
	}

	if m.state == StateThinking {
		_, _ = b.WriteString(m.spinner.View())
		_, _ = b.WriteString(" Myślę...\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar shows keyboard help plus the active mode flags.
func (m *Model) renderStatusBar() string {
	var bindings []key.Binding
	switch m.state {
	case StateInput:
		bindings = []key.Binding{
			m.keys.Submit, m.keys.NewLine, m.keys.History,
			m.keys.Cancel, m.keys.Quit, m.keys.ScrollUp,
		}
	case StateThinking:
		bindings = []key.Binding{
			m.keys.EscCancel, m.keys.Cancel,
			m.keys.ScrollUp, m.keys.ScrollDown,
		}
	}

	helpView := m.help.ShortHelpView(bindings)
	if modes := m.renderModes(); modes != "" {
		return helpView + "  " + m.styles.StatusBar.Render(modes)
	}
	return helpView
}

// renderModes lists the enabled toggles, e.g. "[bielik] [zakupy]".
func (m *Model) renderModes() string {
	opts := m.controller.Options()

	var parts []string
	if opts.UseBielik {
		parts = append(parts, "[bielik]")
	}
	if opts.UsePerplexity {
		parts = append(parts, "[internet]")
	}
	if opts.ShoppingMode {
		parts = append(parts, "[zakupy]")
	}
	if opts.CookingMode {
		parts = append(parts, "[gotowanie]")
	}
	return strings.Join(parts, " ")
}
