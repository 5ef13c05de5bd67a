package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"
)

// sendDoneMsg signals that a controller send cycle resolved. The result
// lives in the controller; the TUI re-reads it on receipt.
type sendDoneMsg struct{}

// sendCmd runs one blocking send cycle against the controller. The
// controller handles cancellation, the error slot and history itself, so
// the command only reports completion.
func (m *Model) sendCmd(text string) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.sendCancel = cancel

	return func() tea.Msg {
		defer cancel()
		m.controller.Send(ctx, text)
		return sendDoneMsg{}
	}
}
