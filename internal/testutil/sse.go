package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// SSEEvent is one parsed Server-Sent Event.
type SSEEvent struct {
	Type string
	Data string
}

// ParseSSE parses a raw SSE response body into events. Multiple data
// lines are joined with newline, comment lines are skipped, and a type
// defaults to "message" when only data lines appear.
func ParseSSE(t *testing.T, body string) []SSEEvent {
	t.Helper()

	var (
		events  []SSEEvent
		current SSEEvent
		data    []string
	)
	flush := func() {
		if current.Type == "" && len(data) == 0 {
			return
		}
		if current.Type == "" {
			current.Type = "message"
		}
		current.Data = strings.Join(data, "\n")
		events = append(events, current)
		current, data = SSEEvent{}, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, ":"):
			// comment, ignored
		default:
			t.Fatalf("unexpected SSE line %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning SSE body: %v", err)
	}
	flush()

	return events
}

// FindSSE returns the first event of the given type, or nil.
func FindSSE(events []SSEEvent, eventType string) *SSEEvent {
	for i := range events {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}
