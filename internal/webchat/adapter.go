package webchat

import (
	"time"

	"github.com/optimumsoft/optimumsoft-web/internal/chatbot"
)

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "session", "history", "message", "typing", "step", "reset", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"` // "bot" or "user"
	SessionID string           `json:"session_id,omitempty"`
	Step      string           `json:"step,omitempty"`
	Typing    *bool            `json:"typing,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified transcript entry.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// frameForEvent converts an engine event into the frame pushed to the widget.
func frameForEvent(ev chatbot.Event) OutboundMessage {
	switch ev.Kind {
	case chatbot.EventMessage:
		return OutboundMessage{
			Type:      "message",
			Role:      string(ev.Entry.Speaker),
			Text:      ev.Entry.Text,
			Timestamp: ev.Entry.Timestamp.UTC().Format(time.RFC3339),
		}
	case chatbot.EventTyping:
		typing := ev.Typing
		return OutboundMessage{Type: "typing", Typing: &typing}
	case chatbot.EventStep:
		return OutboundMessage{Type: "step", Step: string(ev.Step)}
	default:
		return OutboundMessage{Type: "reset", Step: string(ev.Step)}
	}
}

func historyFromTranscript(entries []chatbot.Entry) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(entries))
	for _, e := range entries {
		history = append(history, HistoryMessage{
			Role:      string(e.Speaker),
			Text:      e.Text,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return history
}
