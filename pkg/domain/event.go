package domain

import "strings"

// EventKind discriminates inbound chat events.
type EventKind string

const (
	// EventText is a free-text message typed by the user.
	EventText EventKind = "text"
	// EventCallback is a structured action emitted by pressing an inline control.
	EventCallback EventKind = "callback"
)

// Event is a single inbound user interaction.
type Event struct {
	Kind EventKind `json:"kind"`
	// Text holds the raw message text for EventText.
	Text string `json:"text,omitempty"`
	// Data holds the opaque "<namespace>:<payload>" string for EventCallback.
	Data string `json:"data,omitempty"`
	// MessageID is the id of the message the callback was attached to, when known.
	MessageID string `json:"message_id,omitempty"`
}

// TextEvent builds a free-text event.
func TextEvent(text string) Event {
	return Event{Kind: EventText, Text: text}
}

// CallbackEvent builds a callback event.
func CallbackEvent(data string) Event {
	return Event{Kind: EventCallback, Data: data}
}

// Callback splits an event's data into namespace and payload at the first
// colon. Data without a colon is a bare namespace with an empty payload.
func (e Event) Callback() (namespace, payload string) {
	ns, rest, found := strings.Cut(e.Data, ":")
	if !found {
		return e.Data, ""
	}
	return ns, rest
}
