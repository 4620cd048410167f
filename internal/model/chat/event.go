package chat

// EventType names a state transition observable by watchers.
type EventType string

const (
	// EventMessage fires when a message is appended to the conversation.
	EventMessage EventType = "message"
	// EventInput fires when the input buffer changes.
	EventInput EventType = "input"
	// EventTyping fires when the typing flag flips.
	EventTyping EventType = "typing"
)

// Event is emitted on every session mutation, in mutation order. Input and
// Typing always carry the current values; Message is set only for
// EventMessage.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Message   *Message  `json:"message,omitempty"`
	Input     string    `json:"input"`
	Typing    bool      `json:"typing"`
}
