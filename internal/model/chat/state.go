package chat

// State is a point-in-time snapshot of a session as the widget sees it:
// the conversation so far, the unsent input buffer, and whether a
// completion request is outstanding.
type State struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
	Input     string    `json:"input"`
	Typing    bool      `json:"typing"`
}
