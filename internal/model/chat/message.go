package chat

import "time"

// Message sender values. The widget knows exactly two parties.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is one turn of a conversation. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
