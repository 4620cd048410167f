package chat

import "time"

// Session captures one transient widget conversation. Sessions live in
// memory only and disappear with the process.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
