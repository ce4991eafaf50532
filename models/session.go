package models

import "time"

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session's conversation history.
// Turns are immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the ordered conversation history for one session id
type Session struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
}
