package models

import "time"

// TypingSignal is a transient broadcast event on the typing:<sessionID>
// topic. Fire-and-forget: no storage, no ordering guarantee. Consumers
// auto-clear the flag after a fixed window even if is_typing=false never
// arrives.
type TypingSignal struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	IsTyping  bool   `json:"is_typing"`
}

// PresenceHeartbeat is published on the process-wide presence topic when a
// client mounts a session view and periodically afterwards. Receivers merge
// heartbeats last-write-wins by OnlineAt.
type PresenceHeartbeat struct {
	UserID   string    `json:"user_id"`
	OnlineAt time.Time `json:"online_at"`
}

// Message event operations carried on session:<id> topics.
const (
	MessageCreated = "message_created"
	MessageUpdated = "message_updated"
	MessageDeleted = "message_deleted"
	MessagesRead   = "messages_read" // bulk read-flag change, no rows attached
	SessionUpdated = "session_updated"
)

// MessageEvent is the push-side delivery of a log mutation. Receivers merge
// by message ID; the polling reconcile remains the safety net for anything
// the broadcast drops.
type MessageEvent struct {
	Op      string   `json:"op"`
	Message *Message `json:"message,omitempty"`
	Session *Session `json:"session,omitempty"`
}
