package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message kinds. Non-text kinds carry a URL (image/video/link); reply
// carries a JSON ReplyEnvelope in Content.
const (
	KindText  = "text"
	KindImage = "image"
	KindVideo = "video"
	KindLink  = "link"
	KindReply = "reply"
)

// Message is one entry of a session's append-only log. Rows are never
// edited after creation except for Reactions and the read flags, which are
// mutated in place. Ordering is created_at ascending with the insertion id
// as tiebreak.
type Message struct {
	ID        string `gorm:"primaryKey;type:text" json:"id"`
	SessionID string `gorm:"index:idx_session_msg;type:text;not null" json:"sessionId"`
	SenderID  string `gorm:"index;type:text;not null" json:"senderId"`

	Kind    string `gorm:"type:text;default:'text';not null" json:"kind"`
	Content string `gorm:"type:text;not null" json:"content"`

	// Reactions maps emoji -> count. The toggle is room-level (not
	// attributed per user): either participant can set or clear any key.
	// NULL when empty.
	Reactions datatypes.JSONMap `gorm:"type:jsonb" json:"reactions,omitempty"`

	// Read tracking. Monotonic: once true, nothing sets it back.
	IsRead bool       `gorm:"default:false" json:"isRead"`
	ReadAt *time.Time `json:"readAt,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_session_msg" json:"createdAt"`

	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// ReplyTarget is the frozen snapshot of the message being replied to,
// taken at reply time. It persists even if the target is later deleted.
type ReplyTarget struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	SenderID string `json:"sender_id"`
}

// ReplyEnvelope is the Content payload of a kind=reply message.
type ReplyEnvelope struct {
	Text    string      `json:"text"`
	ReplyTo ReplyTarget `json:"reply_to"`
}

// ParseReplyEnvelope decodes the envelope out of a reply message's content.
func ParseReplyEnvelope(content string) (*ReplyEnvelope, error) {
	var env ReplyEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil, err
	}
	return &env, nil
}
