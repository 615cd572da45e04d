package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Session lifecycle states. Transitions are monotonic:
// active -> ended -> closed, never backwards.
const (
	SessionActive = "active" // both parties may send
	SessionEnded  = "ended"  // one party reviewed; sending disabled
	SessionClosed = "closed" // both reviewed; hidden from active lists
)

// Session is a persistent two-party chat between skill-exchange partners.
// status=closed holds exactly when ReviewedBy covers both participants;
// the row is never deleted, closed sessions stay for history.
type Session struct {
	ID      string `gorm:"primaryKey;type:text" json:"id"`
	UserAID string `gorm:"index;type:text;not null" json:"userAId"`
	UserBID string `gorm:"index;type:text;not null" json:"userBId"`

	// PairKey is the sorted "min:max" of the two participant IDs. A partial
	// unique index on it (WHERE status <> 'closed') gives the best-effort
	// guarantee of one live session per pair; see migrations.
	PairKey string `gorm:"type:text;not null" json:"-"`

	Status     string         `gorm:"type:text;default:'active';not null" json:"status"`
	ReviewedBy pq.StringArray `gorm:"type:text[]" json:"reviewedBy"`

	// Version guards the reviewed_by/status pair. The review gate advances
	// state with a compare-and-swap on it, so two concurrent reviewers
	// cannot overwrite each other's addition and strand the session in
	// "ended".
	Version int `gorm:"default:0;not null" json:"-"`

	// Denormalized preview, written by the sender at send time (not by the
	// sync engine) so the session list can render without a message query.
	LastMessagePreview string     `gorm:"type:text" json:"lastMessagePreview"`
	LastMessageAt      *time.Time `json:"lastMessageAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserA User `gorm:"foreignKey:UserAID" json:"userA,omitempty"`
	UserB User `gorm:"foreignKey:UserBID" json:"userB,omitempty"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.PairKey == "" {
		s.PairKey = PairKey(s.UserAID, s.UserBID)
	}
	return
}

// PairKey normalizes an unordered participant pair to a stable key.
func PairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// HasReviewed reports whether userID already appears in ReviewedBy.
func (s *Session) HasReviewed(userID string) bool {
	for _, id := range s.ReviewedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// FullyReviewed reports whether every participant appears in ReviewedBy.
func (s *Session) FullyReviewed() bool {
	return s.HasReviewed(s.UserAID) && s.HasReviewed(s.UserBID)
}

// PartnerOf returns the other participant's ID, or "" if userID is not a
// participant.
func (s *Session) PartnerOf(userID string) string {
	switch userID {
	case s.UserAID:
		return s.UserBID
	case s.UserBID:
		return s.UserAID
	}
	return ""
}

// IsParticipant reports whether userID is one of the two parties.
func (s *Session) IsParticipant(userID string) bool {
	return userID == s.UserAID || userID == s.UserBID
}
