package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is one party's rating of the other for a session. Immutable once
// created, never updated or deleted. A reviewer may insert more than one
// row per session; the aggregate mean deliberately counts all of them.
type Review struct {
	ID         string `gorm:"primaryKey;type:text" json:"id"`
	SessionID  string `gorm:"index;type:text;not null" json:"sessionId"`
	ReviewerID string `gorm:"index;type:text;not null" json:"reviewerId"`
	RevieweeID string `gorm:"index;type:text;not null" json:"revieweeId"`

	Rating  int    `gorm:"not null" json:"rating"` // overall, 1..5
	Comment string `gorm:"type:text" json:"comment"`

	// Per-dimension scores, 1..5 or NULL when not given. Matches the review
	// form's seven categories.
	VoiceTone      *int `json:"voiceTone"`
	Relevance      *int `json:"relevance"`
	Politeness     *int `json:"politeness"`
	OpenMindedness *int `json:"openMindedness"`
	Friendliness   *int `json:"friendliness"`
	Creativity     *int `json:"creativity"`
	ProblemSolving *int `json:"problemSolving"`

	CreatedAt time.Time `json:"createdAt"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
