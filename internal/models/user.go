package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is the profile row. Profile management (search, skill matching,
// signup) lives in other services; this backend only reads identities and
// writes the review aggregates onto them.
type User struct {
	ID           string         `gorm:"primaryKey;type:text" json:"id"`
	Email        string         `gorm:"uniqueIndex;type:text;not null" json:"email"`
	DisplayName  string         `gorm:"type:text" json:"displayName"`
	Bio          string         `gorm:"type:text" json:"bio"`
	Skills       pq.StringArray `gorm:"type:text[]" json:"skills"`
	ProfileImage string         `gorm:"type:text" json:"profileImage"`

	// Review aggregates, recomputed by the review gate on every submitted
	// review. Rating is the mean of overall ratings over ALL review rows
	// for this user, duplicates included (explicit policy).
	Rating       float64 `gorm:"default:0" json:"rating"`
	ReviewsCount int     `gorm:"default:0" json:"reviewsCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
