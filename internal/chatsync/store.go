package chatsync

import (
	"context"
	"time"

	"github.com/65160020/swapup-backend/internal/models"
	"gorm.io/gorm"
)

// Store is the data-store surface the sync engine needs: the ordered log,
// the bulk mark-as-read aggregate, and the viewer's session list for
// preview refresh. Implementations must return messages ordered by
// created_at ascending with id as tiebreak.
type Store interface {
	FetchMessages(ctx context.Context, sessionID string) ([]models.Message, error)
	MarkRead(ctx context.Context, sessionID, viewerID string) (int64, error)
	FetchSessions(ctx context.Context, userID string) ([]models.Session, error)
}

// GormStore backs Store with the shared relational database.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) FetchMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc, id asc").
		Find(&messages).Error
	return messages, err
}

func (s *GormStore) MarkRead(ctx context.Context, sessionID, viewerID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("session_id = ? AND sender_id <> ? AND is_read = ?", sessionID, viewerID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (s *GormStore) FetchSessions(ctx context.Context, userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := s.DB.WithContext(ctx).
		Where("(user_a_id = ? OR user_b_id = ?) AND status <> ?", userID, userID, models.SessionClosed).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&sessions).Error
	return sessions, err
}
