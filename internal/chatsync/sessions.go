package chatsync

import (
	"context"
	"sync"
	"time"

	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/pkg/logger"
)

// SessionListPoller refreshes a user's session list (previews, timestamps,
// lifecycle state) on the same cadence as the message engine. It runs
// independently of any single session's engine so the sidebar stays fresh
// while a conversation is open.
type SessionListPoller struct {
	store    Store
	userID   string
	interval time.Duration

	mu       sync.RWMutex
	sessions []models.Session
}

func NewSessionListPoller(store Store, userID string) *SessionListPoller {
	return &SessionListPoller{
		store:    store,
		userID:   userID,
		interval: PollInterval,
	}
}

func (p *SessionListPoller) SetInterval(d time.Duration) {
	p.interval = d
}

// Run polls until ctx is cancelled.
func (p *SessionListPoller) Run(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("Initial session list refresh failed")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("Session list refresh failed")
			}
		}
	}
}

// Refresh fetches the list once, dropping sessions whose reviewed_by
// already covers both participants even if their status lags behind.
func (p *SessionListPoller) Refresh(ctx context.Context) error {
	sessions, err := p.store.FetchSessions(ctx, p.userID)
	if err != nil {
		return err
	}

	visible := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.FullyReviewed() {
			continue
		}
		visible = append(visible, s)
	}

	p.mu.Lock()
	p.sessions = visible
	p.mu.Unlock()
	return nil
}

// Sessions returns a copy of the latest list.
func (p *SessionListPoller) Sessions() []models.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Session, len(p.sessions))
	copy(out, p.sessions)
	return out
}
