package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/pkg/logger"
)

// TypingWindow is how long a typing flag stays up without renewal. The
// auto-clear guards against a lost "stopped typing" event.
const TypingWindow = 3 * time.Second

type typingKey struct {
	sessionID string
	userID    string
}

// TypingTracker consumes typing signals for all sessions and answers "who
// is typing right now". State is purely in-memory and decays on its own;
// an explicit is_typing=false only clears it sooner.
type TypingTracker struct {
	mu      sync.RWMutex
	expires map[typingKey]time.Time
	window  time.Duration
}

func NewTypingTracker(window time.Duration) *TypingTracker {
	return &TypingTracker{
		expires: make(map[typingKey]time.Time),
		window:  window,
	}
}

// Apply records one signal.
func (t *TypingTracker) Apply(sig models.TypingSignal) {
	key := typingKey{sessionID: sig.SessionID, userID: sig.UserID}
	t.mu.Lock()
	defer t.mu.Unlock()
	if sig.IsTyping {
		t.expires[key] = time.Now().Add(t.window)
	} else {
		delete(t.expires, key)
	}
}

// IsTyping reports whether userID has a live typing flag in the session.
func (t *TypingTracker) IsTyping(sessionID, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	deadline, ok := t.expires[typingKey{sessionID: sessionID, userID: userID}]
	return ok && time.Now().Before(deadline)
}

// TypingUsers returns the users with a live flag in the session.
func (t *TypingTracker) TypingUsers(sessionID string) []string {
	now := time.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	var users []string
	for key, deadline := range t.expires {
		if key.sessionID == sessionID && now.Before(deadline) {
			users = append(users, key.userID)
		}
	}
	return users
}

// Start subscribes the tracker to every typing topic until ctx is
// cancelled. Expired flags are dropped lazily on read and compacted
// periodically so the map does not grow without bound.
func (t *TypingTracker) Start(ctx context.Context, ch Channel) error {
	unsubscribe, err := ch.Subscribe(TypingTopic("*"), func(_ string, payload []byte) {
		var sig models.TypingSignal
		if err := json.Unmarshal(payload, &sig); err != nil {
			logger.Warn().Err(err).Msg("Dropping malformed typing signal")
			return
		}
		t.Apply(sig)
	})
	if err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(t.window)
		defer ticker.Stop()
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.compact()
			}
		}
	}()
	return nil
}

func (t *TypingTracker) compact() {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, deadline := range t.expires {
		if now.After(deadline) {
			delete(t.expires, key)
		}
	}
}
