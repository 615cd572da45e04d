package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/pkg/logger"
)

// Heartbeat cadence and the liveness window. A user is online only while a
// heartbeat is younger than PresenceTTL; absence of renewal is the only
// offline signal, so the window is what turns a silent peer offline.
const (
	HeartbeatInterval = 30 * time.Second
	PresenceTTL       = 60 * time.Second
)

// PresenceStatus is the merged view served to clients.
type PresenceStatus struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// PresenceRegistry merges heartbeats from the presence topic into a shared
// table keyed by user ID, last-write-wins by OnlineAt. Entries are
// ephemeral: never persisted, swept once they fall out of the TTL window.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time // userID -> last OnlineAt
	ttl     time.Duration
}

func NewPresenceRegistry(ttl time.Duration) *PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[string]time.Time),
		ttl:     ttl,
	}
}

// Apply merges one heartbeat, keeping the newest OnlineAt for the user.
func (r *PresenceRegistry) Apply(hb models.PresenceHeartbeat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.entries[hb.UserID]; !ok || hb.OnlineAt.After(last) {
		r.entries[hb.UserID] = hb.OnlineAt
	}
}

// Status returns the liveness view for one user.
func (r *PresenceRegistry) Status(userID string) PresenceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	last, ok := r.entries[userID]
	return PresenceStatus{
		UserID:   userID,
		IsOnline: ok && time.Since(last) < r.ttl,
		LastSeen: last,
	}
}

// Snapshot returns statuses for a set of users in one pass.
func (r *PresenceRegistry) Snapshot(userIDs []string) []PresenceStatus {
	out := make([]PresenceStatus, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, r.Status(id))
	}
	return out
}

// Start subscribes the registry to the presence topic and runs the expiry
// sweep until ctx is cancelled. The returned error is only a subscription
// failure; sweep runs in the background.
func (r *PresenceRegistry) Start(ctx context.Context, ch Channel) error {
	unsubscribe, err := ch.Subscribe(PresenceTopic, func(_ string, payload []byte) {
		var hb models.PresenceHeartbeat
		if err := json.Unmarshal(payload, &hb); err != nil {
			logger.Warn().Err(err).Msg("Dropping malformed presence heartbeat")
			return
		}
		r.Apply(hb)
	})
	if err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(r.ttl)
		defer ticker.Stop()
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
	return nil
}

func (r *PresenceRegistry) sweep() {
	cutoff := time.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, last := range r.entries {
		if last.Before(cutoff) {
			delete(r.entries, id)
		}
	}
}
