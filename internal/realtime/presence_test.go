package realtime

import (
	"testing"
	"time"

	"github.com/65160020/swapup-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPresence_LastWriteWins(t *testing.T) {
	r := NewPresenceRegistry(PresenceTTL)

	now := time.Now()
	r.Apply(models.PresenceHeartbeat{UserID: "u1", OnlineAt: now})
	// A delayed, older heartbeat must not move last-seen backwards.
	r.Apply(models.PresenceHeartbeat{UserID: "u1", OnlineAt: now.Add(-10 * time.Second)})

	st := r.Status("u1")
	assert.True(t, st.IsOnline)
	assert.Equal(t, now, st.LastSeen)
}

func TestPresence_ExpiresAfterTTL(t *testing.T) {
	r := NewPresenceRegistry(50 * time.Millisecond)

	r.Apply(models.PresenceHeartbeat{UserID: "u1", OnlineAt: time.Now()})
	assert.True(t, r.Status("u1").IsOnline)

	time.Sleep(60 * time.Millisecond)
	assert.False(t, r.Status("u1").IsOnline)

	// A fresh heartbeat revives the user.
	r.Apply(models.PresenceHeartbeat{UserID: "u1", OnlineAt: time.Now()})
	assert.True(t, r.Status("u1").IsOnline)
}

func TestPresence_SweepDropsStaleEntries(t *testing.T) {
	r := NewPresenceRegistry(10 * time.Millisecond)

	r.Apply(models.PresenceHeartbeat{UserID: "u1", OnlineAt: time.Now().Add(-time.Second)})
	r.Apply(models.PresenceHeartbeat{UserID: "u2", OnlineAt: time.Now()})
	r.sweep()

	r.mu.RLock()
	_, hasStale := r.entries["u1"]
	_, hasFresh := r.entries["u2"]
	r.mu.RUnlock()
	assert.False(t, hasStale)
	assert.True(t, hasFresh)
}

func TestPresence_Snapshot(t *testing.T) {
	r := NewPresenceRegistry(PresenceTTL)
	r.Apply(models.PresenceHeartbeat{UserID: "u1", OnlineAt: time.Now()})

	snap := r.Snapshot([]string{"u1", "ghost"})
	assert.Len(t, snap, 2)
	assert.True(t, snap[0].IsOnline)
	assert.False(t, snap[1].IsOnline)
	assert.True(t, snap[1].LastSeen.IsZero())
}
