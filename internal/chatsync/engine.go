package chatsync

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/internal/realtime"
	"github.com/65160020/swapup-backend/pkg/logger"
)

// PollInterval is the reconciliation cadence. Push events arrive between
// ticks; the poll is the safety net that makes the view converge even if
// the broadcast channel drops everything.
const PollInterval = 2 * time.Second

// Engine maintains one viewer's ordered, deduplicated view of a session's
// message log. Push events merge by message id — an event for a known id
// updates in place, an unknown id is inserted in log order, never appended
// out of order. Reconcile is idempotent: with no new data it changes
// nothing observable.
type Engine struct {
	store     Store
	channel   realtime.Channel // may be nil: poll-only operation
	sessionID string
	viewerID  string
	interval  time.Duration

	mu       sync.RWMutex
	messages []models.Message
	index    map[string]int // message id -> position in messages

	nudge chan struct{}
}

func NewEngine(store Store, channel realtime.Channel, sessionID, viewerID string) *Engine {
	return &Engine{
		store:     store,
		channel:   channel,
		sessionID: sessionID,
		viewerID:  viewerID,
		interval:  PollInterval,
		index:     make(map[string]int),
		nudge:     make(chan struct{}, 1),
	}
}

// SetInterval overrides the poll cadence (tests).
func (e *Engine) SetInterval(d time.Duration) {
	e.interval = d
}

// Run drives the engine until ctx is cancelled: an immediate reconcile,
// then the poll loop, with push events applied as they arrive. The
// subscription and timer are torn down on exit.
func (e *Engine) Run(ctx context.Context) error {
	if e.channel != nil {
		unsubscribe, err := e.channel.Subscribe(realtime.SessionTopic(e.sessionID), func(_ string, payload []byte) {
			var ev models.MessageEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				logger.Warn().Err(err).Msg("Dropping malformed message event")
				return
			}
			e.Apply(ev)
		})
		if err != nil {
			return err
		}
		defer unsubscribe()
	}

	if err := e.Reconcile(ctx); err != nil {
		logger.Warn().Err(err).Str("session", e.sessionID).Msg("Initial reconcile failed, will retry on next tick")
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-e.nudge:
		}
		if err := e.Reconcile(ctx); err != nil {
			// Surfaced only in logs; the next tick retries naturally.
			logger.Warn().Err(err).Str("session", e.sessionID).Msg("Reconcile failed")
		}
	}
}

// Reconcile fetches the authoritative log, marks the partner's unread
// messages as read, and replaces the local view with the result.
func (e *Engine) Reconcile(ctx context.Context) error {
	messages, err := e.store.FetchMessages(ctx, e.sessionID)
	if err != nil {
		return err
	}

	unseen := false
	for _, m := range messages {
		if !m.IsRead && m.SenderID != e.viewerID {
			unseen = true
			break
		}
	}

	if unseen {
		if _, err := e.store.MarkRead(ctx, e.sessionID, e.viewerID); err != nil {
			return err
		}
		if messages, err = e.store.FetchMessages(ctx, e.sessionID); err != nil {
			return err
		}
	}

	e.replace(messages)
	return nil
}

// Apply merges one push event into the view.
func (e *Engine) Apply(ev models.MessageEvent) {
	switch ev.Op {
	case models.MessageCreated, models.MessageUpdated:
		if ev.Message != nil {
			e.upsert(*ev.Message)
		}
	case models.MessageDeleted:
		if ev.Message != nil {
			e.remove(ev.Message.ID)
		}
	default:
		// Read-flag sweeps and session state changes carry no rows; let
		// the poll pick up the authoritative state right away.
		e.requestPoll()
	}
}

// Messages returns a copy of the current ordered view.
func (e *Engine) Messages() []models.Message {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// UnreadCount counts partner messages not yet marked read in the view.
func (e *Engine) UnreadCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, m := range e.messages {
		if !m.IsRead && m.SenderID != e.viewerID {
			n++
		}
	}
	return n
}

func (e *Engine) requestPoll() {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

func (e *Engine) replace(messages []models.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = messages
	e.index = make(map[string]int, len(messages))
	for i, m := range messages {
		e.index[m.ID] = i
	}
}

func (e *Engine) upsert(msg models.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i, ok := e.index[msg.ID]; ok {
		e.messages[i] = msg
		return
	}

	// Insert preserving (created_at, id) order.
	pos := sort.Search(len(e.messages), func(i int) bool {
		m := e.messages[i]
		if !m.CreatedAt.Equal(msg.CreatedAt) {
			return m.CreatedAt.After(msg.CreatedAt)
		}
		return m.ID > msg.ID
	})
	e.messages = append(e.messages, models.Message{})
	copy(e.messages[pos+1:], e.messages[pos:])
	e.messages[pos] = msg

	for i := pos; i < len(e.messages); i++ {
		e.index[e.messages[i].ID] = i
	}
}

func (e *Engine) remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.index[id]
	if !ok {
		return
	}
	e.messages = append(e.messages[:i], e.messages[i+1:]...)
	delete(e.index, id)
	for j := i; j < len(e.messages); j++ {
		e.index[e.messages[j].ID] = j
	}
}
