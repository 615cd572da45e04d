package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/65160020/swapup-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Topic layout. Typing is scoped per session, presence and session events
// share one logical broadcast domain (single-node by design).
const (
	PresenceTopic = "presence"
)

func TypingTopic(sessionID string) string {
	return "typing:" + sessionID
}

func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}

// Handler receives the concrete topic a payload arrived on (relevant for
// pattern subscriptions) and the raw JSON payload.
type Handler func(topic string, payload []byte)

// Channel is the publish/subscribe primitive used for typing broadcast,
// presence heartbeats and message push events. It is independent of the
// relational store. A topic ending in "*" subscribes to the whole prefix.
// Subscribe returns an unsubscribe func; callers must invoke it on
// teardown to avoid leaking the subscription.
type Channel interface {
	Publish(ctx context.Context, topic string, v interface{}) error
	Subscribe(topic string, h Handler) (func(), error)
}

// RedisChannel backs Channel with Redis pub/sub.
type RedisChannel struct {
	rdb *redis.Client
}

func NewRedisChannel(rdb *redis.Client) *RedisChannel {
	return &RedisChannel{rdb: rdb}
}

func (c *RedisChannel) Publish(ctx context.Context, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, topic, payload).Err()
}

func (c *RedisChannel) Subscribe(topic string, h Handler) (func(), error) {
	ctx := context.Background()

	var pubsub *redis.PubSub
	if strings.HasSuffix(topic, "*") {
		pubsub = c.rdb.PSubscribe(ctx, topic)
	} else {
		pubsub = c.rdb.Subscribe(ctx, topic)
	}

	// Force the subscription to be established before returning, so events
	// published right after Subscribe are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	go func() {
		for msg := range pubsub.Channel() {
			h(msg.Channel, []byte(msg.Payload))
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			logger.Warn().Err(err).Str("topic", topic).Msg("Failed to close pubsub subscription")
		}
	}, nil
}

// MemoryChannel is an in-process Channel used in tests and single-binary
// deployments without Redis. Delivery is synchronous.
type MemoryChannel struct {
	mu   sync.RWMutex
	subs map[int]*memorySub
	next int
}

type memorySub struct {
	topic string
	h     Handler
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{subs: make(map[int]*memorySub)}
}

func (c *MemoryChannel) Publish(ctx context.Context, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.RLock()
	matched := make([]Handler, 0, len(c.subs))
	for _, s := range c.subs {
		if topicMatches(s.topic, topic) {
			matched = append(matched, s.h)
		}
	}
	c.mu.RUnlock()

	for _, h := range matched {
		h(topic, payload)
	}
	return nil
}

func (c *MemoryChannel) Subscribe(topic string, h Handler) (func(), error) {
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = &memorySub{topic: topic, h: h}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}, nil
}

func topicMatches(sub, topic string) bool {
	if strings.HasSuffix(sub, "*") {
		return strings.HasPrefix(topic, strings.TrimSuffix(sub, "*"))
	}
	return sub == topic
}
