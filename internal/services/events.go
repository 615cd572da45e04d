package services

import (
	"context"

	"github.com/65160020/swapup-backend/internal/realtime"
	"github.com/65160020/swapup-backend/pkg/logger"
)

// Events is the realtime channel message/session mutations are pushed on.
// Nil when no broadcast backend is configured; everything still works via
// polling reconcile, push is an optimization.
var Events realtime.Channel

func SetEventChannel(ch realtime.Channel) {
	Events = ch
}

func publishEvent(topic string, v interface{}) {
	if Events == nil {
		return
	}
	if err := Events.Publish(context.Background(), topic, v); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("Failed to publish realtime event")
	}
}
