package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/internal/realtime"
	"github.com/65160020/swapup-backend/internal/services"
	"github.com/65160020/swapup-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Shared realtime state, wired from main. Nil-safe: without a broadcast
// backend presence and typing simply report nothing.
var (
	Events   realtime.Channel
	Presence *realtime.PresenceRegistry
	Typing   *realtime.TypingTracker
)

// InitRealtime installs the channel and the consumer-side registries.
func InitRealtime(ch realtime.Channel, presence *realtime.PresenceRegistry, typing *realtime.TypingTracker) {
	Events = ch
	Presence = presence
	Typing = typing
}

// Heartbeat publishes the caller's presence heartbeat onto the shared
// broadcast domain. Clients call it on session-view mount and every
// HeartbeatInterval afterwards; going silent is the only offline signal.
func Heartbeat(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	if Events == nil {
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	hb := models.PresenceHeartbeat{UserID: userId, OnlineAt: time.Now()}
	if err := Events.Publish(c.Request.Context(), realtime.PresenceTopic, hb); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish presence heartbeat")
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetPresence returns liveness for a comma-separated set of user ids.
func GetPresence(c *gin.Context) {
	ids := strings.Split(c.Query("userIds"), ",")
	filtered := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userIds required"})
		return
	}

	if Presence == nil {
		c.JSON(http.StatusOK, gin.H{"presence": []realtime.PresenceStatus{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"presence": Presence.Snapshot(filtered)})
}

// PublishTyping broadcasts a typing signal on the session's topic.
// Fire-and-forget: receivers decay the flag on their own after the typing
// window, so a lost "stopped" event cannot wedge the indicator.
func PublishTyping(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	sessionId := c.Param("id")

	var req struct {
		IsTyping bool `json:"isTyping"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := services.GetSession(sessionId, userId); err != nil {
		respondError(c, err)
		return
	}

	if Events != nil {
		sig := models.TypingSignal{SessionID: sessionId, UserID: userId, IsTyping: req.IsTyping}
		if err := Events.Publish(c.Request.Context(), realtime.TypingTopic(sessionId), sig); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish typing signal")
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetTyping reports who (besides the caller) currently has a live typing
// flag in the session.
func GetTyping(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	sessionId := c.Param("id")

	if _, err := services.GetSession(sessionId, userId); err != nil {
		respondError(c, err)
		return
	}

	typing := []string{}
	if Typing != nil {
		for _, id := range Typing.TypingUsers(sessionId) {
			if id != userId {
				typing = append(typing, id)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"typing": typing})
}
