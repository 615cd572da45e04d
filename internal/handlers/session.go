package handlers

import (
	"net/http"

	"github.com/65160020/swapup-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// StartSession opens a chat session with a partner, or returns the
// existing one — calling it twice for the same pair yields the same
// session id.
func StartSession(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var req struct {
		PartnerID string `json:"partnerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := services.StartSession(userId, req.PartnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// ListSessions returns the user's non-closed sessions ordered by latest
// activity, with partner profiles and unread counts.
func ListSessions(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	summaries, err := services.ListSessions(userId)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

// GetSession returns one session's detail for a participant.
func GetSession(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	sessionId := c.Param("id")

	session, err := services.GetSession(sessionId, userId)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}
