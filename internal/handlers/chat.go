package handlers

import (
	"net/http"

	"github.com/65160020/swapup-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// GetMessages returns the session's ordered log from the caller's side,
// marking the partner's unread messages as read in the same pass. An
// optional ?q= narrows the result to messages containing the term.
func GetMessages(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	sessionId := c.Param("id")

	messages, err := services.ReconcileMessages(sessionId, userId, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage appends one message to an active session.
func SendMessage(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	sessionId := c.Param("id")

	var req struct {
		Kind    string `json:"kind" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := services.SendMessage(sessionId, userId, req.Kind, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ReplyToMessage sends a reply carrying a snapshot of the quoted message.
func ReplyToMessage(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	sessionId := c.Param("id")
	targetId := c.Param("messageId")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := services.ReplyToMessage(sessionId, userId, targetId, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkRead flips every unread partner message in the session in one
// aggregate update and reports how many were affected.
func MarkRead(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	sessionId := c.Param("id")

	if _, err := services.GetSession(sessionId, userId); err != nil {
		respondError(c, err)
		return
	}

	affected, err := services.MarkSessionRead(sessionId, userId)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"markedRead": affected})
}

// DeleteMessage removes one of the caller's own messages. Hard delete, no
// tombstone.
func DeleteMessage(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	messageId := c.Param("messageId")

	if err := services.DeleteMessage(messageId, userId); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": messageId})
}

// ToggleReaction flips one emoji on a message's reaction map.
func ToggleReaction(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	messageId := c.Param("messageId")

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := services.ToggleReaction(messageId, userId, req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}
