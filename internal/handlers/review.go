package handlers

import (
	"net/http"

	"github.com/65160020/swapup-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// SubmitReview records the caller's review of their partner and advances
// the session: ended after the first review, closed once both parties have
// reviewed.
func SubmitReview(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	sessionId := c.Param("id")

	var req services.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := services.SubmitReview(sessionId, userId, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}
