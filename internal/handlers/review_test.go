package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/65160020/swapup-backend/internal/database"
	"github.com/65160020/swapup-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func submitReview(sessionID, userID string, body gin.H) *sessionResponse {
	c, w := testCtx("POST", "/api/sessions/"+sessionID+"/reviews", body, userID, gin.Params{{Key: "id", Value: sessionID}})
	SubmitReview(c)
	resp := &sessionResponse{Code: w.Code}
	json.Unmarshal(w.Body.Bytes(), &resp.Body)
	return resp
}

type sessionResponse struct {
	Code int
	Body struct {
		Session models.Session `json:"session"`
		Error   string         `json:"error"`
		State   string         `json:"state"`
	}
}

func TestSubmitReview_EndsThenCloses(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("rv1_a")
	createTestUser("rv1_b")
	s := createTestSession("rv1_a", "rv1_b", models.SessionActive)

	// First review: active -> ended.
	resp := submitReview(s.ID, "rv1_a", gin.H{"rating": 5, "comment": "great mentor", "politeness": 5})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, models.SessionEnded, resp.Body.Session.Status)
	assert.Contains(t, resp.Body.Session.ReviewedBy, "rv1_a")
	assert.NotContains(t, resp.Body.Session.ReviewedBy, "rv1_b")

	// Second review from the partner: ended -> closed.
	resp2 := submitReview(s.ID, "rv1_b", gin.H{"rating": 4})
	assert.Equal(t, http.StatusOK, resp2.Code)
	assert.Equal(t, models.SessionClosed, resp2.Body.Session.Status)
	assert.Contains(t, resp2.Body.Session.ReviewedBy, "rv1_a")
	assert.Contains(t, resp2.Body.Session.ReviewedBy, "rv1_b")

	// Closed exactly when reviewed_by covers both participants.
	var stored models.Session
	database.DB.First(&stored, "id = ?", s.ID)
	assert.Equal(t, models.SessionClosed, stored.Status)
	assert.True(t, stored.FullyReviewed())
}

func TestSubmitReview_Conflicts(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("rv2_a")
	createTestUser("rv2_b")
	s := createTestSession("rv2_a", "rv2_b", models.SessionActive)

	first := submitReview(s.ID, "rv2_a", gin.H{"rating": 5})
	assert.Equal(t, http.StatusOK, first.Code)

	// Same reviewer again: conflict, state attached, log untouched.
	dup := submitReview(s.ID, "rv2_a", gin.H{"rating": 1})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, models.SessionEnded, dup.Body.State)

	var reviews int64
	database.DB.Model(&models.Review{}).Where("session_id = ?", s.ID).Count(&reviews)
	assert.Equal(t, int64(1), reviews)

	// After closure neither party can review.
	second := submitReview(s.ID, "rv2_b", gin.H{"rating": 4})
	assert.Equal(t, http.StatusOK, second.Code)

	late := submitReview(s.ID, "rv2_b", gin.H{"rating": 2})
	assert.Equal(t, http.StatusConflict, late.Code)
	assert.Equal(t, models.SessionClosed, late.Body.State)
}

func TestSubmitReview_RatingBounds(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("rv3_a")
	createTestUser("rv3_b")
	s := createTestSession("rv3_a", "rv3_b", models.SessionActive)

	resp := submitReview(s.ID, "rv3_a", gin.H{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Out-of-range dimension scores are stored as NULL, not rejected.
	ok := submitReview(s.ID, "rv3_a", gin.H{"rating": 5, "creativity": 9, "friendliness": 3})
	assert.Equal(t, http.StatusOK, ok.Code)

	var review models.Review
	database.DB.First(&review, "session_id = ?", s.ID)
	assert.Nil(t, review.Creativity)
	if assert.NotNil(t, review.Friendliness) {
		assert.Equal(t, 3, *review.Friendliness)
	}
}

func TestSubmitReview_AggregatesOntoProfile(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("rv4_a")
	reviewee := createTestUser("rv4_b")
	createTestUser("rv4_c")

	// A pre-existing duplicate pair of rows from the same reviewer. The
	// mean counts every row, duplicates included.
	database.DB.Create(&models.Review{SessionID: "rv4_old", ReviewerID: "rv4_c", RevieweeID: reviewee.ID, Rating: 2})
	database.DB.Create(&models.Review{SessionID: "rv4_old", ReviewerID: "rv4_c", RevieweeID: reviewee.ID, Rating: 2})

	s := createTestSession("rv4_a", reviewee.ID, models.SessionActive)
	resp := submitReview(s.ID, "rv4_a", gin.H{"rating": 5})
	assert.Equal(t, http.StatusOK, resp.Code)

	var updated models.User
	database.DB.First(&updated, "id = ?", reviewee.ID)
	assert.Equal(t, 3, updated.ReviewsCount)
	assert.InDelta(t, 3.0, updated.Rating, 0.001) // (2+2+5)/3
}
