package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHeartbeat_FeedsPresence(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("hb_a")

	c, w := testCtx("POST", "/api/presence/heartbeat", nil, "hb_a", nil)
	Heartbeat(c)
	assert.Equal(t, http.StatusOK, w.Code)

	// The in-memory channel delivers synchronously, so the registry has
	// already merged the heartbeat.
	c2, w2 := testCtx("GET", "/api/presence?userIds=hb_a,hb_ghost", nil, "hb_a", nil)
	GetPresence(c2)
	assert.Equal(t, http.StatusOK, w2.Code)

	var resp struct {
		Presence []realtime.PresenceStatus `json:"presence"`
	}
	json.Unmarshal(w2.Body.Bytes(), &resp)
	assert.Len(t, resp.Presence, 2)
	if len(resp.Presence) == 2 {
		assert.True(t, resp.Presence[0].IsOnline)
		assert.False(t, resp.Presence[1].IsOnline)
	}
}

func TestGetPresence_RequiresIDs(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	c, w := testCtx("GET", "/api/presence?userIds=", nil, "anyone", nil)
	GetPresence(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTyping_BroadcastAndDecayOnStop(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("ty_a")
	createTestUser("ty_b")
	s := createTestSession("ty_a", "ty_b", models.SessionActive)

	c, w := testCtx("POST", "/api/sessions/"+s.ID+"/typing",
		gin.H{"isTyping": true}, "ty_b", gin.Params{{Key: "id", Value: s.ID}})
	PublishTyping(c)
	assert.Equal(t, http.StatusOK, w.Code)

	// The partner sees the flag; the typist does not see themselves.
	get := func(viewer string) []string {
		c, w := testCtx("GET", "/api/sessions/"+s.ID+"/typing", nil, viewer,
			gin.Params{{Key: "id", Value: s.ID}})
		GetTyping(c)
		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Typing []string `json:"typing"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		return resp.Typing
	}

	assert.Equal(t, []string{"ty_b"}, get("ty_a"))
	assert.Empty(t, get("ty_b"))

	// An explicit stop clears the flag before the window expires.
	c2, _ := testCtx("POST", "/api/sessions/"+s.ID+"/typing",
		gin.H{"isTyping": false}, "ty_b", gin.Params{{Key: "id", Value: s.ID}})
	PublishTyping(c2)
	assert.Empty(t, get("ty_a"))
}

func TestTyping_ParticipantOnly(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("ty2_a")
	createTestUser("ty2_b")
	createTestUser("ty2_x")
	s := createTestSession("ty2_a", "ty2_b", models.SessionActive)

	c, w := testCtx("POST", "/api/sessions/"+s.ID+"/typing",
		gin.H{"isTyping": true}, "ty2_x", gin.Params{{Key: "id", Value: s.ID}})
	PublishTyping(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
