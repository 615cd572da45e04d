package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/65160020/swapup-backend/internal/database"
	"github.com/65160020/swapup-backend/internal/migrations"
	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/internal/realtime"
	"github.com/65160020/swapup-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB initializes an in-memory SQLite DB plus an in-process event
// channel. The shared cache keeps data across connections within a test
// binary, so tests use unique IDs.
func SetupTestDB() {
	db, _ := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	database.DB = db
	database.DB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Message{},
		&models.Review{},
	)
	migrations.NewMigrator(database.DB).Run()

	ch := realtime.NewMemoryChannel()
	services.SetEventChannel(ch)

	presence := realtime.NewPresenceRegistry(realtime.PresenceTTL)
	typing := realtime.NewTypingTracker(realtime.TypingWindow)
	presence.Start(context.Background(), ch)
	typing.Start(context.Background(), ch)
	InitRealtime(ch, presence, typing)
}

// testCtx builds a gin test context with an authenticated user, an optional
// JSON body and route params.
func testCtx(method, target string, body interface{}, userID string, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	c.Request, _ = http.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userId", userID)
	c.Params = params
	return c, w
}

func createTestUser(id string) models.User {
	u := models.User{ID: id, Email: id + "@example.com", DisplayName: id}
	database.DB.Create(&u)
	return u
}

func createTestSession(userA, userB, status string) models.Session {
	s := models.Session{UserAID: userA, UserBID: userB, Status: status, ReviewedBy: []string{}}
	database.DB.Create(&s)
	return s
}
