package services

import (
	"testing"

	"github.com/65160020/swapup-backend/internal/database"
	"github.com/65160020/swapup-backend/internal/migrations"
	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/internal/realtime"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	database.DB = db
	database.DB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Message{},
		&models.Review{},
	)
	migrations.NewMigrator(database.DB).Run()
	SetEventChannel(realtime.NewMemoryChannel())
	return db
}

// The closure gate must not lose a concurrent reviewer's addition: when the
// partner's review lands between the gate's read and its guarded write, the
// write misses, the gate re-reads and the session still closes with both
// participants in reviewed_by.
func TestSubmitReview_ConcurrentReviewerContention(t *testing.T) {
	db := setupServiceTestDB(t)

	database.DB.Create(&models.User{ID: "rvc_a", Email: "rvc_a@example.com"})
	database.DB.Create(&models.User{ID: "rvc_b", Email: "rvc_b@example.com"})
	s := models.Session{UserAID: "rvc_a", UserBID: "rvc_b", Status: models.SessionActive, ReviewedBy: []string{}}
	database.DB.Create(&s)

	// Inject the partner's state advance right before A's version-guarded
	// update executes, exactly the interleaving a concurrent reviewer
	// produces.
	contended := false
	db.Callback().Update().Before("gorm:update").Register("test_review_contention", func(tx *gorm.DB) {
		if contended {
			return
		}
		if _, ok := tx.Statement.Model.(*models.Session); !ok {
			return
		}
		contended = true
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"UPDATE sessions SET reviewed_by = ?, status = ?, version = version + 1 WHERE id = ?",
			pq.StringArray{"rvc_b"}, models.SessionEnded, s.ID,
		)
	})

	updated, err := SubmitReview(s.ID, "rvc_a", ReviewInput{Rating: 5})
	assert.NoError(t, err)
	assert.True(t, contended)

	// Closed exactly when reviewed_by covers both participants, with
	// neither reviewer's addition lost.
	assert.Equal(t, models.SessionClosed, updated.Status)
	assert.Contains(t, updated.ReviewedBy, "rvc_a")
	assert.Contains(t, updated.ReviewedBy, "rvc_b")

	var stored models.Session
	database.DB.First(&stored, "id = ?", s.ID)
	assert.Equal(t, models.SessionClosed, stored.Status)
	assert.True(t, stored.FullyReviewed())
	assert.Equal(t, 2, stored.Version)
}
