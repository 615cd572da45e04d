package migrations

import (
	"gorm.io/gorm"
)

// Migration001ActivePairUnique enforces at most one non-closed session per
// unordered participant pair. Done via a partial unique index because
// closed sessions are kept forever and must not collide with a new session
// between the same pair. StartSession relies on the uniqueness violation to
// resolve the create/create race: the losing writer re-queries and returns
// the winner's row.
func Migration001ActivePairUnique() Migration {
	return Migration{
		ID:   "001_active_pair_unique",
		Name: "Unique active session per participant pair",
		Up: func(db *gorm.DB) error {
			// sqlite (tests) supports the same partial-index syntax
			return db.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_pair
				ON sessions (pair_key)
				WHERE status <> 'closed'
			`).Error
		},
		Down: func(db *gorm.DB) error {
			return db.Exec(`DROP INDEX IF EXISTS idx_sessions_active_pair`).Error
		},
	}
}
