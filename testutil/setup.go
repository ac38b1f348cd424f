package testutil

import (
	"testing"

	"github.com/kasuganosora/roguebt/cache"
	"github.com/kasuganosora/roguebt/config"
	dbadapter "github.com/kasuganosora/roguebt/db"
	"github.com/kasuganosora/roguebt/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory SQLite database and runs
// AutoMigrate. The test is skipped when the SQLite driver is unavailable
// (it needs cgo).
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: ":memory:",
	})
	if err != nil {
		t.Skipf("SetupTestDB: sqlite unavailable: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err, "SetupTestDB: DB")
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestPubSub creates a LocalPubSub (no Redis required).
func SetupTestPubSub(t *testing.T) cache.PubSub {
	t.Helper()
	ps, err := cache.NewPubSub(config.CacheConfig{})
	require.NoError(t, err, "SetupTestPubSub: NewPubSub")
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}
