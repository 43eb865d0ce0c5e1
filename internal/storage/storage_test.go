package storage

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testGroup = "12036304@g.us"
	testUser  = "491555001@s.whatsapp.net"
	otherUser = "491555002@s.whatsapp.net"
)

// newTestDB opens a throwaway database for one test. A file in the test's
// temp dir is used instead of :memory: so the connection pool sees one
// database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	return db
}
