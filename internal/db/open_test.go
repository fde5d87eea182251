package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	require.Equal(t, "file:/tmp/chat.db", sqliteDSN("sqlite:///tmp/chat.db"))
	require.Equal(t, ":memory:", sqliteDSN(":memory:"))
}

func TestOpenPureSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := Open(Config{DataSource: "sqlite:///" + path, LogLevel: "silent"})
	require.NoError(t, err)
	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	require.Equal(t, 1, one)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
