package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"crypto_backend/internal/shared/retry"
)

type testModel struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func memoryOpener(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
}

// TestOpenerFor はドライバー名に応じたOpenerが返されることを検証します。
func TestOpenerFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		driver  string
		wantErr bool
	}{
		{"sqlite", false},
		{"", false},
		{"postgres", false},
		{"POSTGRES", false},
		{"mysql", true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			t.Parallel()
			opener, err := OpenerFor(tt.driver, &gorm.Config{})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, opener)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, opener)
		})
	}
}

// TestConnectWithRetry_SuccessOnFirstTry は初回接続成功時にリトライせずDBを返すことを検証します。
func TestConnectWithRetry_SuccessOnFirstTry(t *testing.T) {
	t.Parallel()

	attempts := 0
	opener := func(dsn string) (*gorm.DB, error) {
		attempts++
		return memoryOpener(dsn)
	}

	db, err := ConnectWithRetry(context.Background(), ":memory:", retry.Constant(3, time.Millisecond), opener)

	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, 1, attempts)
}

// TestConnectWithRetry_RetriesOnFailure は接続失敗時にリトライして最終的に成功することを検証します。
func TestConnectWithRetry_RetriesOnFailure(t *testing.T) {
	t.Parallel()

	attempts := 0
	opener := func(dsn string) (*gorm.DB, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return memoryOpener(dsn)
	}

	db, err := ConnectWithRetry(context.Background(), ":memory:", retry.Constant(5, time.Millisecond), opener)

	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, 3, attempts)
}

// TestConnectWithRetry_GivesUp は試行回数を使い切った後にエラーが返されることを検証します。
func TestConnectWithRetry_GivesUp(t *testing.T) {
	t.Parallel()

	attempts := 0
	opener := func(dsn string) (*gorm.DB, error) {
		attempts++
		return nil, errors.New("connection refused")
	}

	_, err := ConnectWithRetry(context.Background(), "ignored", retry.Constant(4, time.Millisecond), opener)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 4, attempts)
}

// TestOpen_SQLiteWithMigration はsqliteで接続しマイグレーションが実行されることを検証します。
func TestOpen_SQLiteWithMigration(t *testing.T) {
	t.Parallel()

	cfg := Config{Driver: DriverSQLite, DSN: "file:open_test?mode=memory&cache=shared", AutoMigrate: true}

	db, err := Open(context.Background(), cfg, retry.Policy{}, &testModel{})
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&testModel{}))
}

// TestOpen_UnsupportedDriver は未対応のドライバーでエラーが返されることを検証します。
func TestOpen_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Driver: "oracle"}, retry.Policy{})
	assert.Error(t, err)
}
