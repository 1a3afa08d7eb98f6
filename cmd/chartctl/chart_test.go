package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	klinesadapters "crypto_backend/internal/feature/klines/adapters"
	"crypto_backend/internal/feature/klines/domain/entity"
)

func TestPlanCommand(t *testing.T) {
	tests := []struct {
		args       []string
		wantWindow string
		wantChunks int
	}{
		{[]string{"plan", "--window", "1W"}, "1W", 1},
		{[]string{"plan", "-w", "24h", "--max-points", "1000"}, "24H", 2},
		{[]string{"plan", "--window", "5Y"}, "5Y", 2},
		{[]string{"plan", "--window", "bogus", "--max-points", "100"}, "24H", 15},
	}

	for _, tt := range tests {
		t.Run(tt.wantWindow, func(t *testing.T) {
			maxPoints = 0

			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs(tt.args)
			require.NoError(t, rootCmd.Execute())

			var got struct {
				Window   string `json:"window"`
				Interval string `json:"interval"`
				Chunks   []struct {
					Start string `json:"start"`
					End   string `json:"end"`
				} `json:"chunks"`
			}
			require.NoError(t, json.Unmarshal(out.Bytes(), &got))
			assert.Equal(t, tt.wantWindow, got.Window)
			assert.Len(t, got.Chunks, tt.wantChunks)
		})
	}
}

// seedSnapshot はsqliteファイルに1件のスナップショットを保存し、そのパスを返します。
func seedSnapshot(t *testing.T, result entity.AggregationResult) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chart.db")

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(klinesadapters.Models()...))
	require.NoError(t, klinesadapters.NewSnapshotRepository(gdb).Save(context.Background(), result))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

// TestSnapshotCommand_NormalizesSymbol は小文字や前後の空白を含む銘柄でも保存済みのスナップショットを取得できることを検証します。
func TestSnapshotCommand_NormalizesSymbol(t *testing.T) {
	openTime := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	path := seedSnapshot(t, entity.AggregationResult{
		Symbol: "BTC",
		Window: entity.Window1W,
		Range: entity.ResolvedRange{
			Start:    openTime,
			End:      openTime.Add(time.Hour),
			Interval: entity.Interval1h,
		},
		Series: []entity.PricePoint{{
			OpenTime:  openTime,
			Open:      "94000.10",
			High:      "94100.00",
			Low:       "93950.55",
			Close:     "94050.00",
			CloseTime: openTime.Add(time.Hour - time.Millisecond),
		}},
	})
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", path)
	t.Setenv("RUN_MIGRATIONS", "false")

	for _, arg := range []string{"BTC", "btc", " Btc "} {
		t.Run(arg, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs([]string{"snapshot", arg, "--window", "1W"})
			require.NoError(t, rootCmd.Execute())

			var got struct {
				Symbol string `json:"symbol"`
				Window string `json:"window"`
				Points []struct {
					Close string `json:"close"`
				} `json:"points"`
			}
			require.NoError(t, json.Unmarshal(out.Bytes(), &got))
			assert.Equal(t, "BTC", got.Symbol)
			assert.Equal(t, "1W", got.Window)
			require.Len(t, got.Points, 1)
			assert.Equal(t, "94050.00", got.Points[0].Close)
		})
	}
}
