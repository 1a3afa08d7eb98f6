package usecase

import (
	"errors"
	"fmt"
	"time"

	"crypto_backend/internal/feature/klines/domain/entity"
)

var (
	// ErrTransientFetch はチャンク単位の取得失敗を表します。集計処理は中断されません。
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrRateLimited は上流APIがレートリミット（HTTP 429/418）を返したことを表します。
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrEmptyResult は全チャンクを試行した後も系列が空であることを表します。
	ErrEmptyResult = errors.New("no data available")

	// ErrSnapshotNotFound は保存済みスナップショットが存在しないことを表します。
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// TransientFetchError は1チャンクの取得失敗を、対象の銘柄と範囲とともに保持します。
type TransientFetchError struct {
	Symbol string
	Chunk  entity.Chunk
	Err    error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s [%s, %s]: %v",
		e.Symbol,
		e.Chunk.Start.UTC().Format(time.RFC3339),
		e.Chunk.End.UTC().Format(time.RFC3339),
		e.Err,
	)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Is により errors.Is(err, ErrTransientFetch) が成立します。
func (e *TransientFetchError) Is(target error) bool { return target == ErrTransientFetch }
