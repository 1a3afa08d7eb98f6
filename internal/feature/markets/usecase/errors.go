package usecase

import "errors"

var (
	// ErrNoData は上流APIが空の結果を返したことを表します。
	ErrNoData = errors.New("no data available")

	// ErrUpstream は上流APIが2xx以外を返したことを表します。
	ErrUpstream = errors.New("upstream api error")

	// ErrRateLimited は上流APIがHTTP 429を返したことを表します。
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrEmptyQuery は検索語が空であることを表します。
	ErrEmptyQuery = errors.New("search query is empty")
)
