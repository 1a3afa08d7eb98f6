package router

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	klineshandler "crypto_backend/internal/feature/klines/transport/handler"
	marketshandler "crypto_backend/internal/feature/markets/transport/handler"
	healthhandler "crypto_backend/internal/platform/http/handler"
	"crypto_backend/internal/platform/http/middleware"
)

// Options はルーター全体に適用する設定です。
type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string // 空の場合はCORSヘッダーを付与しない
}

func NewRouter(opts Options, health *healthhandler.HealthHandler, charts *klineshandler.ChartHandler,
	markets *marketshandler.MarketsHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(opts.Logger))

	// スマホアプリ以外（Web版など）から呼ぶ場合のみ有効化
	if len(opts.AllowedOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = opts.AllowedOrigins
		cfg.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
		cfg.AddExposeHeaders(middleware.RequestIDHeader)
		r.Use(cors.New(cfg))
	}

	// 導通確認用
	r.Match([]string{"GET", "HEAD", "OPTIONS"}, "/healthz", health.Health)
	// DB・Redisの疎通確認
	r.GET("/readyz", health.Ready)

	// チャート
	r.GET("/charts/:symbol", charts.GetChart)
	r.GET("/charts/:symbol/snapshot", charts.GetSnapshot)

	// 銘柄一覧・検索
	r.GET("/markets", markets.List)
	r.GET("/search", markets.Search)
	r.GET("/coins", markets.ByIDs)

	return r
}
