package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crypto_backend/internal/app/di"
	"crypto_backend/internal/feature/klines/domain/entity"
	"crypto_backend/internal/feature/klines/transport/handler"
	"crypto_backend/internal/feature/klines/usecase"
)

var (
	window    string
	maxPoints int
)

var chartCmd = &cobra.Command{
	Use:   "chart SYMBOL",
	Short: "Aggregate the chart of SYMBOL for a window and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if maxPoints > 0 {
			cfg.Chart.MaxPointsPerRequest = maxPoints
		}
		client, err := di.NewHTTPClient(cfg)
		if err != nil {
			return err
		}

		// 単発実行のためRedisとDBは使わない
		agg := di.NewAggregator(cfg, di.NewKlineFetcher(cfg, client, nil))
		result := agg.Aggregate(cmd.Context(), args[0], entity.ParseTimeWindow(window), cfg.Chart.MaxPointsPerRequest, time.Now())
		if result.Empty() {
			return fmt.Errorf("%s %s: %w", result.Symbol, result.Window, usecase.ErrEmptyResult)
		}
		return writeJSON(cmd.OutOrStdout(), handler.ToChartResponse(result))
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot SYMBOL",
	Short: "Print the last stored snapshot of SYMBOL as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := di.OpenDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		// スナップショットは正規化済みの銘柄で保存されている
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		result, err := di.NewSnapshotRepository(db).Find(cmd.Context(), symbol, entity.ParseTimeWindow(window))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), handler.ToChartResponse(result))
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the resolved range and request chunks of a window without fetching",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := entity.ParseTimeWindow(window)
		r := usecase.Resolve(w, time.Now())
		if maxPoints <= 0 {
			maxPoints = usecase.DefaultMaxPointsPerRequest
		}

		type chunk struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		}
		out := struct {
			Window   entity.TimeWindow `json:"window"`
			Interval entity.Interval   `json:"interval"`
			Start    time.Time         `json:"start"`
			End      time.Time         `json:"end"`
			Chunks   []chunk           `json:"chunks"`
		}{Window: w, Interval: r.Interval, Start: r.Start, End: r.End}
		for c := range usecase.PlanSeq(r, maxPoints) {
			out.Chunks = append(out.Chunks, chunk{Start: c.Start, End: c.End})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{chartCmd, snapshotCmd, planCmd} {
		c.Flags().StringVarP(&window, "window", "w", string(entity.Window24H), "time window: 24H, 1W, 1M, 6M, 1Y or 5Y")
		rootCmd.AddCommand(c)
	}
	chartCmd.Flags().IntVar(&maxPoints, "max-points", 0, "points per upstream request (default from config)")
	planCmd.Flags().IntVar(&maxPoints, "max-points", 0, "points per upstream request")
}
