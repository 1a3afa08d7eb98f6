package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"crypto_backend/internal/feature/klines/domain/entity"
	"crypto_backend/internal/feature/klines/usecase"
)

type snapshotGorm struct {
	db *gorm.DB
}

var _ usecase.SnapshotRepository = (*snapshotGorm)(nil)

func NewSnapshotRepository(db *gorm.DB) *snapshotGorm {
	return &snapshotGorm{db: db}
}

// SnapshotModel is the last published series header for one symbol and window.
type SnapshotModel struct {
	ID           uint   `gorm:"primaryKey"`
	Symbol       string `gorm:"size:32;not null;uniqueIndex:snapshot_sym_win,priority:1"`
	Window       string `gorm:"column:time_window;size:8;not null;uniqueIndex:snapshot_sym_win,priority:2"`
	Interval     string `gorm:"size:8;not null"`
	RangeStart   int64  `gorm:"not null"`
	RangeEnd     int64  `gorm:"not null"`
	Partial      bool   `gorm:"not null;default:false"`
	FailedChunks string `gorm:"type:text"`
	UpdatedAt    time.Time

	Points []SnapshotPointModel `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE"`
}

func (SnapshotModel) TableName() string {
	return "chart_snapshots"
}

// SnapshotPointModel is one candle of a snapshot. Times are unix milliseconds.
type SnapshotPointModel struct {
	ID         uint   `gorm:"primaryKey"`
	SnapshotID uint   `gorm:"not null;index:snapshot_point_order,priority:1"`
	OpenTime   int64  `gorm:"not null;index:snapshot_point_order,priority:2"`
	Open       string `gorm:"size:40;not null"`
	High       string `gorm:"size:40;not null"`
	Low        string `gorm:"size:40;not null"`
	Close      string `gorm:"size:40;not null"`
	CloseTime  int64  `gorm:"not null"`
}

func (SnapshotPointModel) TableName() string {
	return "chart_snapshot_points"
}

// Models lists the tables owned by this adapter for AutoMigrate.
func Models() []any {
	return []any{&SnapshotModel{}, &SnapshotPointModel{}}
}

type chunkRow struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func toPointModels(series []entity.PricePoint) []SnapshotPointModel {
	out := make([]SnapshotPointModel, 0, len(series))
	for _, p := range series {
		out = append(out, SnapshotPointModel{
			OpenTime:  p.OpenTime.UnixMilli(),
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			CloseTime: p.CloseTime.UnixMilli(),
		})
	}
	return out
}

func encodeChunks(chunks []entity.Chunk) (string, error) {
	rows := make([]chunkRow, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, chunkRow{Start: c.Start.UnixMilli(), End: c.End.UnixMilli()})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeChunks(s string) ([]entity.Chunk, error) {
	if s == "" {
		return nil, nil
	}
	var rows []chunkRow
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		return nil, err
	}
	out := make([]entity.Chunk, 0, len(rows))
	for _, r := range rows {
		out = append(out, entity.Chunk{Start: time.UnixMilli(r.Start).UTC(), End: time.UnixMilli(r.End).UTC()})
	}
	return out, nil
}

// Save replaces the snapshot of result.Symbol and result.Window in one transaction.
func (r *snapshotGorm) Save(ctx context.Context, result entity.AggregationResult) error {
	failed, err := encodeChunks(result.FailedChunks)
	if err != nil {
		return fmt.Errorf("encode failed chunks: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m SnapshotModel
		err := tx.Where("symbol = ? AND time_window = ?", result.Symbol, string(result.Window)).First(&m).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			m = SnapshotModel{Symbol: result.Symbol, Window: string(result.Window)}
		case err != nil:
			return err
		}

		m.Interval = string(result.Range.Interval)
		m.RangeStart = result.Range.Start.UnixMilli()
		m.RangeEnd = result.Range.End.UnixMilli()
		m.Partial = result.Partial
		m.FailedChunks = failed
		if err := tx.Omit("Points").Save(&m).Error; err != nil {
			return err
		}

		if err := tx.Where("snapshot_id = ?", m.ID).Delete(&SnapshotPointModel{}).Error; err != nil {
			return err
		}
		points := toPointModels(result.Series)
		if len(points) == 0 {
			return nil
		}
		for i := range points {
			points[i].SnapshotID = m.ID
		}
		return tx.CreateInBatches(&points, 500).Error
	})
}

// Find returns the stored snapshot with its series ordered by open time.
func (r *snapshotGorm) Find(ctx context.Context, symbol string, window entity.TimeWindow) (entity.AggregationResult, error) {
	var m SnapshotModel
	err := r.db.WithContext(ctx).
		Preload("Points", func(db *gorm.DB) *gorm.DB { return db.Order("open_time ASC") }).
		Where("symbol = ? AND time_window = ?", symbol, string(window)).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.AggregationResult{}, usecase.ErrSnapshotNotFound
	}
	if err != nil {
		return entity.AggregationResult{}, err
	}

	failed, err := decodeChunks(m.FailedChunks)
	if err != nil {
		return entity.AggregationResult{}, fmt.Errorf("decode failed chunks: %w", err)
	}

	series := make([]entity.PricePoint, 0, len(m.Points))
	for _, p := range m.Points {
		series = append(series, entity.PricePoint{
			OpenTime:  time.UnixMilli(p.OpenTime).UTC(),
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			CloseTime: time.UnixMilli(p.CloseTime).UTC(),
		})
	}

	return entity.AggregationResult{
		Symbol: m.Symbol,
		Window: entity.TimeWindow(m.Window),
		Range: entity.ResolvedRange{
			Start:    time.UnixMilli(m.RangeStart).UTC(),
			End:      time.UnixMilli(m.RangeEnd).UTC(),
			Interval: entity.Interval(m.Interval),
		},
		Series:       series,
		FailedChunks: failed,
		Partial:      m.Partial,
	}, nil
}
