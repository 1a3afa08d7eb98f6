package entity

import "time"

// PricePoint is one candlestick of a price series.
// Prices are kept as the decimal text returned by the upstream API.
type PricePoint struct {
	OpenTime  time.Time // Start of the sampling period
	Open      string    // Opening price
	High      string    // Highest price during the period
	Low       string    // Lowest price during the period
	Close     string    // Closing price
	CloseTime time.Time // End of the sampling period
}

// ResolvedRange is the concrete time range and interval derived from a TimeWindow.
type ResolvedRange struct {
	Start    time.Time
	End      time.Time // Truncated to whole seconds
	Interval Interval
}

// Chunk is an inclusive sub-range of a ResolvedRange submitted as a single upstream request.
type Chunk struct {
	Start time.Time
	End   time.Time
}

// AggregationResult is the outcome of one aggregation run.
// Series is ordered ascending by OpenTime and holds no duplicate OpenTime.
type AggregationResult struct {
	Symbol       string
	Window       TimeWindow
	Range        ResolvedRange
	Series       []PricePoint
	FailedChunks []Chunk
	Partial      bool
}

// Points returns a copy of the series that callers may keep or modify freely.
func (r AggregationResult) Points() []PricePoint {
	out := make([]PricePoint, len(r.Series))
	copy(out, r.Series)
	return out
}

// Empty reports whether no point was merged.
func (r AggregationResult) Empty() bool {
	return len(r.Series) == 0
}
