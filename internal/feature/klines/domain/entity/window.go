// Package entity defines the domain models for the klines feature.
package entity

import (
	"strings"
	"time"
)

// TimeWindow is the user-selected lookback period of a chart.
type TimeWindow string

const (
	Window24H TimeWindow = "24H"
	Window1W  TimeWindow = "1W"
	Window1M  TimeWindow = "1M"
	Window6M  TimeWindow = "6M"
	Window1Y  TimeWindow = "1Y"
	Window5Y  TimeWindow = "5Y"
)

const day = 24 * time.Hour

// windowDurations uses fixed-day approximations for months and years.
var windowDurations = map[TimeWindow]time.Duration{
	Window24H: day,
	Window1W:  7 * day,
	Window1M:  30 * day,
	Window6M:  180 * day,
	Window1Y:  365 * day,
	Window5Y:  1825 * day,
}

// Windows lists every supported window in ascending length.
var Windows = []TimeWindow{Window24H, Window1W, Window1M, Window6M, Window1Y, Window5Y}

// ParseTimeWindow converts a window token into a TimeWindow.
// Unrecognized tokens fall back to Window24H.
func ParseTimeWindow(token string) TimeWindow {
	w := TimeWindow(strings.ToUpper(strings.TrimSpace(token)))
	if _, ok := windowDurations[w]; ok {
		return w
	}
	return Window24H
}

// IsTimeWindow reports whether token names a supported window without falling back.
func IsTimeWindow(token string) bool {
	_, ok := windowDurations[TimeWindow(strings.ToUpper(strings.TrimSpace(token)))]
	return ok
}

// Duration returns the lookback length of the window.
func (w TimeWindow) Duration() time.Duration {
	if d, ok := windowDurations[w]; ok {
		return d
	}
	return day
}

// Interval returns the sampling interval used to chart the window.
func (w TimeWindow) Interval() Interval {
	switch w {
	case Window1W:
		return Interval1h
	case Window1M, Window6M, Window1Y, Window5Y:
		return Interval1d
	default:
		return Interval1m
	}
}

// Interval is the sampling granularity of a price point.
// Its string value is the upstream query parameter.
type Interval string

const (
	Interval1m Interval = "1m"
	Interval1h Interval = "1h"
	Interval1d Interval = "1d"
)

// Duration returns the fixed length of one sample.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1h:
		return time.Hour
	case Interval1d:
		return day
	default:
		return time.Minute
	}
}
