// Package kpi computes period-over-period changes and display strings for
// dashboard cards.
package kpi

import (
	"fmt"
	"math"
)

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// CalcChange returns the percent change from previous to current.
// A zero previous value yields 100 when current is positive, else 0.
func CalcChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// Suffix thresholds sit at the point where the rounded mantissa of the
// smaller unit would reach 1000, so 999_999 prints as 1.0M, not 1000.0K.
const (
	millionCutoff  = 999_950
	thousandCutoff = 999.5
)

// FormatCurrency renders v in dollars with K/M suffixes, e.g. $1.2M, $45.3K, $950.
func FormatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + compact(v)
}

func compact(v float64) string {
	switch a := math.Abs(v); {
	case a >= millionCutoff:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case a >= thousandCutoff:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatPercent renders a change with an explicit sign and one decimal.
func FormatPercent(v float64) string {
	if math.Abs(v) < 0.05 {
		return "0.0%"
	}
	return fmt.Sprintf("%+.1f%%", v)
}

// FormatRate renders a 0..1 ratio as a percentage.
func FormatRate(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// FormatCount renders an integer-valued metric with K/M suffixes.
func FormatCount(v float64) string {
	return compact(v)
}

// Card is one KPI tile.
type Card struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	Previous  float64 `json:"previous"`
	ChangePct float64 `json:"change_pct"`
	Change    string  `json:"change"`
	Trend     Trend   `json:"trend"`
}

// NewCard builds a Card; format renders the current value.
func NewCard(label string, current, previous float64, format func(float64) string) Card {
	change := CalcChange(current, previous)
	trend := TrendFlat
	switch {
	case change > 0:
		trend = TrendUp
	case change < 0:
		trend = TrendDown
	}
	return Card{
		Label:     label,
		Value:     current,
		Formatted: format(current),
		Previous:  previous,
		ChangePct: change,
		Change:    FormatPercent(change),
		Trend:     trend,
	}
}
