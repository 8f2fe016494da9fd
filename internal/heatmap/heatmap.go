// Package heatmap reshapes sparse day-of-week/hour aggregates into a dense
// 7x24 grid and computes the statistics used to color and annotate it.
package heatmap

import (
	"math"
	"sort"
)

const (
	Days  = 7
	Hours = 24
	Cells = Days * Hours
)

var dayNames = [Days]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Row is one sparse aggregate. DayOfWeek is 0 (Sunday) through 6.
type Row struct {
	DayOfWeek int     `json:"day_of_week"`
	Hour      int     `json:"hour"`
	Value     float64 `json:"value"`
}

type Cell struct {
	DayOfWeek int     `json:"day_of_week"`
	Hour      int     `json:"hour"`
	Value     float64 `json:"value"`
	HasData   bool    `json:"has_data"`
}

// Grid holds every (day, hour) cell, day-major: index = day*24 + hour.
type Grid []Cell

// Stats summarizes a Grid.
type Stats struct {
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	P95     float64 `json:"p95"`
	Peaks   []Cell  `json:"peaks"`
}

// Normalize expands rows into a full grid. Rows outside the day/hour domain
// are ignored; repeated rows for one cell are summed.
func Normalize(rows []Row) Grid {
	g := make(Grid, Cells)
	for d := 0; d < Days; d++ {
		for h := 0; h < Hours; h++ {
			g[d*Hours+h] = Cell{DayOfWeek: d, Hour: h}
		}
	}
	for _, r := range rows {
		if r.DayOfWeek < 0 || r.DayOfWeek >= Days || r.Hour < 0 || r.Hour >= Hours {
			continue
		}
		c := &g[r.DayOfWeek*Hours+r.Hour]
		c.Value += r.Value
		c.HasData = true
	}
	return g
}

// At returns the cell for day and hour.
func (g Grid) At(day, hour int) Cell {
	return g[day*Hours+hour]
}

// ComputeStats computes grid statistics. Average and P95 consider every
// nonzero cell, negative ones included. Peaks holds at most topN positive
// cells, highest first, ties broken by earlier day then earlier hour.
func ComputeStats(g Grid, topN int) Stats {
	var s Stats
	if len(g) == 0 {
		return s
	}

	s.Min = math.Inf(1)
	s.Max = math.Inf(-1)
	nonzero := make([]float64, 0, len(g))
	for _, c := range g {
		s.Total += c.Value
		if c.Value > s.Max {
			s.Max = c.Value
		}
		if c.Value < s.Min {
			s.Min = c.Value
		}
		if c.Value != 0 {
			nonzero = append(nonzero, c.Value)
		}
	}

	if len(nonzero) > 0 {
		var sum float64
		for _, v := range nonzero {
			sum += v
		}
		s.Average = sum / float64(len(nonzero))
		s.P95 = percentile(nonzero, 0.95)
	}

	s.Peaks = peaks(g, topN)
	return s
}

// percentile uses the nearest-rank method. values is sorted in place.
func percentile(values []float64, p float64) float64 {
	sort.Float64s(values)
	rank := int(math.Ceil(p * float64(len(values))))
	if rank < 1 {
		rank = 1
	}
	return values[rank-1]
}

// peaks only considers positive cells; a refund-heavy hour is not a peak.
func peaks(g Grid, topN int) []Cell {
	if topN <= 0 {
		return nil
	}
	cells := make([]Cell, 0, len(g))
	for _, c := range g {
		if c.Value > 0 {
			cells = append(cells, c)
		}
	}
	sort.SliceStable(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.Hour < b.Hour
	})
	if len(cells) > topN {
		cells = cells[:topN]
	}
	return cells
}

// DayName returns the short English name for a day index, or "" if out of range.
func DayName(day int) string {
	if day < 0 || day >= Days {
		return ""
	}
	return dayNames[day]
}
