package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcChange(t *testing.T) {
	assert.Equal(t, 50.0, CalcChange(150, 100))
	assert.Equal(t, 100.0, CalcChange(100, 0))
	assert.Equal(t, 0.0, CalcChange(0, 0))
	assert.Equal(t, 0.0, CalcChange(-5, 0))
	assert.Equal(t, -25.0, CalcChange(75, 100))
	assert.Equal(t, -100.0, CalcChange(0, 40))
}

func TestFormatCurrency(t *testing.T) {
	tests := map[float64]string{
		0:          "$0",
		950:        "$950",
		999.4:      "$999",
		999.6:      "$1.0K",
		1_000:      "$1.0K",
		45_300:     "$45.3K",
		999_949:    "$999.9K",
		999_960:    "$1.0M",
		999_999:    "$1.0M",
		1_240_000:  "$1.2M",
		12_000_000: "$12.0M",
		-2_500:     "-$2.5K",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCurrency(in), "FormatCurrency(%v)", in)
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+12.5%", FormatPercent(12.5))
	assert.Equal(t, "-3.0%", FormatPercent(-3))
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "0.0%", FormatPercent(-0.01))
}

func TestFormatRateAndCount(t *testing.T) {
	assert.Equal(t, "62.5%", FormatRate(0.625))
	assert.Equal(t, "842", FormatCount(842))
	assert.Equal(t, "3.4K", FormatCount(3_400))
	assert.Equal(t, "2.0M", FormatCount(2_000_000))
	assert.Equal(t, "1.0K", FormatCount(999.6))
	assert.Equal(t, "1.0M", FormatCount(999_960))
	assert.Equal(t, "1.0M", FormatCount(999_999))
	assert.Equal(t, "-1.0K", FormatCount(-999.6))
}

func TestNewCard(t *testing.T) {
	c := NewCard("Revenue", 15_000, 10_000, FormatCurrency)
	assert.Equal(t, Card{
		Label:     "Revenue",
		Value:     15_000,
		Formatted: "$15.0K",
		Previous:  10_000,
		ChangePct: 50,
		Change:    "+50.0%",
		Trend:     TrendUp,
	}, c)

	assert.Equal(t, TrendDown, NewCard("Donations", 5, 10, FormatCount).Trend)
	assert.Equal(t, TrendFlat, NewCard("Donations", 0, 0, FormatCount).Trend)
}
