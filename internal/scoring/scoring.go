// Package scoring computes the trend score and its supporting signals
// from a daily/weekly value series.
package scoring

import (
	"fmt"
	"math"
)

// Signals holds the three normalized components of the trend score.
type Signals struct {
	Growth7vs30  float64 `json:"growth_7_vs_30"`
	Slope14d     float64 `json:"slope_14d"`
	RecentPeak30 float64 `json:"recent_peak_30d"`
}

// Result is the output of Score: the combined score, its signals, and
// the ordered explanation lines.
type Result struct {
	TrendScore float64  `json:"trend_score"`
	Signals    Signals  `json:"signals"`
	Explain    []string `json:"explain"`
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func lastN(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// growth7vs30 returns avg(last 7) / avg(last 30), neutral 1.0 when
// either window is empty or the baseline average is 0.
func growth7vs30(values []float64) float64 {
	last7 := lastN(values, 7)
	last30 := lastN(values, 30)
	if len(last7) == 0 || len(last30) == 0 {
		return 1.0
	}
	avg30 := average(last30)
	if avg30 <= 0 {
		return 1.0
	}
	return average(last7) / avg30
}

// slope14d returns the OLS slope of the last 14 values against integer
// time indices, divided by the window mean to make it scale-free. Zero
// when fewer than 2 points, or the mean or denominator is 0.
func slope14d(values []float64) float64 {
	last14 := lastN(values, 14)
	n := len(last14)
	if n < 2 {
		return 0
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	meanX := average(xs)
	meanY := average(last14)

	var numerator, denominator float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		numerator += dx * (last14[i] - meanY)
		denominator += dx * dx
	}

	if denominator == 0 {
		return 0
	}
	slope := numerator / denominator
	if meanY <= 0 {
		return 0
	}
	return slope / meanY
}

// recentPeak30d returns max(last 30) / 100, zero when empty.
func recentPeak30d(values []float64) float64 {
	last30 := lastN(values, 30)
	if len(last30) == 0 {
		return 0
	}
	return maxValue(last30) / 100.0
}

// combine applies the fixed anchors and weights to derive the 0-100
// trend score from the three raw signals.
func combine(s Signals) float64 {
	g := clamp((s.Growth7vs30-0.7)/(1.7-0.7), 0, 1)
	sl := clamp((s.Slope14d+0.5)/1.0, 0, 1)
	p := s.RecentPeak30

	score := 0.5*g + 0.3*sl + 0.2*p
	return clamp(score, 0, 1) * 100
}

func round(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}

// Score computes the trend score, its signals, and a four-line
// explanation for the given value series. values must be non-empty;
// series shorter than 14 points degrade gracefully per the individual
// signal definitions.
func Score(values []float64, keyword, country string, windowDays, baselineDays int) (Result, error) {
	if len(values) == 0 {
		return Result{}, fmt.Errorf("scoring: time series is empty")
	}

	raw := Signals{
		Growth7vs30:  growth7vs30(values),
		Slope14d:     slope14d(values),
		RecentPeak30: recentPeak30d(values),
	}

	trendScore := combine(raw)

	rounded := Signals{
		Growth7vs30:  round(raw.Growth7vs30, 2),
		Slope14d:     round(raw.Slope14d, 4),
		RecentPeak30: round(raw.RecentPeak30, 2),
	}

	return Result{
		TrendScore: round(trendScore, 2),
		Signals:    rounded,
		Explain:    explain(raw, keyword, country, windowDays, baselineDays),
	}, nil
}
