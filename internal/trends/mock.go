package trends

import (
	"context"
	"math"
	"sort"
	"time"
)

// MockConnector is a deterministic, network-free stand-in for the real
// upstream provider, enabled via TRENDSCORE_MOCK_PROVIDER=1. Output is
// seeded from the keyword so repeated calls with the same input are
// byte-for-byte identical, which keeps cache and scoring tests stable
// without a live Google Trends dependency.
type MockConnector struct{}

// NewMockConnector builds a MockConnector.
func NewMockConnector() *MockConnector { return &MockConnector{} }

// Name returns this connector's short identifier.
func (c *MockConnector) Name() string { return "mock" }

func keywordSeed(keyword string) int {
	seed := 0
	for _, r := range keyword {
		seed += int(r)
	}
	return seed
}

// FetchSeries generates a deterministic sinusoidal-plus-noise series
// covering baseline_days+1 points ending on end, mirroring the
// original generate_mock_time_series generator.
func (c *MockConnector) FetchSeries(ctx context.Context, keyword, country string, start, end time.Time) ([]SeriesPoint, error) {
	baselineDays := int(math.Round(end.Sub(start).Hours() / 24))
	if baselineDays < 1 {
		baselineDays = 1
	}
	totalDays := baselineDays + 1
	seed := keywordSeed(keyword)

	startDate := end.AddDate(0, 0, -baselineDays)
	points := make([]SeriesPoint, 0, totalDays)

	for i := 0; i < totalDays; i++ {
		date := startDate.AddDate(0, 0, i)

		dayOffset := float64(i) / float64(totalDays)
		baseValue := float64(30 + seed%40)
		trend := math.Sin(dayOffset*math.Pi*4) * 20
		noise := float64((seed*(i+1))%30) - 15

		value := int(math.Round(baseValue + trend + noise))
		points = append(points, SeriesPoint{
			Date:  time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
			Value: clampValue(value),
		})
	}

	return points, nil
}

// FetchByCountry generates a deterministic comparison: country (the
// requesting query's country) gets a high value (80-100), the other
// two a keyword-and-country-seeded value, sorted descending — mirroring
// generate_mock_by_country.
func (c *MockConnector) FetchByCountry(ctx context.Context, keyword, country string) ([]CountryPoint, error) {
	seed := keywordSeed(keyword)

	points := make([]CountryPoint, 0, len(SupportedCountries))
	for _, cc := range SupportedCountries {
		var value int
		if cc == country {
			value = 80 + seed%21
		} else {
			offset := int(cc[0]) + int(cc[1])
			value = clampValue((seed + offset) % 80)
		}
		points = append(points, CountryPoint{Country: cc, Value: value})
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Country < points[j].Country
	})

	return points, nil
}
