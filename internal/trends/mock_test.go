package trends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockConnector_FetchSeries_Deterministic(t *testing.T) {
	c := NewMockConnector()
	end := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -30)

	a, err := c.FetchSeries(context.Background(), "bitcoin", "MX", start, end)
	require.NoError(t, err)
	b, err := c.FetchSeries(context.Background(), "bitcoin", "MX", start, end)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 31)

	for i, p := range a {
		assert.GreaterOrEqual(t, p.Value, 0)
		assert.LessOrEqual(t, p.Value, 100)
		if i > 0 {
			assert.True(t, p.Date.After(a[i-1].Date))
		}
	}
}

func TestMockConnector_FetchSeries_DifferentKeywordsDiffer(t *testing.T) {
	c := NewMockConnector()
	end := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -30)

	a, err := c.FetchSeries(context.Background(), "bitcoin", "MX", start, end)
	require.NoError(t, err)
	b, err := c.FetchSeries(context.Background(), "ethereum", "MX", start, end)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestMockConnector_FetchByCountry_ThreeCountriesDescending(t *testing.T) {
	c := NewMockConnector()
	points, err := c.FetchByCountry(context.Background(), "bitcoin", "MX")
	require.NoError(t, err)
	require.Len(t, points, 3)

	seen := map[string]bool{}
	for i, p := range points {
		seen[p.Country] = true
		assert.GreaterOrEqual(t, p.Value, 0)
		assert.LessOrEqual(t, p.Value, 100)
		if i > 0 {
			assert.GreaterOrEqual(t, points[i-1].Value, p.Value)
		}
	}
	assert.True(t, seen["MX"] && seen["CR"] && seen["ES"])
}

func TestMockConnector_FetchByCountry_RequestedCountryDominates(t *testing.T) {
	c := NewMockConnector()
	points, err := c.FetchByCountry(context.Background(), "bitcoin", "CR")
	require.NoError(t, err)

	var crValue int
	for _, p := range points {
		if p.Country == "CR" {
			crValue = p.Value
		}
	}
	assert.GreaterOrEqual(t, crValue, 80)
}
