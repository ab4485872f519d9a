// Package trends implements the upstream connector that talks to the
// public trends data provider: fetching a keyword's time series and a
// cross-country comparison.
package trends

import (
	"context"
	"time"
)

// SeriesPoint is one datum of the value-over-time series returned by
// FetchSeries.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value int       `json:"value"`
}

// CountryPoint is one datum of the cross-country comparison returned
// by FetchByCountry.
type CountryPoint struct {
	Country string `json:"country"`
	Value   int    `json:"value"`
}

// SupportedCountries is the fixed comparison set. Order here is not
// significant; callers sort results by value.
var SupportedCountries = []string{"MX", "CR", "ES"}

// Connector is the upstream adapter contract. It does not retry or
// cache; those concerns belong to the retry envelope and cache layers
// that wrap it.
type Connector interface {
	// FetchSeries returns an ordered, de-duplicated series of daily or
	// weekly values between start and end (inclusive), ascending by
	// date.
	FetchSeries(ctx context.Context, keyword, country string, start, end time.Time) ([]SeriesPoint, error)
	// FetchByCountry returns values for the fixed three-country
	// comparison set, sorted descending by value, missing countries
	// filled with 0. country is the query's requesting country; the
	// real connector ignores it (the upstream call is a single global
	// comparison per spec.md §4.4), the mock connector uses it to seed
	// a dominant value the way the original test-mode generator did.
	FetchByCountry(ctx context.Context, keyword, country string) ([]CountryPoint, error)
}

// Named is implemented by connectors that report a short identifier
// through Name. The engine does not call it: sources_used is always
// "google_trends" on a fresh fetch, whichever connector is active.
type Named interface {
	Name() string
}
