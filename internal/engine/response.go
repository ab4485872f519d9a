package engine

import "time"

// SeriesPointDTO is one wire-format point of the series field.
type SeriesPointDTO struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// CountryPointDTO is one wire-format point of the by_country field.
type CountryPointDTO struct {
	Country string `json:"country"`
	Value   int    `json:"value"`
}

// SignalsDTO mirrors scoring.Signals in wire format.
type SignalsDTO struct {
	Growth7vs30  float64 `json:"growth_7_vs_30"`
	Slope14d     float64 `json:"slope_14d"`
	RecentPeak30 float64 `json:"recent_peak_30d"`
}

// CacheInfo describes whether the response came from the cache and its
// remaining freshness.
type CacheInfo struct {
	Hit        bool  `json:"hit"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

// Response is the success payload for POST /trends/query.
type Response struct {
	Keyword      string            `json:"keyword"`
	Country      string            `json:"country"`
	WindowDays   int               `json:"window_days"`
	BaselineDays int               `json:"baseline_days"`
	GeneratedAt  time.Time         `json:"generated_at"`
	SourcesUsed  []string          `json:"sources_used"`
	TrendScore   float64           `json:"trend_score"`
	Signals      SignalsDTO        `json:"signals"`
	Series       []SeriesPointDTO  `json:"series"`
	ByCountry    []CountryPointDTO `json:"by_country"`
	Explain      []string          `json:"explain"`
	Cache        CacheInfo         `json:"cache"`
	RequestID    string            `json:"request_id"`

	// AgeHours and Warning are populated only on the stale-fallback
	// path; omitted entirely otherwise.
	AgeHours *int    `json:"age_hours,omitempty"`
	Warning  *string `json:"warning,omitempty"`
}
