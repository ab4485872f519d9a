package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// GoogleConfig configures the real upstream connector. Durations here
// are the connector's own I/O timeout; the envelope above it owns
// retry backoff, and the trend engine owns the inter-request delay.
type GoogleConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultGoogleConfig mirrors the original connector's defaults
// (60s request timeout against the trends explore/widgetdata API).
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		BaseURL: "https://trends.google.com/trends/api",
		Timeout: 60 * time.Second,
	}
}

// GoogleConnector talks to the public (unofficial) Google Trends API.
// It owns only wire-level concerns — request shape, timestamp
// normalization, and anti-bot response detection surfaced as raw
// errors; it never retries itself.
type GoogleConnector struct {
	httpClient *http.Client
	cfg        GoogleConfig
	log        zerolog.Logger
}

// NewGoogleConnector builds a connector bound to cfg.
func NewGoogleConnector(cfg GoogleConfig, log zerolog.Logger) *GoogleConnector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleConfig().BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGoogleConfig().Timeout
	}
	return &GoogleConnector{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log.With().Str("component", "trends.google").Logger(),
	}
}

// Name returns this connector's short identifier.
func (c *GoogleConnector) Name() string { return "google_trends" }

// widgetSeries is the subset of the explore/widgetdata multiline
// response this connector cares about.
type widgetSeries struct {
	Default struct {
		TimelineData []struct {
			Time  string `json:"time"`  // epoch seconds as a string
			Value []int  `json:"value"` // one value per requested keyword
		} `json:"timelineData"`
	} `json:"default"`
}

// widgetRegion is the subset of the explore/widgetdata comparedgeo
// response this connector cares about.
type widgetRegion struct {
	Default struct {
		GeoMapData []struct {
			GeoCode string `json:"geoCode"`
			Value   []int  `json:"value"`
		} `json:"geoMapData"`
	} `json:"default"`
}

// FetchSeries fetches the interest-over-time series for keyword in
// country between start and end, normalizing provider timestamps
// (epoch seconds) to UTC calendar dates.
func (c *GoogleConnector) FetchSeries(ctx context.Context, keyword, country string, start, end time.Time) ([]SeriesPoint, error) {
	q := url.Values{}
	q.Set("req", buildExploreRequest(keyword, country, start, end))
	q.Set("tz", "0")

	body, err := c.get(ctx, "/widgetdata/multiline", q)
	if err != nil {
		return nil, err
	}

	body = stripJSONPrefix(body)

	var parsed widgetSeries
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("google_trends: %w: %s", errMalformedPayload, err)
	}

	points := make([]SeriesPoint, 0, len(parsed.Default.TimelineData))
	seen := make(map[string]bool, len(parsed.Default.TimelineData))
	for _, row := range parsed.Default.TimelineData {
		date, err := normalizeEpochSeconds(row.Time)
		if err != nil {
			continue
		}
		key := date.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true

		value := 0
		if len(row.Value) > 0 {
			value = row.Value[0]
		}
		points = append(points, SeriesPoint{Date: date, Value: clampValue(value)})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	if len(points) == 0 {
		return nil, errNoData
	}
	return points, nil
}

// FetchByCountry fetches the global interest-by-region comparison for
// keyword (last 12 months, worldwide), filters to the fixed supported
// set, fills absent countries with 0, and sorts descending by value.
// country is ignored: the upstream call is a single global query, not
// a per-requester view.
func (c *GoogleConnector) FetchByCountry(ctx context.Context, keyword, country string) ([]CountryPoint, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, -12, 0)

	q := url.Values{}
	q.Set("req", buildExploreRequest(keyword, "", start, end))
	q.Set("tz", "0")

	body, err := c.get(ctx, "/widgetdata/comparedgeo", q)
	if err != nil {
		return nil, err
	}

	body = stripJSONPrefix(body)

	var parsed widgetRegion
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("google_trends: %w: %s", errMalformedPayload, err)
	}

	values := make(map[string]int, len(SupportedCountries))
	for _, row := range parsed.Default.GeoMapData {
		if len(row.Value) == 0 {
			continue
		}
		values[strings.ToUpper(row.GeoCode)] = clampValue(row.Value[0])
	}

	points := make([]CountryPoint, 0, len(SupportedCountries))
	for _, cc := range SupportedCountries {
		points = append(points, CountryPoint{Country: cc, Value: values[cc]})
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Country < points[j].Country
	})

	return points, nil
}

func (c *GoogleConnector) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google_trends: building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TrendScore/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google_trends: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("google_trends: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google_trends: upstream returned status %d: %s", resp.StatusCode, snippet(data))
	}

	if looksLikeBlockPage(data) {
		return nil, fmt.Errorf("google_trends: %w: %s", errMalformedPayload, snippet(data))
	}

	return data, nil
}

// errMalformedPayload and errNoData are classified at the retry
// envelope (blocked detection) and the trend engine (no-data mapping)
// respectively.
var (
	errMalformedPayload = fmt.Errorf("response body is not valid JSON")
	errNoData           = fmt.Errorf("no data for keyword")
)

// IsNoDataError reports whether err (possibly wrapped, including
// through a retry.ExhaustedError) signals the provider's recognizable
// "no data for this keyword" shape.
func IsNoDataError(err error) bool {
	return err != nil && errors.Is(err, errNoData)
}

func looksLikeBlockPage(data []byte) bool {
	lower := strings.ToLower(string(data))
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype")
}

func stripJSONPrefix(data []byte) []byte {
	// Google prefixes widgetdata responses with ")]}'," to defend
	// against JSON hijacking; strip it before unmarshaling.
	return []byte(strings.TrimPrefix(string(data), ")]}',"))
}

func snippet(data []byte) string {
	s := string(data)
	if len(s) > 150 {
		return s[:150]
	}
	return s
}

func clampValue(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func normalizeEpochSeconds(raw string) (time.Time, error) {
	var secs int64
	if _, err := fmt.Sscanf(raw, "%d", &secs); err != nil {
		return time.Time{}, err
	}
	t := time.Unix(secs, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func buildExploreRequest(keyword, country string, start, end time.Time) string {
	timeframe := fmt.Sprintf("%s %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	payload := map[string]any{
		"comparisonItem": []map[string]any{
			{"keyword": keyword, "geo": country, "time": timeframe},
		},
		"category": 0,
		"property": "",
	}
	body, _ := json.Marshal(payload)
	return string(body)
}
