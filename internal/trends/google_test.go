package trends

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleConnector_FetchSeries_GoldenFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/widgetdata/multiline", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `)]}',
{"default":{"timelineData":[
  {"time":"1700000000","value":[42]},
  {"time":"1700086400","value":[55]},
  {"time":"1700172800","value":[61]}
]}}`)
	}))
	defer server.Close()

	c := NewGoogleConnector(GoogleConfig{BaseURL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop())

	points, err := c.FetchSeries(context.Background(), "bitcoin", "MX", time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 42, points[0].Value)
	assert.True(t, points[0].Date.Before(points[1].Date))
}

func TestGoogleConnector_FetchByCountry_GoldenFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/widgetdata/comparedgeo", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `)]}',
{"default":{"geoMapData":[
  {"geoCode":"MX","value":[80]},
  {"geoCode":"CR","value":[30]},
  {"geoCode":"US","value":[99]}
]}}`)
	}))
	defer server.Close()

	c := NewGoogleConnector(GoogleConfig{BaseURL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop())

	points, err := c.FetchByCountry(context.Background(), "bitcoin", "MX")
	require.NoError(t, err)
	require.Len(t, points, 3)
	// US is filtered out; ES is absent from the response and defaults to 0.
	assert.Equal(t, "MX", points[0].Country)
	assert.Equal(t, 80, points[0].Value)

	values := map[string]int{}
	for _, p := range points {
		values[p.Country] = p.Value
	}
	assert.Equal(t, 0, values["ES"])
}

func TestGoogleConnector_BlockPageSurfacesAsRawError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<!DOCTYPE html><html><body>blocked</body></html>")
	}))
	defer server.Close()

	c := NewGoogleConnector(GoogleConfig{BaseURL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop())

	_, err := c.FetchSeries(context.Background(), "bitcoin", "MX", time.Now().AddDate(0, 0, -30), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestGoogleConnector_UpstreamErrorStatusSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "service unavailable")
	}))
	defer server.Close()

	c := NewGoogleConnector(GoogleConfig{BaseURL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop())

	_, err := c.FetchSeries(context.Background(), "bitcoin", "MX", time.Now().AddDate(0, 0, -30), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
