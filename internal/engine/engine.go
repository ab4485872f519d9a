// Package engine implements the Trend Engine: the orchestrator that
// composes the concurrency gate, retry envelope, cache, upstream
// connector, scoring engine, and query store into one query operation.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker"

	"github.com/rs/zerolog"

	"github.com/lucasmora/trendscore/internal/cache"
	"github.com/lucasmora/trendscore/internal/gate"
	"github.com/lucasmora/trendscore/internal/metrics"
	"github.com/lucasmora/trendscore/internal/retry"
	"github.com/lucasmora/trendscore/internal/scoring"
	"github.com/lucasmora/trendscore/internal/store"
	"github.com/lucasmora/trendscore/internal/trends"
)

// Params is one validated query request. Validation itself happens in
// the HTTP layer; by the time the engine sees Params it is trusted.
type Params struct {
	Keyword      string
	Country      string
	WindowDays   int
	BaselineDays int
}

// Config tunes the engine's non-component behavior.
type Config struct {
	// RequestDelay is the unconditional delay between the series fetch
	// and the country-comparison fetch, independent of retry backoff.
	RequestDelay time.Duration
}

// DefaultConfig returns the spec-defined request delay of 4000ms.
func DefaultConfig() Config {
	return Config{RequestDelay: 4000 * time.Millisecond}
}

// Engine composes the trend query engine's components.
type Engine struct {
	gate      *gate.Gate
	retry     *retry.Envelope
	cache     *cache.Cache
	connector trends.Connector
	breaker   *trends.SequenceBreaker
	store     store.Store
	cfg       Config
	log       zerolog.Logger
	metrics   *metrics.Registry

	// sleep is overridable in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an Engine from its components. metrics may be nil, in
// which case instrumentation is skipped (useful for tests that don't
// want to pollute the default Prometheus registry).
func New(g *gate.Gate, r *retry.Envelope, c *cache.Cache, conn trends.Connector, br *trends.SequenceBreaker, st store.Store, cfg Config, log zerolog.Logger, mr ...*metrics.Registry) *Engine {
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = DefaultConfig().RequestDelay
	}
	var reg *metrics.Registry
	if len(mr) > 0 {
		reg = mr[0]
	}
	return &Engine{
		gate:      g,
		retry:     r,
		cache:     c,
		connector: conn,
		breaker:   br,
		store:     st,
		cfg:       cfg,
		log:       log.With().Str("component", "engine").Logger(),
		metrics:   reg,
		sleep:     defaultSleep,
	}
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fingerprintOf(p Params) cache.Fingerprint {
	return cache.Fingerprint{
		Keyword:      p.Keyword,
		Country:      p.Country,
		WindowDays:   p.WindowDays,
		BaselineDays: p.BaselineDays,
	}
}

// Execute runs the full query protocol: cache check, running record,
// gated+retried upstream fetch, scoring, persistence, and cache
// population — falling back to the stale cache on upstream failure.
func (e *Engine) Execute(ctx context.Context, params Params, requestID string) (*Response, error) {
	log := e.log.With().Str("request_id", requestID).Str("keyword", params.Keyword).Str("country", params.Country).Logger()
	fp := fingerprintOf(params)

	if payload, ok := e.cache.GetFresh(ctx, fp); ok {
		var resp Response
		if err := json.Unmarshal(payload, &resp); err == nil {
			resp.Cache = CacheInfo{Hit: true, TTLSeconds: e.cache.TTL(ctx, fp)}
			resp.RequestID = requestID
			e.recordCacheHit(true)
			e.recordOutcome("cache_hit")
			return &resp, nil
		}
		log.Warn().Msg("fresh cache entry unmarshalable, falling through to upstream")
	}
	e.recordCacheHit(false)

	queryID, err := e.store.CreateRunning(ctx, store.Params{
		Keyword:      params.Keyword,
		Country:      params.Country,
		WindowDays:   params.WindowDays,
		BaselineDays: params.BaselineDays,
	})
	if err != nil {
		return nil, &StorageError{Op: "create_running", Cause: err}
	}

	series, byCountry, fetchErr := e.fetchUpstream(ctx, params)
	if fetchErr != nil {
		return e.handleUpstreamFailure(ctx, log, fp, queryID, params, fetchErr)
	}

	scored, err := scoring.Score(toFloat64s(series), params.Keyword, params.Country, params.WindowDays, params.BaselineDays)
	if err != nil {
		return nil, &InternalError{Reason: fmt.Sprintf("scoring failed: %v", err)}
	}

	resp := buildResponse(params, scored, series, byCountry, []string{"google_trends"}, requestID)
	resp.Cache = CacheInfo{Hit: false, TTLSeconds: int64(cache.DefaultConfig().FreshTTL.Seconds())}

	e.persist(ctx, log, queryID, scored, series, byCountry)

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response for caching")
	} else {
		e.cache.Set(ctx, fp, payload)
	}

	e.recordOutcome("success")
	return &resp, nil
}

func (e *Engine) recordCacheHit(hit bool) {
	if e.metrics == nil {
		return
	}
	if hit {
		e.metrics.CacheHits.Inc()
	} else {
		e.metrics.CacheMisses.Inc()
	}
}

func (e *Engine) recordOutcome(outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
}

// fetchUpstream acquires the concurrency gate, then runs the two
// sequential upstream calls (series, then country-comparison,
// separated by the unconditional request delay) each wrapped in the
// retry envelope, all guarded by the sequence breaker.
func (e *Engine) fetchUpstream(ctx context.Context, params Params) ([]trends.SeriesPoint, []trends.CountryPoint, error) {
	e.gaugeGateQueue(1)
	err := e.gate.Acquire(ctx)
	e.gaugeGateQueue(-1)
	if err != nil {
		return nil, nil, err
	}
	defer e.gate.Release()

	var series []trends.SeriesPoint
	var byCountry []trends.CountryPoint

	run := func() error {
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -params.BaselineDays)

		seriesStart := time.Now()
		seriesVal, err := e.retry.Do(ctx, func(ctx context.Context) (any, error) {
			return e.connector.FetchSeries(ctx, params.Keyword, params.Country, start, end)
		})
		e.observeProviderLatency("fetch_series", time.Since(seriesStart))
		if err != nil {
			return err
		}
		series = seriesVal.([]trends.SeriesPoint)

		if err := e.sleep(ctx, e.cfg.RequestDelay); err != nil {
			return err
		}

		countryStart := time.Now()
		countryVal, err := e.retry.Do(ctx, func(ctx context.Context) (any, error) {
			return e.connector.FetchByCountry(ctx, params.Keyword, params.Country)
		})
		e.observeProviderLatency("fetch_by_country", time.Since(countryStart))
		if err != nil {
			return err
		}
		byCountry = countryVal.([]trends.CountryPoint)
		return nil
	}

	if e.breaker != nil {
		err = e.breaker.Run(run)
		e.gaugeCircuitOpen(e.breaker.State())
	} else {
		err = run()
	}

	return series, byCountry, err
}

func (e *Engine) gaugeGateQueue(delta float64) {
	if e.metrics == nil {
		return
	}
	e.metrics.GateQueueDepth.Add(delta)
}

func (e *Engine) observeProviderLatency(operation string, d time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ProviderLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (e *Engine) gaugeCircuitOpen(state gobreaker.State) {
	if e.metrics == nil {
		return
	}
	if state == gobreaker.StateOpen {
		e.metrics.CircuitOpen.Set(1)
	} else {
		e.metrics.CircuitOpen.Set(0)
	}
}

// handleUpstreamFailure implements step 4's failure branch: mark the
// query as errored, then prefer a stale cache hit over surfacing an
// error.
func (e *Engine) handleUpstreamFailure(ctx context.Context, log zerolog.Logger, fp cache.Fingerprint, queryID string, params Params, fetchErr error) (*Response, error) {
	if markErr := e.store.MarkError(ctx, queryID, fetchErr.Error()); markErr != nil {
		log.Warn().Err(markErr).Msg("failed to mark query as errored")
	}

	if stale, ok := e.cache.GetStale(ctx, fp); ok {
		var resp Response
		if err := json.Unmarshal(stale.Payload, &resp); err == nil {
			ageHours := int(stale.AgeSeconds / 3600)
			warning := "Data may be outdated due to temporary API issues"
			resp.Cache = CacheInfo{Hit: true, TTLSeconds: 0}
			resp.SourcesUsed = []string{"stale_cache"}
			resp.AgeHours = &ageHours
			resp.Warning = &warning
			e.recordOutcome("stale_fallback")
			return &resp, nil
		}
		log.Warn().Msg("stale cache entry unmarshalable, surfacing upstream error")
	}

	if trends.IsNoDataError(fetchErr) {
		e.recordOutcome("data_not_found")
		return nil, &DataNotFound{Keyword: params.Keyword, Country: params.Country}
	}

	exhausted, ok := asExhausted(fetchErr)
	if ok {
		e.recordOutcome("provider_unavailable")
		return nil, &ProviderUnavailable{Attempts: exhausted.Attempts, Blocked: exhausted.Blocked, Cause: exhausted.Last}
	}
	e.recordOutcome("provider_unavailable")
	return nil, &ProviderUnavailable{Attempts: 1, Cause: fetchErr}
}

func asExhausted(err error) (*retry.ExhaustedError, bool) {
	var e *retry.ExhaustedError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// persist writes the scored result and transitions the query to Done.
// Failures at this stage are logged only; the response is still written
// to the cache afterwards and the caller still receives a success
// response.
func (e *Engine) persist(ctx context.Context, log zerolog.Logger, queryID string, scored scoring.Result, series []trends.SeriesPoint, byCountry []trends.CountryPoint) {
	storeSeries := make([]store.SeriesPoint, len(series))
	for i, p := range series {
		storeSeries[i] = store.SeriesPoint{Date: p.Date, Value: p.Value}
	}
	storeCountry := make([]store.CountryPoint, len(byCountry))
	for i, p := range byCountry {
		storeCountry[i] = store.CountryPoint{Country: p.Country, Value: p.Value}
	}

	err := e.store.PersistResult(ctx, queryID, store.Result{
		TrendScore:   scored.TrendScore,
		GrowthSignal: scored.Signals.Growth7vs30,
		SlopeSignal:  scored.Signals.Slope14d,
		PeakSignal:   scored.Signals.RecentPeak30,
		Explanations: scored.Explain,
		SourcesUsed:  []string{"google_trends"},
	}, storeSeries, storeCountry)
	if err != nil {
		log.Warn().Err(err).Msg("persist_result failed, response still cached and served")
		return
	}

	if err := e.store.MarkDone(ctx, queryID); err != nil {
		log.Warn().Err(err).Msg("mark_done failed")
	}
}

func toFloat64s(series []trends.SeriesPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = float64(p.Value)
	}
	return out
}

func buildResponse(params Params, scored scoring.Result, series []trends.SeriesPoint, byCountry []trends.CountryPoint, sourcesUsed []string, requestID string) Response {
	seriesDTO := make([]SeriesPointDTO, len(series))
	for i, p := range series {
		seriesDTO[i] = SeriesPointDTO{Date: p.Date.Format("2006-01-02"), Value: p.Value}
	}
	countryDTO := make([]CountryPointDTO, len(byCountry))
	for i, p := range byCountry {
		countryDTO[i] = CountryPointDTO{Country: p.Country, Value: p.Value}
	}

	return Response{
		Keyword:      params.Keyword,
		Country:      params.Country,
		WindowDays:   params.WindowDays,
		BaselineDays: params.BaselineDays,
		GeneratedAt:  time.Now().UTC(),
		SourcesUsed:  sourcesUsed,
		TrendScore:   scored.TrendScore,
		Signals: SignalsDTO{
			Growth7vs30:  scored.Signals.Growth7vs30,
			Slope14d:     scored.Signals.Slope14d,
			RecentPeak30: scored.Signals.RecentPeak30,
		},
		Series:    seriesDTO,
		ByCountry: countryDTO,
		Explain:   scored.Explain,
		RequestID: requestID,
	}
}
