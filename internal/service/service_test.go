package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aareguru-mcp/config"
	"aareguru-mcp/internal/aareguru"
	"aareguru-mcp/internal/cache"
	"aareguru-mcp/internal/core"
)

// fixture fakes the upstream API with per-city current payloads and a
// cities listing, and builds a Service wired to it.
type fixture struct {
	svc    *Service
	shared *aareguru.Shared

	// current payloads keyed by city query value; cities unknown to the
	// map answer 503.
	currents map[string]string
	todays   map[string]string
	cities   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		currents: map[string]string{},
		todays:   map[string]string{},
		cities:   `[]`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("city")
		var body string
		var ok bool
		switch r.URL.Path {
		case aareguru.EndpointCurrent:
			body, ok = fx.currents[city]
		case aareguru.EndpointToday:
			body, ok = fx.todays[city]
		case aareguru.EndpointCities:
			body, ok = fx.cities, true
		}
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		BaseURL:         srv.URL,
		AppName:         "aareguru-mcp",
		AppVersion:      "test",
		CacheTTL:        time.Minute,
		RequestTimeout:  5 * time.Second,
		MaxIdleConns:    2,
		MaxConnsPerHost: 4,
	}
	fx.shared = aareguru.NewShared(cfg, cache.NewMemoryStore(cfg.CacheTTL))
	t.Cleanup(func() { fx.shared.Close() })

	fx.svc = NewService(cfg, fx.shared, nil)
	fx.svc.now = func() time.Time {
		return time.Date(2026, time.July, 15, 14, 0, 0, 0, time.UTC)
	}
	return fx
}

func currentPayload(location string, temp, flow, forecast2h float64, text string) string {
	return fmt.Sprintf(`{
		"aare": {
			"location": %q,
			"location_long": "%s, Schweiz",
			"timestamp": 1701423045,
			"temperature": %g,
			"temperature_text": %q,
			"flow": %g,
			"flow_text": "mittel",
			"flow_scale_threshold": 220,
			"forecast2h": %g,
			"forecast2h_text": "blibt so",
			"height": 502.3
		},
		"weather": {"tt": 24.5}
	}`, location, location, temp, text, flow, forecast2h)
}

func TestCurrentTemperatureEnrichment(t *testing.T) {
	fx := newFixture(t)
	fx.currents["Bern"] = currentPayload("Bern", 17.2, 145, 17.4, "geil aber chli chalt")
	fx.cities = `[
		{"city": "bern", "name": "Bern", "aare": 17.2},
		{"city": "thun", "name": "Thun", "aare": 19.5}
	]`

	report, err := fx.svc.CurrentTemperature(context.Background(), "Bern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *report.Temperature != 17.2 {
		t.Errorf("temperature = %v", *report.Temperature)
	}
	if report.Name != "Bern" {
		t.Errorf("name = %q", report.Name)
	}
	if !strings.Contains(report.SwissGermanExplanation, "Bernese understatement") {
		t.Errorf("explanation = %q", report.SwissGermanExplanation)
	}
	if report.Warning != "" {
		t.Errorf("flow 145 must not warn, got %q", report.Warning)
	}
	if !strings.Contains(report.Suggestion, "Thun") {
		t.Errorf("expected a warmer-city tip naming Thun, got %q", report.Suggestion)
	}
	if !strings.Contains(report.SeasonalAdvice, "Summer") {
		t.Errorf("seasonal advice = %q", report.SeasonalAdvice)
	}
}

func TestCurrentTemperatureNoSuggestionWhenWarm(t *testing.T) {
	fx := newFixture(t)
	fx.currents["Bern"] = currentPayload("Bern", 21.0, 145, 21.0, "schön warm")
	fx.cities = `[{"city": "thun", "name": "Thun", "aare": 22.0}]`

	report, err := fx.svc.CurrentTemperature(context.Background(), "Bern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Suggestion != "" {
		t.Errorf("21.0°C needs no suggestion, got %q", report.Suggestion)
	}
}

func TestCurrentTemperatureFallsBackToToday(t *testing.T) {
	fx := newFixture(t)
	// Station publishes no river block on the detailed endpoint.
	fx.currents["interlaken"] = `{"weather": {"tt": 20.0}}`
	fx.todays["interlaken"] = `{
		"aare": 16.5, "aare_prec": 16.54, "text": "chli chalt",
		"time": 1701423045, "name": "Interlaken", "longname": "Interlaken"
	}`

	report, err := fx.svc.CurrentTemperature(context.Background(), "interlaken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *report.Temperature != 16.5 {
		t.Errorf("temperature = %v, want fallback value", *report.Temperature)
	}
	if report.Name != "Interlaken" {
		t.Errorf("name = %q", report.Name)
	}
	if report.SwissGermanExplanation != "A bit cold" {
		t.Errorf("explanation = %q", report.SwissGermanExplanation)
	}
}

func TestCurrentTemperatureDefaultsCity(t *testing.T) {
	fx := newFixture(t)
	fx.currents["Bern"] = currentPayload("Bern", 18.5, 100, 18.5, "perfekt")

	report, err := fx.svc.CurrentTemperature(context.Background(), "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.City != "Bern" {
		t.Errorf("city = %q, want default Bern", report.City)
	}
}

func TestCurrentConditions(t *testing.T) {
	fx := newFixture(t)
	fx.currents["Bern"] = currentPayload("Bern", 17.2, 250, 17.4, "geil aber chli chalt")

	report, err := fx.svc.CurrentConditions(context.Background(), "Bern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Aare == nil {
		t.Fatal("missing aare block")
	}
	if *report.Aare.Flow != 250 {
		t.Errorf("flow = %v", *report.Aare.Flow)
	}
	if !strings.Contains(report.Aare.Warning, "CAUTION") {
		t.Errorf("flow 250 over threshold 220 must warn, got %q", report.Aare.Warning)
	}
	if report.Weather == nil {
		t.Error("weather block not passed through")
	}
}

func TestFlowDangerLevel(t *testing.T) {
	fx := newFixture(t)
	fx.currents["Bern"] = currentPayload("Bern", 17.2, 145, 17.4, "chli chalt")

	report, err := fx.svc.FlowDangerLevel(context.Background(), "Bern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.DangerLevel != 2 {
		t.Errorf("danger level = %d, want 2", report.DangerLevel)
	}
	if !strings.Contains(report.SafetyAssessment, "Moderate") {
		t.Errorf("assessment = %q", report.SafetyAssessment)
	}
	if *report.FlowThreshold != 220 {
		t.Errorf("threshold = %v", *report.FlowThreshold)
	}
}

func TestFlowDangerLevelNoData(t *testing.T) {
	fx := newFixture(t)
	fx.currents["brienz"] = `{"weather": {}}`

	report, err := fx.svc.FlowDangerLevel(context.Background(), "brienz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.DangerLevel != 0 || report.Flow != nil {
		t.Errorf("expected level 0 with no flow, got %+v", report)
	}
}

func TestCompareCitiesPartialFailure(t *testing.T) {
	fx := newFixture(t)
	fx.currents["Bern"] = currentPayload("Bern", 17.2, 145, 17.4, "chli chalt")
	fx.currents["thun"] = currentPayload("Thun", 19.5, 90, 19.5, "schön warm")
	// olten has no payload: the upstream answers 503.

	report, err := fx.svc.CompareCities(context.Background(), []string{"Bern", "thun", "olten"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.RequestedCount != 3 || report.TotalCount != 2 {
		t.Errorf("counts = %d/%d, want 2/3", report.TotalCount, report.RequestedCount)
	}
	if report.Warmest == nil || report.Warmest.City != "thun" {
		t.Errorf("warmest = %+v, want thun", report.Warmest)
	}
	if report.Coldest == nil || report.Coldest.City != "Bern" {
		t.Errorf("coldest = %+v, want Bern", report.Coldest)
	}
	if report.SafeCount != 2 {
		t.Errorf("safe count = %d, want 2", report.SafeCount)
	}
	if len(report.Errors) != 1 || report.Errors[0].City != "olten" {
		t.Errorf("errors = %+v", report.Errors)
	}
}

func TestCompareCitiesAllFail(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.CompareCities(context.Background(), []string{"Bern", "thun"})
	if err == nil {
		t.Fatal("expected error when every city fails")
	}
	if !strings.Contains(err.Error(), "all 2 cities") {
		t.Errorf("error = %v", err)
	}
}

func TestCompareCitiesDefaultsToAll(t *testing.T) {
	fx := newFixture(t)
	fx.cities = `[
		{"city": "bern", "name": "Bern", "aare": 17.2},
		{"city": "thun", "name": "Thun", "aare": 19.5}
	]`
	fx.currents["bern"] = currentPayload("Bern", 17.2, 145, 17.4, "chli chalt")
	fx.currents["thun"] = currentPayload("Thun", 19.5, 90, 19.5, "schön warm")

	report, err := fx.svc.CompareCities(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RequestedCount != 2 || report.TotalCount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", report.TotalCount, report.RequestedCount)
	}
}

func TestForecasts(t *testing.T) {
	fx := newFixture(t)
	fx.currents["Bern"] = currentPayload("Bern", 17.2, 145, 17.4, "chli chalt")
	fx.currents["thun"] = currentPayload("Thun", 19.5, 90, 19.5, "schön warm")

	report, err := fx.svc.Forecasts(context.Background(), []string{"Bern", "thun"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bern, ok := report.Forecasts["Bern"]
	if !ok {
		t.Fatal("missing Bern forecast")
	}
	if bern.Trend != "rising" {
		t.Errorf("Bern trend = %q, want rising", bern.Trend)
	}
	if bern.Change == nil || math.Abs(*bern.Change-0.2) > 1e-9 {
		t.Errorf("Bern change = %v, want 0.2", bern.Change)
	}

	thun := report.Forecasts["thun"]
	if thun.Trend != "stable" {
		t.Errorf("Thun trend = %q, want stable", thun.Trend)
	}
	if report.SuccessCount != 2 || report.Errors != nil {
		t.Errorf("success = %d, errors = %+v", report.SuccessCount, report.Errors)
	}
}

func TestForecastsRequiresCities(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Forecasts(context.Background(), nil)
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestHistoricalData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != aareguru.EndpointHistory {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[
			{"timestamp": 1701000000, "temperature": 16.1, "flow": 120.5},
			{"timestamp": 1701003600, "temperature": 16.3, "flow": 118.0}
		]`))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		BaseURL:         srv.URL,
		AppName:         "aareguru-mcp",
		AppVersion:      "test",
		CacheTTL:        time.Minute,
		RequestTimeout:  5 * time.Second,
		MaxIdleConns:    2,
		MaxConnsPerHost: 4,
	}
	shared := aareguru.NewShared(cfg, cache.NewMemoryStore(cfg.CacheTTL))
	t.Cleanup(func() { shared.Close() })
	svc := NewService(cfg, shared, nil)

	report, err := svc.HistoricalData(context.Background(), "Bern", "-48 hours", "now")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Count != 2 || len(report.Points) != 2 {
		t.Errorf("count = %d, points = %d", report.Count, len(report.Points))
	}
	if *report.Points[1].Temperature != 16.3 {
		t.Errorf("second point temperature = %v", *report.Points[1].Temperature)
	}
}
