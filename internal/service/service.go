// Package service holds the business logic between the protocol surface and
// the Aareguru client: per-call client lifecycles, data enrichment, and
// multi-city fan-out with partial-failure handling.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"aareguru-mcp/config"
	"aareguru-mcp/internal/aareguru"
	"aareguru-mcp/internal/core"
)

// compareFanout bounds how many upstream requests a multi-city operation
// launches at once. The shared rate limiter serializes them anyway; the
// bound just keeps goroutine counts sane for long city lists.
const compareFanout = 4

// safeFlowBound is the flow below which a spot counts as safe in
// comparisons, stricter than the per-station caution threshold.
const safeFlowBound = 150.0

// TemperatureReport is the enriched answer for a single-city temperature
// question.
type TemperatureReport struct {
	City                   string   `json:"city"`
	Name                   string   `json:"name,omitempty"`
	Longname               string   `json:"longname,omitempty"`
	Temperature            *float64 `json:"temperature"`
	TemperaturePrecise     *float64 `json:"temperature_prec,omitempty"`
	Text                   string   `json:"temperature_text,omitempty"`
	TextShort              string   `json:"temperature_text_short,omitempty"`
	SwissGermanExplanation string   `json:"swiss_german_explanation,omitempty"`
	Warning                string   `json:"warning,omitempty"`
	Suggestion             string   `json:"suggestion,omitempty"`
	SeasonalAdvice         string   `json:"seasonal_advice"`
}

// AareConditions is the enriched river block inside a ConditionsReport.
type AareConditions struct {
	Location               string   `json:"location,omitempty"`
	LocationLong           string   `json:"location_long,omitempty"`
	Temperature            *float64 `json:"temperature"`
	Text                   string   `json:"temperature_text,omitempty"`
	TextShort              string   `json:"temperature_text_short,omitempty"`
	SwissGermanExplanation string   `json:"swiss_german_explanation,omitempty"`
	Flow                   *float64 `json:"flow,omitempty"`
	FlowText               string   `json:"flow_text,omitempty"`
	Height                 *float64 `json:"height,omitempty"`
	Forecast2h             *float64 `json:"forecast2h,omitempty"`
	Forecast2hText         string   `json:"forecast2h_text,omitempty"`
	Warning                string   `json:"warning,omitempty"`
}

// ConditionsReport is the full current-conditions answer for one city.
type ConditionsReport struct {
	City           string           `json:"city"`
	Aare           *AareConditions  `json:"aare,omitempty"`
	SeasonalAdvice string           `json:"seasonal_advice"`
	Weather        map[string]any   `json:"weather,omitempty"`
	Forecast       []map[string]any `json:"forecast,omitempty"`
}

// FlowReport is the flow-danger answer for one city.
type FlowReport struct {
	City             string   `json:"city"`
	Flow             *float64 `json:"flow"`
	FlowText         string   `json:"flow_text,omitempty"`
	FlowThreshold    *float64 `json:"flow_threshold,omitempty"`
	SafetyAssessment string   `json:"safety_assessment"`
	DangerLevel      int      `json:"danger_level"`
}

// HistoryReport wraps a historical time series.
type HistoryReport struct {
	City   string                     `json:"city"`
	Start  string                     `json:"start"`
	End    string                     `json:"end"`
	Count  int                        `json:"count"`
	Points []aareguru.HistoricalPoint `json:"points"`
}

// CityError records a per-city failure during a fan-out operation.
type CityError struct {
	City  string `json:"city"`
	Error string `json:"error"`
}

// CityComparison is one city's entry in a ComparisonReport, ranked by
// temperature.
type CityComparison struct {
	City        string   `json:"city"`
	Location    string   `json:"location,omitempty"`
	Temperature *float64 `json:"temperature"`
	Text        string   `json:"temperature_text,omitempty"`
	Flow        *float64 `json:"flow,omitempty"`
	Safe        bool     `json:"safe"`
}

// ComparisonReport ranks several cities warmest-first.
type ComparisonReport struct {
	Cities         []CityComparison `json:"cities"`
	Warmest        *CityComparison  `json:"warmest,omitempty"`
	Coldest        *CityComparison  `json:"coldest,omitempty"`
	SafeCount      int              `json:"safe_count"`
	TotalCount     int              `json:"total_count"`
	RequestedCount int              `json:"requested_count"`
	Errors         []CityError      `json:"errors,omitempty"`
}

// CityForecast is the short-term outlook for one city.
type CityForecast struct {
	Current    *float64 `json:"current"`
	Forecast2h *float64 `json:"forecast_2h"`
	Trend      string   `json:"trend"`
	Change     *float64 `json:"change,omitempty"`
}

// ForecastReport holds short-term outlooks for several cities.
type ForecastReport struct {
	Forecasts      map[string]CityForecast `json:"forecasts"`
	SuccessCount   int                     `json:"success_count"`
	RequestedCount int                     `json:"requested_count"`
	Errors         []CityError             `json:"errors,omitempty"`
}

// Service answers river-condition questions. Each method opens its own
// scoped client against the shared coordination state and releases it
// before returning.
type Service struct {
	cfg    *config.Config
	shared *aareguru.Shared
	logger *slog.Logger
	now    func() time.Time
}

func NewService(cfg *config.Config, shared *aareguru.Shared, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, shared: shared, logger: logger, now: time.Now}
}

// CurrentTemperature returns the enriched water temperature for a city.
// It prefers the detailed endpoint for its flow data and falls back to the
// flat snapshot when the station publishes no river block.
func (s *Service) CurrentTemperature(ctx context.Context, city string) (*TemperatureReport, error) {
	city = normalizeCity(city)
	s.logger.Info("service.current_temperature", "city", city)

	client := aareguru.NewClient(s.cfg, s.shared)
	defer client.Close()

	report := &TemperatureReport{City: city, SeasonalAdvice: SeasonalAdvice(s.now())}

	var flow *float64
	cur, err := client.Current(ctx, city)
	switch {
	case err == nil:
		report.Temperature = cur.Aare.Temperature
		report.TemperaturePrecise = cur.Aare.TemperaturePrecise
		report.Text = cur.Aare.Text
		report.TextShort = cur.Aare.TextShort
		report.Name = cur.Aare.Location
		report.Longname = cur.Aare.LocationLong
		flow = cur.Aare.Flow
	case isValidation(err):
		today, tErr := client.Today(ctx, city)
		if tErr != nil {
			return nil, tErr
		}
		report.Temperature = today.Temperature
		report.TemperaturePrecise = today.TemperaturePrecise
		report.Text = today.Text
		report.TextShort = today.TextShort
		report.Name = today.Name
		report.Longname = today.Longname
	default:
		return nil, err
	}

	report.Warning = SafetyWarning(flow, 0)
	report.SwissGermanExplanation = SwissGermanExplanation(report.Text)
	report.Suggestion = s.warmerSuggestion(ctx, client, city, report.Temperature)

	return report, nil
}

// CurrentConditions returns the complete enriched state for one city:
// river block, weather passthrough, and seasonal advice.
func (s *Service) CurrentConditions(ctx context.Context, city string) (*ConditionsReport, error) {
	city = normalizeCity(city)
	s.logger.Info("service.current_conditions", "city", city)

	client := aareguru.NewClient(s.cfg, s.shared)
	defer client.Close()

	cur, err := client.Current(ctx, city)
	if err != nil {
		return nil, err
	}

	aare := cur.Aare
	report := &ConditionsReport{
		City:           city,
		SeasonalAdvice: SeasonalAdvice(s.now()),
		Weather:        cur.Weather,
		Forecast:       cur.WeatherForecast,
		Aare: &AareConditions{
			Location:               aare.Location,
			LocationLong:           aare.LocationLong,
			Temperature:            aare.Temperature,
			Text:                   aare.Text,
			TextShort:              aare.TextShort,
			SwissGermanExplanation: SwissGermanExplanation(aare.Text),
			Flow:                   aare.Flow,
			FlowText:               aare.FlowText,
			Height:                 aare.Height,
			Forecast2h:             aare.Forecast2h,
			Forecast2hText:         aare.Forecast2hText,
			Warning:                SafetyWarning(aare.Flow, deref(aare.FlowScaleThreshold)),
		},
	}
	return report, nil
}

// HistoricalData returns the raw time series between start and end.
// History always hits the upstream; it is never cached.
func (s *Service) HistoricalData(ctx context.Context, city, start, end string) (*HistoryReport, error) {
	city = normalizeCity(city)
	s.logger.Info("service.historical_data", "city", city, "start", start, "end", end)

	client := aareguru.NewClient(s.cfg, s.shared)
	defer client.Close()

	points, err := client.History(ctx, city, start, end)
	if err != nil {
		return nil, err
	}
	return &HistoryReport{City: city, Start: start, End: end, Count: len(points), Points: points}, nil
}

// FlowDangerLevel returns the current flow rate with its BAFU safety
// assessment. Stations without a river block report danger level 0.
func (s *Service) FlowDangerLevel(ctx context.Context, city string) (*FlowReport, error) {
	city = normalizeCity(city)
	s.logger.Info("service.flow_danger_level", "city", city)

	client := aareguru.NewClient(s.cfg, s.shared)
	defer client.Close()

	cur, err := client.Current(ctx, city)
	if err != nil {
		if isValidation(err) {
			return &FlowReport{City: city, SafetyAssessment: "No data available", DangerLevel: 0}, nil
		}
		return nil, err
	}

	threshold := deref(cur.Aare.FlowScaleThreshold)
	if threshold <= 0 {
		threshold = flowDefaultCaution
	}
	assessment, level := SafetyAssessment(cur.Aare.Flow, threshold)

	return &FlowReport{
		City:             city,
		Flow:             cur.Aare.Flow,
		FlowText:         cur.Aare.FlowText,
		FlowThreshold:    &threshold,
		SafetyAssessment: assessment,
		DangerLevel:      level,
	}, nil
}

// CompareCities fetches several cities concurrently and ranks them by
// temperature, warmest first. Partial failures are reported per city; the
// call fails only when every city fails.
func (s *Service) CompareCities(ctx context.Context, cities []string) (*ComparisonReport, error) {
	client := aareguru.NewClient(s.cfg, s.shared)
	defer client.Close()

	if len(cities) == 0 {
		all, err := client.Cities(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range all {
			cities = append(cities, c.City)
		}
	}
	s.logger.Info("service.compare_cities", "count", len(cities))

	type outcome struct {
		entry *CityComparison
		err   *CityError
	}
	outcomes := make([]outcome, len(cities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compareFanout)
	for i, city := range cities {
		i, city := i, normalizeCity(city)
		g.Go(func() error {
			cur, err := client.Current(gctx, city)
			if err != nil {
				s.logger.Warn("service.compare_cities.city_failed", "city", city, "error", err)
				outcomes[i] = outcome{err: &CityError{City: city, Error: err.Error()}}
				return nil
			}
			outcomes[i] = outcome{entry: &CityComparison{
				City:        city,
				Location:    cur.Aare.Location,
				Temperature: cur.Aare.Temperature,
				Text:        cur.Aare.Text,
				Flow:        cur.Aare.Flow,
				Safe:        cur.Aare.Flow == nil || *cur.Aare.Flow < safeFlowBound,
			}}
			return nil
		})
	}
	g.Wait()

	report := &ComparisonReport{RequestedCount: len(cities)}
	for _, o := range outcomes {
		switch {
		case o.entry != nil:
			report.Cities = append(report.Cities, *o.entry)
		case o.err != nil:
			report.Errors = append(report.Errors, *o.err)
		}
	}

	if len(report.Cities) == 0 && len(cities) > 0 {
		return nil, fmt.Errorf("failed to fetch data for all %d cities: %s",
			len(cities), summarizeErrors(report.Errors))
	}

	sort.SliceStable(report.Cities, func(i, j int) bool {
		return deref(report.Cities[i].Temperature) > deref(report.Cities[j].Temperature)
	})
	report.TotalCount = len(report.Cities)
	for i := range report.Cities {
		if report.Cities[i].Safe {
			report.SafeCount++
		}
	}
	if report.TotalCount > 0 {
		report.Warmest = &report.Cities[0]
		report.Coldest = &report.Cities[report.TotalCount-1]
	}

	s.logger.Info("service.compare_cities.done",
		"succeeded", report.TotalCount, "requested", report.RequestedCount)
	return report, nil
}

// Forecasts returns the 2-hour temperature outlook and trend for several
// cities, fetched concurrently with per-city failure reporting.
func (s *Service) Forecasts(ctx context.Context, cities []string) (*ForecastReport, error) {
	if len(cities) == 0 {
		return nil, core.NewValidationError("forecasts", "no cities given", nil)
	}
	s.logger.Info("service.forecasts", "count", len(cities))

	client := aareguru.NewClient(s.cfg, s.shared)
	defer client.Close()

	type outcome struct {
		city     string
		forecast *CityForecast
		err      *CityError
	}
	outcomes := make([]outcome, len(cities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compareFanout)
	for i, city := range cities {
		i, city := i, normalizeCity(city)
		g.Go(func() error {
			cur, err := client.Current(gctx, city)
			if err != nil {
				s.logger.Warn("service.forecasts.city_failed", "city", city, "error", err)
				outcomes[i] = outcome{city: city, err: &CityError{City: city, Error: err.Error()}}
				return nil
			}
			f := &CityForecast{
				Current:    cur.Aare.Temperature,
				Forecast2h: cur.Aare.Forecast2h,
				Trend:      trend(cur.Aare.Temperature, cur.Aare.Forecast2h),
			}
			if f.Current != nil && f.Forecast2h != nil {
				change := *f.Forecast2h - *f.Current
				f.Change = &change
			}
			outcomes[i] = outcome{city: city, forecast: f}
			return nil
		})
	}
	g.Wait()

	report := &ForecastReport{
		Forecasts:      make(map[string]CityForecast),
		RequestedCount: len(cities),
	}
	for _, o := range outcomes {
		switch {
		case o.forecast != nil:
			report.Forecasts[o.city] = *o.forecast
		case o.err != nil:
			report.Errors = append(report.Errors, *o.err)
		}
	}
	report.SuccessCount = len(report.Forecasts)

	if report.SuccessCount == 0 {
		return nil, fmt.Errorf("failed to fetch forecasts for all %d cities: %s",
			len(cities), summarizeErrors(report.Errors))
	}
	return report, nil
}

// TodaySnapshot returns the minimal flat reading for one city, without
// enrichment. Used by the lightweight resource surface.
func (s *Service) TodaySnapshot(ctx context.Context, city string) (*aareguru.TodayReading, error) {
	city = normalizeCity(city)
	s.logger.Info("service.today_snapshot", "city", city)

	client := aareguru.NewClient(s.cfg, s.shared)
	defer client.Close()

	return client.Today(ctx, city)
}

// CitiesList returns all cities with monitoring stations.
func (s *Service) CitiesList(ctx context.Context) ([]aareguru.City, error) {
	s.logger.Info("service.cities_list")

	client := aareguru.NewClient(s.cfg, s.shared)
	defer client.Close()

	return client.Cities(ctx)
}

// warmerSuggestion recommends a noticeably warmer city when the current one
// is below pleasant-swim temperature. Suggestions are best effort; lookup
// failures are swallowed.
func (s *Service) warmerSuggestion(ctx context.Context, client *aareguru.Client, city string, temp *float64) string {
	if temp == nil || *temp >= 18.0 {
		return ""
	}

	all, err := client.Cities(ctx)
	if err != nil {
		s.logger.Debug("service.warmer_suggestion_skipped", "error", err)
		return ""
	}

	var warmest *aareguru.City
	for i := range all {
		c := &all[i]
		if c.City == city || c.Temperature == nil {
			continue
		}
		if warmest == nil || *c.Temperature > *warmest.Temperature {
			warmest = c
		}
	}
	if warmest != nil && *warmest.Temperature > *temp+1.0 {
		return fmt.Sprintf("💡 Tip: %s is warmer right now (%g°C)", warmest.Name, *warmest.Temperature)
	}
	return ""
}

func trend(current, forecast *float64) string {
	switch {
	case current == nil || forecast == nil:
		return "unknown"
	case *forecast > *current:
		return "rising"
	case *forecast < *current:
		return "falling"
	default:
		return "stable"
	}
}

func normalizeCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return "Bern"
	}
	return city
}

func summarizeErrors(errs []CityError) string {
	parts := make([]string, 0, 3)
	for i, e := range errs {
		if i == 3 {
			break
		}
		parts = append(parts, fmt.Sprintf("%s: %s", e.City, e.Error))
	}
	return strings.Join(parts, "; ")
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func isValidation(err error) bool {
	var vErr *core.ValidationError
	return errors.As(err, &vErr)
}
