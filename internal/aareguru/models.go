package aareguru

// Response models for the Aareguru API (https://aareguru.existenz.ch).
//
// Most numeric fields are pointers: the upstream omits readings that a
// station does not report, and 0 is a meaningful temperature. Each shape
// validates only the fields that must exist for the endpoint; everything
// else is optional by upstream contract.

// TodayReading is the flat payload of /v2018/today: the minimal "how warm is
// it right now" snapshot for one city.
type TodayReading struct {
	Temperature        *float64 `json:"aare"`
	TemperaturePrecise *float64 `json:"aare_prec"`
	Text               string   `json:"text"`
	TextShort          string   `json:"text_short"`
	Time               *int64   `json:"time"`
	Name               string   `json:"name"`
	Longname           string   `json:"longname"`
}

func (r *TodayReading) validate() string {
	if r.Temperature == nil {
		return "missing aare field"
	}
	if r.Time == nil {
		return "missing time field"
	}
	return ""
}

// AareReading is the nested river block inside /v2018/current.
type AareReading struct {
	Location           string   `json:"location"`
	LocationLong       string   `json:"location_long"`
	Timestamp          *int64   `json:"timestamp"`
	Timestring         string   `json:"timestring"`
	Temperature        *float64 `json:"temperature"`
	TemperaturePrecise *float64 `json:"temperature_prec"`
	Text               string   `json:"temperature_text"`
	TextShort          string   `json:"temperature_text_short"`
	Flow               *float64 `json:"flow"`
	FlowText           string   `json:"flow_text"`
	FlowScaleThreshold *float64 `json:"flow_scale_threshold"`
	Forecast2h         *float64 `json:"forecast2h"`
	Forecast2hText     string   `json:"forecast2h_text"`
	Height             *float64 `json:"height"`
}

// CurrentConditions is the payload of /v2018/current: river data plus
// weather blocks. The weather parts are passed through untyped; only the
// river block has a fixed schema this server depends on.
type CurrentConditions struct {
	Aare            *AareReading     `json:"aare"`
	Weather         map[string]any   `json:"weather"`
	WeatherForecast []map[string]any `json:"weatherprognosis"`
	Sun             map[string]any   `json:"sun"`
}

func (c *CurrentConditions) validate() string {
	if c.Aare == nil {
		return "missing aare object"
	}
	return ""
}

// Coordinates is a geographic position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// City is one element of the bare array returned by /v2018/cities.
type City struct {
	City        string       `json:"city"`
	Name        string       `json:"name"`
	Longname    string       `json:"longname"`
	Coordinates *Coordinates `json:"coordinates"`
	Temperature *float64     `json:"aare"`
	Forecast    *bool        `json:"forecast"`
	Time        *int64       `json:"time"`
	URL         string       `json:"url"`
}

func (c *City) validate() string {
	if c.City == "" {
		return "missing city identifier"
	}
	if c.Name == "" {
		return "missing city name"
	}
	return ""
}

// HistoricalPoint is one measurement in the /v2018/history time series.
type HistoricalPoint struct {
	Timestamp   int64    `json:"timestamp"`
	Temperature *float64 `json:"temperature"`
	Flow        *float64 `json:"flow"`
}
