package service

import (
	"strings"
	"time"
)

// BAFU flow thresholds in m³/s. The caution threshold varies per station
// (flow_scale_threshold); the danger and extreme bounds are fixed.
const (
	flowLowBound       = 100.0
	flowDefaultCaution = 220.0
	flowDangerBound    = 300.0
	flowExtremeBound   = 430.0
)

// SeasonalAdvice returns month-based swimming guidance for the given time.
func SeasonalAdvice(t time.Time) string {
	switch t.Month() {
	case time.November, time.December, time.January, time.February, time.March:
		return "❄️ Winter Season: Water is freezing. Only for experienced ice swimmers. Keep swims very short."
	case time.April, time.May:
		return "🌱 Spring: Water is still very cold from snowmelt. Wetsuit recommended."
	case time.June, time.July, time.August:
		return "☀️ Summer: Perfect swimming season! Don't forget sunscreen."
	default:
		return "🍂 Autumn: Water is getting colder. Check daylight hours and bring warm clothes."
	}
}

// SafetyWarning returns a warning string when the flow rate is dangerous,
// or "" when conditions are fine or no flow reading exists. The threshold
// is the station's caution bound; zero means the BAFU default.
func SafetyWarning(flow *float64, threshold float64) string {
	if flow == nil {
		return ""
	}
	if threshold <= 0 {
		threshold = flowDefaultCaution
	}
	switch {
	case *flow > flowExtremeBound:
		return "⛔ EXTREME DANGER: Flow is very high (>430 m³/s). Swimming is life-threatening."
	case *flow > flowDangerBound:
		return "⚠️ DANGER: High flow rate (>300 m³/s). Swimming NOT recommended."
	case *flow > threshold:
		return "⚠️ CAUTION: Elevated flow rate. Only for experienced swimmers."
	}
	return ""
}

// SafetyAssessment maps a flow reading to a text assessment and a danger
// level from 0 (no data) to 5 (extremely dangerous).
func SafetyAssessment(flow *float64, threshold float64) (string, int) {
	if flow == nil {
		return "Unknown - no flow data", 0
	}
	if threshold <= 0 {
		threshold = flowDefaultCaution
	}
	switch {
	case *flow < flowLowBound:
		return "Safe - low flow", 1
	case *flow < threshold:
		return "Moderate - safe for experienced swimmers", 2
	case *flow < flowDangerBound:
		return "Elevated - caution advised", 3
	case *flow < flowExtremeBound:
		return "High - dangerous conditions", 4
	default:
		return "Very high - extremely dangerous, avoid swimming", 5
	}
}

// swissGermanPhrases maps phrases that appear in Aareguru temperature texts
// to an English gloss. Matched case-insensitively, longest phrases first so
// "geil aber chli chalt" wins over its "chli chalt" suffix.
var swissGermanPhrases = []struct {
	phrase, explanation string
}{
	{"geil aber chli chalt", "Awesome but a bit cold (typical Bernese understatement)"},
	{"schön warm", "Nice and warm"},
	{"arschkalt", "Freezing cold"},
	{"perfekt", "Perfect conditions"},
	{"chli chalt", "A bit cold"},
	{"brrr", "Very cold"},
}

// SwissGermanExplanation returns English context for a Swiss German phrase
// contained in text, or "" if none matches.
func SwissGermanExplanation(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, p := range swissGermanPhrases {
		if strings.Contains(lower, p.phrase) {
			return p.explanation
		}
	}
	return ""
}
