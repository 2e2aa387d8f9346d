package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerPrompts(s *server.MCPServer) {
	s.AddPrompt(mcp.NewPrompt("daily-swimming-report",
		mcp.WithPromptDescription("Comprehensive daily swimming report for a city, combining "+
			"current conditions, safety assessment, forecast, and recommendations."),
		mcp.WithArgument("city",
			mcp.ArgumentDescription("City to generate the report for (default: Bern)."),
		),
		mcp.WithArgument("include_forecast",
			mcp.ArgumentDescription("Whether to include the 2-hour forecast (default: true)."),
		),
	), dailySwimmingReport)

	s.AddPrompt(mcp.NewPrompt("compare-swimming-spots",
		mcp.WithPromptDescription("Comparison of all swimming locations ranked by temperature "+
			"and safety, with a recommendation for the best spot today."),
		mcp.WithArgument("min_temperature",
			mcp.ArgumentDescription("Optional minimum water temperature in Celsius (e.g. 18.0)."),
		),
		mcp.WithArgument("safety_only",
			mcp.ArgumentDescription("Whether to show only safe locations with flow < 150 m³/s "+
				"(default: false)."),
		),
	), compareSwimmingSpots)

	s.AddPrompt(mcp.NewPrompt("weekly-trend-analysis",
		mcp.WithPromptDescription("Trend analysis of temperature and flow patterns over recent "+
			"days, with an outlook for optimal swimming times."),
		mcp.WithArgument("city",
			mcp.ArgumentDescription("City to analyze (default: Bern)."),
		),
		mcp.WithArgument("days",
			mcp.ArgumentDescription("Number of days to analyze: 3, 7, or 14 (default: 7)."),
		),
	), weeklyTrendAnalysis)
}

func dailySwimmingReport(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	city := promptArg(req, "city", "Bern")
	includeForecast := promptArg(req, "include_forecast", "true") != "false"

	var b strings.Builder
	fmt.Fprintf(&b, "Please provide a comprehensive daily swimming report for %s.\n\n", city)
	b.WriteString("Include:\n")
	b.WriteString("1. **Current Conditions**: Use `get_current_conditions` to get temperature, flow rate, and weather\n")
	b.WriteString("2. **Safety Assessment**: Use `get_flow_danger_level` to assess if swimming is safe\n")
	step := 3
	if includeForecast {
		b.WriteString("3. **Forecast**: Use `get_forecasts` to see how conditions will change in the next few hours\n")
		step = 4
	}
	fmt.Fprintf(&b, "%d. **Recommendation**: Based on all data, give a clear swimming recommendation\n\n", step)
	b.WriteString("Format the report in a friendly way with emojis. Include the Swiss German description if available.\n")
	b.WriteString("If conditions are dangerous, make this very clear at the top of the report.\n")
	b.WriteString("If there's a better location nearby, suggest it.")

	return promptResult("Daily swimming report for "+city, b.String()), nil
}

func compareSwimmingSpots(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var filters strings.Builder
	if min := promptArg(req, "min_temperature", ""); min != "" {
		fmt.Fprintf(&filters, "\n- Only include cities with temperature >= %s°C", min)
	}
	if promptArg(req, "safety_only", "false") == "true" {
		filters.WriteString("\n- Only include cities with safe flow levels (< 150 m³/s)")
	}

	text := `Please compare all available Aare swimming locations.

**Use the ` + "`compare_cities`" + ` tool** - it fetches all city data concurrently for maximum speed.

Present:
1. **🏆 Best Choice Today**: The recommended city based on temperature and safety
2. **📊 Comparison Table**: All cities ranked by temperature with safety status
3. **⚠️ Safety Notes**: Any locations to avoid due to high flow` + filters.String() + `

Format as a clear, scannable report. Use emojis for quick visual reference:
- 🟢 Safe (flow < 150 m³/s)
- 🟡 Caution (150-220 m³/s)
- 🔴 Dangerous (> 220 m³/s)

End with a personalized recommendation based on conditions.`

	return promptResult("Comparison of all swimming spots", text), nil
}

func weeklyTrendAnalysis(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	city := promptArg(req, "city", "Bern")
	days, err := strconv.Atoi(promptArg(req, "days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	periodName := fmt.Sprintf("%d-day", days)
	if days == 7 {
		periodName = "weekly"
	}

	text := fmt.Sprintf(`Please analyze the %[1]s trends for %[2]s.

Use `+"`get_historical_data`"+` with start="-%[3]d days" and end="now" to get the past %[3]d days of data, then provide:

1. **Temperature Trend**: How has water temperature changed?
   - Highest and lowest temperatures
   - Current vs. %[1]s average
   - Is it warming or cooling?

2. **Flow Trend**: How has the flow rate varied?
   - Any dangerous periods?
   - Current conditions vs. average

3. **Outlook**: Based on trends and current forecast, what should swimmers expect?

Include specific numbers and dates. Make recommendations for the best swimming times.`, periodName, city, days)

	return promptResult("Trend analysis for "+city, text), nil
}

func promptArg(req mcp.GetPromptRequest, key, fallback string) string {
	if v, ok := req.Params.Arguments[key]; ok && v != "" {
		return v
	}
	return fallback
}

func promptResult(description, text string) *mcp.GetPromptResult {
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	})
}
