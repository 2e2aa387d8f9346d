package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"aareguru-mcp/internal/metrics"
)

func (h *handlers) registerTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("get_current_temperature",
		mcp.WithDescription("Get current water temperature for a city. Use this for quick "+
			"temperature checks and simple 'how warm is the water?' questions. Returns "+
			"temperature in Celsius, a Swiss German description (e.g. 'geil aber chli chalt'), "+
			"safety warnings, and seasonal swimming advice."),
		mcp.WithString("city",
			mcp.Description("City identifier (e.g. 'Bern', 'Thun', 'olten'). "+
				"Use list_cities to discover available locations. Defaults to Bern."),
		),
	), h.getCurrentTemperature)

	s.AddTool(mcp.NewTool("get_current_conditions",
		mcp.WithDescription("Get complete current conditions for a city. Use this for safety "+
			"assessments, 'is it safe to swim?' questions, and when users need a complete "+
			"picture before swimming: water temperature, flow rate, height, 2-hour forecast, "+
			"and weather."),
		mcp.WithString("city",
			mcp.Description("City identifier (e.g. 'Bern', 'Thun', 'olten'). Defaults to Bern."),
		),
	), h.getCurrentConditions)

	s.AddTool(mcp.NewTool("get_historical_data",
		mcp.WithDescription("Get historical time-series data for trend analysis and "+
			"comparisons with past conditions. Returns hourly temperature and flow points. "+
			"Always fetched fresh from the upstream."),
		mcp.WithString("city",
			mcp.Required(),
			mcp.Description("City identifier (e.g. 'Bern', 'Thun', 'olten')."),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start date/time: ISO format ('2024-11-01T00:00:00Z'), Unix "+
				"timestamp, or a relative expression like '-7 days'."),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End date/time in the same formats, or 'now' for the most recent data."),
		),
	), h.getHistoricalData)

	s.AddTool(mcp.NewTool("get_flow_danger_level",
		mcp.WithDescription("Get current flow rate and BAFU danger assessment. Use this for "+
			"safety-critical questions about current strength. Thresholds: <100 m³/s safe, "+
			"100-220 moderate, 220-300 elevated, 300-430 high, >430 extremely dangerous."),
		mcp.WithString("city",
			mcp.Description("City identifier (e.g. 'Bern', 'Thun', 'olten'). Defaults to Bern."),
		),
	), h.getFlowDangerLevel)

	s.AddTool(mcp.NewTool("compare_cities",
		mcp.WithDescription("Compare conditions across multiple cities, ranked warmest first "+
			"with safety status. The recommended tool for 'where is it best to swim?' "+
			"questions; cities are fetched concurrently."),
		mcp.WithArray("cities",
			mcp.Description("City identifiers to compare (e.g. ['Bern', 'Thun']). "+
				"Omit to compare all available cities."),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), h.compareCities)

	s.AddTool(mcp.NewTool("get_forecasts",
		mcp.WithDescription("Get 2-hour temperature forecasts and trends for multiple cities, "+
			"fetched concurrently."),
		mcp.WithArray("cities",
			mcp.Required(),
			mcp.Description("City identifiers (e.g. ['Bern', 'Thun'])."),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), h.getForecasts)

	s.AddTool(mcp.NewTool("list_cities",
		mcp.WithDescription("List all cities with Aare monitoring stations, including their "+
			"identifiers, display names, coordinates, and current temperatures. Use this to "+
			"discover valid city identifiers for the other tools."),
	), h.listCities)
}

func (h *handlers) getCurrentTemperature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	done := metrics.ToolCallStarted("get_current_temperature")
	report, err := h.svc.CurrentTemperature(ctx, req.GetString("city", "Bern"))
	done(err)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("get_current_temperature failed", err), nil
	}
	return jsonResult(report)
}

func (h *handlers) getCurrentConditions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	done := metrics.ToolCallStarted("get_current_conditions")
	report, err := h.svc.CurrentConditions(ctx, req.GetString("city", "Bern"))
	done(err)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("get_current_conditions failed", err), nil
	}
	return jsonResult(report)
}

func (h *handlers) getHistoricalData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	city, err := req.RequireString("city")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireString("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	done := metrics.ToolCallStarted("get_historical_data")
	report, err := h.svc.HistoricalData(ctx, city, start, end)
	done(err)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("get_historical_data failed", err), nil
	}
	return jsonResult(report)
}

func (h *handlers) getFlowDangerLevel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	done := metrics.ToolCallStarted("get_flow_danger_level")
	report, err := h.svc.FlowDangerLevel(ctx, req.GetString("city", "Bern"))
	done(err)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("get_flow_danger_level failed", err), nil
	}
	return jsonResult(report)
}

func (h *handlers) compareCities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	done := metrics.ToolCallStarted("compare_cities")
	report, err := h.svc.CompareCities(ctx, req.GetStringSlice("cities", nil))
	done(err)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("compare_cities failed", err), nil
	}
	return jsonResult(report)
}

func (h *handlers) getForecasts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	done := metrics.ToolCallStarted("get_forecasts")
	report, err := h.svc.Forecasts(ctx, req.GetStringSlice("cities", nil))
	done(err)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("get_forecasts failed", err), nil
	}
	return jsonResult(report)
}

func (h *handlers) listCities(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	done := metrics.ToolCallStarted("list_cities")
	cities, err := h.svc.CitiesList(ctx)
	done(err)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list_cities failed", err), nil
	}
	return jsonResult(cities)
}

// jsonResult encodes a report as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding result", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
