package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"aareguru-mcp/internal/core"
)

// Resource URIs. The cities listing is static; current and today are
// templates keyed by city identifier.
const (
	citiesURI        = "aareguru://cities"
	currentURIPrefix = "aareguru://current/"
	todayURIPrefix   = "aareguru://today/"
	resourceMIMEType = "application/json"
)

func (h *handlers) registerResources(s *server.MCPServer) {
	s.AddResource(mcp.NewResource(citiesURI, "Monitored cities",
		mcp.WithResourceDescription("Complete list of cities with Aare monitoring stations: "+
			"identifiers, display names, coordinates, and current temperature readings."),
		mcp.WithMIMEType(resourceMIMEType),
	), h.readCities)

	s.AddResourceTemplate(mcp.NewResourceTemplate(currentURIPrefix+"{city}", "Current conditions",
		mcp.WithTemplateDescription("Complete current conditions for a city: water temperature, "+
			"flow rate, weather, and forecasts."),
		mcp.WithTemplateMIMEType(resourceMIMEType),
	), h.readCurrent)

	s.AddResourceTemplate(mcp.NewResourceTemplate(todayURIPrefix+"{city}", "Today snapshot",
		mcp.WithTemplateDescription("Minimal current snapshot for a city: temperature and basic "+
			"location information."),
		mcp.WithTemplateMIMEType(resourceMIMEType),
	), h.readToday)
}

func (h *handlers) readCities(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cities, err := h.svc.CitiesList(ctx)
	if err != nil {
		return nil, err
	}
	return resourceJSON(req.Params.URI, cities)
}

func (h *handlers) readCurrent(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	city, err := cityFromURI(req.Params.URI, currentURIPrefix)
	if err != nil {
		return nil, err
	}
	report, err := h.svc.CurrentConditions(ctx, city)
	if err != nil {
		return nil, err
	}
	return resourceJSON(req.Params.URI, report)
}

func (h *handlers) readToday(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	city, err := cityFromURI(req.Params.URI, todayURIPrefix)
	if err != nil {
		return nil, err
	}
	snapshot, err := h.svc.TodaySnapshot(ctx, city)
	if err != nil {
		return nil, err
	}
	return resourceJSON(req.Params.URI, snapshot)
}

func cityFromURI(uri, prefix string) (string, error) {
	city := strings.TrimPrefix(uri, prefix)
	if city == "" || city == uri || strings.Contains(city, "/") {
		return "", core.NewValidationError(uri, "missing or malformed city in resource URI", nil)
	}
	return city, nil
}

func resourceJSON(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: resourceMIMEType, Text: string(data)},
	}, nil
}
