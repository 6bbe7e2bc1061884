// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/openflights/domain/search"
)

// Searcher runs similarity searches for MCP tools.
type Searcher interface {
	SimilarAirports(ctx context.Context, q search.Query, filter search.AirportFilter, k int) ([]search.AirportMatch, error)
	SimilarAirlines(ctx context.Context, q search.Query, filter search.AirlineFilter, k int) ([]search.AirlineMatch, error)
	SimilarRoutes(ctx context.Context, q search.Query, filter search.RouteFilter, k int) ([]search.RouteMatch, error)
}

// StatusReporter reports per-kind index coverage.
type StatusReporter interface {
	Status(ctx context.Context) ([]search.IndexStatus, error)
}

// Server wraps the MCP server with openflights tools.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	status    StatusReporter
	version   string
	logger    *slog.Logger
}

// NewServer creates a new MCP server. A nil status reporter omits the
// index_status tool.
func NewServer(searcher Searcher, status StatusReporter, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searcher: searcher,
		status:   status,
		version:  version,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"openflights",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func queryParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("query_vec",
			mcp.Description("Precomputed query vector as a JSON array, e.g. [0.1,0.2,...]. Takes precedence over query_text."),
		),
		mcp.WithString("query_text",
			mcp.Description("Free text to embed as the query when no query_vec is given"),
		),
		mcp.WithBoolean("force_multilingual",
			mcp.Description("Always embed query_text with the multilingual model"),
		),
		mcp.WithNumber("k",
			mcp.Description(fmt.Sprintf("Number of results, %d to %d (default: %d)", search.MinLimit, search.MaxLimit, search.DefaultLimit)),
		),
	}
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	airports := append([]mcp.ToolOption{
		mcp.WithDescription("Find airports semantically similar to a query, optionally within a timezone prefix. Score is cosine distance; lower is closer."),
		mcp.WithString("tz_prefix",
			mcp.Description("IANA timezone prefix or exact zone, e.g. Asia/ or Asia/Kolkata"),
		),
	}, queryParams()...)
	mcpServer.AddTool(mcp.NewTool("similar_airports", airports...), s.handleSimilarAirports)

	airlines := append([]mcp.ToolOption{
		mcp.WithDescription("Find airlines semantically similar to a query, optionally in one country"),
		mcp.WithString("country",
			mcp.Description("Exact country name"),
		),
	}, queryParams()...)
	mcpServer.AddTool(mcp.NewTool("similar_airlines", airlines...), s.handleSimilarAirlines)

	routes := append([]mcp.ToolOption{
		mcp.WithDescription("Find routes semantically similar to a query. Filters apply within a pool of nearest candidates, so fewer than k routes may come back."),
		mcp.WithString("src", mcp.Description("Source airport IATA code")),
		mcp.WithString("dst", mcp.Description("Destination airport IATA code")),
		mcp.WithString("avoid_airline", mcp.Description("Airline code to exclude")),
		mcp.WithNumber("stops_max", mcp.Description(fmt.Sprintf("Maximum stops, 0 to %d", search.MaxStops))),
	}, queryParams()...)
	mcpServer.AddTool(mcp.NewTool("similar_routes", routes...), s.handleSimilarRoutes)

	if s.status != nil {
		mcpServer.AddTool(mcp.NewTool("index_status",
			mcp.WithDescription("Count entities and embedded entities per kind"),
		), s.handleIndexStatus)
	}

	mcpServer.AddTool(mcp.NewTool("get_version",
		mcp.WithDescription("Get the openflights server version"),
	), s.handleGetVersion)
}

func buildQuery(request mcp.CallToolRequest) search.Query {
	return search.NewQuery(
		search.WithVectorText(request.GetString("query_vec", "")),
		search.WithText(request.GetString("query_text", "")),
		search.WithForceMultilingual(request.GetBool("force_multilingual", false)),
	)
}

func limit(request mcp.CallToolRequest) int {
	return search.ClampLimit(request.GetInt("k", search.DefaultLimit))
}

type airportResult struct {
	AirportID int64   `json:"airport_id"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	IATA      string  `json:"iata"`
	ICAO      string  `json:"icao"`
	TZ        string  `json:"tz"`
	Score     float64 `json:"score"`
}

func (s *Server) handleSimilarAirports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := search.NewAirportFilter(search.WithTZPrefix(request.GetString("tz_prefix", "")))
	matches, err := s.searcher.SimilarAirports(ctx, buildQuery(request), filter, limit(request))
	if err != nil {
		return s.toolError(ctx, "similar_airports", err), nil
	}
	results := make([]airportResult, len(matches))
	for i, m := range matches {
		results[i] = airportResult{
			AirportID: m.AirportID, Name: m.Name, City: m.City, Country: m.Country,
			IATA: m.IATA, ICAO: m.ICAO, TZ: m.TZ, Score: m.Score,
		}
	}
	return jsonResult(results)
}

type airlineResult struct {
	AirlineID int64   `json:"airline_id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	IATA      string  `json:"iata"`
	ICAO      string  `json:"icao"`
	Active    string  `json:"active"`
	Score     float64 `json:"score"`
}

func (s *Server) handleSimilarAirlines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := search.NewAirlineFilter(search.WithCountry(request.GetString("country", "")))
	matches, err := s.searcher.SimilarAirlines(ctx, buildQuery(request), filter, limit(request))
	if err != nil {
		return s.toolError(ctx, "similar_airlines", err), nil
	}
	results := make([]airlineResult, len(matches))
	for i, m := range matches {
		results[i] = airlineResult{
			AirlineID: m.AirlineID, Name: m.Name, Country: m.Country,
			IATA: m.IATA, ICAO: m.ICAO, Active: m.Active, Score: m.Score,
		}
	}
	return jsonResult(results)
}

type routeResult struct {
	ID      int64   `json:"id"`
	Airline string  `json:"airline"`
	Src     string  `json:"src"`
	Dst     string  `json:"dst"`
	Stops   int     `json:"stops"`
	Score   float64 `json:"score"`
}

func (s *Server) handleSimilarRoutes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := []search.RouteFilterOption{
		search.WithSrc(request.GetString("src", "")),
		search.WithDst(request.GetString("dst", "")),
		search.WithAvoidAirline(request.GetString("avoid_airline", "")),
	}
	if _, ok := request.GetArguments()["stops_max"]; ok {
		opts = append(opts, search.WithStopsMax(request.GetInt("stops_max", 0)))
	}

	matches, err := s.searcher.SimilarRoutes(ctx, buildQuery(request), search.NewRouteFilter(opts...), limit(request))
	if err != nil {
		return s.toolError(ctx, "similar_routes", err), nil
	}
	results := make([]routeResult, len(matches))
	for i, m := range matches {
		results[i] = routeResult{
			ID: m.ID, Airline: m.Airline, Src: m.Src, Dst: m.Dst, Stops: m.Stops, Score: m.Score,
		}
	}
	return jsonResult(results)
}

type statusResult struct {
	Kind     string `json:"kind"`
	Total    int64  `json:"total"`
	Embedded int64  `json:"embedded"`
	Pending  int64  `json:"pending"`
}

func (s *Server) handleIndexStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses, err := s.status.Status(ctx)
	if err != nil {
		return s.toolError(ctx, "index_status", err), nil
	}
	results := make([]statusResult, len(statuses))
	for i, st := range statuses {
		results[i] = statusResult{
			Kind: st.Kind.Plural(), Total: st.Total, Embedded: st.Embedded, Pending: st.Pending(),
		}
	}
	return jsonResult(results)
}

func (s *Server) handleGetVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.version), nil
}

func (s *Server) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	s.logger.WarnContext(ctx, "tool failed", slog.String("tool", tool), slog.Any("error", err))
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
