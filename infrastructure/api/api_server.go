package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/openflights"
	"github.com/helixml/openflights/infrastructure/api/middleware"
	v1 "github.com/helixml/openflights/infrastructure/api/v1"
	mcpinternal "github.com/helixml/openflights/internal/mcp"
)

// ServiceName is reported by GET /.
const ServiceName = "OpenFlights Semantic Explorer API"

// Endpoints lists the public routes reported by GET /.
var Endpoints = []string{
	"/health",
	"/similar-airports",
	"/similar-routes",
	"/similar-airlines",
	"/api/v1/similar-airports",
	"/api/v1/similar-routes",
	"/api/v1/similar-airlines",
	"/api/v1/{kind}/{id}/similar",
	"/api/v1/index-status",
	"/mcp",
}

// APIServerOption configures an APIServer.
type APIServerOption func(*APIServer)

// WithVersion sets the version reported by the MCP server.
func WithVersion(version string) APIServerOption {
	return func(a *APIServer) {
		if version != "" {
			a.version = version
		}
	}
}

// WithCORSOrigins sets the allowed cross-site origins.
func WithCORSOrigins(origins []string) APIServerOption {
	return func(a *APIServer) { a.origins = origins }
}

// APIServer provides an HTTP API backed by an openflights Client.
type APIServer struct {
	client       *openflights.Client
	version      string
	origins      []string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given Client.
func NewAPIServer(client *openflights.Client, opts ...APIServerOption) *APIServer {
	a := &APIServer{
		client:  client,
		version: "dev",
		logger:  client.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all API routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	searchRouter := v1.NewSearchRouter(c.Search, a.logger)
	indexRouter := v1.NewIndexRouter(c.Indexer, a.logger)

	router.Get("/", a.root)
	router.Get("/health", a.health)

	// Unversioned aliases of the search endpoints.
	router.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Get("/similar-airports", searchRouter.SimilarAirports)
		r.Get("/similar-airlines", searchRouter.SimilarAirlines)
		r.Get("/similar-routes", searchRouter.SimilarRoutes)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		searchRouter.Mount(r)
		r.Mount("/index-status", indexRouter.Routes())
	})

	// MCP streams responses and keeps session state in headers, so it is
	// mounted outside the Timeout middleware.
	mcpSrv := mcpinternal.NewServer(c.Search, c.Indexer, a.version, a.logger)
	httpHandler := server.NewStreamableHTTPServer(mcpSrv.MCPServer())
	router.Mount("/mcp", httpHandler)
}

type rootResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

func (a *APIServer) root(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, rootResponse{
		Name:      ServiceName,
		Version:   a.version,
		Endpoints: Endpoints,
	})
}

type healthResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// health reports store reachability. It answers 200 either way; the body
// carries the outcome.
func (a *APIServer) health(w http.ResponseWriter, req *http.Request) {
	if err := a.client.Health(req.Context()); err != nil {
		a.logger.Warn("health check failed", slog.Any("error", err))
		middleware.WriteJSON(w, http.StatusOK, healthResponse{OK: false, Error: err.Error()})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, healthResponse{OK: true})
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger, a.origins...)
	a.server = &server

	if a.routerCalled && a.router != nil {
		server.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(server.Router())
	}

	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}
