// Package v1 provides the v1 HTTP API routes.
package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/infrastructure/api/middleware"
	"github.com/helixml/openflights/infrastructure/api/v1/dto"
)

// Searcher runs similarity searches.
type Searcher interface {
	SimilarAirports(ctx context.Context, q search.Query, filter search.AirportFilter, k int) ([]search.AirportMatch, error)
	SimilarAirlines(ctx context.Context, q search.Query, filter search.AirlineFilter, k int) ([]search.AirlineMatch, error)
	SimilarRoutes(ctx context.Context, q search.Query, filter search.RouteFilter, k int) ([]search.RouteMatch, error)
	StoredVector(ctx context.Context, kind flight.Kind, id int64) (string, error)
	DefaultLimit() int
}

// SearchRouter handles similarity search endpoints.
type SearchRouter struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewSearchRouter creates a new SearchRouter.
func NewSearchRouter(searcher Searcher, logger *slog.Logger) *SearchRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchRouter{
		searcher: searcher,
		logger:   logger,
	}
}

// Routes returns the chi router for search endpoints.
func (r *SearchRouter) Routes() chi.Router {
	router := chi.NewRouter()
	r.Mount(router)
	return router
}

// Mount registers the search endpoints on router.
func (r *SearchRouter) Mount(router chi.Router) {
	router.Get("/similar-airports", r.SimilarAirports)
	router.Get("/similar-airlines", r.SimilarAirlines)
	router.Get("/similar-routes", r.SimilarRoutes)
	router.Get("/{kind}/{id}/similar", r.SimilarToEntity)
}

// SimilarAirports handles GET /similar-airports.
//
//	@Summary		Similar airports
//	@Description	Airports nearest to a query vector or text, optionally within a timezone prefix
//	@Tags			search
//	@Produce		json
//	@Param			query_vec			query		string	false	"Query vector as [x,y,...]"
//	@Param			query_text			query		string	false	"Text to embed when no query_vec is given"
//	@Param			force_multilingual	query		bool	false	"Embed with the multilingual model"
//	@Param			tz_prefix			query		string	false	"Timezone prefix, e.g. Asia/"
//	@Param			k					query		int		false	"Result count, 1 to 200"
//	@Success		200					{array}		dto.AirportRow
//	@Failure		422					{object}	jsonapi.Document
//	@Failure		503					{object}	jsonapi.Document
//	@Router			/similar-airports [get]
func (r *SearchRouter) SimilarAirports(w http.ResponseWriter, req *http.Request) {
	values := req.URL.Query()
	q, err := parseQuery(values)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	r.airports(w, req, q, values)
}

// SimilarAirlines handles GET /similar-airlines.
//
//	@Summary		Similar airlines
//	@Description	Airlines nearest to a query vector or text, optionally in one country
//	@Tags			search
//	@Produce		json
//	@Param			country	query		string	false	"Exact country name"
//	@Param			k		query		int		false	"Result count, 1 to 200"
//	@Success		200		{array}		dto.AirlineRow
//	@Failure		422		{object}	jsonapi.Document
//	@Router			/similar-airlines [get]
func (r *SearchRouter) SimilarAirlines(w http.ResponseWriter, req *http.Request) {
	values := req.URL.Query()
	q, err := parseQuery(values)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	r.airlines(w, req, q, values)
}

// SimilarRoutes handles GET /similar-routes.
//
//	@Summary		Similar routes
//	@Description	Routes ranked within the nearest candidate pool, then filtered
//	@Tags			search
//	@Produce		json
//	@Param			src				query		string	false	"Source airport code"
//	@Param			dst				query		string	false	"Destination airport code"
//	@Param			avoid_airline	query		string	false	"Airline code to exclude"
//	@Param			stops_max		query		int		false	"Maximum stops, 0 to 3"
//	@Success		200				{array}		dto.RouteRow
//	@Failure		422				{object}	jsonapi.Document
//	@Router			/similar-routes [get]
func (r *SearchRouter) SimilarRoutes(w http.ResponseWriter, req *http.Request) {
	values := req.URL.Query()
	q, err := parseQuery(values)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	r.routes(w, req, q, values)
}

// SimilarToEntity handles GET /{kind}/{id}/similar. The stored vector of the
// entity is the query, so the entity itself ranks first.
//
//	@Summary		Entities similar to an indexed entity
//	@Tags			search
//	@Produce		json
//	@Param			kind	path		string	true	"airports, airlines or routes"
//	@Param			id		path		int		true	"Entity id"
//	@Failure		404		{object}	jsonapi.Document
//	@Router			/{kind}/{id}/similar [get]
func (r *SearchRouter) SimilarToEntity(w http.ResponseWriter, req *http.Request) {
	kind, err := flight.ParseKind(chi.URLParam(req, "kind"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusUnprocessableEntity, "id must be an integer", err), r.logger)
		return
	}

	vec, err := r.searcher.StoredVector(req.Context(), kind, id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	values := req.URL.Query()
	q := search.NewQuery(search.WithVectorText(vec))
	switch kind {
	case flight.KindAirport:
		r.airports(w, req, q, values)
	case flight.KindAirline:
		r.airlines(w, req, q, values)
	case flight.KindRoute:
		r.routes(w, req, q, values)
	}
}

func (r *SearchRouter) airports(w http.ResponseWriter, req *http.Request, q search.Query, values url.Values) {
	filter := search.NewAirportFilter(search.WithTZPrefix(values.Get("tz_prefix")))
	matches, err := r.searcher.SimilarAirports(req.Context(), q, filter, r.limit(values))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.AirportRows(matches))
}

func (r *SearchRouter) airlines(w http.ResponseWriter, req *http.Request, q search.Query, values url.Values) {
	filter := search.NewAirlineFilter(search.WithCountry(values.Get("country")))
	matches, err := r.searcher.SimilarAirlines(req.Context(), q, filter, r.limit(values))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.AirlineRows(matches))
}

func (r *SearchRouter) routes(w http.ResponseWriter, req *http.Request, q search.Query, values url.Values) {
	filter, err := parseRouteFilter(values)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	matches, err := r.searcher.SimilarRoutes(req.Context(), q, filter, r.limit(values))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.RouteRows(matches))
}

// limit reads k. A missing or non-integer k falls back to the default.
func (r *SearchRouter) limit(values url.Values) int {
	return search.ParseLimit(values.Get("k"), r.searcher.DefaultLimit())
}

func parseQuery(values url.Values) (search.Query, error) {
	force := false
	if raw := strings.TrimSpace(values.Get("force_multilingual")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return search.Query{}, middleware.NewAPIError(http.StatusUnprocessableEntity, "force_multilingual must be a boolean", err)
		}
		force = b
	}
	return search.NewQuery(
		search.WithVectorText(values.Get("query_vec")),
		search.WithText(values.Get("query_text")),
		search.WithForceMultilingual(force),
	), nil
}

func parseRouteFilter(values url.Values) (search.RouteFilter, error) {
	opts := []search.RouteFilterOption{
		search.WithSrc(values.Get("src")),
		search.WithDst(values.Get("dst")),
		search.WithAvoidAirline(values.Get("avoid_airline")),
	}
	if raw := strings.TrimSpace(values.Get("stops_max")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return search.RouteFilter{}, fmt.Errorf("%w: stops_max must be an integer, got %q", search.ErrInvalidFilter, raw)
		}
		opts = append(opts, search.WithStopsMax(n))
	}
	filter := search.NewRouteFilter(opts...)
	if err := filter.Validate(); err != nil {
		return search.RouteFilter{}, err
	}
	return filter, nil
}
