package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/infrastructure/api/jsonapi"
	"github.com/helixml/openflights/infrastructure/api/middleware"
	"github.com/helixml/openflights/infrastructure/api/v1/dto"
)

// StatusReporter reports per-kind index coverage.
type StatusReporter interface {
	Status(ctx context.Context) ([]search.IndexStatus, error)
}

// IndexRouter handles index status endpoints.
type IndexRouter struct {
	status StatusReporter
	logger *slog.Logger
}

// NewIndexRouter creates a new IndexRouter.
func NewIndexRouter(status StatusReporter, logger *slog.Logger) *IndexRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexRouter{status: status, logger: logger}
}

// Routes returns the chi router for index endpoints.
func (r *IndexRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.Status)
	return router
}

// Status handles GET /index-status.
//
//	@Summary		Index status
//	@Description	Entity and embedding counts per kind
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	jsonapi.Document
//	@Router			/index-status [get]
func (r *IndexRouter) Status(w http.ResponseWriter, req *http.Request) {
	statuses, err := r.status.Status(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	resources := make([]*jsonapi.Resource, len(statuses))
	for i, s := range statuses {
		resources[i] = jsonapi.NewResource("index_status", s.Kind.Plural(), dto.IndexStatusAttributes{
			Total:    s.Total,
			Embedded: s.Embedded,
			Pending:  s.Pending(),
		})
	}

	middleware.WriteDocument(w, http.StatusOK, jsonapi.NewListResponse(resources))
}
