// Package v1 provides the REST handlers for deployment lifecycle events.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackbound/deploy-annotator/internal/logger"
	"github.com/stackbound/deploy-annotator/internal/store"
	"github.com/stackbound/deploy-annotator/internal/versions"
)

// Lifecycle is the coordinator surface the handlers depend on.
//
//go:generate mockgen -destination=mocks/mock_lifecycle.go -package=mocks -source=routes.go Lifecycle
type Lifecycle interface {
	// MarkStart records the beginning of a deployment
	MarkStart(ctx context.Context, key store.DeploymentKey) error

	// MarkEnd records the completion of a previously started deployment
	MarkEnd(ctx context.Context, key store.DeploymentKey) error
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes defines the deployment event routes with dependency injection
type Routes struct {
	lifecycle Lifecycle
}

// NewRoutes creates a new Routes instance with the provided lifecycle coordinator
func NewRoutes(lifecycle Lifecycle) *Routes {
	return &Routes{
		lifecycle: lifecycle,
	}
}

// Router creates a new router for the deployment event API
func Router(lifecycle Lifecycle) http.Handler {
	routes := NewRoutes(lifecycle)

	r := chi.NewRouter()

	r.Post("/{service}/{deploymentID}/start", routes.startDeployment)
	r.Post("/{service}/{deploymentID}/end", routes.endDeployment)

	return r
}

// startDeployment handles POST /deployment/{service}/{deploymentID}/start
func (dr *Routes) startDeployment(w http.ResponseWriter, r *http.Request) {
	key, err := store.NewDeploymentKey(chi.URLParam(r, "service"), chi.URLParam(r, "deploymentID"))
	if err != nil {
		dr.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := dr.lifecycle.MarkStart(r.Context(), key); err != nil {
		logger.Errorf("Failed to record deployment start for %s: %v", key, err)
		dr.writeErrorResponse(w, "Failed to record deployment start", statusForError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// endDeployment handles POST /deployment/{service}/{deploymentID}/end
func (dr *Routes) endDeployment(w http.ResponseWriter, r *http.Request) {
	key, err := store.NewDeploymentKey(chi.URLParam(r, "service"), chi.URLParam(r, "deploymentID"))
	if err != nil {
		dr.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := dr.lifecycle.MarkEnd(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			dr.writeErrorResponse(w, "No deployment record for "+key.String(), http.StatusNotFound)
			return
		}
		logger.Errorf("Failed to record deployment end for %s: %v", key, err)
		dr.writeErrorResponse(w, "Failed to record deployment end", statusForError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// statusForError maps coordinator failures to response codes. Store faults
// are internal errors; anything else came from the annotation API.
func statusForError(err error) int {
	if errors.Is(err, store.ErrStoreUnavailable) || errors.Is(err, store.ErrConcurrencyConflict) {
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(records store.Store) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(records))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler handles readiness check requests
func readinessHandler(records store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := records.Ping(r.Context()); err != nil {
			errorResp := ErrorResponse{
				Error: "Record store not ready: " + err.Error(),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if encodeErr := json.NewEncoder(w).Encode(errorResp); encodeErr != nil {
				logger.Errorf("Failed to encode readiness error response: %v", encodeErr)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(info); err != nil {
		logger.Errorf("Failed to encode version info: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{
		Error: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		logger.Errorf("Failed to encode error response: %v", err)
	}
}
