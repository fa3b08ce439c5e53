package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudlens/cloudlens/internal/application"
	"github.com/cloudlens/cloudlens/internal/domain/model"
)

// userIDHeader carries the caller's identity. An absent or empty header means
// the anonymous default-credential context.
const userIDHeader = "X-User-ID"

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	creds  *application.CredentialService
	cache  *application.CacheService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	creds *application.CredentialService,
	cache *application.CacheService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		creds:  creds,
		cache:  cache,
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request-id, logging, and recovery middleware. registry backs the
// metrics endpoint.
func NewServeMux(h *Handler, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("PUT /api/v1/credentials", h.StoreCredentials)
	mux.HandleFunc("GET /api/v1/credentials", h.GetCredentialInfo)
	mux.HandleFunc("DELETE /api/v1/credentials", h.DeleteCredentials)
	mux.HandleFunc("DELETE /api/v1/credentials/{provider}", h.ClearCredential)
	mux.HandleFunc("GET /api/v1/credentials/status", h.CredentialStatus)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("DELETE /api/v1/cache", h.InvalidateCache)
	mux.HandleFunc("DELETE /api/v1/cache/{provider}", h.InvalidateProviderCache)
	mux.HandleFunc("DELETE /api/v1/cache/{provider}/{dataType}", h.InvalidateProviderCache)
	mux.HandleFunc("GET /api/v1/refresh/next", h.NextRefresh)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// StoreCredentials validates, encrypts, and stores the credentials in the
// request body for the calling user. Providers absent from the body keep
// their stored values.
func (h *Handler) StoreCredentials(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CredentialUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.creds.Store(r.Context(), userID, model.CredentialSet{
		AWS:   req.AWS,
		Azure: req.Azure,
		GCP:   req.GCP,
	})
	switch {
	case err == nil:
	case errors.Is(err, application.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, "credential storage is disabled")
		return
	case errors.Is(err, application.ErrNoCredentialsSupplied):
		writeError(w, http.StatusBadRequest, "request body names no provider credentials")
		return
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.logger.Error("failed to store credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeCredentialInfo(w, r, userID, http.StatusOK)
}

// GetCredentialInfo returns which providers have stored credentials for the
// calling user. Secrets are never echoed back.
func (h *Handler) GetCredentialInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.writeCredentialInfo(w, r, userID, http.StatusOK)
}

// DeleteCredentials removes the calling user's entire credential record.
func (h *Handler) DeleteCredentials(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	existed, err := h.creds.Delete(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to delete credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "no stored credentials")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCredential removes one provider's credential for the calling user,
// leaving the others intact.
func (h *Handler) ClearCredential(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	provider, ok := providerFromPath(w, r)
	if !ok {
		return
	}

	if err := h.creds.Clear(r.Context(), userID, provider); err != nil {
		h.logger.Error("failed to clear credential", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CredentialStatus reports per-provider health of the calling user's stored
// credentials: ok, invalid, or absent.
func (h *Handler) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	health, err := h.creds.Health(r.Context(), userID)
	if err != nil {
		if errors.Is(err, application.ErrEncryptionKeyNotSet) {
			writeError(w, http.StatusServiceUnavailable, "credential storage is disabled")
			return
		}
		h.logger.Error("failed to check credential status", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialStatusResponse(health))
}

// CacheStats returns entry counts and age bounds for the caller's cache.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context(), callerID(r))
	if err != nil {
		h.logger.Error("failed to read cache stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toCacheStatsResponse(stats))
}

// InvalidateCache drops every cached entry for the caller.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.InvalidateUser(r.Context(), callerID(r)); err != nil {
		h.logger.Error("failed to invalidate cache", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// InvalidateProviderCache drops the caller's cached entries for one provider,
// or for one (provider, dataType) pair when the path names a data type.
func (h *Handler) InvalidateProviderCache(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFromPath(w, r)
	if !ok {
		return
	}
	dataType := r.PathValue("dataType")

	if err := h.cache.Invalidate(r.Context(), callerID(r), provider, dataType); err != nil {
		h.logger.Error("failed to invalidate cache", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// NextRefresh returns the countdown to the next daily refresh window.
func (h *Handler) NextRefresh(w http.ResponseWriter, _ *http.Request) {
	countdown := h.cache.NextRefreshCountdown()
	writeJSON(w, http.StatusOK, RefreshCountdownResponse{
		Hours:       countdown.Hours,
		Minutes:     countdown.Minutes,
		NextRefresh: countdown.NextRefresh.Format(time.RFC3339),
	})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeCredentialInfo responds with the caller's stored-provider summary.
func (h *Handler) writeCredentialInfo(w http.ResponseWriter, r *http.Request, userID string, status int) {
	providers, updatedAt, err := h.creds.StoredProviders(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to read stored providers", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, status, toCredentialInfoResponse(providers, updatedAt))
}

// callerID extracts the optional caller identity from the request.
func callerID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}

// requireUser extracts the caller identity, writing a 401 when absent.
// Credential management endpoints have no anonymous meaning.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return "", false
	}
	return userID, true
}

// providerFromPath parses the {provider} path segment, writing a 400 for an
// unknown provider.
func providerFromPath(w http.ResponseWriter, r *http.Request) (model.Provider, bool) {
	provider := model.Provider(r.PathValue("provider"))
	if !provider.Valid() {
		writeError(w, http.StatusBadRequest, "unknown provider: expected aws, azure, or gcp")
		return "", false
	}
	return provider, true
}

// isValidationError distinguishes a rejected credential payload from an
// infrastructure failure. Validation errors are produced per provider and
// wrap the field-level cause.
func isValidationError(err error) bool {
	return errors.Is(err, model.ErrMissingField)
}
