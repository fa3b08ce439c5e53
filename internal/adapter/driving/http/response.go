package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloudlens/cloudlens/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialUpsertRequest is the JSON body for the store credentials
// endpoint. Each provider field is optional; omitted providers keep their
// stored credentials.
type CredentialUpsertRequest struct {
	AWS   *model.AWSCredential   `json:"aws,omitempty"`
	Azure *model.AzureCredential `json:"azure,omitempty"`
	GCP   *model.GCPCredential   `json:"gcp,omitempty"`
}

// CredentialInfoResponse summarizes which providers have stored credentials.
// It never carries secret material.
type CredentialInfoResponse struct {
	Providers []string `json:"providers"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// CredentialStatusResponse maps each provider to the health of its stored
// credential: ok, invalid, or absent.
type CredentialStatusResponse struct {
	AWS   string `json:"aws"`
	Azure string `json:"azure"`
	GCP   string `json:"gcp"`
}

// CacheStatsResponse is the JSON representation of the caller's cache usage.
type CacheStatsResponse struct {
	TotalEntries int            `json:"total_entries"`
	PerProvider  map[string]int `json:"per_provider"`
	OldestEntry  string         `json:"oldest_entry,omitempty"`
	NewestEntry  string         `json:"newest_entry,omitempty"`
}

// RefreshCountdownResponse is the JSON representation of the time remaining
// until the next daily refresh window.
type RefreshCountdownResponse struct {
	Hours       int    `json:"hours"`
	Minutes     int    `json:"minutes"`
	NextRefresh string `json:"next_refresh"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toCredentialInfoResponse converts a stored-provider summary to its JSON
// representation.
func toCredentialInfoResponse(providers []model.Provider, updatedAt time.Time) CredentialInfoResponse {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, string(p))
	}

	resp := CredentialInfoResponse{Providers: names}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// toCredentialStatusResponse converts a domain CredentialHealth to its JSON
// representation.
func toCredentialStatusResponse(health model.CredentialHealth) CredentialStatusResponse {
	return CredentialStatusResponse{
		AWS:   string(health[model.ProviderAWS]),
		Azure: string(health[model.ProviderAzure]),
		GCP:   string(health[model.ProviderGCP]),
	}
}

// toCacheStatsResponse converts domain CacheStats to its JSON representation.
func toCacheStatsResponse(stats model.CacheStats) CacheStatsResponse {
	perProvider := make(map[string]int, len(stats.PerProvider))
	for p, n := range stats.PerProvider {
		perProvider[string(p)] = n
	}

	resp := CacheStatsResponse{
		TotalEntries: stats.TotalEntries,
		PerProvider:  perProvider,
	}
	if stats.OldestEntry != nil {
		resp.OldestEntry = stats.OldestEntry.UTC().Format(time.RFC3339)
	}
	if stats.NewestEntry != nil {
		resp.NewestEntry = stats.NewestEntry.UTC().Format(time.RFC3339)
	}
	return resp
}
