package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewOpsHandler builds the operational endpoints for the ingestion
// worker: health and the metrics scrape. The ingest counters live in the
// worker process, so it serves its own scrape endpoint.
func NewOpsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
