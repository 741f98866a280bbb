// Package api exposes the read endpoints and the outbound command
// endpoint over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/logging"
	"github.com/cityops/traffic-light-monitor/internal/mq"
	"github.com/cityops/traffic-light-monitor/internal/query"
)

// ReadingSource serves the filtered history and the auxiliary reads.
// Implementations absorb backend failures into empty results.
type ReadingSource interface {
	Readings(ctx context.Context, p query.Params) []db.Reading
	Streets(ctx context.Context) []string
	DevicesByStreet(ctx context.Context, streetID string) []int
}

// CommandSender publishes a command message to a device's cmd topic
type CommandSender interface {
	PublishCommand(ctx context.Context, streetID string, deviceID int, cmd mq.Command) error
}

// Server is the HTTP read API
type Server struct {
	source   ReadingSource
	commands CommandSender
	logger   *zap.Logger
	router   *mux.Router
}

// NewServer creates the API server and wires its routes
func NewServer(source ReadingSource, commands CommandSender, logger *zap.Logger) *Server {
	s := &Server{
		source:   source,
		commands: commands,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.router.HandleFunc("/api/v1/readings", s.handleReadings).Methods("GET")
	s.router.HandleFunc("/api/v1/streets", s.handleStreets).Methods("GET")
	s.router.HandleFunc("/api/v1/streets/{streetId}/devices", s.handleDevicesByStreet).Methods("GET")
	s.router.HandleFunc("/api/v1/devices/{deviceId}/command", s.handleCommand).Methods("POST")

	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

type contextKey string

const requestIDKey contextKey = "request_id"

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.requestLogger(r).Info("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if requestID, ok := r.Context().Value(requestIDKey).(string); ok {
		return logging.WithRequestID(s.logger, requestID)
	}
	return s.logger
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
