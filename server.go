package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wizfi/ESP8266-AT-Commands-parser/wizfi"
)

// Server handles incoming HTTP requests for inspecting the module driven by
// the gateway
type Server struct {
	Logger   *zap.Logger
	Gateway  *Gateway
	Gatherer prometheus.Gatherer
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleStatus reports the latest session snapshot
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.Gateway.Status()
	if !ok {
		s.sendError(w, "module not initialized", http.StatusServiceUnavailable)
		return
	}

	type StatusResponse struct {
		wizfi.Status
		Echoed uint64 `json:"echoed"`
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(StatusResponse{Status: st, Echoed: s.Gateway.Echoed()}); err != nil {
		s.Logger.Error("Failed to encode status", zap.Error(err))
	}
}
