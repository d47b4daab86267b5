// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatusAPIServer serves read-only hub state over HTTP
type StatusAPIServer struct {
	hub    *Hub
	server *http.Server
	router *mux.Router
	logger zerolog.Logger
}

// StatusResponse is the envelope of every status API reply
type StatusResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewStatusAPIServer creates a status API server for the hub
func NewStatusAPIServer(hub *Hub, listen string) *StatusAPIServer {
	server := &StatusAPIServer{
		hub:    hub,
		logger: hub.logger.With().Str("component", "status_api").Logger(),
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", server.handleHealth).Methods("GET")
	router.HandleFunc("/clients", server.handleClientList).Methods("GET")
	router.HandleFunc("/clients/{port:[0-9]+}", server.handleClient).Methods("GET")
	router.HandleFunc("/peers", server.handlePeerList).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(hub.metrics.Registry, promhttp.HandlerOpts{})).Methods("GET")

	server.router = router
	server.server = &http.Server{
		Addr:    listen,
		Handler: router,
	}

	return server
}

// Handler returns the HTTP handler of the API
func (s *StatusAPIServer) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background
func (s *StatusAPIServer) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.logger.Info().
		Str("address", listener.Addr().String()).
		Msg("Starting hub status API server")

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Status API server error")
		}
	}()

	return nil
}

// Stop stops the status API server
func (s *StatusAPIServer) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping hub status API server")
	return s.server.Shutdown(ctx)
}

// handleHealth returns the lifecycle state of the hub
func (s *StatusAPIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.hub.GetStatus()
	if !s.hub.IsConnected() {
		s.send(w, http.StatusServiceUnavailable, StatusResponse{
			Success: false,
			Message: "Hub is not connected",
			Data:    status,
		})
		return
	}
	s.sendSuccess(w, "Hub is connected", status)
}

// handleClientList returns every registered client
func (s *StatusAPIServer) handleClientList(w http.ResponseWriter, r *http.Request) {
	clients := s.hub.Registry().Snapshot()
	s.sendSuccess(w, "Client list retrieved successfully", map[string]interface{}{
		"clients": clients,
		"count":   len(clients),
		"active":  s.hub.Registry().ActiveCount(),
	})
}

// handleClient returns one client by port
func (s *StatusAPIServer) handleClient(w http.ResponseWriter, r *http.Request) {
	port, err := strconv.Atoi(mux.Vars(r)["port"])
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid port", err)
		return
	}

	entry, ok := s.hub.Registry().Get(port)
	if !ok {
		s.sendError(w, http.StatusNotFound, fmt.Sprintf("No client on port %d", port), nil)
		return
	}
	s.sendSuccess(w, "Client retrieved successfully", entry)
}

// handlePeerList returns the recently heard remote heartbeat senders
func (s *StatusAPIServer) handlePeerList(w http.ResponseWriter, r *http.Request) {
	peers := s.hub.Peers().Snapshot()
	s.sendSuccess(w, "Peer list retrieved successfully", map[string]interface{}{
		"peers": peers,
		"count": len(peers),
	})
}

// sendSuccess sends a successful response
func (s *StatusAPIServer) sendSuccess(w http.ResponseWriter, message string, data interface{}) {
	s.send(w, http.StatusOK, StatusResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// sendError sends an error response
func (s *StatusAPIServer) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := StatusResponse{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
		s.logger.Error().Err(err).Str("message", message).Msg("API error")
	} else {
		s.logger.Warn().Str("message", message).Msg("API client error")
	}

	s.send(w, statusCode, response)
}

func (s *StatusAPIServer) send(w http.ResponseWriter, statusCode int, response StatusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
