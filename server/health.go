package server

import (
	"net/http"
)

type banner struct {
	Message     string `json:"message"`
	Version     string `json:"version"`
	Status      string `json:"status"`
	Environment string `json:"environment"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, banner{
		Message:     serviceName,
		Version:     s.Version,
		Status:      "running",
		Environment: s.Environment,
	})
}

type liveness struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Environment string `json:"environment,omitempty"`
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, liveness{Status: "healthy", Version: s.Version})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, liveness{Status: "healthy", Version: s.Version, Environment: s.Environment})
}

// handleAEMHealth always answers 200: the body says whether AEM is reachable and accepts us.
func (s *Server) handleAEMHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.AEM.Health(r.Context()))
}
