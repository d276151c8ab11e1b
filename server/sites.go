package server

import (
	"net/http"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/authoring"
)

type duplicateResponse struct {
	Success         bool   `json:"success"`
	NewTemplatePath string `json:"new_template_path"`
}

func (s *Server) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	var req authoring.DuplicateTemplateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	dest, err := s.Builder.DuplicateTemplate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, duplicateResponse{Success: true, NewTemplatePath: dest})
}

type listPagesResponse struct {
	Success    bool     `json:"success"`
	JCRContent aem.Node `json:"jcr_content"`
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	var req authoring.ListPagesRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tree, err := s.Builder.ListPages(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listPagesResponse{Success: true, JCRContent: tree})
}
