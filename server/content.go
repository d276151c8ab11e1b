package server

import (
	"net/http"

	"github.com/toothbrush/webverse-authoring/authoring"
)

func (s *Server) handleCreateErrorPages(w http.ResponseWriter, r *http.Request) {
	var req authoring.ErrorPagesRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.Builder.CreateErrorPages(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleGetErrorPages(w http.ResponseWriter, r *http.Request) {
	var q authoring.ErrorPagesQuery
	if err := decode(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}

	pages, err := s.Builder.GetErrorPages(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleCreateProtectedPages(w http.ResponseWriter, r *http.Request) {
	var req authoring.ProtectedPagesRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.Builder.CreateProtectedPages(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

// handleGetPage serves the read side of protected pages, the modal popup and the login page,
// which are all the same query.
func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	var q authoring.PageQuery
	if err := decode(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.Builder.GetPage(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

type modalPopupResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	PagePath string `json:"page_path"`
}

func (s *Server) handleCreateHCPModalPopup(w http.ResponseWriter, r *http.Request) {
	var req authoring.HCPModalPopupRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.Builder.CreateHCPModalPopup(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, modalPopupResponse{
		Success:  true,
		Message:  "Successfully created HCP modal popup",
		PagePath: p,
	})
}

func (s *Server) handleCreateLoginPage(w http.ResponseWriter, r *http.Request) {
	var req authoring.LoginPageRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.Builder.CreateLoginPage(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleCreateExperienceFragments(w http.ResponseWriter, r *http.Request) {
	var req authoring.ExperienceFragmentsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.Builder.CreateExperienceFragments(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleModifyLocale(w http.ResponseWriter, r *http.Request) {
	var req authoring.ModifyLocaleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.Builder.ModifyLocale(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	markdown, err := s.Builder.Preview(r.Context(), authoring.PageQuery{
		PagePath: r.URL.Query().Get("page_path"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markdown))
}
