package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/authoring"
)

type damFoldersResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*authoring.DAMFolders
}

func (s *Server) handleCreateDAMFolders(w http.ResponseWriter, r *http.Request) {
	var req authoring.DAMFoldersRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	folders, err := s.Builder.CreateDAMFolders(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, damFoldersResponse{
		Success:    true,
		Message:    fmt.Sprintf("Created %d folders", len(folders.Created)),
		DAMFolders: folders,
	})
}

// Clients disagree on what to call the file field, so all the usual spellings are accepted.
var uploadFields = []string{"files", "files[]", "file"}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, fmt.Errorf("server: upload is larger than %d bytes: %w", tooLarge.Limit, err))
			return
		}
		s.writeError(w, r, &authoring.ValidationError{Field: "body", Msg: fmt.Sprintf("is not a multipart form: %v", err)})
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.Logger.Warn("couldn't remove upload temp files", zap.Error(err))
		}
	}()

	var headers []*multipart.FileHeader
	for _, field := range uploadFields {
		headers = append(headers, r.MultipartForm.File[field]...)
	}

	uploads := make([]authoring.Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("server: couldn't open uploaded file %s: %w", h.Filename, err))
			return
		}
		defer f.Close()

		uploads = append(uploads, authoring.Upload{
			Name:        h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Body:        f,
		})
	}

	kind, err := authoring.ParseUploadKind(r.FormValue("file_type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	outcome, err := s.Builder.UploadAssets(r.Context(), r.FormValue("folder"), kind, uploads)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}
