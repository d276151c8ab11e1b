package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/authoring"
)

const maxBodyBytes = 1 << 20

// decode reads a JSON request body into v.  A body we can't read is the client's mistake, so it
// comes back as a validation error on "body".
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return &authoring.ValidationError{Field: "body", Msg: "is empty"}
		}
		return &authoring.ValidationError{Field: "body", Msg: fmt.Sprintf("is not valid JSON: %v", err)}
	}
	return nil
}

// writeJSON encodes before writing anything, so an encoding failure can still become a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.Logger.Error("couldn't encode response", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"couldn't encode response"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
