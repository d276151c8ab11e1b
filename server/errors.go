package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/authoring"
)

type errorBody struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	CMSMessage string `json:"cms_message,omitempty"`
}

// statusFor decides the response status of a failed request.  The order matters: an *aem.Error
// wrapped around a timeout is a timeout, not a transport failure.
func statusFor(err error) int {
	var verr *authoring.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, aem.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, aem.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, aem.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, aem.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, aem.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, aem.ErrTransport), errors.Is(err, aem.ErrServer), errors.Is(err, aem.ErrUnexpectedStatus):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *authoring.ValidationError
	if errors.As(err, &verr) {
		body.Error = verr.Msg
		body.Field = verr.Field
	}
	var aemErr *aem.Error
	if errors.As(err, &aemErr) {
		body.StatusCode = aemErr.StatusCode
		body.CMSMessage = aemErr.Message
	}

	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	} else {
		s.Logger.Info("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}

	s.writeJSON(w, status, body)
}
