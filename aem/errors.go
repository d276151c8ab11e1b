package aem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Error kinds.  Every *Error unwraps to exactly one of these, so callers can use errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("authentication failed")
	ErrUnavailable      = errors.New("service is not available")
	ErrServer           = errors.New("internal server error")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrTimeout          = errors.New("timed out")
	ErrTransport        = errors.New("couldn't reach AEM")
)

// Error is what every failed call to AEM comes back as.  StatusCode is zero when no response
// was received at all.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	// Message is whatever AEM said about the failure, if we could find it in the body.
	Message string

	Kind error
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "aem: %s %s: %s", e.Method, e.Path, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusCode digs the AEM response status out of err, or returns 0.
func StatusCode(err error) int {
	var aemErr *Error
	if errors.As(err, &aemErr) {
		return aemErr.StatusCode
	}
	return 0
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	case http.StatusInternalServerError:
		return ErrServer
	}
	return ErrUnexpectedStatus
}

func transportError(method, path string, err error) *Error {
	kind := ErrTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = ErrTimeout
	}
	return &Error{
		Method: method,
		Path:   path,
		Kind:   kind,
		Err:    err,
	}
}

const maxMessageLength = 200

// cmsMessage pulls a human readable reason out of an AEM error body.  Sling answers either with
// JSON ("status.message") or with its HTML status page, which carries the reason in #Message.
func cmsMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if trimmed[0] == '{' {
		var parsed map[string]any
		if err := json.Unmarshal(trimmed, &parsed); err == nil {
			for _, key := range []string{"status.message", "message", "error"} {
				if s, ok := parsed[key].(string); ok && s != "" {
					return s
				}
			}
		}
	}

	if trimmed[0] == '<' {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
		if err == nil {
			if msg := strings.TrimSpace(doc.Find("#Message").First().Text()); msg != "" {
				return msg
			}
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return title
			}
		}
	}

	msg := strings.Join(strings.Fields(string(trimmed)), " ")
	if len(msg) > maxMessageLength {
		msg = msg[:maxMessageLength] + "..."
	}
	return msg
}
