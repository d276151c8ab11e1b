package aem

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// TestConnection checks that AEM answers at all, without credentials.  The login page is served
// to anonymous users on every author instance.
func (api *API) TestConnection(ctx context.Context) (bool, error) {
	ep, err := api.loginPageEndpoint()
	if err != nil {
		return false, fmt.Errorf("aem: couldn't get login page endpoint: %w", err)
	}

	if _, err := api.do(ctx, http.MethodGet, ep, false, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Health reports connectivity and authentication separately: AEM can be up and still reject us.
// It never returns an error, whatever went wrong ends up in the report.
func (api *API) Health(ctx context.Context) (h Health) {
	h = Health{
		Status: StatusUnhealthy,
		AEM:    Disconnected,
		Host:   api.BaseURI.String(),
		Authentication: AuthStatus{
			Method: api.creds.Method(),
			Status: AuthUnknown,
		},
	}
	switch api.creds.Method() {
	case ServiceTokenMethod:
		h.Authentication.ServiceUser = api.creds.Principal()
	default:
		h.Authentication.Username = api.creds.Principal()
	}

	defer func() {
		if r := recover(); r != nil {
			api.Logger.Error("health check panicked", zap.Any("panic", r))
			h.Status = StatusUnhealthy
			h.Error = fmt.Sprintf("health check failed: %v", r)
		}
	}()

	if ok, err := api.TestConnection(ctx); !ok {
		if err != nil {
			h.Error = err.Error()
		}
		return h
	}
	h.AEM = Connected

	user, err := api.CurrentUser(ctx)
	switch {
	case err == nil && !user.Anonymous():
		h.Status = StatusHealthy
		h.Authentication.Status = AuthAuthenticated
		h.Authentication.Username = user.AuthorizableID
	case err == nil:
		h.Authentication.Status = AuthRejected
		h.Error = "aem: credentials were not accepted, request ran as anonymous"
	case errors.Is(err, ErrUnauthorized):
		h.Authentication.Status = AuthRejected
		h.Error = err.Error()
	case errors.Is(err, ErrUnavailable):
		h.Authentication.Status = AuthUnavailable
		h.Error = err.Error()
	default:
		h.Error = err.Error()
	}

	return h
}
