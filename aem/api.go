package aem

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultDAMRoot = "/content/dam"
)

func NewAPI(host string, creds Credentials) (*API, error) {
	if host == "" {
		return nil, fmt.Errorf("aem: configure your AEM host with --aem-host or AEM_HOST")
	}
	if creds == nil {
		return nil, fmt.Errorf("aem: no credentials configured, please check --auth-mode")
	}

	u, err := url.ParseRequestURI(strings.TrimRight(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't parse AEM host URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("aem: host must start with http:// or https://, got %q", host)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("aem: host %q has no hostname", host)
	}

	a := &API{
		BaseURI: u,
		Timeout: DefaultTimeout,
		DAMRoot: DefaultDAMRoot,
		Logger:  zap.NewNop(),
		creds:   creds,
	}
	a.UseClient(&http.Client{})

	return a, nil
}

type API struct {
	// Root of the AEM author instance, e.g. https://author-p1-e2.adobeaemcloud.com
	BaseURI *url.URL

	// Applied to every single call to AEM.  There is no retry: a timed out call fails.
	Timeout time.Duration

	// Asset paths outside of this root are resolved underneath it.
	DAMRoot string

	Logger *zap.Logger

	creds Credentials

	client *http.Client
	rest   *resty.Client

	plainHTTPWarning sync.Once

	csrfMu      sync.Mutex
	csrfToken   string
	csrfFetched time.Time
}

// UseClient swaps the underlying HTTP client - you can substitute VCR or whatnot.
func (api *API) UseClient(c *http.Client) {
	api.client = c
	api.rest = resty.NewWithClient(c).
		SetRetryCount(0).
		SetDisableWarn(true).
		SetHeader("User-Agent", "webverse-authoring").
		SetLogger(restyLogger{api})
}

// warnPlainHTTP logs once, instead of resty warning on every call, that credentials go out
// unencrypted.
func (api *API) warnPlainHTTP() {
	if api.BaseURI.Scheme != "http" {
		return
	}
	api.plainHTTPWarning.Do(func() {
		api.Logger.Warn("sending AEM credentials over plain http, use https outside local development",
			zap.String("host", api.BaseURI.Host))
	})
}

// Client returns the HTTP client currently in use.
func (api *API) Client() *http.Client {
	return api.client
}

// Credentials returns the authentication strategy this API was built with.
func (api *API) Credentials() Credentials {
	return api.creds
}

// resty wants a printf-style logger; route it through whatever zap logger is current.
type restyLogger struct{ api *API }

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.api.Logger.Sugar().Errorf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.api.Logger.Sugar().Warnf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.api.Logger.Sugar().Debugf(format, v...)
}
