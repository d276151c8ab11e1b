package aem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-querystring/query"
	"go.uber.org/zap"
)

// GetAsset fetches the raw bytes of a DAM asset, typically an HTML template.
func (api *API) GetAsset(ctx context.Context, p string) ([]byte, error) {
	ep, err := api.assetEndpoint(p)
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't get asset endpoint: %w", err)
	}

	return api.request(ctx, http.MethodGet, ep, nil)
}

// GetNode returns the node at p, depth levels deep.  A negative depth returns the whole subtree.
func (api *API) GetNode(ctx context.Context, p string, depth int) (Node, error) {
	ep, err := api.nodeEndpoint(p, depth)
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't get node endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, err
	}

	var node Node
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&node); err != nil {
		return nil, fmt.Errorf("aem: couldn't parse json response: %w", err)
	}

	return node, nil
}

func (api *API) NodeExists(ctx context.Context, p string) (bool, error) {
	_, err := api.GetNode(ctx, p, 0)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateNode writes props at p with the Sling POST servlet.  Missing nodes along the way are
// created, and existing properties are overwritten.
func (api *API) CreateNode(ctx context.Context, p string, props Properties) error {
	ep, err := api.postEndpoint(p)
	if err != nil {
		return fmt.Errorf("aem: couldn't get node endpoint: %w", err)
	}

	form, err := props.Form()
	if err != nil {
		return err
	}
	form.Set("_charset_", "utf-8")

	_, err = api.request(ctx, http.MethodPost, ep, func(r *resty.Request) {
		r.SetFormDataFromValues(form)
	})
	return err
}

// UpdateNode is CreateNode for a node that must already exist.
func (api *API) UpdateNode(ctx context.Context, p string, props Properties) error {
	exists, err := api.NodeExists(ctx, p)
	if err != nil {
		return err
	}
	if !exists {
		return &Error{
			Method:     http.MethodPost,
			Path:       p,
			StatusCode: http.StatusNotFound,
			Message:    "node does not exist",
			Kind:       ErrNotFound,
		}
	}

	return api.CreateNode(ctx, p, props)
}

// Copy duplicates the subtree at src to dest.  Sling refuses to overwrite an existing dest.
func (api *API) Copy(ctx context.Context, src, dest string) error {
	if err := ValidatePath(dest); err != nil {
		return err
	}
	ep, err := api.postEndpoint(src)
	if err != nil {
		return fmt.Errorf("aem: couldn't get node endpoint: %w", err)
	}

	form, err := query.Values(CopyOperation{
		Operation: "copy",
		Dest:      dest,
		Charset:   "utf-8",
	})
	if err != nil {
		return fmt.Errorf("aem: couldn't encode copy operation: %w", err)
	}

	_, err = api.request(ctx, http.MethodPost, ep, func(r *resty.Request) {
		r.SetFormDataFromValues(form)
	})
	return err
}

// CreateFolder creates an ordered folder at p.  DAM folders and experience fragment folders
// are both sling:OrderedFolder.
func (api *API) CreateFolder(ctx context.Context, p, title string) error {
	ep, err := api.postEndpoint(p)
	if err != nil {
		return fmt.Errorf("aem: couldn't get folder endpoint: %w", err)
	}

	form, err := query.Values(FolderProperties{
		PrimaryType: "sling:OrderedFolder",
		Title:       title,
		Charset:     "utf-8",
	})
	if err != nil {
		return fmt.Errorf("aem: couldn't encode folder properties: %w", err)
	}

	_, err = api.request(ctx, http.MethodPost, ep, func(r *resty.Request) {
		r.SetFormDataFromValues(form)
	})
	return err
}

// UploadAsset stores the content of r as a new asset called name in the DAM folder, and returns
// the path of the asset.
func (api *API) UploadAsset(ctx context.Context, folder, name, contentType string, r io.Reader) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("aem: invalid asset name %q", name)
	}
	ep, err := api.createAssetEndpoint(folder)
	if err != nil {
		return "", fmt.Errorf("aem: couldn't get upload endpoint: %w", err)
	}

	_, err = api.request(ctx, http.MethodPost, ep, func(req *resty.Request) {
		req.SetMultipartFormData(map[string]string{
			"fileName":  name,
			"_charset_": "utf-8",
		})
		req.SetMultipartField("file", name, contentType, r)
	})
	if err != nil {
		return "", err
	}

	return strings.TrimRight(api.AssetPath(folder), "/") + "/" + name, nil
}

// CurrentUser asks AEM who we are authenticated as.  AEM answers anonymous requests with the
// anonymous user rather than a 401.
func (api *API) CurrentUser(ctx context.Context) (*User, error) {
	ep, err := api.currentUserEndpoint(CurrentUserQuery{})
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't get current user endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("aem: couldn't parse json response: %w", err)
	}

	return &user, nil
}

const csrfMaxAge = 5 * time.Minute

// csrf returns the Granite CSRF token, fetching a new one at most every csrfMaxAge.  Two calls
// racing for a stale token both fetch one, which AEM does not mind.
func (api *API) csrf(ctx context.Context) (string, error) {
	api.csrfMu.Lock()
	if api.csrfToken != "" && time.Since(api.csrfFetched) < csrfMaxAge {
		token := api.csrfToken
		api.csrfMu.Unlock()
		return token, nil
	}
	api.csrfMu.Unlock()

	ep, err := api.csrfEndpoint()
	if err != nil {
		return "", fmt.Errorf("aem: couldn't get csrf endpoint: %w", err)
	}

	body, err := api.do(ctx, http.MethodGet, ep, true, nil)
	if err != nil {
		return "", err
	}

	var resp csrfResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("aem: couldn't parse csrf token: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("aem: csrf token is empty")
	}

	api.csrfMu.Lock()
	api.csrfToken = resp.Token
	api.csrfFetched = time.Now()
	api.csrfMu.Unlock()

	return resp.Token, nil
}

func (api *API) forgetCSRF() {
	api.csrfMu.Lock()
	api.csrfToken = ""
	api.csrfMu.Unlock()
}

func (api *API) request(ctx context.Context, method string, ep *url.URL, fill func(*resty.Request)) ([]byte, error) {
	return api.do(ctx, method, ep, true, fill)
}

// do performs a single call to AEM.  It is never retried: whatever happens is reported as an *Error.
func (api *API) do(ctx context.Context, method string, ep *url.URL, authenticated bool, fill func(*resty.Request)) ([]byte, error) {
	if api.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, api.Timeout)
		defer cancel()
	}

	req := api.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, */*").
		SetHeader("Referer", api.BaseURI.String()).
		SetHeader("X-Request-ID", requestIDFor(ctx))

	if authenticated {
		api.warnPlainHTTP()
		if err := api.creds.Apply(ctx, req); err != nil {
			return nil, &Error{
				Method:  method,
				Path:    ep.Path,
				Message: "credentials unavailable",
				Kind:    ErrUnavailable,
				Err:     err,
			}
		}

		if method == http.MethodPost {
			token, err := api.csrf(ctx)
			if err != nil {
				api.Logger.Warn("couldn't fetch csrf token, falling back to X-Requested-With",
					zap.String("path", ep.Path), zap.Error(err))
				req.SetHeader("X-Requested-With", "XMLHttpRequest")
			} else {
				req.SetHeader("CSRF-Token", token)
			}
		}
	}

	if fill != nil {
		fill(req)
	}

	started := time.Now()
	response, err := req.Execute(method, ep.String())
	if err != nil {
		api.Logger.Debug("aem call failed",
			zap.String("method", method), zap.String("path", ep.Path), zap.Error(err))
		return nil, transportError(method, ep.Path, err)
	}

	api.Logger.Debug("aem call",
		zap.String("method", method),
		zap.String("path", ep.Path),
		zap.Int("status", response.StatusCode()),
		zap.Duration("duration", time.Since(started)))

	body := response.Body()

	switch response.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusPartialContent, http.StatusNoContent, http.StatusResetContent:
		return body, nil
	case http.StatusUnauthorized:
		// Only the next call sees a re-read token, this one has failed for good.
		api.creds.Invalidate()
		api.forgetCSRF()
	}

	return nil, &Error{
		Method:     method,
		Path:       ep.Path,
		StatusCode: response.StatusCode(),
		Message:    cmsMessage(body),
		Kind:       kindForStatus(response.StatusCode()),
	}
}
