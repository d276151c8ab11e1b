package aem

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"
)

// ValidatePath checks that p looks like an absolute JCR path we can safely splice into a URL.
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("aem: empty path")
	}
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("aem: path %q must be absolute", p)
	}
	for _, segment := range strings.Split(strings.Trim(p, "/"), "/") {
		if segment == ".." || segment == "." {
			return fmt.Errorf("aem: path %q must not contain relative segments", p)
		}
	}
	if strings.ContainsAny(p, "?#") {
		return fmt.Errorf("aem: path %q must not contain a query or fragment", p)
	}
	return nil
}

// nodeEndpoint returns the Sling JSON rendering of a node.  Negative depth means the whole tree:
// https://sling.apache.org/documentation/bundles/rendering-content-default-get-servlets.html
func (a *API) nodeEndpoint(p string, depth int) (*url.URL, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	selector := "infinity"
	if depth >= 0 {
		selector = fmt.Sprintf("%d", depth)
	}
	return a.resolveEndpoint(fmt.Sprintf("%s.%s.json", strings.TrimRight(p, "/"), selector))
}

// postEndpoint is the node itself: the Sling POST servlet acts on the request path.
func (a *API) postEndpoint(p string) (*url.URL, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	return a.resolveEndpoint(strings.TrimRight(p, "/"))
}

// AssetPath resolves p underneath DAMRoot, unless it already is.
func (a *API) AssetPath(p string) string {
	root := strings.TrimRight(a.DAMRoot, "/")
	if root == "" {
		root = DefaultDAMRoot
	}
	if p == root || strings.HasPrefix(p, root+"/") {
		return p
	}
	return root + "/" + strings.TrimLeft(p, "/")
}

// assetEndpoint serves the original rendition of a DAM asset.
func (a *API) assetEndpoint(p string) (*url.URL, error) {
	full := a.AssetPath(p)
	if err := ValidatePath(full); err != nil {
		return nil, err
	}
	return a.resolveEndpoint(full)
}

// createAssetEndpoint is the (deprecated but still supported) asset upload servlet:
// https://experienceleague.adobe.com/docs/experience-manager-65/assets/extending/assets-api-content.html
func (a *API) createAssetEndpoint(folder string) (*url.URL, error) {
	full := a.AssetPath(folder)
	if err := ValidatePath(full); err != nil {
		return nil, err
	}
	return a.resolveEndpoint(strings.TrimRight(full, "/") + ".createasset.html")
}

func (a *API) csrfEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/libs/granite/csrf/token.json")
}

func (a *API) loginPageEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/libs/granite/core/content/login.html")
}

func (a *API) currentUserEndpoint(opts CurrentUserQuery) (*url.URL, error) {
	ep, err := a.resolveEndpoint("/libs/granite/security/currentuser.json")
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't resolve endpoint: %w", err)
	}

	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

// Do a bit of error checking on endpoint format, and return it relative to the base URI.
func (a *API) resolveEndpoint(endpoint string) (*url.URL, error) {
	ref := &url.URL{Path: endpoint}
	if strings.Contains(endpoint, "?") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("aem: failed to parse endpoint ref: %w", err)
		}
		ref = parsed
	}

	resolved := a.BaseURI.ResolveReference(ref)
	if prefix := strings.TrimRight(a.BaseURI.Path, "/"); prefix != "" {
		resolved.Path = prefix + ref.Path
		resolved.RawPath = ""
	}
	return resolved, nil
}
