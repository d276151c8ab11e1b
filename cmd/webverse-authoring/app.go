package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/authoring"
)

// parseDuration accepts plain seconds, like AEM_TIMEOUT=30, or a Go duration like 1m30s.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Second
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("%q is neither seconds nor a duration like 45s", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%q must be positive", s)
	}
	return d, nil
}

func newCredentials() (aem.Credentials, error) {
	method, err := aem.ParseAuthMethod(AuthMode)
	if err != nil {
		return nil, err
	}

	if method == aem.BasicAuthMethod {
		basic, err := aem.NewBasicAuth(AEMUsername, AEMPassword)
		if err != nil {
			return nil, err
		}
		return basic, nil
	}

	path, err := homedir.Expand(ServiceTokenFile)
	if err != nil {
		return nil, fmt.Errorf("cmd: couldn't expand homedir: %w", err)
	}
	mapping, err := aem.ParseServiceUserMapping(ServiceUserMapping)
	if err != nil {
		return nil, err
	}
	token, err := aem.NewServiceToken(path, mapping)
	if err != nil {
		return nil, err
	}
	if TokenMaxAge != "" {
		if token.MaxAge, err = parseDuration(TokenMaxAge); err != nil {
			return nil, fmt.Errorf("cmd: invalid token max age: %w", err)
		}
	}
	token.Logger = logger.Named("token")
	return token, nil
}

func newAPI() (*aem.API, error) {
	creds, err := newCredentials()
	if err != nil {
		return nil, err
	}
	api, err := aem.NewAPI(AEMHost, creds)
	if err != nil {
		return nil, err
	}

	if AEMTimeout != "" {
		if api.Timeout, err = parseDuration(AEMTimeout); err != nil {
			return nil, fmt.Errorf("cmd: invalid AEM timeout: %w", err)
		}
	}
	if AssetsRoot != "" {
		if err := aem.ValidatePath(AssetsRoot); err != nil {
			return nil, fmt.Errorf("cmd: invalid assets root: %w", err)
		}
		api.DAMRoot = AssetsRoot
	}
	api.Logger = logger.Named("aem")

	debugLog("AEM %s, auth %s as %q, timeout %s", api.BaseURI, creds.Method(), creds.Principal(), api.Timeout)
	return api, nil
}

func newBuilder(api *aem.API) (*authoring.Builder, error) {
	markets, err := authoring.ParseMarkets(strings.Join(Markets, ","))
	if err != nil {
		return nil, err
	}

	b := authoring.NewBuilder(api, markets)
	b.Logger = logger.Named("authoring")
	b.BaseURI = api.BaseURI
	return b, nil
}
