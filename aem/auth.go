package aem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type AuthMethod string

const (
	BasicAuthMethod    AuthMethod = "basic_auth"
	ServiceTokenMethod AuthMethod = "service_token"
)

// ParseAuthMethod accepts the spellings people tend to put in AEM_AUTH_MODE.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basic", "basic_auth", "basic-auth":
		return BasicAuthMethod, nil
	case "service_token", "service-token", "token", "service_user", "service-user":
		return ServiceTokenMethod, nil
	}
	return "", fmt.Errorf("aem: unknown auth mode %q, expected basic or service_token", s)
}

// Credentials decorate outgoing requests.  Implementations must be safe for concurrent use,
// since one API is shared by every in-flight HTTP request.
type Credentials interface {
	Method() AuthMethod
	// Principal is who we claim to be, for health output.  Never a secret.
	Principal() string
	Apply(ctx context.Context, req *resty.Request) error
	// Invalidate is called after AEM answered 401, so that the next call re-reads.
	Invalidate()
}

type BasicAuth struct {
	Username string
	Password string
}

func NewBasicAuth(username, password string) (*BasicAuth, error) {
	if username == "" {
		return nil, fmt.Errorf("aem: configure your AEM username with --aem-username or AEM_USERNAME")
	}
	if password == "" {
		return nil, fmt.Errorf("aem: AEM password is empty, please check AEM_PASSWORD")
	}
	return &BasicAuth{Username: username, Password: password}, nil
}

func (b *BasicAuth) Method() AuthMethod { return BasicAuthMethod }
func (b *BasicAuth) Principal() string  { return b.Username }
func (b *BasicAuth) Invalidate()        {}

func (b *BasicAuth) Apply(_ context.Context, req *resty.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

const DefaultTokenMaxAge = 5 * time.Minute

// ServiceToken authenticates as a service user with a bearer token that lives in a file.  The
// file gets rotated underneath us, so the token is re-read when it is older than MaxAge, when the
// file changes (see Watch), and after AEM rejected it.
type ServiceToken struct {
	Path    string
	Mapping ServiceUserMapping
	MaxAge  time.Duration
	Logger  *zap.Logger

	now func() time.Time

	mu     sync.RWMutex
	token  string
	readAt time.Time

	refresh singleflight.Group

	watchMu   sync.Mutex
	watchStop context.CancelFunc
	watchDone chan struct{}
}

func NewServiceToken(path string, mapping ServiceUserMapping) (*ServiceToken, error) {
	if path == "" {
		return nil, fmt.Errorf("aem: configure the service token file with --service-token-file or AEM_SERVICE_TOKEN_FILE")
	}
	return &ServiceToken{
		Path:    path,
		Mapping: mapping,
		MaxAge:  DefaultTokenMaxAge,
		Logger:  zap.NewNop(),
		now:     time.Now,
	}, nil
}

func (s *ServiceToken) Method() AuthMethod { return ServiceTokenMethod }

func (s *ServiceToken) Principal() string {
	return s.Mapping.User
}

func (s *ServiceToken) Apply(ctx context.Context, req *resty.Request) error {
	token, err := s.Token(ctx)
	if err != nil {
		return err
	}
	req.SetAuthToken(token)
	return nil
}

// Token returns the cached token, or re-reads the file if the cache is stale.  Concurrent
// refreshes share one file read.
func (s *ServiceToken) Token(_ context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}

	v, err, _ := s.refresh.Do("token", func() (any, error) {
		if token, ok := s.cached(); ok {
			return token, nil
		}
		token, err := readTokenFile(s.Path)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.token = token
		s.readAt = s.now()
		s.mu.Unlock()

		s.Logger.Debug("service token refreshed", zap.String("path", s.Path))
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *ServiceToken) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", false
	}
	if s.MaxAge > 0 && s.now().Sub(s.readAt) >= s.MaxAge {
		return "", false
	}
	return s.token, true
}

func (s *ServiceToken) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Watch invalidates the cached token whenever anything changes in the directory holding the token
// file.  We watch the directory and not the file because secret mounts swap files by rename.
// The watcher runs until ctx is done or Close is called.
func (s *ServiceToken) Watch(ctx context.Context) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watchDone != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("aem: couldn't create token file watcher: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("aem: couldn't watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.watchStop = cancel
	s.watchDone = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		defer watcher.Close()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.Logger.Debug("service token directory changed",
					zap.String("name", event.Name),
					zap.String("op", event.Op.String()))
				s.Invalidate()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.Logger.Warn("service token watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}(s.watchDone)

	return nil
}

// Close stops the watcher started by Watch, and waits for it to finish.
func (s *ServiceToken) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watchDone == nil {
		return nil
	}
	s.watchStop()
	<-s.watchDone
	s.watchDone = nil
	s.watchStop = nil
	return nil
}

// readTokenFile understands a bare token, or the JSON shapes that AEM's developer console hands out.
func readTokenFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("aem: couldn't read service token file: %w", err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("aem: service token file %s is empty", path)
	}

	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	var parsed struct {
		AccessToken      string `json:"accessToken"`
		AccessTokenSnake string `json:"access_token"`
		Token            string `json:"token"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return "", fmt.Errorf("aem: couldn't parse service token file %s: %w", path, err)
	}
	for _, t := range []string{parsed.AccessToken, parsed.AccessTokenSnake, parsed.Token} {
		if t != "" {
			return t, nil
		}
	}
	return "", fmt.Errorf("aem: service token file %s has no accessToken", path)
}

// ServiceUserMapping is a Sling service user mapping, "bundle:subservice=user" or "bundle=user".
type ServiceUserMapping struct {
	Bundle     string
	SubService string
	User       string
}

func ParseServiceUserMapping(s string) (ServiceUserMapping, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ServiceUserMapping{}, nil
	}

	service, user, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(user) == "" || strings.TrimSpace(service) == "" {
		return ServiceUserMapping{}, fmt.Errorf("aem: service user mapping %q must look like bundle:subservice=user", s)
	}

	m := ServiceUserMapping{User: strings.TrimSpace(user)}
	bundle, sub, _ := strings.Cut(service, ":")
	m.Bundle = strings.TrimSpace(bundle)
	m.SubService = strings.TrimSpace(sub)
	if m.Bundle == "" {
		return ServiceUserMapping{}, fmt.Errorf("aem: service user mapping %q has no bundle name", s)
	}
	return m, nil
}

func (m ServiceUserMapping) String() string {
	if m.User == "" {
		return ""
	}
	if m.SubService == "" {
		return m.Bundle + "=" + m.User
	}
	return m.Bundle + ":" + m.SubService + "=" + m.User
}
