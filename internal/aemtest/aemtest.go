// Package aemtest runs an in-memory imitation of an AEM author instance for tests.  It understands
// just enough of the Sling GET and POST servlets, the Granite CSRF and current user endpoints and
// the DAM createasset servlet to exercise the aem client end to end.
package aemtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	Username  = "admin"
	Password  = "admin"
	Token     = "service-token"
	CSRFToken = "csrf-token"
)

// Request is what the fake saw, for assertions.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	Header http.Header
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nodes    map[string]map[string]any
	assets   map[string][]byte
	failures map[string]int
	requests []Request
}

// New starts a fake that is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		nodes:    map[string]map[string]any{},
		assets:   map[string][]byte{},
		failures: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// PutNode creates the node at p, and its ancestors, with the given properties.
func (s *Server) PutNode(p string, props map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(p)
	for k, v := range props {
		s.nodes[p][k] = v
	}
}

// PutAsset stores data as a DAM asset at p.
func (s *Server) PutAsset(p string, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets[p] = []byte(data)
}

// FailWith makes every request addressing the node or asset at p answer with status.
func (s *Server) FailWith(p string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[p] = status
}

func (s *Server) Exists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.nodes[p]
	return ok
}

// Node returns a copy of the properties stored at p, or nil.
func (s *Server) Node(p string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	props, ok := s.nodes[p]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func (s *Server) Asset(p string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.assets[p]
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

// Count returns how many requests with method went to a path starting with prefix.
func (s *Server) Count(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		_ = r.ParseMultipartForm(32 << 20)
	} else {
		_ = r.ParseForm()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Form:   r.PostForm,
		Header: r.Header.Clone(),
	})

	if status, ok := s.failures[r.URL.Path]; ok {
		slingError(w, status, "forced failure")
		return
	}

	switch r.URL.Path {
	case "/libs/granite/core/content/login.html":
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><form id=\"login\"></form></body></html>"))
		return
	case "/libs/granite/security/currentuser.json":
		user, ok := authenticate(r)
		if !ok {
			slingError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authorizableId": user,
			"home":           "/home/users/" + user,
			"name":           user,
		})
		return
	}

	user, ok := authenticate(r)
	if !ok || user == "anonymous" {
		slingError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if r.URL.Path == "/libs/granite/csrf/token.json" {
		writeJSON(w, http.StatusOK, map[string]any{"token": CSRFToken})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.get(w, r)
	case http.MethodPost:
		if r.Header.Get("CSRF-Token") != CSRFToken && r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			slingError(w, http.StatusForbidden, "missing csrf token")
			return
		}
		s.post(w, r)
	default:
		slingError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func authenticate(r *http.Request) (string, bool) {
	if r.Header.Get("Authorization") == "" {
		return "anonymous", true
	}
	if u, p, ok := r.BasicAuth(); ok {
		return u, u == Username && p == Password
	}
	if r.Header.Get("Authorization") == "Bearer "+Token {
		return "webverse-service", true
	}
	return "", false
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if !strings.HasSuffix(p, ".json") {
		if status, ok := s.failures[p]; ok {
			slingError(w, status, "forced failure")
			return
		}
		data, ok := s.assets[p]
		if !ok {
			slingError(w, http.StatusNotFound, "asset not found")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(data)
		return
	}

	p, depth := parseSelector(strings.TrimSuffix(p, ".json"))
	if status, ok := s.failures[p]; ok {
		slingError(w, status, "forced failure")
		return
	}
	if _, ok := s.nodes[p]; !ok {
		slingError(w, http.StatusNotFound, "No resource found")
		return
	}
	writeJSON(w, http.StatusOK, s.render(p, depth))
}

// parseSelector splits "/a/b.infinity" into "/a/b" and -1, "/a/b.2" into "/a/b" and 2.
func parseSelector(p string) (string, int) {
	slash := strings.LastIndex(p, "/")
	dot := strings.LastIndex(p, ".")
	if dot <= slash {
		return p, 0
	}
	selector := p[dot+1:]
	if selector == "infinity" {
		return p[:dot], -1
	}
	depth, err := strconv.Atoi(selector)
	if err != nil {
		return p, 0
	}
	return p[:dot], depth
}

func (s *Server) render(p string, depth int) map[string]any {
	out := map[string]any{}
	for k, v := range s.nodes[p] {
		out[k] = v
	}
	if depth == 0 {
		return out
	}
	for _, child := range s.children(p) {
		out[child[len(p)+1:]] = s.render(child, depth-1)
	}
	return out
}

func (s *Server) children(p string) []string {
	var out []string
	for candidate := range s.nodes {
		if strings.HasPrefix(candidate, p+"/") && !strings.Contains(candidate[len(p)+1:], "/") {
			out = append(out, candidate)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Server) ensure(p string) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i := range parts {
		ancestor := "/" + strings.Join(parts[:i+1], "/")
		if _, ok := s.nodes[ancestor]; !ok {
			s.nodes[ancestor] = map[string]any{}
		}
	}
}

func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path

	if strings.HasSuffix(p, ".createasset.html") {
		s.createAsset(w, r, strings.TrimSuffix(p, ".createasset.html"))
		return
	}
	if status, ok := s.failures[p]; ok {
		slingError(w, status, "forced failure")
		return
	}

	if r.PostForm.Get(":operation") == "copy" {
		s.copy(w, p, r.PostForm.Get(":dest"))
		return
	}

	_, existed := s.nodes[p]
	s.ensure(p)

	for field, values := range r.PostForm {
		if field == "_charset_" || strings.HasPrefix(field, ":") || strings.HasSuffix(field, "@TypeHint") {
			continue
		}

		name, deleting := strings.CutSuffix(field, "@Delete")
		node, prop := p, name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			node, prop = p+"/"+name[:i], name[i+1:]
		}
		s.ensure(node)

		if deleting {
			delete(s.nodes[node], prop)
			continue
		}
		s.nodes[node][prop] = typed(values, r.PostForm.Get(field+"@TypeHint"))
	}

	status := http.StatusOK
	if !existed {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"status.code": status, "path": p})
}

func typed(values []string, hint string) any {
	convert := func(v string) any {
		switch strings.TrimSuffix(hint, "[]") {
		case "Boolean":
			b, _ := strconv.ParseBool(v)
			return b
		case "Long":
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		case "Double":
			f, _ := strconv.ParseFloat(v, 64)
			return f
		}
		return v
	}

	if strings.HasSuffix(hint, "[]") || len(values) > 1 {
		out := make([]any, 0, len(values))
		for _, v := range values {
			out = append(out, convert(v))
		}
		return out
	}
	return convert(values[0])
}

func (s *Server) copy(w http.ResponseWriter, src, dest string) {
	if _, ok := s.nodes[src]; !ok {
		slingError(w, http.StatusNotFound, "source "+src+" does not exist")
		return
	}
	if _, ok := s.nodes[dest]; ok {
		slingError(w, http.StatusPreconditionFailed, "destination "+dest+" already exists")
		return
	}

	s.ensure(dest)
	for p, props := range s.nodes {
		if p != src && !strings.HasPrefix(p, src+"/") {
			continue
		}
		target := dest + strings.TrimPrefix(p, src)
		copied := make(map[string]any, len(props))
		for k, v := range props {
			copied[k] = v
		}
		s.nodes[target] = copied
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status.code": http.StatusCreated, "path": dest})
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request, folder string) {
	if _, ok := s.nodes[folder]; !ok {
		slingError(w, http.StatusNotFound, "folder "+folder+" does not exist")
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		slingError(w, http.StatusBadRequest, "no file")
		return
	}

	header := r.MultipartForm.File["file"][0]
	f, err := header.Open()
	if err != nil {
		slingError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slingError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := r.MultipartForm.Value["fileName"]
	assetName := header.Filename
	if len(name) > 0 && name[0] != "" {
		assetName = name[0]
	}
	p := folder + "/" + assetName
	s.assets[p] = data
	s.nodes[p] = map[string]any{"jcr:primaryType": "dam:Asset"}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("<html><body><div id=\"Status\">201</div><div id=\"Path\">" + p + "</div></body></html>"))
}

// slingError mimics the HTML status page of the Sling POST servlet.
func slingError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("<html><head><title>Error</title></head><body>" +
		"<div id=\"Status\">" + strconv.Itoa(status) + "</div>" +
		"<div id=\"Message\">" + msg + "</div></body></html>"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
