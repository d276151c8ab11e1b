package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/authoring"
	"github.com/toothbrush/webverse-authoring/internal/aemtest"
)

const testSite = "/content/mava/hcp-india"

type testServer struct {
	*Server
	fake    *aemtest.Server
	handler http.Handler
}

func newTestServer(t *testing.T, creds aem.Credentials) *testServer {
	t.Helper()

	fake := aemtest.New(t)
	if creds == nil {
		creds = &aem.BasicAuth{Username: aemtest.Username, Password: aemtest.Password}
	}
	api, err := aem.NewAPI(fake.URL, creds)
	require.NoError(t, err)
	api.Logger = zaptest.NewLogger(t)

	b := authoring.NewBuilder(api, nil)
	b.Logger = zaptest.NewLogger(t)

	s := New(b, api)
	s.Logger = zaptest.NewLogger(t)
	s.Version = "1.2.3"
	s.Environment = "test"

	return &testServer{Server: s, fake: fake, handler: s.Routes()}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestBannerAndHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"message":     "WebVerse Content Authoring API",
		"version":     "1.2.3",
		"status":      "running",
		"environment": "test",
	}, decodeBody(t, rec))

	rec = ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "healthy", "version": "1.2.3"}, decodeBody(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/v1/health/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", decodeBody(t, rec)["environment"])

	assert.Empty(t, ts.fake.Requests())
}

func TestAEMHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/health/aem", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var h aem.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, aem.StatusHealthy, h.Status)
	assert.Equal(t, aem.Connected, h.AEM)
	assert.Equal(t, aem.AuthAuthenticated, h.Authentication.Status)
	assert.Equal(t, aem.BasicAuthMethod, h.Authentication.Method)
	assert.Equal(t, aemtest.Username, h.Authentication.Username)
}

func TestCustomPrefix(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.Prefix = "/authoring/"
	ts.handler = ts.Routes()

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/authoring/health/", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/health/", nil).Code)

	ts.Prefix = ""
	ts.handler = ts.Routes()
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health/aem", nil).Code)
}

func TestValidationIsUnprocessable(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, tc := range []struct {
		name  string
		path  string
		body  any
		field string
	}{
		{"missing 404 body", "/api/v1/content/create-error-pages", map[string]any{
			"site_path":       testSite,
			"jcr_content_500": map[string]any{"jcr:title": "oops"},
		}, "jcr_content_404"},
		{"malformed json", "/api/v1/content/create-error-pages", `{"site_path": `, "body"},
		{"empty body", "/api/v1/sites/duplicate-template", "", "body"},
		{"unsupported market", "/api/v1/content/create-hcp-modal-popup", map[string]any{
			"site_path":           "/content/mava/hcp-brazil",
			"template_asset_path": "templates/popup.html",
		}, "site_path"},
		{"list of objects in content", "/api/v1/content/create-error-pages", map[string]any{
			"site_path":       testSite,
			"jcr_content_404": map[string]any{"jcr:content": map[string]any{"items": []any{map[string]any{"a": "b"}}}},
			"jcr_content_500": map[string]any{"jcr:title": "oops"},
		}, "jcr_content_404"},
		{"list of objects in locale", "/api/v1/content/modify-locale", map[string]any{
			"page_path":   testSite,
			"jcr_content": map[string]any{"languages": []any{map[string]any{"en": true}}},
		}, "jcr_content"},
		{"relative page path", "/api/v1/content/get-protected-page", map[string]any{"page_path": "content/x"}, "page_path"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

			body := decodeBody(t, rec)
			assert.Equal(t, tc.field, body["field"])
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, ts.fake.Requests())
}

func TestDuplicateTemplate(t *testing.T) {
	ts := newTestServer(t, nil)
	source := "/content/templates/mava"
	req := map[string]any{"market_region": "Germany", "drug": "Drug Y", "source_path": source}

	rec := ts.do(t, http.MethodPost, "/api/v1/sites/duplicate-template", req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	ts.fake.PutNode(source, map[string]any{"jcr:primaryType": "cq:Page"})

	rec = ts.do(t, http.MethodPost, "/api/v1/sites/duplicate-template", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{
		"success":           true,
		"new_template_path": "/content/buildeasy/mava/hcp-germany-drug-y",
	}, decodeBody(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/v1/sites/duplicate-template", req)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestProtectedPagesPartialFailureIsOK(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.fake.PutAsset("/content/dam/templates/a.html", "<p>a</p>")

	for _, path := range []string{"/api/v1/content/protected-pages", "/api/v1/content/protected-page"} {
		rec := ts.do(t, http.MethodPost, path, map[string]any{
			"site_path": testSite,
			"pages_config": []map[string]any{
				{"page_name": "a", "template_asset_path": "templates/a.html"},
				{"page_name": "b", "template_asset_path": "templates/missing.html"},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var outcome authoring.Outcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
		assert.False(t, outcome.Success)
		require.Len(t, outcome.Results, 2)
		assert.True(t, outcome.Results[0].Success)
		assert.Equal(t, http.StatusNotFound, outcome.Results[1].StatusCode)
	}
}

func TestModalPopupAndReadBack(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.fake.PutAsset("/content/dam/templates/popup.html", "<p>{{MARKET}}</p>")

	rec := ts.do(t, http.MethodPost, "/api/v1/content/create-hcp-modal-popup", map[string]any{
		"site_path":           testSite,
		"template_asset_path": "/content/dam/templates/popup.html",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, testSite+"/hcp-modal-popup", body["page_path"])

	rec = ts.do(t, http.MethodPost, "/api/v1/content/hcp-modal-popup", map[string]any{"page_path": testSite + "/hcp-modal-popup"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page authoring.PageContent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.True(t, page.Success)
	assert.Equal(t, "HCP Modal Popup India", page.PageContent.Title())
}

func TestCMSErrorsMapToStatus(t *testing.T) {
	t.Run("rejected credentials", func(t *testing.T) {
		ts := newTestServer(t, &aem.BasicAuth{Username: "admin", Password: "wrong"})

		rec := ts.do(t, http.MethodPost, "/api/v1/sites/list-pages", map[string]any{"site_path": testSite})
		require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
		assert.EqualValues(t, http.StatusUnauthorized, decodeBody(t, rec)["status_code"])
	})

	t.Run("cms failure", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.fake.FailWith(testSite, http.StatusInternalServerError)

		rec := ts.do(t, http.MethodPost, "/api/v1/sites/list-pages", map[string]any{"site_path": testSite})
		require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		assert.EqualValues(t, http.StatusInternalServerError, body["status_code"])
		assert.Equal(t, "forced failure", body["cms_message"])
	})

	t.Run("missing page", func(t *testing.T) {
		ts := newTestServer(t, nil)

		rec := ts.do(t, http.MethodPost, "/api/v1/content/modify-locale", map[string]any{
			"page_path":   testSite + "/en",
			"jcr_content": map[string]any{"jcr:language": "en"},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}

func TestStatusFor(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{&authoring.ValidationError{Field: "x", Msg: "y"}, http.StatusUnprocessableEntity},
		{&aem.Error{Kind: aem.ErrUnauthorized}, http.StatusUnauthorized},
		{&aem.Error{Kind: aem.ErrUnavailable}, http.StatusServiceUnavailable},
		{&aem.Error{Kind: aem.ErrNotFound}, http.StatusNotFound},
		{aem.ErrConflict, http.StatusConflict},
		{&aem.Error{Kind: aem.ErrTimeout}, http.StatusGatewayTimeout},
		{&aem.Error{Kind: aem.ErrTransport}, http.StatusBadGateway},
		{&aem.Error{Kind: aem.ErrServer}, http.StatusBadGateway},
		{&aem.Error{Kind: aem.ErrUnexpectedStatus}, http.StatusBadGateway},
		{fmt.Errorf("upload: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	} {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRequestIDReachesAEM(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.fake.PutNode(testSite, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sites/list-pages", strings.NewReader(`{"site_path": "`+testSite+`"}`))
	req.Header.Set("X-Request-Id", "trace-me")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "trace-me", rec.Header().Get("X-Request-ID"))

	requests := ts.fake.Requests()
	require.NotEmpty(t, requests)
	assert.Equal(t, "trace-me", requests[len(requests)-1].Header.Get("X-Request-ID"))
}

func TestPreview(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.fake.PutNode(testSite+"/home/jcr:content", map[string]any{"jcr:title": "Home"})
	ts.fake.PutNode(testSite+"/home/jcr:content/root/text", map[string]any{"text": "<p>Hi there</p>", "textIsRich": true})

	rec := ts.do(t, http.MethodGet, "/api/v1/content/preview?page_path="+testSite+"/home", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "title: Home")
	assert.Contains(t, rec.Body.String(), "Hi there")

	rec = ts.do(t, http.MethodGet, "/api/v1/content/preview", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDAMFolders(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/dam/create-folder-structure", map[string]any{
		"dam_path": "/content/dam/mava",
		"market":   "india",
		"locale":   "en",
		"site":     "HCP",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "/content/dam/mava/india/en/HCP/Images", body["hcp_images_path"])
	assert.Len(t, body["created_folders"], 5)
	assert.NotContains(t, body, "patient_images_path")
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.fake.PutNode("/content/dam/mava", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("folder", "/content/dam/mava"))
	for name, content := range map[string]string{"logo.png": "png", "virus.exe": "MZ"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dam/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome authoring.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, authoring.Summary{Total: 2, Successful: 1, Failed: 1}, outcome.Summary)
	assert.Equal(t, "png", string(ts.fake.Asset("/content/dam/mava/logo.png")))

	rec = ts.do(t, http.MethodPost, "/api/v1/dam/upload", map[string]any{"folder": "/content/dam/mava"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "body", decodeBody(t, rec)["field"])
}

// multipartUpload builds a /dam/upload request with one file per entry of files.
func multipartUpload(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files[]", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dam/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.fake.PutNode("/content/dam/mava", nil)
	ts.MaxUploadBytes = 1024

	req := multipartUpload(t, map[string]string{"folder": "/content/dam/mava"},
		map[string]string{"big.png": strings.Repeat("x", 4096)})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.NotContains(t, decodeBody(t, rec), "field")
	assert.Nil(t, ts.fake.Asset("/content/dam/mava/big.png"))
}

func TestUploadFileType(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.fake.PutNode("/content/dam/mava", nil)
	files := map[string]string{"logo.png": "png", "brochure.pdf": "%PDF"}

	req := multipartUpload(t, map[string]string{"folder": "/content/dam/mava", "file_type": "pdf"}, files)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome authoring.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, authoring.Summary{Total: 2, Successful: 1, Failed: 1}, outcome.Summary)
	assert.Equal(t, "%PDF", string(ts.fake.Asset("/content/dam/mava/brochure.pdf")))
	assert.Nil(t, ts.fake.Asset("/content/dam/mava/logo.png"))

	req = multipartUpload(t, map[string]string{"folder": "/content/dam/mava", "file_type": "video"}, files)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "file_type", decodeBody(t, rec)["field"])
}
