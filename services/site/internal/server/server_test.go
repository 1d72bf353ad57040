package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"leaddesk/internal/ratelimit"
	"leaddesk/pkg/auth"
	"leaddesk/pkg/domain"
	"leaddesk/pkg/storage"
	"leaddesk/pkg/store"
	"leaddesk/services/site/internal/app"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "s3cret-pass"
	testSecret        = "0123456789abcdef0123456789abcdef"
)

type testServer struct {
	*httptest.Server
	clock *time.Time
}

func newTestServer(t *testing.T, limiter *ratelimit.FixedWindowLimiter) testServer {
	t.Helper()
	files, err := storage.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("new dir store: %v", err)
	}
	clock := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	tokens, err := auth.NewTokenService(testSecret, time.Hour, auth.TokenOptions{Now: now})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	core, err := app.New(app.Config{
		Store:  store.NewMemoryStore(),
		Files:  files,
		Tokens: tokens,
		Admin:  auth.AdminCredential{Email: testAdminEmail, Password: testAdminPassword},
		Now:    now,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: core, LoginLimiter: limiter, MaxUploadBytes: 1024})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return testServer{Server: ts, clock: &clock}
}

func (ts testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (ts testServer) login(t *testing.T) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	})
	var out app.LoginResult
	decodeResponse(t, resp, http.StatusOK, &out)
	if out.Token == "" || out.Email != testAdminEmail {
		t.Fatalf("unexpected login response: %+v", out)
	}
	return out.Token
}

func decodeResponse(t *testing.T, resp *http.Response, wantStatus int, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d, body %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, wantStatus, raw)
	}
	if dst == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorDetail(t *testing.T, resp *http.Response, wantStatus int) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decodeResponse(t, resp, wantStatus, &body)
	return body.Detail
}

func TestLoginStatsAndUnauthorized(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	var stats domain.DashboardStats
	decodeResponse(t, ts.do(t, http.MethodGet, "/api/admin/stats", token, nil), http.StatusOK, &stats)
	if stats.Contacts.Total < 0 || stats.RecentContacts == nil {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if got := errorDetail(t, ts.do(t, http.MethodGet, "/api/admin/stats", "", nil), http.StatusUnauthorized); got != "Not authenticated" {
		t.Fatalf("missing token detail = %q", got)
	}
	if got := errorDetail(t, ts.do(t, http.MethodGet, "/api/admin/stats", token+"x", nil), http.StatusUnauthorized); got != "Invalid token" {
		t.Fatalf("tampered token detail = %q", got)
	}

	var verify verifyResponse
	decodeResponse(t, ts.do(t, http.MethodGet, "/api/admin/verify", token, nil), http.StatusOK, &verify)
	if !verify.Valid || verify.Email != testAdminEmail {
		t.Fatalf("unexpected verify response: %+v", verify)
	}

	*ts.clock = ts.clock.Add(2 * time.Hour)
	if got := errorDetail(t, ts.do(t, http.MethodGet, "/api/admin/verify", token, nil), http.StatusUnauthorized); got != "Token has expired" {
		t.Fatalf("expired token detail = %q", got)
	}

	resp := ts.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": testAdminEmail, "password": "nope"})
	if got := errorDetail(t, resp, http.StatusUnauthorized); got != "Invalid credentials" {
		t.Fatalf("bad login detail = %q", got)
	}
}

func TestContactSubmitAndStatusPatch(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	var created domain.Submission
	decodeResponse(t, ts.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name":          "A",
		"company_name":  "B",
		"mobile_number": "123",
	}), http.StatusOK, &created)
	if created.Status != domain.StatusPending || created.ID == "" {
		t.Fatalf("unexpected contact: %+v", created)
	}

	var updated domain.Submission
	decodeResponse(t, ts.do(t, http.MethodPut, "/api/admin/contacts/"+created.ID, token, map[string]string{
		"status":  "contacted",
		"unknown": "ignored",
	}), http.StatusOK, &updated)
	if updated.Status != "contacted" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected update: %+v", updated)
	}

	resp := ts.do(t, http.MethodPut, "/api/admin/contacts/"+created.ID, token, map[string]string{"unknown": "x"})
	if got := errorDetail(t, resp, http.StatusBadRequest); got != "No valid fields to update" {
		t.Fatalf("empty patch detail = %q", got)
	}
	resp = ts.do(t, http.MethodPut, "/api/admin/contacts/missing", token, map[string]string{"status": "x"})
	if got := errorDetail(t, resp, http.StatusNotFound); got != "Contact not found" {
		t.Fatalf("missing contact detail = %q", got)
	}

	var list []domain.Submission
	decodeResponse(t, ts.do(t, http.MethodGet, "/api/admin/contacts", token, nil), http.StatusOK, &list)
	if len(list) != 1 || list[0].Status != "contacted" {
		t.Fatalf("unexpected list: %+v", list)
	}

	var msg map[string]string
	decodeResponse(t, ts.do(t, http.MethodDelete, "/api/admin/contacts/"+created.ID, token, nil), http.StatusOK, &msg)
	if msg["message"] != "Contact deleted successfully" {
		t.Fatalf("unexpected delete response: %+v", msg)
	}
	errorDetail(t, ts.do(t, http.MethodDelete, "/api/admin/contacts/"+created.ID, token, nil), http.StatusNotFound)
}

func TestApplicationRequiresTurnover(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := ts.do(t, http.MethodPost, "/api/application", "", map[string]string{
		"name":          "A",
		"company_name":  "B",
		"mobile_number": "123",
	})
	if got := errorDetail(t, resp, http.StatusBadRequest); !strings.Contains(got, "annual_turnover") {
		t.Fatalf("detail = %q", got)
	}
	resp = ts.do(t, http.MethodPost, "/api/application", "", "not an object")
	errorDetail(t, resp, http.StatusBadRequest)
}

func TestBlogDuplicateSlugAndMissingDelete(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	post := map[string]any{
		"slug":     "ipo-basics",
		"title":    "IPO Basics",
		"excerpt":  "e",
		"content":  "c",
		"category": "Guides",
	}

	var created domain.BlogPost
	decodeResponse(t, ts.do(t, http.MethodPost, "/api/admin/blog", token, post), http.StatusOK, &created)
	if created.Author != domain.DefaultAuthor || created.Date != "2025-03-14" {
		t.Fatalf("unexpected post: %+v", created)
	}

	post["title"] = "Overwritten"
	resp := ts.do(t, http.MethodPost, "/api/admin/blog", token, post)
	if got := errorDetail(t, resp, http.StatusBadRequest); got != "A post with this slug already exists" {
		t.Fatalf("duplicate detail = %q", got)
	}

	var public domain.BlogPost
	decodeResponse(t, ts.do(t, http.MethodGet, "/api/blog/ipo-basics", "", nil), http.StatusOK, &public)
	if public.Title != "IPO Basics" {
		t.Fatalf("original post changed: %+v", public)
	}

	resp = ts.do(t, http.MethodDelete, "/api/admin/blog/does-not-exist", token, nil)
	if got := errorDetail(t, resp, http.StatusNotFound); got != "Blog post not found" {
		t.Fatalf("missing delete detail = %q", got)
	}
	errorDetail(t, ts.do(t, http.MethodGet, "/api/blog/does-not-exist", "", nil), http.StatusNotFound)

	var posts []domain.BlogPost
	decodeResponse(t, ts.do(t, http.MethodGet, "/api/blog", "", nil), http.StatusOK, &posts)
	if len(posts) != 1 {
		t.Fatalf("expected one public post, got %d", len(posts))
	}
}

func uploadFile(t *testing.T, ts testServer, token, name string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/admin/files/upload", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return resp
}

func TestFileUploadRetrieveDelete(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	content := []byte("%PDF-1.4 brochure")

	var uploaded domain.UploadedFile
	decodeResponse(t, uploadFile(t, ts, token, "brochure.pdf", content), http.StatusOK, &uploaded)
	if uploaded.Type != domain.FileTypeDocument || uploaded.Size != int64(len(content)) {
		t.Fatalf("unexpected upload: %+v", uploaded)
	}

	resp := ts.do(t, http.MethodGet, uploaded.URL, "", nil)
	got, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !bytes.Equal(got, content) {
		t.Fatalf("retrieve: status %d, content %q", resp.StatusCode, got)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}

	var msg map[string]string
	decodeResponse(t, ts.do(t, http.MethodDelete, "/api/admin/files/"+uploaded.Name, token, nil), http.StatusOK, &msg)

	var files []domain.UploadedFile
	decodeResponse(t, ts.do(t, http.MethodGet, "/api/admin/files", token, nil), http.StatusOK, &files)
	if len(files) != 0 {
		t.Fatalf("deleted file still listed: %+v", files)
	}
	errorDetail(t, ts.do(t, http.MethodGet, uploaded.URL, "", nil), http.StatusNotFound)

	resp = uploadFile(t, ts, token, "huge.bin", bytes.Repeat([]byte("x"), 4096))
	errorDetail(t, resp, http.StatusRequestEntityTooLarge)
}

func TestFileNamesWithReservedCharactersRoundTrip(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	for _, name := range []string{"report, final.txt", "a;b.txt", "100%.txt"} {
		t.Run(name, func(t *testing.T) {
			content := []byte("contents of " + name)
			var uploaded domain.UploadedFile
			decodeResponse(t, uploadFile(t, ts, token, name, content), http.StatusOK, &uploaded)
			if !strings.HasSuffix(uploaded.Name, "_"+name) {
				t.Fatalf("stored name = %q", uploaded.Name)
			}

			resp := ts.do(t, http.MethodGet, uploaded.URL, "", nil)
			got, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				t.Fatalf("read file: %v", err)
			}
			if resp.StatusCode != http.StatusOK || !bytes.Equal(got, content) {
				t.Fatalf("GET %s: status %d, content %q", uploaded.URL, resp.StatusCode, got)
			}

			deleteURL := strings.Replace(uploaded.URL, "/api/files/", "/api/admin/files/", 1)
			var msg map[string]string
			decodeResponse(t, ts.do(t, http.MethodDelete, deleteURL, token, nil), http.StatusOK, &msg)
			errorDetail(t, ts.do(t, http.MethodGet, uploaded.URL, "", nil), http.StatusNotFound)
		})
	}
}

func TestEncodedSlashInFileNameIsRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	errorDetail(t, ts.do(t, http.MethodGet, "/api/files/..%2Fconfig.yaml", "", nil), http.StatusNotFound)
	errorDetail(t, ts.do(t, http.MethodDelete, "/api/admin/files/..%2Fconfig.yaml", token, nil), http.StatusBadRequest)
}

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:login", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })
	ts := newTestServer(t, limiter)

	ts.login(t)
	resp := ts.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	})
	if resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", resp.Header.Get("Retry-After"))
	}
	if got := errorDetail(t, resp, http.StatusTooManyRequests); got != "too many login attempts" {
		t.Fatalf("detail = %q", got)
	}
}

func TestMetricsAndHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	var health map[string]string
	decodeResponse(t, ts.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Fatalf("unexpected health: %+v", health)
	}
	errorDetail(t, ts.do(t, http.MethodGet, "/api/blog/some-slug", "", nil), http.StatusNotFound)

	resp := ts.do(t, http.MethodGet, "/metrics", "", nil)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, `leaddesk_http_requests_total{method="GET",route="/api/blog/{slug}",status="404"} 1`) {
		t.Fatalf("route pattern not recorded:\n%s", body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}
