package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resumelens/internal/app"
	"resumelens/internal/extract"
	"resumelens/internal/store"
	"resumelens/pkg/domain"
)

const stubAnalysis = `{"mode":"resume_jd","ats_score":80,"keyword_match":100,` +
	`"matched_keywords":["Python","SQL"],"missing_keywords":[],` +
	`"strengths":["..."],"weaknesses":["..."],"enhancements":["..."],` +
	`"section_feedback":{"skills":"...","projects":"...","experience":"...","education":"..."}}`

type stubGenerator struct {
	calls    int32
	response string
}

func (g *stubGenerator) GenerateText(_ context.Context, _, _ string) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	return g.response, nil
}

type stubExtractor struct{ text string }

func (e stubExtractor) ExtractText(_, declaredType string) (string, error) {
	if declaredType != "application/pdf" &&
		declaredType != "application/vnd.openxmlformats-officedocument.wordprocessingml.document" {
		return "", fmt.Errorf("reject %s: %w", declaredType, extract.ErrUnsupportedFormat)
	}
	return e.text, nil
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	gen    *stubGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gen := &stubGenerator{response: stubAnalysis}
	a, err := app.New(app.Config{
		Users:     store.NewMemoryCredentialStore(),
		Sessions:  store.NewMemorySessionStore(),
		Generator: gen,
		Extractor: stubExtractor{text: "Python, SQL"},
		SpoolDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	s, err := New(Config{
		App:           a,
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		StaticDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testEnv{
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		gen: gen,
	}
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := e.client.Post(e.srv.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) upload(t *testing.T, filename, contentType, jobdesc string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="resume"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := io.WriteString(part, "file bytes"); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if jobdesc != "" {
		if err := mw.WriteField("jobdesc", jobdesc); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	resp, err := e.client.Post(e.srv.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /upload: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.client.Get(env.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRootRedirectsToIndex(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.client.Get(env.srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/index.html" {
		t.Fatalf("location = %q", loc)
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/register", map[string]string{"username": "alice", "password": "pw"})
	var body map[string]any
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusCreated || body["success"] != true {
		t.Fatalf("register: status=%d body=%v", resp.StatusCode, body)
	}

	resp = env.postJSON(t, "/register", map[string]string{"username": "alice", "password": "pw"})
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusConflict || body["success"] != false {
		t.Fatalf("duplicate register: status=%d body=%v", resp.StatusCode, body)
	}

	resp = env.postJSON(t, "/login", map[string]string{"username": "bob", "password": "pw"})
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusUnauthorized || body["message"] != "user not found" {
		t.Fatalf("unknown user login: status=%d body=%v", resp.StatusCode, body)
	}

	resp = env.postJSON(t, "/login", map[string]string{"username": "alice", "password": "wrong"})
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusUnauthorized || body["message"] != "incorrect password" {
		t.Fatalf("wrong password login: status=%d body=%v", resp.StatusCode, body)
	}

	resp = env.postJSON(t, "/login", map[string]string{"username": "alice", "password": "pw"})
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("login: status=%d body=%v", resp.StatusCode, body)
	}

	// logged-in sessions report no demo quota
	dresp, err := env.client.Get(env.srv.URL + "/demo-status")
	if err != nil {
		t.Fatalf("GET /demo-status: %v", err)
	}
	var status domain.DemoStatus
	decodeBody(t, dresp, &status)
	if status.IsDemo || status.RemainingTries != nil {
		t.Fatalf("demo status after login = %+v", status)
	}
}

func TestDemoQuotaOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	for i := 1; i <= 3; i++ {
		resp := env.upload(t, "cv.pdf", "application/pdf", "")
		var body map[string]any
		decodeBody(t, resp, &body)
		if resp.StatusCode != http.StatusOK || body["success"] != true {
			t.Fatalf("upload %d: status=%d body=%v", i, resp.StatusCode, body)
		}
	}

	resp := env.upload(t, "cv.pdf", "application/pdf", "")
	var body map[string]any
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("fourth upload: status=%d body=%v", resp.StatusCode, body)
	}
	if !strings.Contains(body["message"].(string), "demo limit") {
		t.Fatalf("fourth upload message = %v", body["message"])
	}

	// login resets the counter
	env.postJSON(t, "/register", map[string]string{"username": "alice", "password": "pw"}).Body.Close()
	resp = env.postJSON(t, "/login", map[string]string{"username": "alice", "password": "pw"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status=%d", resp.StatusCode)
	}

	resp = env.upload(t, "cv.pdf", "application/pdf", "")
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("upload after login: status=%d body=%v", resp.StatusCode, body)
	}
}

func TestDemoStatusCountsDown(t *testing.T) {
	env := newTestEnv(t)

	var status domain.DemoStatus
	resp, err := env.client.Get(env.srv.URL + "/demo-status")
	if err != nil {
		t.Fatalf("GET /demo-status: %v", err)
	}
	decodeBody(t, resp, &status)
	if !status.IsDemo || status.RemainingTries == nil || *status.RemainingTries != 3 {
		t.Fatalf("initial status = %+v", status)
	}

	env.upload(t, "cv.pdf", "application/pdf", "").Body.Close()

	resp, err = env.client.Get(env.srv.URL + "/demo-status")
	if err != nil {
		t.Fatalf("GET /demo-status: %v", err)
	}
	decodeBody(t, resp, &status)
	if status.RemainingTries == nil || *status.RemainingTries != 2 {
		t.Fatalf("status after one upload = %+v", status)
	}
}

func TestUploadEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.postJSON(t, "/register", map[string]string{"username": "alice", "password": "pw"}).Body.Close()
	env.postJSON(t, "/login", map[string]string{"username": "alice", "password": "pw"}).Body.Close()

	resp := env.upload(t, "cv.pdf", "application/pdf", "Looking for Python and SQL engineer")
	var body struct {
		Success        bool                  `json:"success"`
		Analysis       domain.AnalysisResult `json:"analysis"`
		RemainingTries *int                  `json:"remainingTries"`
	}
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK || !body.Success {
		t.Fatalf("upload: status=%d success=%v", resp.StatusCode, body.Success)
	}
	if body.Analysis.Mode != domain.ModeResumeJD {
		t.Fatalf("analysis mode = %q, want resume_jd", body.Analysis.Mode)
	}
	if body.RemainingTries != nil {
		t.Fatalf("remainingTries = %v for authenticated user, want null", *body.RemainingTries)
	}
}

func TestUploadRejectsUnsupportedFormatWithoutCompletionCall(t *testing.T) {
	env := newTestEnv(t)

	resp := env.upload(t, "cv.png", "image/png", "")
	var body map[string]any
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["message"] != "Unsupported file format" {
		t.Fatalf("message = %v", body["message"])
	}
	if atomic.LoadInt32(&env.gen.calls) != 0 {
		t.Fatalf("completion service must not be called for unsupported formats")
	}
}

func TestUploadWithoutFile(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("jobdesc", "anything")
	_ = mw.Close()
	resp, err := env.client.Post(env.srv.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /upload: %v", err)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "No file uploaded" {
		t.Fatalf("status=%d body=%v", resp.StatusCode, body)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	env := newTestEnv(t)
	env.postJSON(t, "/register", map[string]string{"username": "alice", "password": "pw"}).Body.Close()
	env.postJSON(t, "/login", map[string]string{"username": "alice", "password": "pw"}).Body.Close()

	resp, err := env.client.Get(env.srv.URL + "/logout")
	if err != nil {
		t.Fatalf("GET /logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	dresp, err := env.client.Get(env.srv.URL + "/demo-status")
	if err != nil {
		t.Fatalf("GET /demo-status: %v", err)
	}
	var status domain.DemoStatus
	decodeBody(t, dresp, &status)
	if !status.IsDemo {
		t.Fatalf("session still authenticated after logout: %+v", status)
	}
}
