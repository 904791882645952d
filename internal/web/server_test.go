package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/jd-comparator/internal/comparator"
	"github.com/spigell/jd-comparator/internal/lifecycle"
)

const (
	pdfContent    = "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"
	resumeContent = "Go developer with Kubernetes experience\n"
)

type funcComparer func(ctx context.Context, p *comparator.Payload) (*comparator.Result, error)

func (f funcComparer) Compare(ctx context.Context, p *comparator.Payload) (*comparator.Result, error) {
	return f(ctx, p)
}

func sampleResult() *comparator.Result {
	return &comparator.Result{
		MatchPercent:  75,
		MatchedSkills: []string{"Go", "Kubernetes"},
		MissingSkills: []string{"Python", "Django"},
		Raw:           []byte(`{"matchPercent":75,"matchedSkills":["Go","Kubernetes"],"missingSkills":["Python","Django"]}`),
	}
}

func okComparer(calls *atomic.Int32, last *atomic.Pointer[comparator.Payload]) funcComparer {
	return func(_ context.Context, p *comparator.Payload) (*comparator.Result, error) {
		if calls != nil {
			calls.Add(1)
		}
		if last != nil {
			last.Store(p)
		}
		return sampleResult(), nil
	}
}

type part struct {
	field    string
	filename string
	content  string
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename == "" {
			if err := w.WriteField(p.field, p.content); err != nil {
				t.Fatalf("write field: %v", err)
			}
			continue
		}

		fw, err := w.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(fw, p.content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func do(t *testing.T, s *Server, req *http.Request) (*http.Response, string) {
	t.Helper()

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func get(t *testing.T, s *Server, target string) (*http.Response, string) {
	t.Helper()
	return do(t, s, httptest.NewRequest(http.MethodGet, target, nil))
}

func submitUpload(t *testing.T, s *Server) {
	t.Helper()

	resp, _ := do(t, s, multipartRequest(t, "/compare",
		part{field: "jd_file", filename: "jd.pdf", content: pdfContent},
		part{field: "resume_file", filename: "resume.txt", content: resumeContent},
	))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect after a valid submit, got %d", resp.StatusCode)
	}
	s.controller.Wait()
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := New(okComparer(nil, nil), zap.NewNop())

	resp, body := get(t, s, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"status":"ok"`) || !strings.Contains(body, `"state":"idle"`) {
		t.Fatalf("unexpected health body: %s", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestIndexRendersUploadForm(t *testing.T) {
	t.Parallel()

	s := New(okComparer(nil, nil), nil)

	resp, body := get(t, s, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected content type: %s", resp.Header.Get("Content-Type"))
	}
	for _, want := range []string{`name="jd_file"`, `name="resume_file"`, "Compare"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
	if strings.Contains(body, `name="jd_text"`) {
		t.Fatal("text area must be hidden in upload mode")
	}
}

func TestCompareInvalidFormShowsErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New(okComparer(&calls, nil), nil)

	resp, body := do(t, s, multipartRequest(t, "/compare"))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	for _, want := range []string{
		"Resume file is required",
		"Please upload a job description PDF or switch to text mode",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q, got:\n%s", want, body)
		}
	}
	if calls.Load() != 0 {
		t.Fatal("validation failure must not reach the api")
	}
}

func TestCompareRendersResults(t *testing.T) {
	t.Parallel()

	var last atomic.Pointer[comparator.Payload]
	s := New(okComparer(nil, &last), nil)

	submitUpload(t, s)

	p := last.Load()
	if p == nil || p.JDFile == nil || p.JDFile.Name != "jd.pdf" || p.JDText != "" {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.ResumeFile == nil || p.ResumeFile.Name != "resume.txt" {
		t.Fatalf("unexpected resume: %+v", p.ResumeFile)
	}

	_, body := get(t, s, "/")
	for _, want := range []string{"75%", "Matched Skills (2)", "Missing Skills (2)", "Django", "/export.csv"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected results to contain %q, got:\n%s", want, body)
		}
	}
	if strings.Contains(body, `id="raw"`) {
		t.Fatal("raw json must be hidden by default")
	}

	get(t, s, "/raw")
	_, body = get(t, s, "/")
	if !strings.Contains(body, `id="raw"`) || !strings.Contains(body, "matchPercent") {
		t.Fatalf("expected raw json after toggling, got:\n%s", body)
	}
}

func TestCompareTextMode(t *testing.T) {
	t.Parallel()

	var last atomic.Pointer[comparator.Payload]
	s := New(okComparer(nil, &last), nil)

	resp, _ := do(t, s, formRequest("/mode", url.Values{"mode": {"text"}}))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}

	_, body := get(t, s, "/")
	if !strings.Contains(body, `name="jd_text"`) || !strings.Contains(body, "0 / 50,000") {
		t.Fatalf("expected the text area with a counter, got:\n%s", body)
	}

	resp, _ = do(t, s, multipartRequest(t, "/compare",
		part{field: "jd_text", content: "Senior Go engineer"},
		part{field: "resume_file", filename: "resume.txt", content: resumeContent},
	))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	s.controller.Wait()

	if p := last.Load(); p == nil || p.JDText != "Senior Go engineer" || p.JDFile != nil {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestModeToggle(t *testing.T) {
	t.Parallel()

	s := New(okComparer(nil, nil), nil)

	do(t, s, formRequest("/mode", url.Values{}))
	if _, body := get(t, s, "/"); !strings.Contains(body, `name="jd_text"`) {
		t.Fatal("expected text mode after the first toggle")
	}

	do(t, s, formRequest("/mode", url.Values{}))
	if _, body := get(t, s, "/"); !strings.Contains(body, `name="jd_file"`) {
		t.Fatal("expected upload mode after the second toggle")
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	s := New(okComparer(nil, nil), nil)

	if resp, _ := get(t, s, "/export.csv"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without a result, got %d", resp.StatusCode)
	}

	submitUpload(t, s)

	resp, body := get(t, s, "/export.csv")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if !strings.HasPrefix(disposition, "attachment") || !strings.Contains(disposition, "missing-skills-") {
		t.Fatalf("unexpected content disposition: %s", disposition)
	}
	if body != "Missing Skills\nPython\nDjango\n" {
		t.Fatalf("unexpected csv: %q", body)
	}
}

func TestFailureRetryAndDismiss(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New(funcComparer(func(context.Context, *comparator.Payload) (*comparator.Result, error) {
		calls.Add(1)
		return nil, &comparator.StatusError{Code: 500, Message: "Internal server error (500). Please check the backend server logs."}
	}), nil)

	submitUpload(t, s)

	_, body := get(t, s, "/")
	for _, want := range []string{"Internal server error (500)", `action="/retry"`, `action="/dismiss"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected error view to contain %q, got:\n%s", want, body)
		}
	}

	do(t, s, formRequest("/retry", url.Values{}))
	s.controller.Wait()
	if calls.Load() != 2 {
		t.Fatalf("expected retry to resend, got %d calls", calls.Load())
	}

	do(t, s, formRequest("/dismiss", url.Values{}))
	if _, body := get(t, s, "/"); strings.Contains(body, "Internal server error") {
		t.Fatal("dismiss must clear the error")
	}
	if _, body := get(t, s, "/"); !strings.Contains(body, "resume.txt") {
		t.Fatal("dismiss must keep the selected files")
	}
}

func TestCancelWhileLoading(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	s := New(funcComparer(func(ctx context.Context, _ *comparator.Payload) (*comparator.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}), nil)

	resp, _ := do(t, s, multipartRequest(t, "/compare",
		part{field: "jd_file", filename: "jd.pdf", content: pdfContent},
		part{field: "resume_file", filename: "resume.txt", content: resumeContent},
	))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	<-started

	_, body := get(t, s, "/")
	if !strings.Contains(body, `http-equiv="refresh"`) || !strings.Contains(body, `action="/cancel"`) {
		t.Fatalf("expected the loading view, got:\n%s", body)
	}

	do(t, s, formRequest("/cancel", url.Values{}))
	s.controller.Wait()

	if _, ok := s.controller.State().(lifecycle.Idle); !ok {
		t.Fatalf("expected idle after cancel, got %s", s.controller.State().Name())
	}
	if _, body := get(t, s, "/"); strings.Contains(body, `class="banner"`) {
		t.Fatal("cancel must not show an error")
	}
}

func TestNewComparisonClearsResults(t *testing.T) {
	t.Parallel()

	s := New(okComparer(nil, nil), nil)
	submitUpload(t, s)

	do(t, s, formRequest("/new", url.Values{}))

	_, body := get(t, s, "/")
	if strings.Contains(body, "75%") || strings.Contains(body, "resume.txt") {
		t.Fatalf("expected a blank form, got:\n%s", body)
	}
}

func TestRequestLogging(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	s := New(okComparer(nil, nil), zap.New(core))

	get(t, s, "/health")

	entries := observed.FilterMessage("handled request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["path"] != "/health" || ctx["status"] != int64(http.StatusOK) {
		t.Fatalf("unexpected log fields: %v", ctx)
	}
	if id, _ := ctx["request_id"].(string); id == "" {
		t.Fatal("expected the request id to be logged")
	}
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	s := New(okComparer(nil, nil), nil)
	s.app.Get("/boom", func(*fiber.Ctx) error { return errors.New("boom") })

	resp, body := get(t, s, "/boom")
	if resp.StatusCode != http.StatusInternalServerError || body != "boom" {
		t.Fatalf("unexpected response: %d %q", resp.StatusCode, body)
	}
}

func TestFormValuesSurviveLaterRequests(t *testing.T) {
	t.Parallel()

	s := New(okComparer(nil, nil), nil)

	do(t, s, formRequest("/mode", url.Values{"mode": {"text"}}))
	do(t, s, formRequest("/compare", url.Values{"jd_text": {"abcd"}}))
	do(t, s, formRequest("/mode", url.Values{"mode": {"text"}}))
	do(t, s, formRequest("/compare", url.Values{"jd_text": {"wxyz"}}))

	s.mu.Lock()
	in := s.form.Input()
	s.mu.Unlock()

	if in.Mode != "text" {
		t.Fatalf("stored mode changed by a later request: %q", in.Mode)
	}
	if in.JDText != "wxyz" {
		t.Fatalf("stored text changed by a later request: %q", in.JDText)
	}

	do(t, s, formRequest("/compare", url.Values{"jd_text": {"Senior Go engineer"}}))
	do(t, s, formRequest("/dismiss", url.Values{"note": {"zzzzzzzzzzzzzzzzzz"}}))

	s.mu.Lock()
	text := s.form.Input().JDText
	s.mu.Unlock()

	if text != "Senior Go engineer" {
		t.Fatalf("stored text changed by a later request: %q", text)
	}
}

func TestCopyMissingSkills(t *testing.T) {
	t.Parallel()

	s := New(okComparer(nil, nil), nil)

	var copied []string
	s.copySkills = func(skills []string) error {
		copied = append([]string(nil), skills...)
		return nil
	}

	if resp, _ := do(t, s, formRequest("/copy", url.Values{})); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without a result, got %d", resp.StatusCode)
	}

	submitUpload(t, s)

	_, body := get(t, s, "/")
	if !strings.Contains(body, `action="/copy"`) {
		t.Fatalf("expected a copy action on the results view, got:\n%s", body)
	}

	resp, _ := do(t, s, formRequest("/copy", url.Values{}))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if strings.Join(copied, ",") != "Python,Django" {
		t.Fatalf("unexpected clipboard content: %v", copied)
	}
	if _, body := get(t, s, "/"); !strings.Contains(body, msgCopied) {
		t.Fatalf("expected the copy confirmation, got:\n%s", body)
	}

	s.copySkills = func([]string) error { return errors.New("no clipboard utilities available") }
	do(t, s, formRequest("/copy", url.Values{}))
	if _, body := get(t, s, "/"); !strings.Contains(body, msgCopyFailed) || strings.Contains(body, msgCopied) {
		t.Fatalf("expected the copy failure, got:\n%s", body)
	}

	do(t, s, formRequest("/new", url.Values{}))
	if _, body := get(t, s, "/"); strings.Contains(body, `id="copy-status"`) {
		t.Fatal("new comparison must clear the copy status")
	}
}
