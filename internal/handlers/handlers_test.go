package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"video-captioner/internal/middleware"
	"video-captioner/internal/pipeline"
	"video-captioner/internal/storage"
	"video-captioner/internal/transcoder"
)

// spyRunner stands in for the encoder process and writes the output file
// named by the last argument.
type spyRunner struct {
	mu    sync.Mutex
	calls []transcoder.Invocation
	err   error
}

func (s *spyRunner) Run(_ context.Context, inv transcoder.Invocation) error {
	s.mu.Lock()
	s.calls = append(s.calls, inv)
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(inv.Args[len(inv.Args)-1], []byte("encoded"), 0o644)
}

func (s *spyRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type mockEncoderStatus struct {
	err error
}

func (m mockEncoderStatus) Available() error      { return m.err }
func (m mockEncoderStatus) Capacity() (int, int) { return 2, 1 }

type mockPosters struct {
	data  []byte
	err   error
	calls int
}

func (m *mockPosters) Generate(_ context.Context, _, _, _ string) ([]byte, error) {
	m.calls++
	return m.data, m.err
}

type testEnv struct {
	area    *storage.Area
	runner  *spyRunner
	posters *mockPosters
	status  *mockEncoderStatus
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	area, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	env := &testEnv{
		area:    area,
		runner:  &spyRunner{},
		posters: &mockPosters{data: []byte("jpeg")},
		status:  &mockEncoderStatus{},
	}
	enc := transcoder.New(transcoder.Config{MaxConcurrent: 2, JobTimeout: 5 * time.Second}, env.runner)
	svc := pipeline.NewService(area, enc, pipeline.Options{})
	h := New(svc, area, env.posters, env.status, "http://media.test")

	r := mux.NewRouter()
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.HandleFunc("/api/upload", h.UploadVideo).Methods("POST")
	r.HandleFunc("/api/combine", h.CombineVideos).Methods("POST")
	r.HandleFunc("/api/thumbnail/{filename}", h.GetThumbnail).Methods("GET")
	r.HandleFunc("/uploads/{filename}", h.ServeFile).Methods("GET", "HEAD")
	r.HandleFunc("/uploads/{filename}", h.DeleteFile).Methods("DELETE")
	env.router = middleware.RequestID(r)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) store(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.area.Root(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type formPart struct {
	field    string
	fileName string
	content  string
}

func multipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		var w io.Writer
		var err error
		if p.fileName != "" {
			w, err = mw.CreateFormFile(p.field, p.fileName)
		} else {
			w, err = mw.CreateFormField(p.field)
		}
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, p.content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rr.Body.String())
	}
	return body
}

func countUploads(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, e := range entries {
		if storage.Classify(e.Name()) == "upload" {
			n++
		}
	}
	return n
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "success" || body["message"] != "Server is running!" {
		t.Errorf("unexpected body %v", body)
	}
	ts, _ := body["timestamp"].(string)
	if _, err := time.Parse("2006-01-02T15:04:05.000Z", ts); err != nil {
		t.Errorf("timestamp %q not in ISO-8601 UTC form: %v", ts, err)
	}
	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("response carries no request id")
	}
}

func TestUploadVideo(t *testing.T) {
	tests := []struct {
		name       string
		parts      []formPart
		wantStatus int
		wantError  string
		wantRuns   int
	}{
		{
			name: "text before video",
			parts: []formPart{
				{field: "question", content: "Hello there"},
				{field: "video", fileName: "clip.mp4", content: "fake mp4"},
			},
			wantStatus: http.StatusOK,
			wantRuns:   1,
		},
		{
			name: "video before text",
			parts: []formPart{
				{field: "video", fileName: "clip.mp4", content: "fake mp4"},
				{field: "question", content: "Hello there"},
			},
			wantStatus: http.StatusOK,
			wantRuns:   1,
		},
		{
			name:       "no video",
			parts:      []formPart{{field: "question", content: "Hello"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "No video file uploaded.",
		},
		{
			name:       "no text",
			parts:      []formPart{{field: "video", fileName: "clip.mp4", content: "fake mp4"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "No subtitle text provided.",
		},
		{
			name: "blank text",
			parts: []formPart{
				{field: "video", fileName: "clip.mp4", content: "fake mp4"},
				{field: "question", content: "   "},
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No subtitle text provided.",
		},
		{
			name: "text at the length limit",
			parts: []formPart{
				{field: "question", content: strings.Repeat("é", pipeline.MaxCaptionText/2)},
				{field: "video", fileName: "clip.mp4", content: "fake mp4"},
			},
			wantStatus: http.StatusOK,
			wantRuns:   1,
		},
		{
			name: "text over the limit before video",
			parts: []formPart{
				{field: "question", content: strings.Repeat("a", pipeline.MaxCaptionText) + "TAIL"},
				{field: "video", fileName: "clip.mp4", content: "fake mp4"},
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Subtitle text is too long.",
		},
		{
			name: "text over the limit after video",
			parts: []formPart{
				{field: "video", fileName: "clip.mp4", content: "fake mp4"},
				{field: "question", content: strings.Repeat("a", pipeline.MaxCaptionText+1)},
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Subtitle text is too long.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.do(multipartRequest(t, tt.parts...))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if got := env.runner.callCount(); got != tt.wantRuns {
				t.Errorf("encoder runs = %d, want %d", got, tt.wantRuns)
			}
			body := decodeBody(t, rr)
			if tt.wantError != "" {
				if body["error"] != tt.wantError {
					t.Errorf("error = %v, want %q", body["error"], tt.wantError)
				}
				if n := countUploads(t, env.area.Root()); n != 0 {
					t.Errorf("%d uploads left behind after a rejected request", n)
				}
				return
			}

			fileName, _ := body["fileName"].(string)
			if !strings.HasPrefix(fileName, "output_") || !strings.HasSuffix(fileName, ".mp4") {
				t.Errorf("fileName = %q, want output_*.mp4", fileName)
			}
			if body["videoUrl"] != "http://media.test/uploads/"+fileName {
				t.Errorf("videoUrl = %v", body["videoUrl"])
			}
			if body["message"] != "Video uploaded with subtitles successfully." {
				t.Errorf("message = %v", body["message"])
			}
			if _, err := os.Stat(filepath.Join(env.area.Root(), fileName)); err != nil {
				t.Errorf("output not written: %v", err)
			}
		})
	}
}

func TestUploadVideoNotMultipart(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"video":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := env.do(req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUploadVideoEncoderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.runner.err = &transcoder.ExitError{
		Mode:        transcoder.ModeCaptionBurn,
		ExitCode:    1,
		Diagnostics: "Invalid data found when processing input",
		Err:         errors.New("exit status 1"),
	}

	req := multipartRequest(t,
		formPart{field: "question", content: "Hi"},
		formPart{field: "video", fileName: "clip.mp4", content: "not a video"},
	)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rr := env.do(req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != pipeline.MsgCaptionFailed {
		t.Errorf("error = %v, want %q", body["error"], pipeline.MsgCaptionFailed)
	}
	if body["requestId"] != "req-42" {
		t.Errorf("requestId = %v, want req-42", body["requestId"])
	}
	if strings.Contains(rr.Body.String(), env.area.Root()) || strings.Contains(rr.Body.String(), "Invalid data") {
		t.Errorf("response leaks internal detail: %s", rr.Body.String())
	}
}

func TestUploadVideoBodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	limited := middleware.MaxBodySize(1024)(env.router)

	req := multipartRequest(t,
		formPart{field: "video", fileName: "clip.mp4", content: strings.Repeat("x", 64<<10)},
		formPart{field: "question", content: "Hi"},
	)
	// Unknown length forces the streaming limit rather than the header check.
	req.ContentLength = -1

	rr := httptest.NewRecorder()
	limited.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (%s)", rr.Code, rr.Body.String())
	}
	if n := countUploads(t, env.area.Root()); n != 0 {
		t.Errorf("%d uploads left behind", n)
	}
}

func combineRequest(names ...string) *http.Request {
	type file struct {
		Name string `json:"name"`
	}
	files := make([]file, len(names))
	for i, n := range names {
		files[i] = file{Name: n}
	}
	b, _ := json.Marshal(map[string]interface{}{"files": files})
	req := httptest.NewRequest(http.MethodPost, "/api/combine", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCombineVideos(t *testing.T) {
	env := newTestEnv(t)
	env.store(t, "a.mp4", "A")
	env.store(t, "b.mp4", "B")

	rr := env.do(combineRequest("a.mp4", "b.mp4"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	fileName, _ := body["fileName"].(string)
	if !strings.HasPrefix(fileName, "combined_") {
		t.Errorf("fileName = %q, want combined_*", fileName)
	}
	if body["combinedVideoUrl"] != "http://media.test/uploads/"+fileName {
		t.Errorf("combinedVideoUrl = %v", body["combinedVideoUrl"])
	}
	if env.runner.callCount() != 1 {
		t.Errorf("encoder runs = %d, want 1", env.runner.callCount())
	}
}

func TestCombineVideosRejected(t *testing.T) {
	tests := []struct {
		name        string
		req         func() *http.Request
		wantError   string
		wantMissing []interface{}
	}{
		{
			name:      "single file",
			req:       func() *http.Request { return combineRequest("a.mp4") },
			wantError: pipeline.MsgTooFewFiles,
		},
		{
			name:      "no files",
			req:       func() *http.Request { return combineRequest() },
			wantError: pipeline.MsgTooFewFiles,
		},
		{
			name:        "missing files listed",
			req:         func() *http.Request { return combineRequest("a.mp4", "gone.mp4", "also-gone.mp4") },
			wantError:   pipeline.MsgFilesMissing,
			wantMissing: []interface{}{"gone.mp4", "also-gone.mp4"},
		},
		{
			name:      "traversal name",
			req:       func() *http.Request { return combineRequest("a.mp4", "../etc/passwd") },
			wantError: pipeline.MsgInvalidFileName,
		},
		{
			name: "malformed json",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/combine", strings.NewReader("{files:"))
			},
			wantError: "Invalid request body.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.store(t, "a.mp4", "A")

			rr := env.do(tt.req())
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rr.Code, rr.Body.String())
			}
			body := decodeBody(t, rr)
			if body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
			if tt.wantMissing != nil {
				got, _ := body["missingFiles"].([]interface{})
				if len(got) != len(tt.wantMissing) {
					t.Fatalf("missingFiles = %v, want %v", got, tt.wantMissing)
				}
				for i := range got {
					if got[i] != tt.wantMissing[i] {
						t.Errorf("missingFiles[%d] = %v, want %v", i, got[i], tt.wantMissing[i])
					}
				}
			}
			if env.runner.callCount() != 0 {
				t.Error("encoder started for a rejected request")
			}
		})
	}
}

func TestServeFile(t *testing.T) {
	env := newTestEnv(t)
	env.store(t, "output_x.mp4", "0123456789")

	rr := env.do(httptest.NewRequest(http.MethodGet, "/uploads/output_x.mp4", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "0123456789" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", ct)
	}

	req := httptest.NewRequest(http.MethodGet, "/uploads/output_x.mp4", nil)
	req.Header.Set("Range", "bytes=2-5")
	rr = env.do(req)
	if rr.Code != http.StatusPartialContent {
		t.Fatalf("range status = %d, want 206", rr.Code)
	}
	if rr.Body.String() != "2345" {
		t.Errorf("range body = %q, want 2345", rr.Body.String())
	}
}

func TestServeFileErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"missing file", "/uploads/nope.mp4", http.StatusNotFound},
		{"hidden file", "/uploads/.upload-123", http.StatusBadRequest},
		{"encoded separator", "/uploads/a%5Cb.mp4", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestDeleteFile(t *testing.T) {
	env := newTestEnv(t)
	path := env.store(t, "output_x.mp4", "video")
	poster := env.area.PosterPath("output_x.mp4")
	if err := os.WriteFile(poster, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	rr := env.do(httptest.NewRequest(http.MethodDelete, "/uploads/output_x.mp4", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still present after delete")
	}
	if _, err := os.Stat(poster); !os.IsNotExist(err) {
		t.Error("cached poster still present after delete")
	}

	rr = env.do(httptest.NewRequest(http.MethodDelete, "/uploads/output_x.mp4", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestGetThumbnail(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		store      bool
		genErr     error
		wantStatus int
		wantType   string
	}{
		{"video", "clip.mp4", true, nil, http.StatusOK, "image/jpeg"},
		{"not a video", "clip.srt", true, nil, http.StatusBadRequest, "application/json"},
		{"missing", "clip.mp4", false, nil, http.StatusNotFound, "application/json"},
		{"generator fails", "clip.mp4", true, errors.New("no frames"), http.StatusInternalServerError, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.posters.err = tt.genErr
			if tt.store {
				env.store(t, tt.file, "data")
			}

			rr := env.do(httptest.NewRequest(http.MethodGet, "/api/thumbnail/"+tt.file, nil))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if ct := rr.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if tt.wantStatus == http.StatusInternalServerError {
				if body := decodeBody(t, rr); body["requestId"] == "" || body["requestId"] == nil {
					t.Error("500 response carries no requestId")
				}
			}
		})
	}
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		encoderErr error
		wantStatus int
		wantBody   string
	}{
		{"ready", nil, http.StatusOK, "ready"},
		{"encoder missing", errors.New("ffmpeg not found"), http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.status.err = tt.encoderErr

			rr := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if body := decodeBody(t, rr); body["status"] != tt.wantBody {
				t.Errorf("status field = %v, want %s", body["status"], tt.wantBody)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	env.store(t, "a.mp4", "12345")

	rr := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != statusHealthy || !resp.Ready {
		t.Errorf("Status = %s Ready = %v, want healthy/true", resp.Status, resp.Ready)
	}
	if resp.JobsLimit != 2 || resp.JobsRunning != 1 {
		t.Errorf("jobs = %d/%d, want 1/2", resp.JobsRunning, resp.JobsLimit)
	}
	if resp.StoredFiles != 1 || resp.StoredBytes != 5 {
		t.Errorf("storage = %d files %d bytes, want 1/5", resp.StoredFiles, resp.StoredBytes)
	}

	env.status.err = errors.New("ffmpeg not found")
	rr = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rr.Code)
	}
}

func TestLivenessCheckHead(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodHead, "/livez", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("HEAD response has a body: %q", rr.Body.String())
	}
}

type mockMemory struct {
	pressure bool
}

func (m mockMemory) UnderPressure() bool { return m.pressure }
func (m mockMemory) Usage() float64      { return 0.9 }

func TestReadinessCheckMemoryPressure(t *testing.T) {
	area, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := New(nil, area, nil, mockEncoderStatus{}, "").WithMemory(mockMemory{pressure: true})

	rr := httptest.NewRecorder()
	h.ReadinessCheck(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ready || resp.MemoryUsage != 0.9 {
		t.Errorf("Ready = %v MemoryUsage = %v, want false/0.9", resp.Ready, resp.MemoryUsage)
	}
}
