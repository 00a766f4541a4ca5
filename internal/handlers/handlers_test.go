package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/directorchair/directorchair/internal/anthropic"
	"github.com/directorchair/directorchair/internal/database"
	"github.com/directorchair/directorchair/internal/dispatch"
	"github.com/directorchair/directorchair/internal/fal"
	"github.com/directorchair/directorchair/internal/luma"
	"github.com/directorchair/directorchair/internal/poll"
	"github.com/directorchair/directorchair/internal/relay"
	"github.com/directorchair/directorchair/internal/storage"
)

type invocation struct {
	mode     string
	endpoint string
	input    map[string]any
}

type fakeInvoker struct {
	mu    sync.Mutex
	calls []invocation
	err   error
}

func (f *fakeInvoker) Run(ctx context.Context, endpointID string, input map[string]any) (*fal.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invocation{"run", endpointID, input})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &fal.Result{Data: json.RawMessage(`{"images":[{"url":"https://cdn/cat.jpg"}]}`), RequestID: "req-1"}, nil
}

func (f *fakeInvoker) Subscribe(ctx context.Context, endpointID string, input map[string]any, opts fal.SubscribeOptions) (*fal.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invocation{"subscribe", endpointID, input})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &fal.Result{Data: json.RawMessage(`{"audio":{"url":"https://cdn/a.mp3"}}`), RequestID: "req-2"}, nil
}

func (f *fakeInvoker) last(t *testing.T) invocation {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("provider was not called")
	}
	return f.calls[len(f.calls)-1]
}

type env struct {
	router  chi.Router
	invoker *fakeInvoker
	relay   *relay.Registry
	store   *storage.FileStore
	db      *database.DB
}

func newEnv(t *testing.T) *env {
	t.Helper()
	inv := &fakeInvoker{}
	d := dispatch.New(dispatch.Config{Invoker: inv})

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "uploads"), "/api/uploads")
	if err != nil {
		t.Fatal(err)
	}
	db, err := database.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	reg := relay.NewRegistry(time.Minute)
	gen := NewGenerateHandler(d, nil)
	proxy := NewFalHandler(d, fal.NewClient("k"))
	cb := NewCallbackHandler(reg, nil)
	up := NewUploadHandler(store, db)
	media := NewMediaHandler(db, store)

	r := chi.NewRouter()
	r.Post("/api/generate", gen.Generate)
	r.Post("/api/generate/*", gen.Preset)
	r.Get("/api/fal", proxy.Get)
	r.Post("/api/fal", proxy.Post)
	r.Get("/api/fal/status", proxy.Status)
	r.Get("/api/callback", cb.Subscribe)
	r.Post("/api/callback", cb.Push)
	r.Post("/api/upload", up.Upload)
	r.Post("/api/upload-image", up.UploadImage)
	r.Get("/api/uploads/*", media.ServeUpload)
	r.Get("/api/media", media.List)
	r.Get("/api/media/{id}", media.Get)
	r.Delete("/api/media/{id}", media.Delete)
	r.Get("/api/models", NewModelsHandler(nil).List)
	r.Get("/api/health", NewSystemHandler(SystemDeps{DB: db, Tracked: d.Tracked, Streams: reg.Len}).Health)

	return &env{router: r, invoker: inv, relay: reg, store: store, db: db}
}

func (e *env) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *env) postJSON(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	rr := e.do(t, http.MethodPost, path, strings.NewReader(body), "application/json")
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s: response is not JSON: %q", path, rr.Body.String())
	}
	return rr.Code, out
}

func TestGenerateRunsImageModel(t *testing.T) {
	e := newEnv(t)
	code, out := e.postJSON(t, "/api/generate", `{"model":"fal-ai/flux-pro/v1.1-ultra","prompt":"a cat"}`)

	if code != http.StatusOK || out["success"] != true || out["requestId"] != "req-1" {
		t.Fatalf("code=%d out=%v", code, out)
	}
	c := e.invoker.last(t)
	if c.mode != "run" || c.endpoint != "fal-ai/flux-pro/v1.1-ultra" || c.input["prompt"] != "a cat" {
		t.Errorf("call = %+v", c)
	}
}

func TestGenerateRequiresModelAndPrompt(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		body string
		want string
	}{
		{`{}`, "Model and Prompt are required"},
		{`{"model":"fal-ai/flux/dev"}`, "Prompt is required"},
		{`{"prompt":"a cat"}`, "Model is required"},
		{`{"model":"acme/unknown","prompt":"a cat"}`, "Unsupported model: acme/unknown"},
		{`not json`, "Invalid JSON body"},
	}
	for _, tt := range tests {
		code, out := e.postJSON(t, "/api/generate", tt.body)
		if code != http.StatusBadRequest || out["success"] != false || out["error"] != tt.want {
			t.Errorf("%s: code=%d out=%v", tt.body, code, out)
		}
	}
}

func TestGenerateUpstreamStatusPassesThrough(t *testing.T) {
	e := newEnv(t)
	e.invoker.err = &fal.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "image_url: field required", Body: json.RawMessage(`{"detail":"x"}`)}

	code, out := e.postJSON(t, "/api/generate", `{"model":"fal-ai/flux/dev","prompt":"a cat"}`)
	if code != http.StatusUnprocessableEntity || out["error"] != "image_url: field required" || out["details"] == nil {
		t.Errorf("code=%d out=%v", code, out)
	}
}

func TestPresetMinimaxTTSMergesVoiceSettings(t *testing.T) {
	e := newEnv(t)
	code, out := e.postJSON(t, "/api/generate/minimax-tts", `{"text":"hello","voice_setting":{"voice_id":"v1"}}`)
	if code != http.StatusOK || out["success"] != true {
		t.Fatalf("code=%d out=%v", code, out)
	}

	c := e.invoker.last(t)
	got, _ := json.Marshal(c.input)
	want := `{"text":"hello","voice_setting":{"english_normalization":false,"pitch":0,"speed":1,"voice_id":"v1","vol":1}}`
	if string(got) != want {
		t.Errorf("input = %s\nwant    %s", got, want)
	}
}

func TestPresetRoutes(t *testing.T) {
	e := newEnv(t)

	code, out := e.postJSON(t, "/api/generate/luma/ray2-flash", `{"prompt":"waves"}`)
	if code != http.StatusOK {
		t.Fatalf("nested preset: code=%d out=%v", code, out)
	}
	if c := e.invoker.last(t); c.endpoint != "fal-ai/luma-dream-machine/ray-2-flash" {
		t.Errorf("endpoint = %s", c.endpoint)
	}

	code, out = e.postJSON(t, "/api/generate/elevenlabs-tts", `{"text":"hi"}`)
	if code != http.StatusBadRequest || out["error"] != "Voice is required" {
		t.Errorf("missing voice: code=%d out=%v", code, out)
	}

	code, _ = e.postJSON(t, "/api/generate/nope", `{"prompt":"x"}`)
	if code != http.StatusNotFound {
		t.Errorf("unknown slug: code=%d", code)
	}
}

func TestFalProxy(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodGet, "/api/fal?model=fal-ai/veo3&input="+`%7B%22prompt%22%3A%22a%20fox%22%7D`, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET code=%d body=%s", rr.Code, rr.Body.String())
	}
	if c := e.invoker.last(t); c.mode != "subscribe" || c.input["prompt"] != "a fox" {
		t.Errorf("GET call = %+v", c)
	}

	code, _ := e.postJSON(t, "/api/fal", `{"endpointId":"fal-ai/stable-audio","prompt":"rain","seconds_total":"12"}`)
	if code != http.StatusOK {
		t.Fatalf("POST code=%d", code)
	}
	if c := e.invoker.last(t); c.mode != "run" || c.endpoint != "fal-ai/stable-audio" {
		t.Errorf("POST call = %+v", c)
	}

	rr = e.do(t, http.MethodGet, "/api/fal?model=fal-ai/veo3&input=notjson", nil, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad input code=%d", rr.Code)
	}

	rr = e.do(t, http.MethodGet, "/api/fal/status", nil, "")
	if !strings.Contains(rr.Body.String(), `"configured":true`) {
		t.Errorf("status body = %s", rr.Body.String())
	}
}

func TestCallbackRelaysTerminalFrame(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/callback?id=abc")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	// Headers arrive only after the stream is registered.
	if !e.relay.Has("abc") {
		t.Fatal("stream not registered when headers arrived")
	}

	post, err := http.Post(srv.URL+"/api/callback", "application/json", strings.NewReader(`{"id":"abc","state":"failed","error":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusOK {
		t.Fatalf("push status = %d", post.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(body), "data: {\"id\":\"abc\",\"state\":\"failed\",\"error\":\"x\"}\n\n"; got != want {
		t.Errorf("stream = %q, want %q", got, want)
	}
	if e.relay.Has("abc") {
		t.Error("entry still registered after terminal frame")
	}
}

func TestCallbackPushWithoutStream(t *testing.T) {
	e := newEnv(t)
	for _, body := range []string{`{"id":"ghost","state":"completed"}`, `garbage`, `{}`} {
		code, out := e.postJSON(t, "/api/callback", body)
		if code != http.StatusOK || out["delivered"] != false {
			t.Errorf("%s: code=%d out=%v", body, code, out)
		}
	}
}

func TestCallbackSubscribeRequiresID(t *testing.T) {
	e := newEnv(t)
	if rr := e.do(t, http.MethodGet, "/api/callback", nil, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rr.Code)
	}
}

func multipartFile(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestUploadImageRejectsOversize(t *testing.T) {
	e := newEnv(t)
	jpeg := make([]byte, 10*storage.MB)
	copy(jpeg, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	body, ct := multipartFile(t, "big.jpg", "image/jpeg", jpeg)

	rr := e.do(t, http.MethodPost, "/api/upload-image", body, ct)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "exceeds") {
		t.Errorf("body = %s", rr.Body.String())
	}
	if n := countFiles(t, e.store.BasePath()); n != 0 {
		t.Errorf("%d files written", n)
	}
}

func TestUploadEnforcesKindLimitWhileStreaming(t *testing.T) {
	e := newEnv(t)
	h := NewUploadHandler(e.store, e.db)
	limits := storage.Limits{storage.KindVideo: storage.MB}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "leading fields are skipped")
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="clip.mp4"`)
	hdr.Set("Content-Type", "video/mp4")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(make([]byte, 3*storage.MB))
	mw.Close()

	// No declared length: the limit has to trip while the part is read.
	req := httptest.NewRequest(http.MethodPost, "/api/upload-video", io.MultiReader(&buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.handle(rr, req, "upload-video", limits, false)

	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "exceeds the 1MB limit") {
		t.Fatalf("code=%d body=%s", rr.Code, rr.Body.String())
	}
	if n := countFiles(t, e.store.BasePath()); n != 0 {
		t.Errorf("%d files left behind", n)
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, x%20, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUploadImageLifecycle(t *testing.T) {
	e := newEnv(t)
	data := testPNG(t)
	body, ct := multipartFile(t, "frame.png", "image/png", data)

	rr := e.do(t, http.MethodPost, "/api/upload-image", body, ct)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload code=%d body=%s", rr.Code, rr.Body.String())
	}
	var up struct {
		ID           string `json:"id"`
		URL          string `json:"url"`
		DataURL      string `json:"dataUrl"`
		ThumbnailURL string `json:"thumbnailUrl"`
		Width        int    `json:"width"`
	}
	json.Unmarshal(rr.Body.Bytes(), &up)
	if !strings.HasPrefix(up.URL, "/api/uploads/images/") || !strings.HasPrefix(up.DataURL, "data:image/png;base64,") {
		t.Errorf("upload response = %+v", up)
	}
	if up.ThumbnailURL == "" || up.Width != 40 {
		t.Errorf("thumbnail missing: %+v", up)
	}

	rr = e.do(t, http.MethodGet, up.URL, nil, "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" || !bytes.Equal(rr.Body.Bytes(), data) {
		t.Fatalf("serve code=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = e.do(t, http.MethodGet, "/api/media?type=image", nil, "")
	if !strings.Contains(rr.Body.String(), up.ID) || !strings.Contains(rr.Body.String(), `"total":1`) {
		t.Errorf("list body = %s", rr.Body.String())
	}

	rr = e.do(t, http.MethodDelete, "/api/media/"+up.ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete code=%d", rr.Code)
	}
	if n := countFiles(t, e.store.BasePath()); n != 0 {
		t.Errorf("%d files left after delete", n)
	}
	if rr = e.do(t, http.MethodGet, "/api/media/"+up.ID, nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete code=%d", rr.Code)
	}
}

func TestUploadValidation(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name, path, filename, ct string
		data                     []byte
		want                     string
	}{
		{"unsupported type", "/api/upload", "notes.txt", "text/plain", []byte("hi"), "Unsupported file type"},
		{"audio on image route", "/api/upload-image", "a.mp3", "audio/mpeg", []byte("ID3"), "Unsupported file type"},
		{"spoofed png", "/api/upload-image", "x.png", "image/png", []byte("not a png at all"), "does not match"},
	}
	for _, tt := range tests {
		body, ct := multipartFile(t, tt.filename, tt.ct, tt.data)
		rr := e.do(t, http.MethodPost, tt.path, body, ct)
		if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), tt.want) {
			t.Errorf("%s: code=%d body=%s", tt.name, rr.Code, rr.Body.String())
		}
	}

	rr := e.do(t, http.MethodPost, "/api/upload", strings.NewReader(""), "multipart/form-data; boundary=x")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty form code=%d", rr.Code)
	}
}

func TestServeUploadRejectsEscapes(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/api/uploads/images/%2e%2e/%2e%2e/secret", "/api/uploads/images/missing.png", "/api/uploads/images"} {
		rr := e.do(t, http.MethodGet, path, nil, "")
		if rr.Code != http.StatusBadRequest && rr.Code != http.StatusNotFound {
			t.Errorf("%s: code=%d", path, rr.Code)
		}
	}
}

func TestModelsList(t *testing.T) {
	e := newEnv(t)
	rr := e.do(t, http.MethodGet, "/api/models?category=voiceover", nil, "")
	var out struct {
		Models []struct {
			Category string `json:"category"`
		} `json:"models"`
		Presets []struct {
			Slug string `json:"slug"`
		} `json:"presets"`
	}
	json.Unmarshal(rr.Body.Bytes(), &out)
	if len(out.Models) == 0 || len(out.Presets) == 0 {
		t.Fatalf("body = %s", rr.Body.String())
	}
	for _, m := range out.Models {
		if m.Category != "voiceover" {
			t.Errorf("category %q leaked into voiceover listing", m.Category)
		}
	}

	if rr = e.do(t, http.MethodGet, "/api/models?category=3d", nil, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad category code=%d", rr.Code)
	}
	rr = e.do(t, http.MethodGet, "/api/models?id=fal-ai/kling-video/v9/new", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"mode":"subscribe"`) {
		t.Errorf("describe code=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	rr := e.do(t, http.MethodGet, "/api/health", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("code=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestClaudeComplete(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"msg_1","model":"m","content":[{"type":"text","text":"A neon city at dusk."}]}`))
	}))
	defer upstream.Close()

	h := NewClaudeHandler(anthropic.NewClient("ak", upstream.URL))
	rr := httptest.NewRecorder()
	h.Complete(rr, httptest.NewRequest(http.MethodPost, "/api/claude", strings.NewReader(`{"prompt":"city"}`)))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"text":"A neon city at dusk."`) {
		t.Errorf("code=%d body=%s", rr.Code, rr.Body.String())
	}

	h = NewClaudeHandler(anthropic.NewClient("", upstream.URL))
	rr = httptest.NewRecorder()
	h.Complete(rr, httptest.NewRequest(http.MethodPost, "/api/claude", strings.NewReader(`{"prompt":"city"}`)))
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), "ANTHROPIC_API_KEY") {
		t.Errorf("missing key: code=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Complete(rr, httptest.NewRequest(http.MethodPost, "/api/claude", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing prompt: code=%d", rr.Code)
	}
}

func TestLumaCreate(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"gen-1","state":"completed","assets":{"video":"https://cdn/v.mp4"}}`))
	}))
	defer upstream.Close()

	h := NewLumaHandler(luma.NewClient("lk", upstream.URL, poll.Policy{Interval: time.Millisecond, MaxAttempts: 3}))
	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/luma/generations", strings.NewReader(`{"prompt":"a wave"}`)))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"requestId":"gen-1"`) {
		t.Errorf("code=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/luma/generations", strings.NewReader(`{"prompt":" "}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank prompt: code=%d", rr.Code)
	}
}
