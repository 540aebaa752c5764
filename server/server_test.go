package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"loraset/core/auth"
	"loraset/core/dataset"
	"loraset/core/labeling"
	"loraset/core/preprocess"
	"loraset/model"
	"loraset/repository"
)

type fixedProber struct{}

func (fixedProber) GetAudioDuration(string) (int, error) { return 30, nil }

type fakeLabeler struct {
	release chan struct{}
}

func (l *fakeLabeler) LabelAll(ctx context.Context, samples []*model.Sample, opts labeling.Options) (labeling.BatchReport, error) {
	if l.release != nil {
		<-l.release
	}
	report := labeling.BatchReport{Total: len(samples)}
	for i, s := range samples {
		if opts.Progress != nil {
			opts.Progress("Labeling " + s.Filename)
		}
		s.Caption = "caption " + s.Filename
		s.Labeled = true
		report.Succeeded++
		report.Results = append(report.Results, labeling.ItemResult{Index: i, Filename: s.Filename, Status: model.Success("ok")})
	}
	return report, nil
}

type fakePreprocessor struct {
	gotOutput string
}

func (p *fakePreprocessor) Run(ctx context.Context, samples []*model.Sample, meta model.DatasetMetadata, opts preprocess.Options) (preprocess.Result, error) {
	p.gotOutput = opts.OutputDir
	return preprocess.Result{OutputDir: opts.OutputDir, Total: len(samples), Succeeded: len(samples)}, nil
}

type testEnv struct {
	srv    *Server
	http   *httptest.Server
	token  string
	dir    string
	labels *fakeLabeler
	pre    *fakePreprocessor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.wav", "b.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	hash, err := auth.HashReviewerPassword("letmein")
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	env := &testEnv{dir: dir, labels: &fakeLabeler{}, pre: &fakePreprocessor{}}
	env.srv = New(Dependencies{
		Builder:           dataset.NewBuilder(fixedProber{}, repository.NewJSONDatasetRepository()),
		Labeler:           env.labels,
		Preprocessor:      env.pre,
		Tokens:            tokens,
		PasswordHash:      hash,
		LabelOptions:      labeling.DefaultOptions(),
		PreprocessOptions: preprocess.Options{OutputDir: filepath.Join(dir, "out")},
	})
	env.http = httptest.NewServer(env.srv.Router())
	t.Cleanup(env.http.Close)
	env.token, _ = tokens.GenerateToken("tester")
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.http.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	tests := []struct {
		name     string
		password string
		want     int
	}{
		{"correct", "letmein", http.StatusOK},
		{"wrong", "nope", http.StatusUnauthorized},
		{"empty", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "alex", "password": tt.password})
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusOK {
				var out map[string]string
				decodeBody(t, resp, &out)
				if out["token"] == "" || out["reviewer"] != "alex" {
					t.Errorf("login response = %v", out)
				}
			}
		})
	}
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	env.token = ""
	if resp := env.do(t, http.MethodGet, "/api/dataset", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", resp.StatusCode)
	}
	env.token = "garbage"
	if resp := env.do(t, http.MethodGet, "/api/dataset", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/health", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health: status = %d", resp.StatusCode)
	}
}

func TestScanEditAndSave(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/dataset/scan", map[string]string{"dir": env.dir})
	var st model.Status
	decodeBody(t, resp, &st)
	if resp.StatusCode != http.StatusOK || !st.OK || !strings.Contains(st.Message, "Found 2 audio files") {
		t.Fatalf("scan: %d %+v", resp.StatusCode, st)
	}

	caption := "bright keys"
	resp = env.do(t, http.MethodPatch, "/api/samples/1", dataset.SampleUpdate{Caption: &caption})
	var sample model.Sample
	decodeBody(t, resp, &sample)
	if resp.StatusCode != http.StatusOK || sample.Caption != caption {
		t.Fatalf("update: %d %+v", resp.StatusCode, sample)
	}

	if resp := env.do(t, http.MethodPatch, "/api/samples/9", dataset.SampleUpdate{Caption: &caption}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("update out of range: status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/dataset/tag", map[string]string{"tag": "zx", "position": "append"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tag: status = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/api/dataset/tag", map[string]string{"tag": "zx", "position": "sideways"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad tag position: status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/dataset", nil)
	var view DatasetView
	decodeBody(t, resp, &view)
	if view.Total != 2 || view.Metadata.CustomTag != "zx" || len(view.Rows) != 2 {
		t.Fatalf("dataset view = %+v", view)
	}

	path := filepath.Join(env.dir, "set.json")
	resp = env.do(t, http.MethodPost, "/api/dataset/save", map[string]string{"path": path, "name": "keys"})
	decodeBody(t, resp, &st)
	if resp.StatusCode != http.StatusOK || !st.OK {
		t.Fatalf("save: %d %+v", resp.StatusCode, st)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/dataset/scan", map[string]string{"dir": filepath.Join(env.dir, "nope")})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLabelJobAndProgress(t *testing.T) {
	env := newTestEnv(t)
	env.labels.release = make(chan struct{})
	env.do(t, http.MethodPost, "/api/dataset/scan", map[string]string{"dir": env.dir})

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws/progress?token=" + env.token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial progress stream: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.srv.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	resp := env.do(t, http.MethodPost, "/api/jobs/label", map[string]bool{"format_lyrics": true})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("label: status = %d", resp.StatusCode)
	}

	// The builder belongs to the job until it finishes.
	if resp := env.do(t, http.MethodGet, "/api/dataset", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("dataset during job: status = %d, want 409", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/api/jobs/preprocess", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("second job: status = %d, want 409", resp.StatusCode)
	}

	close(env.labels.release)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var events []ProgressEvent
	for {
		var ev ProgressEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read progress: %v (events so far %+v)", err, events)
		}
		events = append(events, ev)
		if ev.Type == EventDone || ev.Type == EventFailed {
			break
		}
	}
	last := events[len(events)-1]
	if last.Type != EventDone || !strings.Contains(last.Message, "Labeled 2/2") {
		t.Errorf("final event = %+v", last)
	}
	if len(events) != 3 {
		t.Errorf("got %d events, want 2 progress + done", len(events))
	}

	env.srv.jobs.wait()
	resp = env.do(t, http.MethodGet, "/api/jobs/current", nil)
	var info JobInfo
	decodeBody(t, resp, &info)
	if info.Running || info.Kind != "label" || !info.Status.OK {
		t.Errorf("job info = %+v", info)
	}

	resp = env.do(t, http.MethodGet, "/api/dataset", nil)
	var view DatasetView
	decodeBody(t, resp, &view)
	if view.Labeled != 2 {
		t.Errorf("labeled = %d, want 2", view.Labeled)
	}
}

func TestPreprocessJobUsesRequestOutput(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.dir, "custom")
	resp := env.do(t, http.MethodPost, "/api/jobs/preprocess", map[string]any{"output_dir": out})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	env.srv.jobs.wait()
	if env.pre.gotOutput != out {
		t.Errorf("output dir = %q, want %q", env.pre.gotOutput, out)
	}
}

func TestCancelWithoutJob(t *testing.T) {
	env := newTestEnv(t)
	if resp := env.do(t, http.MethodDelete, "/api/jobs/current", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPublishDropsForSlowClient(t *testing.T) {
	hub := NewProgressHub()
	c := &progressClient{send: make(chan []byte, 1)}
	hub.register(c)
	hub.Publish(ProgressEvent{Type: EventProgress, Message: "one"})
	hub.Publish(ProgressEvent{Type: EventProgress, Message: "two"})
	if hub.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", hub.Dropped())
	}
	hub.unregister(c)
	if hub.ClientCount() != 0 {
		t.Error("client still registered")
	}
}
