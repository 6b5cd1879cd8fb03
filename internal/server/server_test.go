package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fractal/pkg/cache"
	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/pipeline"
	"github.com/matzehuels/fractal/pkg/planner"
	"github.com/matzehuels/fractal/pkg/store/memory"
	"github.com/matzehuels/fractal/pkg/task"
)

var now = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

type testServer struct {
	*httptest.Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	opts := pipeline.Options{Variant: string(geometry.VariantPlain)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	g, err := opts.Geometry()
	if err != nil {
		t.Fatal(err)
	}
	st := memory.New(fixedClock)
	logger := log.New(io.Discard)
	p := planner.New(g, geometry.VariantPlain, st, planner.WithClock(fixedClock), planner.WithLogger(logger))
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(fc, nil, logger)

	srv := httptest.NewServer(New(p, st, runner, opts, logger).Handler())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: st}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestCircleSVGIsCached(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/circle.svg", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := resp.Header.Get("X-Cache"); got != "miss" {
		t.Errorf("first X-Cache = %q, want miss", got)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(data), "<svg") {
		t.Errorf("body does not start with <svg: %.40s", data)
	}

	resp = ts.do(t, http.MethodGet, "/circle.svg", "")
	if got := resp.Header.Get("X-Cache"); got != "hit" {
		t.Errorf("second X-Cache = %q, want hit", got)
	}
}

func TestCircleErrors(t *testing.T) {
	tests := []struct {
		path   string
		status int
		code   errors.Code
	}{
		{"/circle.gif", http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"/circle.svg?theme=neon", http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"/circle.svg?highlight=middle", http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"/circle.svg?highlight=middle/99", http.StatusBadRequest, errors.ErrCodeOutOfRange},
	}
	ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, tt.path, "")
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decode[errorBody](t, resp)
			if body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
		})
	}
}

func TestGeometryJSON(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/geometry", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[struct {
		Sectors []json.RawMessage `json:"sectors"`
	}](t, resp)
	// plain: 1 core + 16 middle + 4 outer
	if len(body.Sectors) != 21 {
		t.Errorf("sectors = %d, want 21", len(body.Sectors))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		hit   bool
		ring  geometry.Ring
	}{
		{"middle", "x=300&y=200", true, geometry.Middle},
		{"core", "x=200&y=200", true, geometry.Core},
		{"outside", "x=0&y=0", false, 0},
		{"scaled", "x=600&y=400&screen_w=800&screen_h=800", true, geometry.Middle},
	}
	ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/classify?"+tt.query, "")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			got := decode[classifyResponse](t, resp)
			if got.Hit != tt.hit {
				t.Fatalf("Hit = %v, want %v", got.Hit, tt.hit)
			}
			if tt.hit && got.Selection.Address.Ring != tt.ring {
				t.Errorf("ring = %s, want %s", got.Selection.Address.Ring, tt.ring)
			}
		})
	}
}

func TestClassifyBadQuery(t *testing.T) {
	ts := newTestServer(t)
	for _, q := range []string{"", "x=1", "x=a&y=1", "x=1&y=1&screen_w=0&screen_h=10"} {
		resp := ts.do(t, http.MethodGet, "/classify?"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestDropThenSectorLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/drop", `{"x":300,"y":200,"note":"buy milk"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("drop status = %d", resp.StatusCode)
	}
	dropped := decode[struct {
		Dropped bool      `json:"dropped"`
		Task    task.Task `json:"task"`
	}](t, resp)
	if !dropped.Dropped || dropped.Task.Title != "buy milk" {
		t.Fatalf("drop = %+v", dropped)
	}

	resp = ts.do(t, http.MethodGet, "/sectors/middle/0/tasks", "")
	sel := decode[planner.Selection](t, resp)
	if len(sel.Tasks) != 1 || sel.Tasks[0].ID != dropped.Task.ID {
		t.Fatalf("sector tasks = %+v", sel.Tasks)
	}

	resp = ts.do(t, http.MethodPost, "/sectors/middle/0/tasks", `{"title":"call mom","priority":"high"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/circle.json", "")
	if !strings.Contains(readAll(t, resp), `"count": 2`) {
		t.Error("circle.json does not badge the sector with 2 tasks")
	}

	resp = ts.do(t, http.MethodDelete, "/sectors/middle/0/tasks", "")
	removed := decode[map[string]int](t, resp)
	if removed["removed"] != 2 {
		t.Errorf("removed = %d, want 2", removed["removed"])
	}
}

func TestDropMiss(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/drop", `{"x":0,"y":0,"note":"x"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[map[string]bool](t, resp); got["dropped"] {
		t.Error("dropped outside the circle")
	}

	resp = ts.do(t, http.MethodPost, "/drop", `{"x":0,"y":0,"color":"red"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", resp.StatusCode)
	}
}

func TestTaskRoutes(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/sectors/outer/2/tasks", `{"title":"plan Q3"}`)
	created := decode[task.Task](t, resp)

	resp = ts.do(t, http.MethodGet, "/tasks/"+created.ID, "")
	if got := decode[task.Task](t, resp); got.Title != "plan Q3" {
		t.Errorf("get = %+v", got)
	}

	resp = ts.do(t, http.MethodPatch, "/tasks/"+created.ID, `{"status":"done"}`)
	if got := decode[task.Task](t, resp); got.Status != task.StatusDone {
		t.Errorf("patched status = %s", got.Status)
	}

	resp = ts.do(t, http.MethodPatch, "/tasks/"+created.ID, `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty patch status = %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/tasks?status=done", "")
	if got := decode[[]task.Task](t, resp); len(got) != 1 {
		t.Errorf("list done = %d tasks", len(got))
	}

	resp = ts.do(t, http.MethodDelete, "/tasks/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/tasks", "")
	if got := decode[[]task.Task](t, resp); len(got) != 0 {
		t.Errorf("live tasks after delete = %d", len(got))
	}
	resp = ts.do(t, http.MethodGet, "/tasks?archived=true", "")
	if got := decode[[]task.Task](t, resp); len(got) != 1 || !got[0].Archived {
		t.Errorf("archived list = %+v", got)
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		method, path string
		status       int
		code         errors.Code
	}{
		{http.MethodGet, "/tasks/nope", http.StatusNotFound, errors.ErrCodeTaskNotFound},
		{http.MethodGet, "/nowhere", http.StatusNotFound, errors.ErrCodeNotFound},
		{http.MethodPut, "/drop", http.StatusMethodNotAllowed, errors.ErrCodeUnsupported},
		{http.MethodGet, "/sectors/inner/0/tasks", http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{http.MethodGet, "/sectors/core/x/tasks", http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{http.MethodGet, "/tasks?cycle=hourly", http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := ts.do(t, tt.method, tt.path, "")
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if got := decode[errorBody](t, resp); got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
		})
	}
}

func TestStatusForUncodedError(t *testing.T) {
	status, body := statusFor(io.ErrUnexpectedEOF)
	if status != http.StatusInternalServerError || body.Code != errors.ErrCodeInternal {
		t.Errorf("statusFor() = %d, %+v", status, body)
	}
	if strings.Contains(body.Message, "EOF") {
		t.Errorf("message leaks cause: %q", body.Message)
	}
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
