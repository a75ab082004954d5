package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thereceipt/printer-tool/internal/config"
	"github.com/thereceipt/printer-tool/internal/job"
	"github.com/thereceipt/printer-tool/internal/printer"
)

type fakeSpooler struct {
	names []string
}

func (f fakeSpooler) Printers(context.Context) ([]string, error) { return f.names, nil }
func (f fakeSpooler) Submit(context.Context, string, string) error {
	return nil
}

type recordingRunner struct {
	reqs chan job.Request
}

func (r *recordingRunner) RunWithID(_ context.Context, id string, req job.Request) (*job.Result, error) {
	r.reqs <- req
	return &job.Result{ID: id, Bytes: 42}, nil
}

func newTestServer(t *testing.T) (*Server, *recordingRunner) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	runner := &recordingRunner{reqs: make(chan job.Request, 4)}
	queue := job.NewQueue(runner, nil)
	t.Cleanup(queue.Stop)

	manager := printer.NewManager(nil, nil)
	s := NewServer(config.Default(), manager, queue, fakeSpooler{names: []string{"Office"}}, nil)
	return s, runner
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func multipartPrint(t *testing.T, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if withFile {
		fw, err := mw.CreateFormFile("file", "logo.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("not really a png"))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/print", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || decode(t, w)["status"] != "ok" {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestGetPrinters(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, httptest.NewRequest(http.MethodGet, "/printers", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	printers, _ := decode(t, w)["printers"].([]any)
	if len(printers) != 1 || printers[0] != "Office" {
		t.Errorf("printers = %v", printers)
	}
}

func TestGetUSBEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, httptest.NewRequest(http.MethodGet, "/usb", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"devices":[]`) {
		t.Errorf("usb: %d %s", w.Code, w.Body.String())
	}
}

func TestSetNameUnknownDevice(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/usb/nope/name", strings.NewReader(`{"name":"Kitchen"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := doRequest(s, req); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPrintValidationError(t *testing.T) {
	s, runner := newTestServer(t)
	w := doRequest(s, multipartPrint(t, map[string]string{
		"mode": "escpos", "paper": "58", "connection": "usb",
	}, true))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if kind := decode(t, w)["error_kind"]; kind != "validation" {
		t.Errorf("error_kind = %v", kind)
	}
	select {
	case <-runner.reqs:
		t.Error("invalid request must not be run")
	default:
	}
}

func TestPrintMissingFile(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, multipartPrint(t, map[string]string{"mode": "escpos"}, false))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPrintEnqueuesJob(t *testing.T) {
	s, runner := newTestServer(t)
	w := doRequest(s, multipartPrint(t, map[string]string{
		"mode": "label", "paper": "80", "connection": "network", "host": "10.0.0.5",
	}, true))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	id, _ := decode(t, w)["job_id"].(string)
	if id == "" {
		t.Fatal("missing job_id")
	}

	select {
	case req := <-runner.reqs:
		if req.Mode != printer.ModeLabel || req.Host != "10.0.0.5" || req.Port != 9100 {
			t.Errorf("request = %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	w = doRequest(s, httptest.NewRequest(http.MethodGet, "/job/"+id, nil))
	if w.Code != http.StatusOK {
		t.Errorf("get job: %d", w.Code)
	}
}

func TestGetUnknownJob(t *testing.T) {
	s, _ := newTestServer(t)
	if w := doRequest(s, httptest.NewRequest(http.MethodGet, "/job/missing", nil)); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCommand(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{"command":"list-printers"}`))
	req.Header.Set("Content-Type", "application/json")
	w := doRequest(s, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Office") {
		t.Errorf("command: %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{"command":"print --connection usb"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := doRequest(s, req); w.Code != http.StatusBadRequest {
		t.Errorf("bad print command: %d", w.Code)
	}
}

func TestCommandRejectsLocalFileAccess(t *testing.T) {
	s, runner := newTestServer(t)
	for _, cmd := range []string{
		"print --file a.png --mode escpos --paper 58 --connection network --host 10.0.0.5 --output /tmp/x",
		"print --file a.png --mode escpos --paper 58 --connection network --host 10.0.0.5 --preview /tmp/x.png",
		"print --file /etc/hosts --mode escpos --paper 58 --connection network --host 10.0.0.5",
	} {
		body, _ := json.Marshal(map[string]string{"command": cmd})
		req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := doRequest(s, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", cmd, w.Code)
			continue
		}
		if kind := decode(t, w)["error_kind"]; kind != "validation" {
			t.Errorf("%q: error_kind = %v", cmd, kind)
		}
	}
	select {
	case <-runner.reqs:
		t.Error("rejected command must not be run")
	default:
	}
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	h := NewHub(nil)
	h.Broadcast(EventJobState, job.Job{ID: "x"})
	if h.Clients() != 0 {
		t.Errorf("clients = %d", h.Clients())
	}
}
