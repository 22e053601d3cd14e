package admin

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"groundstation/internal/station"
	"groundstation/internal/telemetry"
)

type fakeSource struct {
	status  station.Status
	records []telemetry.Record
}

func (f *fakeSource) Status() station.Status      { return f.status }
func (f *fakeSource) Records() []telemetry.Record { return f.records }

func newFakeSource() *fakeSource {
	rec := telemetry.Record{BatteryVoltage: 12.3, Temperature: 21.5, Timestamp: time.Unix(0, 0).UTC()}
	return &fakeSource{
		status: station.Status{
			SessionID:        "abc",
			State:            station.StateConnected,
			Cycles:           3,
			CommandsSent:     3,
			RecordsProcessed: 1,
			Errors:           map[string]uint64{"parse_failed": 2},
			LastRecord:       &rec,
		},
		records: []telemetry.Record{rec},
	}
}

func TestHandleStatus(t *testing.T) {
	server := NewServer(newFakeSource())
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	server.handleStatus(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", resp.StatusCode)
	}
	var st station.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != station.StateConnected || st.Cycles != 3 || st.Errors["parse_failed"] != 2 {
		t.Errorf("unexpected status %+v", st)
	}
	if st.LastRecord == nil || st.LastRecord.BatteryVoltage != 12.3 {
		t.Errorf("unexpected last record %+v", st.LastRecord)
	}
}

func TestHandleTelemetry(t *testing.T) {
	src := newFakeSource()
	server := NewServer(src)
	w := httptest.NewRecorder()
	server.handleTelemetry(w, httptest.NewRequest(http.MethodGet, "/telemetry", nil))
	var recs []telemetry.Record
	if err := json.NewDecoder(w.Result().Body).Decode(&recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].Temperature != 21.5 {
		t.Errorf("unexpected records %+v", recs)
	}

	src.records = nil
	w = httptest.NewRecorder()
	server.handleTelemetry(w, httptest.NewRequest(http.MethodGet, "/telemetry", nil))
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestRoutes(t *testing.T) {
	srv := httptest.NewServer(NewServer(newFakeSource()).Handler())
	defer srv.Close()

	for path, want := range map[string]string{
		"/":        "Telemetry window",
		"/healthz": "ok",
		"/status":  `"session_id":"abc"`,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Errorf("GET %s = %d %q", path, resp.StatusCode, body)
		}
	}
	resp, err := http.Post(srv.URL+"/status", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", resp.StatusCode)
	}
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(newFakeSource()).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("admin server did not shut down")
	}
}
