package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pixieveil/pixieveil/internal/counters"
)

type fakeStats struct {
	snap counters.Snapshot
}

func (f *fakeStats) GetCounters() counters.Snapshot { return f.snap }

func testStats() *fakeStats {
	c := counters.New()
	c.AddReceived(2048)
	c.AddProcessed(1000)
	c.AddCompleted()
	return &fakeStats{snap: c.Snapshot()}
}

func TestHandleStats(t *testing.T) {
	s := New("127.0.0.1:0", testStats(), nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.handleStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var snap counters.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if snap.Reception.Images != 1 {
		t.Errorf("reception images = %d, want 1", snap.Reception.Images)
	}
	if snap.Reception.Bytes != 2048 {
		t.Errorf("reception bytes = %d, want 2048", snap.Reception.Bytes)
	}
	if snap.CompletedCount != 1 {
		t.Errorf("completed count = %d, want 1", snap.CompletedCount)
	}
}

func TestHandleIndex(t *testing.T) {
	s := New("127.0.0.1:0", testStats(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.handleIndex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "PixieVeil") {
		t.Error("page does not mention the service name")
	}
	if !strings.Contains(body, "2048") {
		t.Error("page does not render reception bytes")
	}
}

func TestHandleIndex_UnknownPath(t *testing.T) {
	s := New("127.0.0.1:0", testStats(), nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	s.handleIndex(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
