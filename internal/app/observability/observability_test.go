package observability

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/test-attempt/123/submit")
	want := "/api/test-attempt/{id}/submit"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
}

func TestMiddlewareLogsUserAndCountsRequests(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})

	c := NewCollector(nil)
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetUser(r.Context(), 9, "asha")
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/question/"+string(rune('1'+i)), nil))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two log lines, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["user_id"] != float64(9) || entry["username"] != "asha" || entry["status"] != float64(201) {
		t.Fatalf("unexpected log entry: %v", entry)
	}

	rr := httptest.NewRecorder()
	c.MetricsHandler(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `examprep_http_requests_total{method="POST",path="/api/question/{id}",status="201"} 2`
	if !strings.Contains(rr.Body.String(), want) {
		t.Fatalf("metrics missing %q:\n%s", want, rr.Body.String())
	}
}
