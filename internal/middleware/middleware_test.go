package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/secscan/internal/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetClientFromContext(r.Context())))
	})
}

func TestValidateRunID(t *testing.T) {
	if err := ValidateRunID(uuid.NewString()); err != nil {
		t.Errorf("valid uuid rejected: %v", err)
	}
	for _, id := range []string{"", "run-1", "../../etc/passwd"} {
		if err := ValidateRunID(id); err == nil {
			t.Errorf("ValidateRunID(%q) accepted", id)
		}
	}
}

func TestValidateLimitAndDays(t *testing.T) {
	tests := []struct {
		fn   func(int) int
		in   int
		want int
	}{
		{ValidateLimit, 0, 20},
		{ValidateLimit, 50, 50},
		{ValidateLimit, 1000, 100},
		{ValidateDays, -1, 7},
		{ValidateDays, 30, 30},
		{ValidateDays, 9999, 365},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.in); got != tt.want {
			t.Errorf("f(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"ci": "k1"})(okHandler())

	tests := []struct {
		header string
		code   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer wrong", http.StatusUnauthorized},
		{"Bearer k1", http.StatusOK},
		{"k1", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/v1/scans", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.code {
			t.Errorf("header %q: status %d, want %d", tt.header, rec.Code, tt.code)
		}
		if tt.code == http.StatusOK && rec.Body.String() != "ci" {
			t.Errorf("client in context = %q", rec.Body.String())
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(2, 6)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/scans", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "10" {
			t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// another address has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/v1/scans", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}
}

func TestRetryAfter(t *testing.T) {
	for in, want := range map[int]int{0: 60, 1: 60, 6: 10, 120: 1} {
		if got := retryAfter(in); got != want {
			t.Errorf("retryAfter(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, false)
	h := AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/scans/latest", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	if !strings.Contains(out, "path=/v1/scans/latest status=418") {
		t.Errorf("access line missing:\n%s", out)
	}
	if strings.Contains(out, "path=/health") {
		t.Errorf("health request logged without verbose:\n%s", out)
	}
}

func TestScanMetrics(t *testing.T) {
	before := GetMetrics().Scans

	done := ScanStarted()
	if got := GetMetrics().Scans.Running; got != before.Running+1 {
		t.Errorf("running = %d", got)
	}
	done(true)
	RecordRun(85, 0, 2)

	after := GetMetrics().Scans
	if after.Total != before.Total+1 || after.Failed != before.Failed+1 || after.Running != before.Running {
		t.Errorf("scan counters before=%+v after=%+v", before, after)
	}
	if after.LastScore != 85 || after.LastHigh != 0 || after.ChecksSkipped != before.ChecksSkipped+2 {
		t.Errorf("last run = %+v", after)
	}
	if after.LastFinished == 0 {
		t.Error("last finished time not recorded")
	}
}

type failingCheck struct{}

func (failingCheck) Check(context.Context) error { return errors.New("connection refused") }

func TestHealthHandlerUnhealthy(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"reports":  &ReportDirHealthChecker{Dir: t.TempDir()},
		"database": failingCheck{},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var hs HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&hs); err != nil {
		t.Fatal(err)
	}
	if hs.Checks["reports"].Status != "healthy" || hs.Checks["database"].Message != "connection refused" {
		t.Errorf("checks = %+v", hs.Checks)
	}
}

func TestRateLimiterPrunesIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 12, 9, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("ci:10.0.0.1") || rl.Allow("ci:10.0.0.1") {
		t.Fatal("burst of one not enforced")
	}
	now = now.Add(idleTTL + time.Second)
	rl.Allow("ci:10.0.0.2")
	if _, ok := rl.clients["ci:10.0.0.1"]; ok {
		t.Error("idle client not pruned")
	}
}
