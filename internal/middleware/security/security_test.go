package security

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "budgetplanner/internal/log"
)

func newTestDetector(t *testing.T, block bool, extra ...string) *Detector {
	t.Helper()
	d, err := NewDetector(applog.New(applog.Config{Output: io.Discard}), block, extra...)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	return d
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := newTestDetector(t, false)
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   string
	}{
		{name: "normal api call", method: http.MethodGet, target: "/api/reports?range=last3months", agent: "curl/8.0", want: ""},
		{name: "dotenv probe", method: http.MethodGet, target: "/.env", want: "path:.env"},
		{name: "sql injection in query", method: http.MethodGet, target: "/api/transactions?range=1%20union%20select", want: "query:union select"},
		{name: "scanner agent", method: http.MethodGet, target: "/", agent: "sqlmap/1.7", want: "agent:sqlmap"},
		{name: "trace method", method: "TRACE", target: "/", want: "method:TRACE"},
		{name: "long url", method: http.MethodGet, target: "/api/transactions?q=" + strings.Repeat("a", 2100), want: "url-length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			if got := d.DetectSuspiciousRequest(req); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := d.GetMetrics().SuspiciousRequests; got != 5 {
		t.Errorf("SuspiciousRequests = %d, want 5", got)
	}
}

func TestDetectorMiddlewareBlocks(t *testing.T) {
	reached := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached++ })

	blocking := newTestDetector(t, true).Middleware(next)
	rec := httptest.NewRecorder()
	blocking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rec.Code != http.StatusBadRequest || reached != 0 {
		t.Fatalf("blocking detector: code=%d reached=%d", rec.Code, reached)
	}

	logging := newTestDetector(t, false).Middleware(next)
	rec = httptest.NewRecorder()
	logging.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rec.Code != http.StatusOK || reached != 1 {
		t.Fatalf("logging detector: code=%d reached=%d", rec.Code, reached)
	}
}

func TestExtractClientIP(t *testing.T) {
	d := newTestDetector(t, false, "203.0.113.7")
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct", remote: "198.51.100.1:5000", want: "198.51.100.1"},
		{name: "untrusted forwarder ignored", remote: "198.51.100.1:5000", xff: "1.1.1.1", want: "198.51.100.1"},
		{name: "private proxy forwards", remote: "10.0.0.5:5000", xff: "1.1.1.1, 10.0.0.5", want: "1.1.1.1"},
		{name: "configured proxy forwards", remote: "203.0.113.7:443", xri: "2.2.2.2", want: "2.2.2.2"},
		{name: "bad forwarded value", remote: "127.0.0.1:80", xff: "not-an-ip", want: "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxyRejectsGarbage(t *testing.T) {
	if _, err := NewDetector(applog.New(applog.Config{Output: io.Discard}), false, "not-a-cidr"); err == nil {
		t.Fatal("expected error")
	}
}
