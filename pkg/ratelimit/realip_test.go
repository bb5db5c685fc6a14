package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		proxies    []string
		remoteAddr string
		forwarded  string
		expected   string
	}{
		{
			name:       "No trusted proxies keeps the peer",
			remoteAddr: "10.0.0.1:4000",
			forwarded:  "1.2.3.4",
			expected:   "10.0.0.1:4000",
		},
		{
			name:       "Untrusted peer keeps the peer",
			proxies:    []string{"192.168.1.10"},
			remoteAddr: "10.0.0.1:4000",
			forwarded:  "1.2.3.4",
			expected:   "10.0.0.1:4000",
		},
		{
			name:       "Trusted proxy address forwards the client",
			proxies:    []string{"10.0.0.1"},
			remoteAddr: "10.0.0.1:4000",
			forwarded:  "1.2.3.4",
			expected:   "1.2.3.4",
		},
		{
			name:       "Trusted proxy range forwards the client",
			proxies:    []string{"invalid", "10.0.0.0/8"},
			remoteAddr: "10.20.30.40:4000",
			forwarded:  "1.2.3.4",
			expected:   "1.2.3.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := TrustedRealIP(tt.proxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("X-Forwarded-For", tt.forwarded)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expected, seen)
		})
	}
}
