package views

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newRequest(t *testing.T, headers map[string]string, remoteAddr string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "/projects/1", nil)
	assert.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.RemoteAddr = remoteAddr
	return req
}

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name: "forwarded-for beats real-ip",
			headers: map[string]string{
				"X-Forwarded-For": "1.2.3.4, 5.6.7.8",
				"X-Real-IP":       "9.9.9.9",
			},
			remoteAddr: "10.0.0.1:5000",
			want:       "1.2.3.4",
		},
		{
			name:       "real-ip beats remote addr",
			headers:    map[string]string{"X-Real-IP": "9.9.9.9"},
			remoteAddr: "10.0.0.1:5000",
			want:       "9.9.9.9",
		},
		{
			name:       "remote addr with port",
			remoteAddr: "203.0.113.7:44812",
			want:       "203.0.113.7",
		},
		{
			name:       "bare ipv6 loopback normalized",
			remoteAddr: "::1",
			want:       "127.0.0.1",
		},
		{
			name:       "mapped ipv4 loopback normalized",
			remoteAddr: "[::ffff:127.0.0.1]:8080",
			want:       "127.0.0.1",
		},
		{
			name:       "forwarded-for single value trimmed",
			headers:    map[string]string{"X-Forwarded-For": "  8.8.4.4  "},
			remoteAddr: "10.0.0.1:5000",
			want:       "8.8.4.4",
		},
		{
			name: "nothing resolvable",
			want: UnknownIP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, tt.headers, tt.remoteAddr)
			assert.Equal(t, tt.want, ResolveClientIP(req))
		})
	}
}

func TestResolveClientIPNilRequest(t *testing.T) {
	assert.Equal(t, UnknownIP, ResolveClientIP(nil))
}
