package views

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIP is recorded when no client address can be resolved from a request.
const UnknownIP = "unknown"

// ResolveClientIP picks the client address with the precedence the proxy
// chain in front of the service implies: first X-Forwarded-For hop, then
// X-Real-IP, then the raw connection address. IPv6 loopback forms are folded
// to 127.0.0.1 so local requests dedupe to a single address.
func ResolveClientIP(r *http.Request) string {
	if r == nil {
		return UnknownIP
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return normalizeIP(first)
		}
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return normalizeIP(rip)
	}
	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			// RemoteAddr without a port, e.g. a bare "::1"
			host = r.RemoteAddr
		}
		if host != "" {
			return normalizeIP(host)
		}
	}
	return UnknownIP
}

func normalizeIP(ip string) string {
	switch ip {
	case "::1", "::ffff:127.0.0.1":
		return "127.0.0.1"
	}
	return ip
}
