package server

import (
	"net"
	"net/http"
	"strings"
)

// clientIP identifies the producer behind a request for diagnostic logs.
// Honeypot fleets usually report over private networks, sometimes via a
// load balancer, so X-Forwarded-For is consulted first (leftmost valid
// address, private or not) and RemoteAddr is the fallback.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip.String()
		}
	}

	return r.RemoteAddr
}
