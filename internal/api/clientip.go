package api

import (
	"net"
	"net/http"
	"strings"
)

// clientIP extracts the peer address from a request. The monitor binds
// to loopback by default and sits behind no proxy, so forwarding
// headers are deliberately not consulted.
func clientIP(r *http.Request) string {
	ip := parseRemoteIP(r.RemoteAddr)
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}

func parseRemoteIP(remoteAddr string) net.IP {
	if remoteAddr == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil {
		return parseHostIP(host)
	}
	return parseHostIP(remoteAddr)
}

func parseHostIP(value string) net.IP {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return nil
	}
	if strings.HasPrefix(clean, "[") && strings.Contains(clean, "]") {
		clean = strings.TrimPrefix(clean, "[")
		clean = strings.TrimSuffix(clean, "]")
	}
	return net.ParseIP(clean)
}
