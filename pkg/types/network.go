package types

import (
	"net"
	"net/url"
	"strings"
)

// virtualPrefixes lists interface name prefixes that never carry the
// upstream connection: loopback, container bridges, tunnels, link-local
// helper interfaces.
var virtualPrefixes = []string{
	"lo", "veth", "docker", "br-", "virbr", "vnet", "tun", "tap",
	"utun", "awdl", "llw", "bridge", "anpi", "vmenet", "zt", "wg",
}

// IsVirtualInterface reports whether the named interface is a loopback,
// bridge or tunnel whose counters must not be summed into upstream totals.
func IsVirtualInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// InterfaceAddress returns the first IPv4 address assigned to the named
// interface, falling back to the first address of any family.
func InterfaceAddress(name string) string {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return ""
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return ""
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			return ipnet.IP.String()
		}
	}
	return ""
}

// StripHostPort removes the port from a host:port value, if present.
func StripHostPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// OriginHost extracts the hostname from an Origin header value.
func OriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return ""
	}
	return StripHostPort(u.Host)
}

// DefaultInterface returns the first up, non-virtual interface that has an
// address assigned, or "" when nothing qualifies.
func DefaultInterface() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if IsVirtualInterface(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return iface.Name
	}
	return ""
}
