package ifwatch

import (
	"os"
	"strings"

	"github.com/saveenergy/netglance/pkg/types"
)

var (
	wirelessPrefixes = []string{"wl", "wifi", "ath", "ra"}
	cellularPrefixes = []string{"wwan", "rmnet", "pdp_ip", "ccmni", "cdc-wdm"}
	wiredPrefixes    = []string{"eth", "en", "em", "lan", "usb"}
)

// classify derives the interface kind from the kernel's wireless marker
// and well-known naming conventions.
func classify(name string) types.InterfaceKind {
	lower := strings.ToLower(name)
	return types.ClassifyInterface(
		sysfsWireless(name) || hasAnyPrefix(lower, wirelessPrefixes),
		hasAnyPrefix(lower, wiredPrefixes),
		hasAnyPrefix(lower, cellularPrefixes),
	)
}

// sysfsWireless reports whether the kernel exposes a wireless extension
// directory for the interface. Always false off Linux.
func sysfsWireless(name string) bool {
	if name == "" || strings.ContainsAny(name, "/.") {
		return false
	}
	_, err := os.Stat("/sys/class/net/" + name + "/wireless")
	return err == nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
