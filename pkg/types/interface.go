package types

// InterfaceKind classifies the interface carrying the active connection.
type InterfaceKind string

const (
	KindWifi     InterfaceKind = "wifi"
	KindEthernet InterfaceKind = "ethernet"
	KindCellular InterfaceKind = "cellular"
	KindOther    InterfaceKind = "other"
)

// InterfaceState describes the active network interface. Only the path
// watcher mutates it; everyone else gets read-only copies.
type InterfaceState struct {
	Name         string        `json:"name"`
	Kind         InterfaceKind `json:"kind"`
	Active       bool          `json:"active"`
	LocalAddress string        `json:"local_address,omitempty"`
}

// ClassifyInterface maps capability flags to a kind. Priority is wireless,
// then wired, then cellular; the first match wins, so an interface is never
// reported as two kinds at once.
func ClassifyInterface(wireless, wired, cellular bool) InterfaceKind {
	switch {
	case wireless:
		return KindWifi
	case wired:
		return KindEthernet
	case cellular:
		return KindCellular
	default:
		return KindOther
	}
}
