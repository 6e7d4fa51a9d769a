package procsample

import (
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// Identity is the metadata the platform can attach to a pid. Any field may
// be empty; the sampler substitutes what the accounting tool reported.
type Identity struct {
	Name     string
	BundleID string
	Icon     []byte
}

// IdentityResolver resolves process identity metadata. Implementations
// return a zero Identity on failure, never an error: a missing icon or
// bundle id must not fail the whole sample.
type IdentityResolver interface {
	Resolve(pid int32) Identity
}

const resolverCacheLimit = 4096

// PSResolver resolves identity through the process table, caching per pid.
// Icons are left to the display collaborator; this resolver reports none.
type PSResolver struct {
	mu    sync.Mutex
	cache map[int32]Identity
}

func NewPSResolver() *PSResolver {
	return &PSResolver{cache: make(map[int32]Identity)}
}

func (r *PSResolver) Resolve(pid int32) Identity {
	r.mu.Lock()
	if id, ok := r.cache[pid]; ok {
		r.mu.Unlock()
		return id
	}
	r.mu.Unlock()

	var id Identity
	if proc, err := process.NewProcess(pid); err == nil {
		if name, err := proc.Name(); err == nil {
			id.Name = name
		}
		if exe, err := proc.Exe(); err == nil {
			id.BundleID = bundleFromPath(exe)
		}
	}

	r.mu.Lock()
	if len(r.cache) >= resolverCacheLimit {
		r.cache = make(map[int32]Identity)
	}
	r.cache[pid] = id
	r.mu.Unlock()
	return id
}

// bundleFromPath derives an application bundle name from an executable
// path, e.g. "/Applications/Safari.app/Contents/MacOS/Safari" -> "Safari".
func bundleFromPath(exe string) string {
	idx := strings.Index(exe, ".app/")
	if idx < 0 {
		return ""
	}
	prefix := exe[:idx]
	slash := strings.LastIndexByte(prefix, '/')
	return prefix[slash+1:]
}
