// Package counters reads raw cumulative byte counters from the system
// network interfaces.
package counters

import (
	"context"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/saveenergy/netglance/internal/logging"
	"github.com/saveenergy/netglance/pkg/types"
)

const defaultTimeout = 500 * time.Millisecond

// Reader sums cumulative byte counters over the physical upstream
// interfaces; loopback and virtual interfaces are excluded. A failed
// enumeration yields an all-zero snapshot instead of an error: partial
// data beats interrupting the monitor.
type Reader struct {
	timeout time.Duration
	logger  *logging.Logger
}

func NewReader(timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Reader{
		timeout: timeout,
		logger:  logging.NewLogger("counters"),
	}
}

func (r *Reader) Read(ctx context.Context) types.CounterSnapshot {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap := types.CounterSnapshot{TakenAt: time.Now()}

	stats, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		r.logger.Warn("interface counter read failed",
			logging.Field{Key: "error", Value: err})
		return snap
	}

	for _, st := range stats {
		if types.IsVirtualInterface(st.Name) {
			continue
		}
		snap.BytesRecv += st.BytesRecv
		snap.BytesSent += st.BytesSent
	}
	return snap
}
