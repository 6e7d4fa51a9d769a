// Package rate converts successive counter snapshots into instantaneous
// transfer rates.
package rate

import "github.com/saveenergy/netglance/pkg/types"

// Compute derives a speed sample from two successive counter snapshots.
// First tick (nil prev), non-positive elapsed time, and counter regression
// all yield a zero sample: a reset or wrapped counter must never read as a
// negative rate. No state beyond the previous snapshot is retained;
// windowing happens at the history buffer, not here.
func Compute(prev *types.CounterSnapshot, curr types.CounterSnapshot) types.SpeedSample {
	if prev == nil {
		return types.NewSpeedSample(0, 0, curr.TakenAt)
	}

	elapsed := curr.TakenAt.Sub(prev.TakenAt).Seconds()
	if elapsed <= 0 {
		return types.NewSpeedSample(0, 0, curr.TakenAt)
	}

	var up, down float64
	if curr.BytesSent >= prev.BytesSent {
		up = float64(curr.BytesSent-prev.BytesSent) / elapsed
	}
	if curr.BytesRecv >= prev.BytesRecv {
		down = float64(curr.BytesRecv-prev.BytesRecv) / elapsed
	}
	return types.NewSpeedSample(up, down, curr.TakenAt)
}
