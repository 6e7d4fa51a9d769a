// Package history keeps a bounded rolling window of speed samples and the
// statistics derived from it.
package history

import (
	"sync"
	"time"

	"github.com/saveenergy/netglance/pkg/types"
)

// Buffer is a fixed-capacity FIFO of speed samples. There is exactly one
// writer (the aggregator); readers always get copies.
type Buffer struct {
	mu       sync.RWMutex
	samples  []types.SpeedSample
	capacity int
}

// Stats summarizes the retained window.
type Stats struct {
	AvgUploadBps       float64 `json:"avg_upload_bps"`
	AvgDownloadBps     float64 `json:"avg_download_bps"`
	PeakUploadBps      float64 `json:"peak_upload_bps"`
	PeakDownloadBps    float64 `json:"peak_download_bps"`
	TotalUploadBytes   float64 `json:"total_upload_bytes"`
	TotalDownloadBytes float64 `json:"total_download_bytes"`
	SampleCount        int     `json:"sample_count"`
}

func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		samples:  make([]types.SpeedSample, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a sample, evicting the oldest when the buffer is full.
func (b *Buffer) Append(s types.SpeedSample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) == b.capacity {
		copy(b.samples, b.samples[1:])
		b.samples = b.samples[:len(b.samples)-1]
	}
	b.samples = append(b.samples, s)
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

func (b *Buffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.capacity
}

// Samples returns a copy, oldest first.
func (b *Buffer) Samples() []types.SpeedSample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]types.SpeedSample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Resize changes the capacity in place, keeping the newest samples. Used
// when the refresh interval changes so history survives a restart.
func (b *Buffer) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) > capacity {
		kept := make([]types.SpeedSample, capacity)
		copy(kept, b.samples[len(b.samples)-capacity:])
		b.samples = kept
	}
	b.capacity = capacity
}

// ComputeStats derives average, peak and cumulative transfer figures from
// the window. Cumulative bytes integrate each rate over the gap to the
// previous sample; the first sample contributes fallbackInterval.
func (b *Buffer) ComputeStats(fallbackInterval time.Duration) Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{SampleCount: len(b.samples)}
	if len(b.samples) == 0 {
		return stats
	}
	if fallbackInterval <= 0 {
		fallbackInterval = time.Second
	}

	var sumUp, sumDown float64
	for i, s := range b.samples {
		sumUp += s.UploadBps
		sumDown += s.DownloadBps
		if s.UploadBps > stats.PeakUploadBps {
			stats.PeakUploadBps = s.UploadBps
		}
		if s.DownloadBps > stats.PeakDownloadBps {
			stats.PeakDownloadBps = s.DownloadBps
		}

		dt := fallbackInterval.Seconds()
		if i > 0 {
			if gap := s.TakenAt.Sub(b.samples[i-1].TakenAt).Seconds(); gap > 0 {
				dt = gap
			}
		}
		stats.TotalUploadBytes += s.UploadBps * dt
		stats.TotalDownloadBytes += s.DownloadBps * dt
	}

	stats.AvgUploadBps = sumUp / float64(len(b.samples))
	stats.AvgDownloadBps = sumDown / float64(len(b.samples))
	return stats
}
