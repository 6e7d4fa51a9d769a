package types

import (
	"fmt"
	"math"
	"time"
)

// CounterSnapshot is one reading of the cumulative byte counters summed
// over the physical upstream interfaces. Counters are monotonic until the
// OS resets them (interface bounce, counter wraparound).
type CounterSnapshot struct {
	BytesRecv uint64    `json:"bytes_recv"`
	BytesSent uint64    `json:"bytes_sent"`
	TakenAt   time.Time `json:"taken_at"`
}

// SpeedSample is an instantaneous transfer rate derived from two counter
// snapshots. Fields are always finite and >= 0.
type SpeedSample struct {
	UploadBps   float64   `json:"upload_bps"`
	DownloadBps float64   `json:"download_bps"`
	TakenAt     time.Time `json:"taken_at"`
}

// NewSpeedSample sanitizes raw rates: NaN, negative and infinite inputs
// clamp to 0.
func NewSpeedSample(uploadBps, downloadBps float64, takenAt time.Time) SpeedSample {
	return SpeedSample{
		UploadBps:   sanitizeRate(uploadBps),
		DownloadBps: sanitizeRate(downloadBps),
		TakenAt:     takenAt,
	}
}

func sanitizeRate(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func (s SpeedSample) TotalBps() float64 {
	return s.UploadBps + s.DownloadBps
}

// SpeedUnit selects how rates are rendered for display.
type SpeedUnit string

const (
	UnitKBps SpeedUnit = "KB/s"
	UnitMBps SpeedUnit = "MB/s"
	UnitAuto SpeedUnit = "auto"
)

// FormatRate renders a bytes-per-second rate in the given unit. Auto scales
// through B/s, KB/s, MB/s and GB/s so the value stays readable.
func FormatRate(bps float64, unit SpeedUnit) string {
	switch unit {
	case UnitKBps:
		return fmt.Sprintf("%.1f KB/s", bps/1024)
	case UnitMBps:
		return fmt.Sprintf("%.2f MB/s", bps/(1024*1024))
	default:
		switch {
		case bps >= 1024*1024*1024:
			return fmt.Sprintf("%.2f GB/s", bps/(1024*1024*1024))
		case bps >= 1024*1024:
			return fmt.Sprintf("%.2f MB/s", bps/(1024*1024))
		case bps >= 1024:
			return fmt.Sprintf("%.1f KB/s", bps/1024)
		default:
			return fmt.Sprintf("%.0f B/s", bps)
		}
	}
}
