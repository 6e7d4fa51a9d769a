package types

import "sort"

// ProcessUsage attributes bandwidth to one running process for a single
// sampling interval. Records for the same logical process across ticks are
// independent; rates come from a point-in-time accounting tool and are not
// smoothed against the interface-level aggregate.
type ProcessUsage struct {
	PID         int32   `json:"pid"`
	Name        string  `json:"name"`
	BundleID    string  `json:"bundle_id,omitempty"`
	UploadBps   float64 `json:"upload_bps"`
	DownloadBps float64 `json:"download_bps"`
	Icon        []byte  `json:"-"`
}

func (p ProcessUsage) TotalBps() float64 {
	return p.UploadBps + p.DownloadBps
}

// RankProcesses orders records by total bytes/sec descending and truncates
// to limit. Ties keep discovery order.
func RankProcesses(records []ProcessUsage, limit int) []ProcessUsage {
	if limit <= 0 || len(records) == 0 {
		return nil
	}

	ranked := make([]ProcessUsage, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalBps() > ranked[j].TotalBps()
	})
	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}
