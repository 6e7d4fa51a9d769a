package monitor

import (
	"time"

	"github.com/google/uuid"

	"github.com/saveenergy/netglance/internal/config"
	"github.com/saveenergy/netglance/internal/history"
	"github.com/saveenergy/netglance/internal/logging"
	"github.com/saveenergy/netglance/pkg/types"
)

// Running reports whether the tick loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Latest returns the most recently published snapshot. The zero value
// means no tick has completed yet.
func (m *Monitor) Latest() types.NetworkSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// History returns a copy of the retained speed samples, oldest first.
func (m *Monitor) History() []types.SpeedSample {
	m.mu.Lock()
	h := m.hist
	m.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.Samples()
}

// Stats summarizes the retained history window.
func (m *Monitor) Stats() history.Stats {
	m.mu.Lock()
	h := m.hist
	interval := m.settings.Interval()
	m.mu.Unlock()
	if h == nil {
		return history.Stats{}
	}
	return h.ComputeStats(interval)
}

// Settings returns the current, clamped settings.
func (m *Monitor) Settings() config.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Subscribe registers a snapshot consumer and returns its id and
// channel. The channel is closed by Stop; a consumer that stops reading
// misses snapshots but is never blocked on.
func (m *Monitor) Subscribe() (string, <-chan types.NetworkSnapshot) {
	id := uuid.New().String()
	ch := make(chan types.NetworkSnapshot, subscriberBuffer)

	m.mu.Lock()
	m.subscribers[id] = ch
	m.mu.Unlock()

	m.logger.Debug("subscriber added", logging.Field{Key: "id", Value: id})
	return id, ch
}

// Unsubscribe removes a consumer. Unknown ids are ignored.
func (m *Monitor) Unsubscribe(id string) {
	m.mu.Lock()
	ch, ok := m.subscribers[id]
	if ok {
		close(ch)
		delete(m.subscribers, id)
	}
	m.mu.Unlock()

	if ok {
		m.logger.Debug("subscriber removed", logging.Field{Key: "id", Value: id})
	}
}

// UpdateSettings installs new settings after clamping. A changed refresh
// interval restarts the tick loop; history survives the restart, resized
// to the new capacity, and subscribers stay registered. Equal-interval
// updates take effect without a restart.
func (m *Monitor) UpdateSettings(next config.Settings) {
	next.Clamp()

	m.mu.Lock()
	prevInterval := m.settings.Interval()
	m.settings = next
	running := m.running
	base := m.baseCtx
	m.mu.Unlock()

	m.logger.Info("settings updated",
		logging.Field{Key: "interval", Value: next.Interval()},
		logging.Field{Key: "top_n", Value: next.TopProcessCount},
		logging.Field{Key: "threshold_mbps", Value: next.AlertThresholdMBps})

	if !running || next.Interval() == prevInterval {
		return
	}

	m.stop(false)
	if err := m.Start(base); err != nil {
		m.logger.Error("restart after interval change failed",
			logging.Field{Key: "error", Value: err})
	}
}

// UpdateRefreshInterval changes only the refresh cadence. A no-op when
// the interval is unchanged or not a positive whole-second value.
func (m *Monitor) UpdateRefreshInterval(interval time.Duration) {
	secs := int(interval / time.Second)
	if secs < 1 {
		secs = 1
	}

	m.mu.Lock()
	next := m.settings
	m.mu.Unlock()
	if next.RefreshSeconds == secs {
		return
	}
	next.RefreshSeconds = secs
	m.UpdateSettings(next)
}
