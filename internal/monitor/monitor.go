// Package monitor schedules the sampling pipeline and publishes one
// immutable NetworkSnapshot per tick. The monitor goroutine is the only
// mutator of the current snapshot and the history buffer.
package monitor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saveenergy/netglance/internal/config"
	"github.com/saveenergy/netglance/internal/history"
	"github.com/saveenergy/netglance/internal/logging"
	"github.com/saveenergy/netglance/internal/rate"
	"github.com/saveenergy/netglance/pkg/types"
)

// CounterReader supplies cumulative interface counters.
type CounterReader interface {
	Read(ctx context.Context) types.CounterSnapshot
}

// ProcessSampler supplies ranked per-process usage.
type ProcessSampler interface {
	Start(ctx context.Context) error
	Collect(limit int) []types.ProcessUsage
	Stop()
}

// PathWatcher tracks the active interface.
type PathWatcher interface {
	Start(ctx context.Context) error
	Current() types.InterfaceState
	Stop()
}

// LatencyProber measures round-trip time to a reference host.
type LatencyProber interface {
	Probe(ctx context.Context, host string) *float64
}

// AddressSource caches the public address.
type AddressSource interface {
	Current() string
}

// Deps bundles the monitor's collaborators. Tests substitute fakes.
type Deps struct {
	Counters CounterReader
	Sampler  ProcessSampler
	Watcher  PathWatcher
	Prober   LatencyProber
	Address  AddressSource
}

// subscriberBuffer is the per-subscriber channel depth. A consumer that
// falls behind misses snapshots rather than blocking the publisher.
const subscriberBuffer = 1

// Monitor owns the tick loop: read counters, drain the sampler, probe
// latency, merge into a snapshot, append to history, fan out.
type Monitor struct {
	deps      Deps
	probeHost string
	logger    *logging.Logger

	mu          sync.Mutex
	settings    config.Settings
	running     bool
	baseCtx     context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	prev        *types.CounterSnapshot
	hist        *history.Buffer
	latest      types.NetworkSnapshot
	lastProcs   []types.ProcessUsage
	subscribers map[string]chan types.NetworkSnapshot
}

// New builds a stopped monitor. settings is clamped on the way in.
func New(settings config.Settings, probeHost string, deps Deps) *Monitor {
	settings.Clamp()
	return &Monitor{
		deps:        deps,
		probeHost:   probeHost,
		logger:      logging.NewLogger("monitor"),
		settings:    settings,
		subscribers: make(map[string]chan types.NetworkSnapshot),
	}
}

// Start transitions Stopped -> Running: starts the sampler and watcher,
// runs one synchronous tick so a snapshot exists before Start returns,
// then ticks on the refresh interval. Starting a running monitor is a
// no-op. History from a previous run is kept, resized to the current
// interval's capacity; the rate baseline is not, so the first tick
// reports zero speed.
func (m *Monitor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.baseCtx = ctx
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	interval := m.settings.Interval()
	capacity := m.settings.HistoryCapacity()
	if m.hist == nil {
		m.hist = history.NewBuffer(capacity)
	} else {
		m.hist.Resize(capacity)
	}
	m.prev = nil
	m.mu.Unlock()

	if err := m.deps.Sampler.Start(runCtx); err != nil {
		m.logger.Warn("process sampler unavailable",
			logging.Field{Key: "error", Value: err})
	}
	if err := m.deps.Watcher.Start(runCtx); err != nil {
		m.logger.Warn("path watcher unavailable",
			logging.Field{Key: "error", Value: err})
	}

	m.tick(runCtx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.tick(runCtx)
			}
		}
	}()

	m.logger.Info("monitor started",
		logging.Field{Key: "interval", Value: interval},
		logging.Field{Key: "history_capacity", Value: capacity})
	return nil
}

// Stop transitions Running -> Stopped: cancels the tick loop, terminates
// the sampler and watcher subprocesses, and closes subscriber channels.
// In-flight tick results are discarded. Idempotent.
func (m *Monitor) Stop() {
	m.stop(true)
}

// stop tears down the running loop. An interval restart keeps the
// subscriber channels alive; an explicit Stop closes them.
func (m *Monitor) stop(closeSubs bool) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	if closeSubs {
		for id, ch := range m.subscribers {
			close(ch)
			delete(m.subscribers, id)
		}
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.deps.Sampler.Stop()
	m.deps.Watcher.Stop()
	m.logger.Info("monitor stopped")
}

// tick runs one sampling cycle. The independent sources run concurrently
// under a deadline of one refresh interval; whatever misses it falls
// back (previous process list, absent ping).
func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	settings := m.settings
	m.mu.Unlock()

	tickCtx, cancel := context.WithTimeout(ctx, settings.Interval())
	defer cancel()

	var (
		curr  types.CounterSnapshot
		procs []types.ProcessUsage
		ping  *float64
	)
	g, gctx := errgroup.WithContext(tickCtx)
	g.Go(func() error {
		curr = m.deps.Counters.Read(gctx)
		return nil
	})
	g.Go(func() error {
		procs = m.deps.Sampler.Collect(settings.TopProcessCount)
		return nil
	})
	g.Go(func() error {
		ping = m.deps.Prober.Probe(gctx, m.probeHost)
		return nil
	})
	g.Wait()

	ifstate := m.deps.Watcher.Current()
	address := ""
	if m.deps.Address != nil {
		address = m.deps.Address.Current()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	// A dead counter read reports all-zero totals. Leaving the baseline
	// alone avoids a phantom spike on the next good read.
	speed := types.SpeedSample{TakenAt: curr.TakenAt}
	if curr.BytesRecv != 0 || curr.BytesSent != 0 {
		speed = rate.Compute(m.prev, curr)
		m.prev = &curr
	}

	if procs == nil {
		procs = m.lastProcs
	} else {
		m.lastProcs = procs
	}

	snapshot := types.NetworkSnapshot{
		Speed:         speed,
		TopProcesses:  procs,
		Interface:     &ifstate,
		PublicAddress: address,
		PingMillis:    ping,
		TakenAt:       speed.TakenAt,
	}
	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = time.Now()
	}

	m.hist.Append(speed)
	m.latest = snapshot

	for _, ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
