package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saveenergy/netglance/internal/config"
	"github.com/saveenergy/netglance/pkg/types"
)

type fakeCounters struct {
	mu    sync.Mutex
	snaps []types.CounterSnapshot
	i     int
}

func (f *fakeCounters) Read(ctx context.Context) types.CounterSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.snaps[f.i]
	if f.i < len(f.snaps)-1 {
		f.i++
	}
	return s
}

type fakeSampler struct {
	mu      sync.Mutex
	started int32
	stopped int32
	batches [][]types.ProcessUsage
	i       int
}

func (f *fakeSampler) Start(ctx context.Context) error {
	atomic.AddInt32(&f.started, 1)
	return nil
}

func (f *fakeSampler) Collect(limit int) []types.ProcessUsage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil
	}
	b := f.batches[f.i]
	if f.i < len(f.batches)-1 {
		f.i++
	}
	return b
}

func (f *fakeSampler) Stop() { atomic.AddInt32(&f.stopped, 1) }

type fakeWatcher struct {
	state   types.InterfaceState
	started int32
	stopped int32
}

func (f *fakeWatcher) Start(ctx context.Context) error {
	atomic.AddInt32(&f.started, 1)
	return nil
}

func (f *fakeWatcher) Current() types.InterfaceState { return f.state }
func (f *fakeWatcher) Stop()                         { atomic.AddInt32(&f.stopped, 1) }

type fakeProber struct{ ms *float64 }

func (f *fakeProber) Probe(ctx context.Context, host string) *float64 { return f.ms }

type fakeAddress struct{ addr string }

func (f *fakeAddress) Current() string { return f.addr }

func ms(v float64) *float64 { return &v }

// testMonitor wires a monitor over fakes with a long refresh interval so
// the background ticker never interferes; tests drive tick directly.
func testMonitor(t *testing.T, counters *fakeCounters, sampler *fakeSampler) (*Monitor, *fakeWatcher) {
	t.Helper()
	watcher := &fakeWatcher{state: types.InterfaceState{
		Name: "eth0", Kind: types.KindEthernet, Active: true, LocalAddress: "10.0.0.5",
	}}
	settings := config.DefaultSettings()
	settings.RefreshSeconds = 10
	m := New(settings, "192.0.2.1", Deps{
		Counters: counters,
		Sampler:  sampler,
		Watcher:  watcher,
		Prober:   &fakeProber{ms: ms(12)},
		Address:  &fakeAddress{addr: "203.0.113.7"},
	})
	return m, watcher
}

func baseTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestStartRunsSynchronousFirstTick(t *testing.T) {
	counters := &fakeCounters{snaps: []types.CounterSnapshot{
		{BytesRecv: 1000, BytesSent: 500, TakenAt: baseTime()},
	}}
	sampler := &fakeSampler{batches: [][]types.ProcessUsage{
		{{PID: 1, Name: "browser", DownloadBps: 900}},
	}}
	m, watcher := testMonitor(t, counters, sampler)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	got := m.Latest()
	if got.TakenAt.IsZero() {
		t.Fatal("Latest() is zero after Start, want a published snapshot")
	}
	if got.Speed.UploadBps != 0 || got.Speed.DownloadBps != 0 {
		t.Errorf("first tick speed = %+v, want zero (no baseline)", got.Speed)
	}
	if len(got.TopProcesses) != 1 || got.TopProcesses[0].Name != "browser" {
		t.Errorf("TopProcesses = %+v, want the sampled browser record", got.TopProcesses)
	}
	if got.Interface == nil || got.Interface.Name != "eth0" {
		t.Errorf("Interface = %+v, want eth0", got.Interface)
	}
	if got.PublicAddress != "203.0.113.7" {
		t.Errorf("PublicAddress = %q, want 203.0.113.7", got.PublicAddress)
	}
	if got.PingMillis == nil || *got.PingMillis != 12 {
		t.Errorf("PingMillis = %v, want 12", got.PingMillis)
	}
	if n := len(m.History()); n != 1 {
		t.Errorf("history length = %d, want 1", n)
	}
	if atomic.LoadInt32(&watcher.started) != 1 {
		t.Errorf("watcher started %d times, want 1", watcher.started)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	counters := &fakeCounters{snaps: []types.CounterSnapshot{
		{BytesRecv: 1, BytesSent: 1, TakenAt: baseTime()},
	}}
	sampler := &fakeSampler{}
	m, _ := testMonitor(t, counters, sampler)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
	if got := atomic.LoadInt32(&sampler.started); got != 1 {
		t.Errorf("sampler started %d times, want 1", got)
	}
	if n := len(m.History()); n != 1 {
		t.Errorf("history length after double Start = %d, want 1", n)
	}

	m.Stop()
	m.Stop()
	if got := atomic.LoadInt32(&sampler.stopped); got != 1 {
		t.Errorf("sampler stopped %d times, want 1", got)
	}
}

func TestTickRatePipelineAndHistory(t *testing.T) {
	t0 := baseTime()
	counters := &fakeCounters{snaps: []types.CounterSnapshot{
		{BytesRecv: 1000, BytesSent: 500, TakenAt: t0},
		{BytesRecv: 3000, BytesSent: 1500, TakenAt: t0.Add(time.Second)},
		{BytesRecv: 100, BytesSent: 50, TakenAt: t0.Add(2 * time.Second)},
	}}
	m, _ := testMonitor(t, counters, &fakeSampler{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	m.tick(context.Background())
	got := m.Latest().Speed
	if got.DownloadBps != 2000 || got.UploadBps != 1000 {
		t.Errorf("second tick speed = %+v, want down 2000 up 1000", got)
	}

	// Counter reset must read as zero, not as a huge negative delta.
	m.tick(context.Background())
	got = m.Latest().Speed
	if got.DownloadBps != 0 || got.UploadBps != 0 {
		t.Errorf("post-reset speed = %+v, want zero", got)
	}

	samples := m.History()
	if len(samples) != 3 {
		t.Fatalf("history length = %d, want 3", len(samples))
	}
	if samples[1].DownloadBps != 2000 {
		t.Errorf("history[1] = %+v, want the 2000 B/s sample", samples[1])
	}

	stats := m.Stats()
	if stats.PeakDownloadBps != 2000 || stats.SampleCount != 3 {
		t.Errorf("stats = %+v, want peak 2000 over 3 samples", stats)
	}
}

func TestTickKeepsPreviousProcessesWhenSamplerHasNothing(t *testing.T) {
	counters := &fakeCounters{snaps: []types.CounterSnapshot{
		{BytesRecv: 1, BytesSent: 1, TakenAt: baseTime()},
	}}
	sampler := &fakeSampler{batches: [][]types.ProcessUsage{
		{{PID: 9, Name: "steady", UploadBps: 10}},
		nil,
	}}
	m, _ := testMonitor(t, counters, sampler)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	m.tick(context.Background())
	got := m.Latest().TopProcesses
	if len(got) != 1 || got[0].Name != "steady" {
		t.Errorf("TopProcesses after sampler dropout = %+v, want previous list", got)
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	counters := &fakeCounters{snaps: []types.CounterSnapshot{
		{BytesRecv: 1, BytesSent: 1, TakenAt: baseTime()},
	}}
	m, _ := testMonitor(t, counters, &fakeSampler{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	id, ch := m.Subscribe()
	m.tick(context.Background())

	select {
	case snap := <-ch:
		if snap.TakenAt.IsZero() {
			t.Error("published snapshot has zero timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published to subscriber")
	}

	// A full channel is skipped, never blocked on.
	m.tick(context.Background())
	m.tick(context.Background())

	m.Unsubscribe(id)
	if _, ok := <-ch; ok {
		// Drain the buffered snapshot, then the channel must be closed.
		if _, ok := <-ch; ok {
			t.Error("channel still open after Unsubscribe")
		}
	}
}

func TestStopDiscardsInFlightResults(t *testing.T) {
	counters := &fakeCounters{snaps: []types.CounterSnapshot{
		{BytesRecv: 1, BytesSent: 1, TakenAt: baseTime()},
		{BytesRecv: 5000, BytesSent: 5000, TakenAt: baseTime().Add(time.Second)},
	}}
	m, _ := testMonitor(t, counters, &fakeSampler{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	before := m.Latest()
	m.Stop()

	m.tick(context.Background())
	if got := m.Latest(); got.TakenAt != before.TakenAt {
		t.Errorf("Latest() changed after Stop: %+v", got)
	}
	if n := len(m.History()); n != 1 {
		t.Errorf("history grew after Stop: %d samples", n)
	}
}

func TestUpdateSettingsRestartsAndPreservesHistory(t *testing.T) {
	counters := &fakeCounters{snaps: []types.CounterSnapshot{
		{BytesRecv: 1000, BytesSent: 1000, TakenAt: baseTime()},
		{BytesRecv: 2000, BytesSent: 2000, TakenAt: baseTime().Add(time.Second)},
	}}
	sampler := &fakeSampler{}
	m, _ := testMonitor(t, counters, sampler)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()
	m.tick(context.Background())

	_, ch := m.Subscribe()

	next := m.Settings()
	next.RefreshSeconds = 5
	m.UpdateSettings(next)

	if !m.Running() {
		t.Fatal("monitor not running after interval change")
	}
	if got := atomic.LoadInt32(&sampler.started); got != 2 {
		t.Errorf("sampler started %d times, want 2 (restart)", got)
	}
	// Two samples from before the restart plus the restart's first tick.
	if n := len(m.History()); n != 3 {
		t.Errorf("history length after restart = %d, want 3", n)
	}
	if got := m.Settings().Interval(); got != 5*time.Second {
		t.Errorf("Interval() = %v, want 5s", got)
	}

	// Subscribers survive an interval restart.
	m.tick(context.Background())
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Error("subscriber starved after interval restart")
	}
}

func TestUpdateSettingsEqualIntervalDoesNotRestart(t *testing.T) {
	counters := &fakeCounters{snaps: []types.CounterSnapshot{
		{BytesRecv: 1, BytesSent: 1, TakenAt: baseTime()},
	}}
	sampler := &fakeSampler{}
	m, _ := testMonitor(t, counters, sampler)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	next := m.Settings()
	next.TopProcessCount = 9
	m.UpdateSettings(next)

	if got := atomic.LoadInt32(&sampler.started); got != 1 {
		t.Errorf("sampler started %d times, want 1 (no restart)", got)
	}
	if got := m.Settings().TopProcessCount; got != 9 {
		t.Errorf("TopProcessCount = %d, want 9", got)
	}

	m.UpdateRefreshInterval(10 * time.Second)
	if got := atomic.LoadInt32(&sampler.started); got != 1 {
		t.Errorf("equal UpdateRefreshInterval restarted the monitor")
	}
}
