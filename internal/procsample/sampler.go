// Package procsample attributes bandwidth to running processes by parsing
// the streaming output of an external per-process traffic accounting tool.
//
// The tool runs as one long-lived subprocess emitting delimited byte deltas
// at a fixed cadence; each Collect drains the accumulated window into rate
// records. These rates come from point-in-time accounting, not compared
// cumulative counters, so they are less precise than the interface-level
// aggregate and are not smoothed against it.
package procsample

import (
	"bufio"
	"context"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/saveenergy/netglance/internal/logging"
	pkgerrors "github.com/saveenergy/netglance/pkg/errors"
	"github.com/saveenergy/netglance/pkg/types"
)

type accum struct {
	bytesIn  uint64
	bytesOut uint64
	seq      int
}

// Sampler owns the accounting subprocess and the per-window accumulation.
// Collect is throttled: when the limiter denies a tick, the previous ranked
// result is reused instead of draining a too-short window.
type Sampler struct {
	command  []string
	resolver IdentityResolver
	limiter  *rate.Limiter
	logger   *logging.Logger

	mu          sync.Mutex
	window      map[usageKey]*accum
	windowStart time.Time
	nextSeq     int
	running     bool
	healthy     bool
	cancel      context.CancelFunc
	lastRanked  []types.ProcessUsage

	wg sync.WaitGroup
}

func New(command []string, minInterval time.Duration, resolver IdentityResolver) *Sampler {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	if resolver == nil {
		resolver = NewPSResolver()
	}
	return &Sampler{
		command:  command,
		resolver: resolver,
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		logger:   logging.NewLogger("procsample"),
		window:   make(map[usageKey]*accum),
	}
}

// Start launches the accounting subprocess. Idempotent while running. A
// launch failure is returned for logging but leaves the sampler usable:
// Collect simply reports no data.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	if len(s.command) == 0 {
		s.mu.Unlock()
		return pkgerrors.ErrInvalidConfig("sampler command is empty", nil)
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, s.command[0], s.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		s.mu.Unlock()
		return pkgerrors.ErrSubprocessFailed(s.command[0], err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		s.mu.Unlock()
		return pkgerrors.ErrSubprocessFailed(s.command[0], err)
	}

	s.cancel = cancel
	s.running = true
	s.healthy = true
	s.window = make(map[usageKey]*accum)
	s.windowStart = time.Now()
	s.nextSeq = 0
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			key, in, out, ok := parseLine(scanner.Text())
			if !ok {
				continue
			}
			s.record(key, in, out)
		}

		err := cmd.Wait()
		s.mu.Lock()
		wasRunning := s.running
		s.healthy = false
		s.mu.Unlock()
		if wasRunning && err != nil && !pkgerrors.IsContextError(cctx.Err()) {
			s.logger.Warn("accounting subprocess exited",
				logging.Field{Key: "command", Value: s.command[0]},
				logging.Field{Key: "error", Value: err})
		}
	}()

	return nil
}

func (s *Sampler) record(key usageKey, bytesIn, bytesOut uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.window[key]
	if a == nil {
		a = &accum{seq: s.nextSeq}
		s.nextSeq++
		s.window[key] = a
	}
	a.bytesIn += bytesIn
	a.bytesOut += bytesOut
}

// Collect drains the current window into ranked usage records. Returns an
// empty slice when the subprocess is not producing data, and the previous
// result when the throttle denies this tick.
func (s *Sampler) Collect(limit int) []types.ProcessUsage {
	s.mu.Lock()
	if !s.running || !s.healthy {
		s.mu.Unlock()
		return nil
	}
	if !s.limiter.Allow() {
		cached := s.lastRanked
		s.mu.Unlock()
		return cached
	}

	window := s.window
	start := s.windowStart
	now := time.Now()
	s.window = make(map[usageKey]*accum)
	s.windowStart = now
	s.nextSeq = 0
	s.mu.Unlock()

	elapsed := now.Sub(start).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}

	// Rebuild discovery order so rank ties stay deterministic.
	ordered := make([]usageKey, 0, len(window))
	for key := range window {
		ordered = append(ordered, key)
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && window[ordered[j]].seq < window[ordered[j-1]].seq; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	records := make([]types.ProcessUsage, 0, len(ordered))
	for _, key := range ordered {
		a := window[key]
		identity := s.resolver.Resolve(key.pid)
		name := identity.Name
		if name == "" {
			name = key.name
		}
		records = append(records, types.ProcessUsage{
			PID:         key.pid,
			Name:        name,
			BundleID:    identity.BundleID,
			Icon:        identity.Icon,
			UploadBps:   float64(a.bytesOut) / elapsed,
			DownloadBps: float64(a.bytesIn) / elapsed,
		})
	}

	ranked := types.RankProcesses(records, limit)

	s.mu.Lock()
	s.lastRanked = ranked
	s.mu.Unlock()
	return ranked
}

// Stop terminates the subprocess and waits for the read loop to drain.
// Idempotent.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
