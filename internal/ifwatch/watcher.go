// Package ifwatch observes the active network interface. It is
// event-driven: a route-monitor subprocess (or any EventSource) signals
// path changes and the watcher re-evaluates, so there is no polling.
package ifwatch

import (
	"context"
	"sync"

	"github.com/saveenergy/netglance/internal/logging"
	"github.com/saveenergy/netglance/pkg/types"
)

// Watcher tracks the interface carrying the default route. Current is
// safe from any goroutine; the watcher itself is the only mutator.
type Watcher struct {
	source   EventSource
	onRegain func()
	probe    func() types.InterfaceState
	logger   *logging.Logger

	mu      sync.Mutex
	current types.InterfaceState
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a watcher over source. onRegain fires asynchronously each
// time connectivity comes back (and once on the initial evaluation when
// the machine is already online); nil disables it.
func New(source EventSource, onRegain func()) *Watcher {
	return &Watcher{
		source:   source,
		onRegain: onRegain,
		probe:    probeState,
		logger:   logging.NewLogger("ifwatch"),
	}
}

// probeState inspects the host's interfaces and reports the active one.
func probeState() types.InterfaceState {
	name := types.DefaultInterface()
	if name == "" {
		return types.InterfaceState{}
	}
	return types.InterfaceState{
		Name:         name,
		Kind:         classify(name),
		Active:       true,
		LocalAddress: types.InterfaceAddress(name),
	}
}

// Start evaluates the current state once, then consumes change events
// until Stop or ctx cancellation. Calling Start on a running watcher is
// a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	events, err := w.source.Events(ctx)
	if err != nil {
		cancel()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.apply(w.probe())

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				w.apply(w.probe())
			}
		}
	}()
	return nil
}

// apply installs the probed state. A lost path keeps the last known name
// and kind but drops Active and the local address.
func (w *Watcher) apply(next types.InterfaceState) {
	w.mu.Lock()
	prev := w.current
	if !next.Active {
		next.Name = prev.Name
		next.Kind = prev.Kind
		next.LocalAddress = ""
	}
	if next.Kind == "" {
		next.Kind = types.KindOther
	}
	w.current = next
	w.mu.Unlock()

	if next == prev {
		return
	}
	w.logger.Info("path changed",
		logging.Field{Key: "interface", Value: next.Name},
		logging.Field{Key: "kind", Value: string(next.Kind)},
		logging.Field{Key: "active", Value: next.Active})

	if !prev.Active && next.Active && w.onRegain != nil {
		go w.onRegain()
	}
}

// Current returns the last evaluated state.
func (w *Watcher) Current() types.InterfaceState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop terminates the event stream and waits for the consumer goroutine.
// Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.source.Stop()
	w.wg.Wait()
}
