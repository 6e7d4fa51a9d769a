package ifwatch

import (
	"bufio"
	"context"
	"os/exec"
	"sync"

	"github.com/saveenergy/netglance/internal/logging"
	"github.com/saveenergy/netglance/pkg/errors"
)

// EventSource delivers change notifications for the network path. The
// payload carries no data; each token means "re-evaluate now".
type EventSource interface {
	// Events starts the source and returns its notification channel. The
	// channel closes when the source dies or ctx is cancelled.
	Events(ctx context.Context) (<-chan struct{}, error)
	Stop()
}

// ExecSource adapts a streaming route-monitor subprocess into an
// EventSource. Every output line becomes one notification; bursts
// coalesce because the channel holds a single token.
type ExecSource struct {
	command []string
	logger  *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExecSource(command []string) *ExecSource {
	return &ExecSource{
		command: command,
		logger:  logging.NewLogger("ifwatch"),
	}
}

func (s *ExecSource) Events(ctx context.Context) (<-chan struct{}, error) {
	if len(s.command) == 0 {
		return nil, errors.ErrInvalidConfig("route monitor command is empty", nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, errors.ErrSubprocessFailed("attach to route monitor output", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, errors.ErrSubprocessFailed("launch route monitor", err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("route monitor started",
		logging.Field{Key: "command", Value: s.command[0]},
		logging.Field{Key: "pid", Value: cmd.Process.Pid})

	events := make(chan struct{}, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(events)

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			select {
			case events <- struct{}{}:
			default:
			}
		}
		err := cmd.Wait()
		if ctx.Err() == nil {
			s.logger.Warn("route monitor exited",
				logging.Field{Key: "error", Value: err})
		}
	}()
	return events, nil
}

func (s *ExecSource) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
