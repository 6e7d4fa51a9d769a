// Package pinger issues single-shot reachability probes through the system
// ICMP echo utility and reports round-trip time.
package pinger

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/saveenergy/netglance/internal/logging"
)

// rttPattern matches the "time=23.4 ms" clause of echo utility output.
var rttPattern = regexp.MustCompile(`time[=<]([0-9]+(?:\.[0-9]+)?)`)

// Prober runs one echo per probe cycle with a short timeout. Any failure
// (unreachable host, timeout, unparseable output) reports nil; the next
// scheduled cycle is the retry.
type Prober struct {
	command []string
	timeout time.Duration
	logger  *logging.Logger
}

// New builds a prober. command is the echo utility invocation without the
// target host, which Probe appends; nil selects the platform default.
func New(command []string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if len(command) == 0 {
		secs := int(timeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		command = []string{"ping", "-n", "-c", "1", "-W", strconv.Itoa(secs)}
	}
	return &Prober{
		command: command,
		timeout: timeout,
		logger:  logging.NewLogger("pinger"),
	}
}

// Probe sends one echo to host and returns the round-trip time in
// milliseconds, or nil when the probe failed. Never returns an error.
func (p *Prober) Probe(ctx context.Context, host string) *float64 {
	ctx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()

	args := append(append([]string(nil), p.command[1:]...), host)
	out, err := exec.CommandContext(ctx, p.command[0], args...).Output()
	if err != nil {
		p.logger.Debug("probe failed",
			logging.Field{Key: "host", Value: host},
			logging.Field{Key: "error", Value: err})
		return nil
	}
	return parseRTT(string(out))
}

func parseRTT(out string) *float64 {
	m := rttPattern.FindStringSubmatch(out)
	if m == nil {
		return nil
	}
	ms, err := strconv.ParseFloat(m[1], 64)
	if err != nil || ms < 0 {
		return nil
	}
	return &ms
}
