package pinger_test

import (
	"context"
	"testing"
	"time"

	"github.com/saveenergy/netglance/internal/pinger"
)

func TestProbeParsesEchoOutput(t *testing.T) {
	p := pinger.New([]string{"sh", "-c", "echo '64 bytes from 1.1.1.1: icmp_seq=1 ttl=57 time=34.5 ms'"}, time.Second)

	got := p.Probe(context.Background(), "1.1.1.1")
	if got == nil {
		t.Fatal("Probe() = nil, want value")
	}
	if *got != 34.5 {
		t.Errorf("Probe() = %v, want 34.5", *got)
	}
}

func TestProbeFailureReturnsNil(t *testing.T) {
	tests := []struct {
		name    string
		command []string
	}{
		{name: "utility exits nonzero", command: []string{"false"}},
		{name: "utility missing", command: []string{"/nonexistent-echo-utility"}},
		{name: "unparseable output", command: []string{"echo", "no rtt here"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pinger.New(tt.command, time.Second)
			if got := p.Probe(context.Background(), "host.invalid"); got != nil {
				t.Errorf("Probe() = %v, want nil", *got)
			}
		})
	}
}

func TestProbeHonorsTimeout(t *testing.T) {
	p := pinger.New([]string{"sleep", "30"}, 100*time.Millisecond)

	start := time.Now()
	got := p.Probe(context.Background(), "host.invalid")
	if got != nil {
		t.Errorf("Probe() = %v, want nil on timeout", *got)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Probe() took %v, timeout not applied", elapsed)
	}
}
