package ifwatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/saveenergy/netglance/internal/ifwatch"
)

func TestExecSourceForwardsLines(t *testing.T) {
	src := ifwatch.NewExecSource([]string{"sh", "-c", "echo route change; echo another; sleep 30"})

	events, err := src.Events(context.Background())
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer src.Stop()

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no event forwarded from subprocess output")
	}
}

func TestExecSourceClosesChannelOnExit(t *testing.T) {
	src := ifwatch.NewExecSource([]string{"sh", "-c", "exit 0"})

	events, err := src.Events(context.Background())
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	defer src.Stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after subprocess exit")
		}
	}
}

func TestExecSourceLaunchFailure(t *testing.T) {
	tests := []struct {
		name    string
		command []string
	}{
		{name: "empty command", command: nil},
		{name: "missing binary", command: []string{"/nonexistent-route-monitor"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := ifwatch.NewExecSource(tt.command)
			if _, err := src.Events(context.Background()); err == nil {
				t.Error("Events() expected error, got nil")
			}
		})
	}
}
