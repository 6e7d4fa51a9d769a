package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/saveenergy/netglance/pkg/types"
)

func TestServerAllowedOriginWildcard(t *testing.T) {
	s := NewServer()
	defer s.Close()
	s.SetAllowedOrigins([]string{"*.example.com"})

	if !s.isAllowedOrigin("https://foo.example.com", "foo.example.com") {
		t.Fatalf("expected wildcard origin to be allowed")
	}
}

func TestServerAllowedOriginHostMatch(t *testing.T) {
	s := NewServer()
	defer s.Close()
	s.SetAllowedOrigins([]string{"foo.example.com"})

	if !s.isAllowedOrigin("https://foo.example.com:8443", "foo.example.com:8443") {
		t.Fatalf("expected host-only origin to be allowed")
	}
}

func TestServerRejectsForeignOrigin(t *testing.T) {
	s := NewServer()
	defer s.Close()
	s.SetAllowedOrigins([]string{"foo.example.com"})

	if s.isAllowedOrigin("https://evil.example.net", "foo.example.com") {
		t.Fatalf("expected foreign origin to be rejected")
	}
}

func TestFeedDeliversSnapshots(t *testing.T) {
	s := NewServer()
	defer s.Close()

	latest := types.NetworkSnapshot{
		Speed:   types.SpeedSample{DownloadBps: 1500, TakenAt: time.Now()},
		TakenAt: time.Now(),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.HandleFeed(w, r, latest)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readMessage := func() wsMessage {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	}

	if msg := readMessage(); msg.Type != "connected" {
		t.Fatalf("first message type = %q, want connected", msg.Type)
	}
	msg := readMessage()
	if msg.Type != "snapshot" || msg.Snapshot == nil || msg.Snapshot.Speed.DownloadBps != 1500 {
		t.Fatalf("initial snapshot message = %+v, want the latest snapshot", msg)
	}

	broadcast := types.NetworkSnapshot{
		Speed:   types.SpeedSample{DownloadBps: 9000, TakenAt: time.Now()},
		TakenAt: time.Now(),
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Broadcast(broadcast)

	msg = readMessage()
	if msg.Type != "snapshot" || msg.Snapshot == nil || msg.Snapshot.Speed.DownloadBps != 9000 {
		t.Fatalf("broadcast message = %+v, want the broadcast snapshot", msg)
	}
}

func TestBroadcastDropsDeadClients(t *testing.T) {
	s := NewServer()
	defer s.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.HandleFeed(w, r, types.NetworkSnapshot{})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != 0 && time.Now().Before(deadline) {
		s.Broadcast(types.NetworkSnapshot{TakenAt: time.Now()})
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d, want 0 after client disconnect", got)
	}
}
