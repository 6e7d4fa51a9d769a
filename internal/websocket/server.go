// Package websocket pushes published snapshots to connected clients.
// There is a single feed; every client receives every snapshot.
package websocket

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saveenergy/netglance/internal/logging"
	"github.com/saveenergy/netglance/pkg/types"
)

type Server struct {
	upgrader       websocket.Upgrader
	clients        map[*websocket.Conn]*clientConn
	allowedOrigins []string
	pingInterval   time.Duration
	logger         *logging.Logger
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
	mu             sync.RWMutex
}

type clientConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type wsMessage struct {
	Type     string                 `json:"type"`
	Snapshot *types.NetworkSnapshot `json:"snapshot,omitempty"`
	Time     int64                  `json:"time"`
}

func NewServer() *Server {
	server := &Server{
		clients:      make(map[*websocket.Conn]*clientConn),
		pingInterval: 30 * time.Second,
		logger:       logging.NewLogger("websocket"),
		stopCh:       make(chan struct{}),
	}
	server.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return server.isAllowedOrigin(r.Header.Get("Origin"), r.Host)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	server.startPingLoop()
	return server
}

func (s *Server) SetAllowedOrigins(origins []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowedOrigins = origins
}

func (s *Server) SetPingInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingInterval = interval
}

// ClientCount reports the number of connected feed clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleFeed upgrades the request and keeps the connection registered
// until the client goes away. latest, when non-zero, is delivered
// immediately so a fresh client does not wait a full tick for data.
func (s *Server) HandleFeed(w http.ResponseWriter, r *http.Request, latest types.NetworkSnapshot) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", logging.Field{Key: "error", Value: err})
		return
	}
	defer conn.Close()

	// The server only reads for disconnect detection.
	conn.SetReadLimit(4096)

	client := &clientConn{conn: conn}
	s.mu.Lock()
	s.clients[conn] = client
	s.mu.Unlock()

	if err := client.writeJSON(wsMessage{Type: "connected", Time: time.Now().Unix()}); err != nil {
		s.removeClient(conn)
		return
	}
	if !latest.TakenAt.IsZero() {
		if err := client.writeJSON(wsMessage{
			Type:     "snapshot",
			Snapshot: &latest,
			Time:     time.Now().Unix(),
		}); err != nil {
			s.removeClient(conn)
			return
		}
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.removeClient(conn)
}

// Broadcast sends one snapshot to every connected client, dropping
// connections whose writes fail.
func (s *Server) Broadcast(snap types.NetworkSnapshot) {
	s.mu.RLock()
	clientList := make([]*clientConn, 0, len(s.clients))
	for _, client := range s.clients {
		clientList = append(clientList, client)
	}
	s.mu.RUnlock()

	if len(clientList) == 0 {
		return
	}

	data, err := json.Marshal(wsMessage{
		Type:     "snapshot",
		Snapshot: &snap,
		Time:     time.Now().Unix(),
	})
	if err != nil {
		s.logger.Warn("snapshot marshal failed", logging.Field{Key: "error", Value: err})
		return
	}

	for _, client := range clientList {
		if err := client.writeMessage(websocket.TextMessage, data); err != nil {
			s.removeClient(client.conn)
			client.conn.Close()
		}
	}
}

func (s *Server) startPingLoop() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		interval := s.getPingInterval()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.pingClients()
				next := s.getPingInterval()
				if next != interval {
					ticker.Stop()
					interval = next
					ticker = time.NewTicker(interval)
				}
			}
		}
	}()
}

func (s *Server) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Server) getPingInterval() time.Duration {
	s.mu.RLock()
	interval := s.pingInterval
	s.mu.RUnlock()
	if interval <= 0 {
		return 30 * time.Second
	}
	return interval
}

func (s *Server) pingClients() {
	s.mu.RLock()
	refs := make([]*clientConn, 0, len(s.clients))
	for _, client := range s.clients {
		refs = append(refs, client)
	}
	s.mu.RUnlock()

	for _, client := range refs {
		if err := client.writeMessage(websocket.PingMessage, nil); err != nil {
			s.removeClient(client.conn)
			client.conn.Close()
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
}

func (s *Server) isAllowedOrigin(origin string, host string) bool {
	if origin == "" {
		return true
	}

	s.mu.RLock()
	allowedOrigins := append([]string(nil), s.allowedOrigins...)
	s.mu.RUnlock()

	if len(allowedOrigins) == 0 {
		return sameOrigin(origin, host)
	}

	originHostValue := types.OriginHost(origin)
	for _, allowed := range allowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if allowed == "*" {
			return true
		}
		if strings.EqualFold(allowed, origin) {
			return true
		}
		if strings.HasPrefix(allowed, "*.") {
			suffix := strings.TrimPrefix(allowed, "*.")
			if originHostValue != "" && (originHostValue == suffix || strings.HasSuffix(originHostValue, "."+suffix)) {
				return true
			}
		}
		allowedHost := types.OriginHost(allowed)
		if allowedHost != "" && originHostValue != "" && strings.EqualFold(allowedHost, originHostValue) {
			return true
		}
	}
	return false
}

func sameOrigin(origin string, host string) bool {
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originH := types.StripHostPort(parsed.Host)
	requestH := types.StripHostPort(host)
	return strings.EqualFold(originH, requestH)
}

func (c *clientConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *clientConn) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(messageType, data)
}
