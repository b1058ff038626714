// Package wsserver implements the optional live-stream transport of
// section 6: it exposes the event log's broadcast pipe over a websocket
// endpoint so an external visualizer can attach mid-run. It implements no
// rendering, only the transport contract. Grounded in the teacher's
// handleStream SSE broadcaster (server/server.go), generalized from a
// text/event-stream response to a websocket connection using
// gorilla/websocket, the library the rest of the example pack reaches for
// when a bidirectional live-stream transport is needed.
package wsserver

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"elevatorsim/eventlog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server fans every record it is fed out to all currently connected
// websocket clients. A record is dropped for any client whose send queue
// is full rather than allowed to stall the broadcast; the client stays
// connected. This mirrors msgbus's own drop-on-full mirror policy.
type Server struct {
	logger  *log.Logger
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	out  chan eventlog.Record
}

// New constructs a live-stream server.
func New(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{logger: logger, clients: make(map[*client]struct{})}
}

// Handler upgrades incoming HTTP requests to websocket connections and
// registers each as a broadcast recipient until it disconnects.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("wsserver: upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, out: make(chan eventlog.Record, 64)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer s.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	for rec := range c.out {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteJSON(rec); err != nil {
			s.remove(c)
			return
		}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.out)
	}
	s.mu.Unlock()
	c.conn.Close()
}

// Broadcast pushes rec to every connected client's send queue, dropping it
// for any client whose queue is currently full.
func (s *Server) Broadcast(rec eventlog.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.out <- rec:
		default:
		}
	}
}

// Feed drains records off ch (typically produced alongside the event log
// writer) and broadcasts each to connected clients until ch closes.
func (s *Server) Feed(ch <-chan eventlog.Record) {
	for rec := range ch {
		s.Broadcast(rec)
	}
}
