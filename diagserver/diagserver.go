// Package diagserver exposes a read-only admin surface over a running
// mbus resolver: the compiled routing tables and the resender's pending
// retry count, for operator tooling. It never accepts a request that
// could mutate routing state (spec §1 scopes the routing core itself out
// of any network/wire concerns; this package sits strictly alongside it).
package diagserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	graceful "gopkg.in/tylerb/graceful.v1"

	"github.com/vespaext/mbus"
	"github.com/vespaext/mbus/log"
)

// Snapshot is what a diagnostic client receives, either as a one-shot
// HTTP GET response or as a periodic websocket push.
type Snapshot struct {
	Tables        map[string]TableSnapshot `json:"tables"`
	ResendPending int                       `json:"resend_pending"`
}

// TableSnapshot lists the hop and route names of one protocol's table.
type TableSnapshot struct {
	Hops   []string `json:"hops"`
	Routes []string `json:"routes"`
}

// Server is the diagnostic HTTP+websocket surface. It holds no mutable
// routing state of its own; Tables and Resender are read at request time
// from whatever the caller wires in.
type Server struct {
	Tables   mbus.RoutingTableSet
	Resender Resender

	upgrader websocket.Upgrader
}

// Resender is the minimal view of *mbus.Resender this package depends on,
// so tests can substitute a fake without touching bbolt.
type Resender interface {
	Pending() int
}

func (s *Server) snapshot() Snapshot {
	snap := Snapshot{Tables: make(map[string]TableSnapshot, len(s.Tables))}
	for proto, t := range s.Tables {
		hops, routes := t.Names()
		snap.Tables[proto] = TableSnapshot{Hops: hops, Routes: routes}
	}
	if s.Resender != nil {
		snap.ResendPending = s.Resender.Pending()
	}
	return snap
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshot())
}

// handleStream upgrades to a websocket and pushes a snapshot every
// interval until the client disconnects.
func (s *Server) handleStream(interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		connID := uuid.New()
		log.Lvl2("diagserver: stream connected", connID)
		defer log.Lvl2("diagserver: stream disconnected", connID)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteJSON(s.snapshot()); err != nil {
				return
			}
		}
	}
}

// ListenAndServe serves the diagnostic surface on addr until ctx-less
// shutdown via graceful's signal handling (SIGINT/SIGTERM), draining
// in-flight requests for up to drainTimeout.
func (s *Server) ListenAndServe(addr string, drainTimeout time.Duration) error {
	s.upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/stream", s.handleStream(time.Second))

	srv := &graceful.Server{
		Timeout: drainTimeout,
		Server:  &http.Server{Addr: addr, Handler: mux},
	}
	return srv.ListenAndServe()
}
