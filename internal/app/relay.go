package app

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/peersight/server/internal/core"
	"github.com/peersight/server/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomGroup names the transport group holding a room's participants.
func RoomGroup(roomID domain.RoomID) string {
	return fmt.Sprintf("room:%s", roomID)
}

// AdminGroup names the transport group holding a room's admin observers.
func AdminGroup(roomID domain.RoomID) string {
	return fmt.Sprintf("admins:%s", roomID)
}

// Relay is the addressable send primitive: send-to-connection,
// send-to-group. Sends are fire-and-forget; an unknown destination or a
// saturated connection drops the frame with no signal to the sender.
// It never touches roster state, so sends need no coordination with
// event handling.
type Relay struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]core.SignalConnection
	groups map[string]map[domain.ConnID]struct{}
}

func NewRelay() *Relay {
	return &Relay{
		conns:  make(map[domain.ConnID]core.SignalConnection),
		groups: make(map[string]map[domain.ConnID]struct{}),
	}
}

// Bind registers a live connection under its id.
func (r *Relay) Bind(connID domain.ConnID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = conn
	log.Debug().Str("module", "app.relay").Str("conn", string(connID)).Msg("connection bound")
}

// Unbind forgets the connection and removes it from every group.
func (r *Relay) Unbind(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
	for _, members := range r.groups {
		delete(members, connID)
	}
	log.Debug().Str("module", "app.relay").Str("conn", string(connID)).Msg("connection unbound")
}

// JoinGroup is idempotent; groups spring into existence on first join.
func (r *Relay) JoinGroup(group string, connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.groups[group]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		r.groups[group] = members
	}
	members[connID] = struct{}{}
}

// SendTo marshals v and delivers it to one connection. Unknown ids and
// backpressure are silently dropped.
func (r *Relay) SendTo(connID domain.ConnID, v any) {
	frame, err := marshalFrame(v)
	if err != nil {
		return
	}
	r.mu.RLock()
	conn, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "app.relay").Str("conn", string(connID)).Msg("send to unknown connection dropped")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "app.relay").Str("conn", string(connID)).Msg("send dropped")
	}
}

// SendGroup marshals v once and fans it out to every group member.
func (r *Relay) SendGroup(group string, v any) {
	frame, err := marshalFrame(v)
	if err != nil {
		return
	}
	r.mu.RLock()
	members := make([]core.SignalConnection, 0, len(r.groups[group]))
	for connID := range r.groups[group] {
		if conn, ok := r.conns[connID]; ok {
			members = append(members, conn)
		}
	}
	r.mu.RUnlock()
	for _, conn := range members {
		_ = conn.TrySend(frame)
	}
}

func marshalFrame(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal frame")
		return nil, err
	}
	return core.Frame(b), nil
}
