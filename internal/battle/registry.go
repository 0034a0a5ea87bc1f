package battle

import (
	"sync"

	"go.uber.org/zap"
)

// Registry keeps liveness-correct broadcast groups keyed by room, plus an
// index from player id to that player's single authoritative channel. The
// per-room list may briefly hold stale half-closed entries; they are pruned
// on the next Connect and evicted by Broadcast on first failed delivery.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string][]Conn
	owners map[ownerKey]Conn
}

type ownerKey struct {
	room   string
	player string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string][]Conn),
		owners: make(map[ownerKey]Conn),
	}
}

// Connect prunes dead channels from the room's group and registers the
// channel. Idempotent: the same channel is never held twice.
func (r *Registry) Connect(conn Conn, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.rooms[roomID][:0]
	for _, c := range r.rooms[roomID] {
		if c == conn || !c.Alive() {
			continue
		}
		kept = append(kept, c)
	}
	r.rooms[roomID] = append(kept, conn)
}

// Disconnect removes all occurrences of the channel. No-op if absent.
func (r *Registry) Disconnect(conn Conn, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.rooms[roomID][:0]
	for _, c := range r.rooms[roomID] {
		if c != conn {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(r.rooms, roomID)
		return
	}
	r.rooms[roomID] = kept
}

// Claim records conn as the authoritative channel for the player and
// returns the previously authoritative one, if any. The caller is
// responsible for force-closing a superseded duplicate.
func (r *Registry) Claim(roomID, playerID string, conn Conn) (old Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := ownerKey{room: roomID, player: playerID}
	old = r.owners[k]
	r.owners[k] = conn
	if old == conn {
		return nil
	}
	return old
}

// Release drops the player index entry, but only if conn is still the
// authoritative channel. Returns false when conn has been superseded by a
// fast reconnect, in which case the caller must not tear down presence.
func (r *Registry) Release(roomID, playerID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := ownerKey{room: roomID, player: playerID}
	if r.owners[k] != conn {
		return false
	}
	delete(r.owners, k)
	return true
}

// Broadcast delivers msg to every channel in the room's group, evaluated
// against a snapshot taken at call time. Channels that are no longer live
// or that fail the send are evicted; failures are logged, never returned.
func (r *Registry) Broadcast(msg []byte, roomID string) {
	r.mu.Lock()
	targets := make([]Conn, len(r.rooms[roomID]))
	copy(targets, r.rooms[roomID])
	r.mu.Unlock()

	// I/O outside the lock
	var failed []Conn
	for _, c := range targets {
		if !c.Alive() {
			failed = append(failed, c)
			continue
		}
		if err := c.WriteText(msg); err != nil {
			zap.L().Debug("battle.broadcast_send", zap.String("room", roomID), zap.Error(err))
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		r.Disconnect(c, roomID)
	}
}

// EvictRoom force-closes and forgets every channel still attached to the
// room. Used by the grace-period cleanup and by explicit room deletion.
func (r *Registry) EvictRoom(roomID string) {
	r.mu.Lock()
	conns := r.rooms[roomID]
	delete(r.rooms, roomID)
	for k := range r.owners {
		if k.room == roomID {
			delete(r.owners, k)
		}
	}
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
