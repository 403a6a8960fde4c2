// Package presence tracks which users are currently reachable and where
// drivers are located. The table is purely in-memory: after a restart every
// user is unreachable until they reconnect. Conflicting concurrent updates to
// the same user resolve last-write-wins; presence data is advisory.
package presence

import (
	"sync"
	"time"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Sender pushes one event to a live connection. The websocket hub provides
// the real implementation; tests use fakes.
type Sender interface {
	Send(event interface{}) error
}

// Entry is the ephemeral record for one connected user. At most one live
// entry exists per user id; a new connection evicts the previous one.
type Entry struct {
	UserID    string
	Handle    string
	Role      string
	Conn      Sender
	Location  *Location
	Available bool
	LastSeen  time.Time
}

type Registry struct {
	mu       sync.RWMutex
	byUser   map[string]*Entry
	byHandle map[string]string // connection handle -> user id
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[string]*Entry),
		byHandle: make(map[string]string),
	}
}

// Connect registers or replaces the live entry for userID. A previously
// bound handle for the same user becomes stale: its events are no longer
// delivered and its later Disconnect is a no-op.
func (r *Registry) Connect(userID, role, handle string, conn Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		delete(r.byHandle, prev.Handle)
	}

	r.byUser[userID] = &Entry{
		UserID:   userID,
		Handle:   handle,
		Role:     role,
		Conn:     conn,
		LastSeen: time.Now(),
	}
	r.byHandle[handle] = userID
}

// Disconnect removes the entry bound to handle. Idempotent; a stale handle
// (already evicted by a newer connection) is ignored.
func (r *Registry) Disconnect(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byHandle[handle]
	if !ok {
		return
	}
	delete(r.byHandle, handle)

	if e, ok := r.byUser[userID]; ok && e.Handle == handle {
		delete(r.byUser, userID)
	}
}

// SetAvailability flips the driver's availability and optionally refreshes
// the location. Without a live entry there is nothing to mutate; the
// persisted is_available flag stays authoritative until the driver
// reconnects.
func (r *Registry) SetAvailability(driverID string, available bool, loc *Location) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byUser[driverID]
	if !ok {
		return
	}
	e.Available = available
	if loc != nil {
		e.Location = &Location{Lat: loc.Lat, Lon: loc.Lon}
	}
	e.LastSeen = time.Now()
}

// UpdateLocation mutates the entry in place. A driver without a live entry
// is silently dropped; losing an advisory location fix is accepted under the
// at-most-once model.
func (r *Registry) UpdateLocation(driverID string, loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byUser[driverID]
	if !ok {
		return
	}
	e.Location = &Location{Lat: loc.Lat, Lon: loc.Lon}
	e.LastSeen = time.Now()
}

// AvailableDrivers returns a snapshot of drivers currently flagged available.
// The snapshot reflects state at call time only.
func (r *Registry) AvailableDrivers() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.byUser {
		if e.Available {
			out = append(out, *e)
		}
	}
	return out
}

// Lookup returns a copy of the live entry for userID, if any.
func (r *Registry) Lookup(userID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byUser[userID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}
