package realtime

import (
	"fmt"

	"khidma/internal/presence"
	"khidma/internal/shared/util"
)

// Fanout delivers events to live connections through the presence registry.
// Delivery is at-most-once: a recipient without a live entry loses the event,
// and the triggering operation still counts as a success.
type Fanout struct {
	registry *presence.Registry
	logger   *util.Logger
}

func NewFanout(registry *presence.Registry, logger *util.Logger) *Fanout {
	return &Fanout{registry: registry, logger: logger}
}

// Push sends event to userID if a live entry exists; otherwise the event is
// dropped silently.
func (f *Fanout) Push(userID string, event interface{}) {
	entry, ok := f.registry.Lookup(userID)
	if !ok || entry.Conn == nil {
		return
	}
	if err := entry.Conn.Send(event); err != nil {
		f.logger.Warn("Fanout.Push", fmt.Sprintf("delivery to %s failed: %v", userID, err))
		f.registry.Disconnect(entry.Handle)
	}
}

// PushAll delivers the same event to several users.
func (f *Fanout) PushAll(userIDs []string, event interface{}) {
	for _, id := range userIDs {
		f.Push(id, event)
	}
}
