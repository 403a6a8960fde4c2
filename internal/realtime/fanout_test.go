package realtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"khidma/internal/presence"
	"khidma/internal/shared/util"
)

type captureConn struct {
	events []interface{}
	fail   bool
}

func (c *captureConn) Send(event interface{}) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events = append(c.events, event)
	return nil
}

func TestFanoutPush(t *testing.T) {
	reg := presence.NewRegistry()
	fanout := NewFanout(reg, util.NewLogger())

	conn := &captureConn{}
	reg.Connect("client-1", "client", "h1", conn)

	fanout.Push("client-1", RefreshChatsEvent{Type: EventRefreshChats})
	require.Len(t, conn.events, 1)

	// absent recipient: dropped silently, no panic
	fanout.Push("nobody", RefreshChatsEvent{Type: EventRefreshChats})
}

func TestFanoutEvictsDeadConnection(t *testing.T) {
	reg := presence.NewRegistry()
	fanout := NewFanout(reg, util.NewLogger())

	reg.Connect("client-1", "client", "h1", &captureConn{fail: true})
	fanout.Push("client-1", RefreshChatsEvent{Type: EventRefreshChats})

	_, ok := reg.Lookup("client-1")
	require.False(t, ok)
}

func TestFanoutPushAll(t *testing.T) {
	reg := presence.NewRegistry()
	fanout := NewFanout(reg, util.NewLogger())

	a := &captureConn{}
	b := &captureConn{}
	reg.Connect("a", "client", "ha", a)
	reg.Connect("b", "artisan", "hb", b)

	fanout.PushAll([]string{"a", "b", "offline"}, RefreshChatsEvent{Type: EventRefreshChats})
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
}
