package app_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

// fakeConn records every frame delivered to it.
type fakeConn struct {
	id domain.ConnID

	mu       sync.Mutex
	frames   []core.Frame
	closed   bool
	failSend bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: domain.ConnID(id)}
}

func (c *fakeConn) ID() domain.ConnID { return c.id }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	if c.failSend {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// decoded returns every received frame as a generic map.
func (c *fakeConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

// typesReceived lists the "type" field of every frame, in order.
func (c *fakeConn) typesReceived(t *testing.T) []string {
	t.Helper()
	out := []string{}
	for _, m := range c.decoded(t) {
		s, _ := m["type"].(string)
		out = append(out, s)
	}
	return out
}

func mustRoom(t *testing.T, id string, maxUsers int, temporary bool) *domain.Room {
	t.Helper()
	r, err := domain.NewRoom(domain.RoomID(id), id, maxUsers, 0, temporary)
	require.NoError(t, err)
	return r
}
