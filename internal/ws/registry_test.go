package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareConnection() *Connection {
	return NewConnection(nil, 1, time.Second)
}

func TestRegistryJoinLeave(t *testing.T) {
	r := NewRegistry()
	conn := newBareConnection()

	r.Join("s1", conn)
	require.Len(t, r.Connections("s1"), 1)

	// Joining twice is a no-op.
	r.Join("s1", conn)
	require.Len(t, r.Connections("s1"), 1)

	r.Leave("s1", conn)
	assert.Empty(t, r.Connections("s1"))

	stats := r.Stats()
	assert.Equal(t, 0, stats["active_sessions"])
	assert.Equal(t, 0, stats["total_connections"])
}

func TestRegistryScopesBySession(t *testing.T) {
	r := NewRegistry()
	a, b, c := newBareConnection(), newBareConnection(), newBareConnection()

	r.Join("s1", a)
	r.Join("s1", b)
	r.Join("s2", c)

	assert.Len(t, r.Connections("s1"), 2)
	assert.Len(t, r.Connections("s2"), 1)
	assert.Empty(t, r.Connections("s3"))

	for _, conn := range r.Connections("s1") {
		assert.NotEqual(t, c.ID(), conn.ID())
	}
}

func TestRegistryLeaveAll(t *testing.T) {
	r := NewRegistry()
	conn := newBareConnection()
	other := newBareConnection()

	r.Join("s1", conn)
	r.Join("s2", conn)
	r.Join("s1", other)

	sessions := r.LeaveAll(conn)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessions)

	assert.Len(t, r.Connections("s1"), 1)
	assert.Empty(t, r.Connections("s2"))

	// A second LeaveAll reports nothing.
	assert.Empty(t, r.LeaveAll(conn))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			conn := newBareConnection()
			for j := 0; j < 100; j++ {
				r.Join("s1", conn)
				r.Connections("s1")
				r.Leave("s1", conn)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Empty(t, r.Connections("s1"))
}
