package netmon

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorStartsDisconnected(t *testing.T) {
	m := New(func(context.Context) bool { return true }, time.Hour, nil)
	assert.False(t, m.CheckConnection())
}

func TestMonitorTracksProbe(t *testing.T) {
	var reachable atomic.Bool
	reachable.Store(true)

	m := New(func(context.Context) bool { return reachable.Load() }, 5*time.Millisecond, nil)
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, m.CheckConnection, time.Second, time.Millisecond)

	reachable.Store(false)
	require.Eventually(t, func() bool { return !m.CheckConnection() }, time.Second, time.Millisecond)
}

func TestMonitorCheckDoesNotProbe(t *testing.T) {
	var probes atomic.Int32
	m := New(func(context.Context) bool {
		probes.Add(1)
		return true
	}, time.Hour, nil)

	m.Update(true)
	for i := 0; i < 10; i++ {
		assert.True(t, m.CheckConnection())
	}
	assert.Zero(t, probes.Load())
}

func TestMonitorStopIdempotent(t *testing.T) {
	m := New(func(context.Context) bool { return true }, time.Millisecond, nil)
	m.Start(context.Background())
	m.Start(context.Background())
	m.Stop()
	m.Stop()
}

func TestDialProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	assert.True(t, DialProbe(addr, time.Second)(context.Background()))

	ln.Close()
	assert.False(t, DialProbe(addr, 100*time.Millisecond)(context.Background()))
}

func TestMonitorProbeSeedsState(t *testing.T) {
	var calls atomic.Int32
	m := New(func(context.Context) bool {
		calls.Add(1)
		return true
	}, time.Hour, nil)

	assert.True(t, m.Probe(context.Background()))
	assert.True(t, m.CheckConnection())
	assert.EqualValues(t, 1, calls.Load())
}
