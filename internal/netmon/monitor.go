// Package netmon tracks whether the network is reachable.
//
// A background goroutine probes periodically and stores the result; readers
// get the last observed value without blocking on a fresh probe.
package netmon

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ProbeFunc reports whether the network is currently usable.
type ProbeFunc func(ctx context.Context) bool

// DialProbe returns a ProbeFunc that succeeds when a TCP connection to
// address can be opened within timeout.
func DialProbe(address string, timeout time.Duration) ProbeFunc {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Monitor holds the last observed reachability.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	logger   *slog.Logger

	connected atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor. It reports disconnected until the first probe completes.
func New(probe ProbeFunc, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		logger:   logger.With("component", "netmon"),
	}
}

// Start launches the probe loop. The first probe runs immediately.
// Calling Start on a running monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx, m.done)
}

// Stop ends the probe loop and waits for it to exit. It is idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Update(m.probe(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ok := m.probe(ctx); ctx.Err() == nil {
				m.Update(ok)
			}
		}
	}
}

// Update records a reachability observation, logging transitions.
func (m *Monitor) Update(connected bool) {
	was := m.connected.Swap(connected)
	if was != connected {
		if connected {
			m.logger.Info("network connected")
		} else {
			m.logger.Info("network disconnected")
		}
	}
}

// CheckConnection returns the most recently observed value.
func (m *Monitor) CheckConnection() bool {
	return m.connected.Load()
}

// Probe runs one probe now, records it and returns the result. Use it to
// seed the state before the first read.
func (m *Monitor) Probe(ctx context.Context) bool {
	ok := m.probe(ctx)
	if ctx.Err() == nil {
		m.Update(ok)
	}
	return ok
}
