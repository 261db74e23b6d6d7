package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight stream observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	framesReceived atomic.Uint64
	ticksDecoded   atomic.Uint64
	decodeErrors   atomic.Uint64
	reconnects     atomic.Uint64
	handlerPanics  atomic.Uint64
	errorsTotal    atomic.Uint64

	// Frame handling latency
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// RecordFrame records one inbound frame and how long it took to handle.
func (m *Metrics) RecordFrame(latencyNs int64) {
	m.framesReceived.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordTicks adds n decoded ticks.
func (m *Metrics) RecordTicks(n int) {
	if n > 0 {
		m.ticksDecoded.Add(uint64(n))
	}
}

func (m *Metrics) RecordDecodeError() {
	m.decodeErrors.Add(1)
}

func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

func (m *Metrics) RecordHandlerPanic() {
	m.handlerPanics.Add(1)
}

// RecordError records a transport error.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	FramesReceived    uint64
	TicksDecoded      uint64
	DecodeErrors      uint64
	Reconnects        uint64
	HandlerPanics     uint64
	ErrorsTotal       uint64
	AvgLatencyNs      int64
	ActiveConnections int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		FramesReceived:    m.framesReceived.Load(),
		TicksDecoded:      m.ticksDecoded.Load(),
		DecodeErrors:      m.decodeErrors.Load(),
		Reconnects:        m.reconnects.Load(),
		HandlerPanics:     m.handlerPanics.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.framesReceived.Store(0)
	m.ticksDecoded.Store(0)
	m.decodeErrors.Store(0)
	m.reconnects.Store(0)
	m.handlerPanics.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
}
