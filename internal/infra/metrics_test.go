package infra

import (
	"testing"
)

func TestMetrics_RecordFrame(t *testing.T) {
	m := &Metrics{}

	m.RecordFrame(1000)
	m.RecordFrame(2000)
	m.RecordFrame(3000)

	snap := m.Snapshot()

	if snap.FramesReceived != 3 {
		t.Errorf("Expected 3 frames, got %d", snap.FramesReceived)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordTicks(5)
	m.RecordTicks(0)
	m.RecordTicks(-1)
	m.RecordDecodeError()
	m.RecordReconnect()
	m.RecordReconnect()
	m.RecordHandlerPanic()

	snap := m.Snapshot()
	if snap.TicksDecoded != 5 {
		t.Errorf("Expected 5 ticks, got %d", snap.TicksDecoded)
	}
	if snap.DecodeErrors != 1 {
		t.Errorf("Expected 1 decode error, got %d", snap.DecodeErrors)
	}
	if snap.Reconnects != 2 {
		t.Errorf("Expected 2 reconnects, got %d", snap.Reconnects)
	}
	if snap.HandlerPanics != 1 {
		t.Errorf("Expected 1 handler panic, got %d", snap.HandlerPanics)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := &Metrics{}

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.ActiveConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", snap.ActiveConnections)
	}

	m.DecrementConnections()
	snap = m.Snapshot()
	if snap.ActiveConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", snap.ActiveConnections)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordFrame(1000)
	m.RecordError()
	m.IncrementConnections()

	m.Reset()
	snap := m.Snapshot()

	if snap.FramesReceived != 0 {
		t.Error("Expected 0 frames after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.ActiveConnections != 0 {
		t.Error("Expected 0 connections after reset")
	}
}
