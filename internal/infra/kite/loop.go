package kite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kite_ticker/internal/domain"
	"kite_ticker/internal/event"
	"kite_ticker/internal/protocol"
)

// Commands posted by the public API and by timers.
type (
	cmdConnect       struct{}
	cmdDisconnect    struct{}
	cmdAutoReconnect struct{ enabled bool }
	cmdSync          struct{ done chan struct{} }
	reconnectDue     struct{ gen uint64 }
	watchdogDue      struct{ gen uint64 }
)

// Messages posted by dial and reader goroutines, tagged with the socket identity.
type (
	dialResult struct {
		id   string
		conn Conn
		err  error
	}
	inboundFrame struct {
		id          string
		messageType int
		data        []byte
	}
	readFailure struct {
		id  string
		err error
	}
)

func (t *Ticker) run() {
	defer close(t.done)
	defer t.cancel()

	for {
		select {
		case <-t.quit:
			t.handleDisconnect()
			t.logger.Info("ticker stopped")
			return
		case msg := <-t.cmds:
			t.dispatch(msg)
		case msg := <-t.io:
			t.dispatch(msg)
		}
	}
}

func (t *Ticker) dispatch(msg any) {
	switch m := msg.(type) {
	case cmdConnect:
		t.handleConnect()
	case cmdDisconnect:
		t.handleDisconnect()
	case cmdAutoReconnect:
		if !m.enabled {
			t.stopReconnectTimer()
		}
	case cmdSync:
		close(m.done)
	case reconnectDue:
		t.handleReconnectDue(m)
	case watchdogDue:
		t.handleWatchdog(m)
	case dialResult:
		t.handleDial(m)
	case inboundFrame:
		t.handleFrame(m)
	case readFailure:
		t.handleReadFailure(m)
	default:
		t.logger.Warn("unknown loop message", slog.Any("message", msg))
	}
}

func (t *Ticker) setState(s State) {
	prev := State(t.state.Swap(int32(s)))
	if prev != s {
		t.logger.Debug("state changed", slog.String("from", prev.String()), slog.String("to", s.String()))
	}
}

func (t *Ticker) emit(ev event.Event) {
	t.dispatcher.Emit(ev)
}

func (t *Ticker) handleConnect() {
	switch t.State() {
	case StateConnecting, StateConnected:
		return
	}
	if t.exhausted {
		// Manual connect after the ceiling starts a fresh retry series.
		t.exhausted = false
		t.reconn.Reset()
	}
	t.startDial()
}

func (t *Ticker) startDial() {
	t.stopReconnectTimer()
	t.setState(StateConnecting)

	id := uuid.NewString()
	t.dialID = id

	rawURL, err := BuildURL(t.root, t.apiKey, t.accessToken, t.clock.Now())
	if err != nil {
		t.handleDial(dialResult{id: id, err: err})
		return
	}

	ctx, cancel := context.WithCancel(t.ctx)
	t.dialCancel = cancel
	header := requestHeader()

	t.logger.Info("connecting", slog.String("conn_id", id), slog.String("root", t.root))
	go func() {
		conn, err := t.dialer.Dial(ctx, rawURL, header)
		if !t.postIO(dialResult{id: id, conn: conn, err: err}) && conn != nil {
			conn.Close()
		}
	}()
}

func (t *Ticker) handleDial(r dialResult) {
	if r.id != t.dialID {
		// Superseded by Disconnect or a newer attempt.
		if r.conn != nil {
			r.conn.Close()
		}
		return
	}
	t.dialID = ""
	if t.dialCancel != nil {
		t.dialCancel()
		t.dialCancel = nil
	}

	if r.err != nil {
		err := domain.NewNetworkError("dial", r.id, fmt.Errorf("%w: %w", domain.ErrConnectionFailed, r.err))
		t.logger.Warn("connect failed", slog.String("conn_id", r.id), slog.Any("error", r.err))
		t.metrics.RecordError()
		t.emit(event.ErrorEvent{Err: err})
		t.setState(StateClosing)
		t.emit(event.CloseEvent{Err: err})
		t.setState(StateDisconnected)
		t.emit(event.DisconnectEvent{Err: err})
		t.scheduleReconnect()
		return
	}

	t.connMu.Lock()
	t.conn = r.conn
	t.connMu.Unlock()
	t.connID = r.id
	t.metrics.IncrementConnections()

	t.reconn.Reset()
	t.exhausted = false
	t.setState(StateConnected)
	t.lastRead = t.clock.Now()
	t.armWatchdog(t.readTimeout)

	go t.readLoop(r.id, r.conn)

	t.logger.Info("connected", slog.String("conn_id", r.id))
	t.emit(event.ConnectEvent{ConnID: r.id})
}

func (t *Ticker) readLoop(id string, conn Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.postIO(readFailure{id: id, err: err})
			return
		}
		if !t.postIO(inboundFrame{id: id, messageType: mt, data: data}) {
			return
		}
	}
}

func (t *Ticker) handleFrame(f inboundFrame) {
	if f.id != t.connID {
		return
	}
	start := time.Now()
	t.lastRead = t.clock.Now()

	switch f.messageType {
	case BinaryMessage:
		t.emit(event.MessageEvent{Data: f.data})
		if len(f.data) > 2 {
			ticks, err := protocol.Decode(f.data)
			if err != nil {
				t.metrics.RecordDecodeError()
				t.logger.Debug("truncated frame", slog.Int("bytes", len(f.data)), slog.Any("error", err))
			}
			if len(ticks) > 0 {
				t.metrics.RecordTicks(len(ticks))
				t.emit(event.TicksEvent{Ticks: ticks})
			}
		}
	case TextMessage:
		if order, ok := protocol.ParseOrderUpdate(f.data); ok {
			t.emit(event.OrderUpdateEvent{Order: order})
		}
	}

	t.metrics.RecordFrame(time.Since(start).Nanoseconds())
}

func (t *Ticker) handleReadFailure(r readFailure) {
	if r.id != t.connID {
		return
	}

	var closeErr *websocket.CloseError
	reason := r.err
	if !errors.As(r.err, &closeErr) {
		reason = domain.NewNetworkError("read", r.id, r.err)
		t.metrics.RecordError()
		t.emit(event.ErrorEvent{Err: reason})
	}

	t.setState(StateClosing)
	t.teardownConn()
	t.logger.Info("connection closed", slog.String("conn_id", r.id), slog.Any("reason", r.err))
	t.emit(event.CloseEvent{Err: reason})
	t.setState(StateDisconnected)
	t.emit(event.DisconnectEvent{Err: reason})
	t.scheduleReconnect()
}

func (t *Ticker) handleDisconnect() {
	t.stopReconnectTimer()

	if t.dialID != "" {
		t.dialID = ""
		if t.dialCancel != nil {
			t.dialCancel()
			t.dialCancel = nil
		}
	}

	if t.connID != "" {
		id := t.connID
		t.setState(StateClosing)
		t.teardownConn()
		t.logger.Info("disconnected", slog.String("conn_id", id))
		t.emit(event.CloseEvent{})
	}
	t.setState(StateDisconnected)
}

// teardownConn forgets the current socket and closes it. Anything its reader
// reports afterwards is ignored.
func (t *Ticker) teardownConn() {
	t.stopWatchdog()
	t.connID = ""

	t.connMu.Lock()
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()

	if conn != nil {
		conn.Close()
		t.metrics.DecrementConnections()
	}
}

func (t *Ticker) armWatchdog(d time.Duration) {
	t.watchdogGen++
	gen := t.watchdogGen
	t.watchdog = t.clock.AfterFunc(d, func() { t.post(watchdogDue{gen: gen}) })
}

func (t *Ticker) stopWatchdog() {
	if t.watchdog != nil {
		t.watchdog.Stop()
		t.watchdog = nil
	}
	t.watchdogGen++
}

func (t *Ticker) handleWatchdog(w watchdogDue) {
	if w.gen != t.watchdogGen || t.State() != StateConnected {
		return
	}
	t.watchdog = nil

	idle := t.clock.Now().Sub(t.lastRead)
	if idle < t.readTimeout {
		t.armWatchdog(t.readTimeout - idle)
		return
	}

	id := t.connID
	t.logger.Warn("no data from server, dropping connection",
		slog.String("conn_id", id), slog.Duration("idle", idle))
	t.setState(StateClosing)
	t.teardownConn()
	t.setState(StateDisconnected)
	t.emit(event.DisconnectEvent{Err: domain.NewNetworkError("watchdog", id, domain.ErrStaleConnection)})
	t.scheduleReconnect()
}

func (t *Ticker) scheduleReconnect() {
	if t.exhausted || !t.reconn.Enabled() {
		return
	}

	attempt, delay, ok := t.reconn.Next()
	if !ok {
		t.exhausted = true
		t.logger.Error("giving up reconnecting", slog.Int("attempts", attempt-1))
		t.emit(event.NoReconnectEvent{Attempts: attempt - 1, Err: domain.ErrMaxRetriesExceeded})
		return
	}

	t.metrics.RecordReconnect()
	t.logger.Info("reconnecting", slog.Int("attempt", attempt), slog.Duration("delay", delay))
	t.emit(event.ReconnectEvent{Attempt: attempt, Delay: delay})

	// A Connect or Disconnect queued by a handler stops this timer when it runs.
	t.reconnectGen++
	gen := t.reconnectGen
	t.reconnectTimer = t.clock.AfterFunc(delay, func() { t.post(reconnectDue{gen: gen}) })
}

func (t *Ticker) stopReconnectTimer() {
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
	t.reconnectGen++
}

func (t *Ticker) handleReconnectDue(r reconnectDue) {
	if r.gen != t.reconnectGen {
		return
	}
	t.reconnectTimer = nil
	if t.State() != StateDisconnected {
		return
	}
	t.startDial()
}
