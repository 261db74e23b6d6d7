package kite

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kite_ticker/internal/event"
)

var errClosedConn = errors.New("use of closed network connection")

const waitTimeout = 2 * time.Second

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock fires timers only when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs every due timer on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeFrame struct {
	messageType int
	data        []byte
	err         error
}

type fakeConn struct {
	frames    chan fakeFrame
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan fakeFrame, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		if f.err != nil {
			return 0, nil, f.err
		}
		return f.messageType, f.data, nil
	case <-c.closed:
		return 0, nil, errClosedConn
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errClosedConn
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

func (c *fakeConn) send(messageType int, data []byte) {
	c.frames <- fakeFrame{messageType: messageType, data: data}
}

func (c *fakeConn) fail(err error) {
	c.frames <- fakeFrame{err: err}
}

type fakeDialer struct {
	mu      sync.Mutex
	fail    error
	gate    chan struct{}
	urls    []string
	headers []http.Header

	conns    chan *fakeConn
	dials    atomic.Int32
	returned atomic.Int32
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 16)}
}

func (d *fakeDialer) Dial(ctx context.Context, rawURL string, header http.Header) (Conn, error) {
	defer d.returned.Add(1)
	d.dials.Add(1)

	d.mu.Lock()
	d.urls = append(d.urls, rawURL)
	d.headers = append(d.headers, header)
	fail, gate := d.fail, d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	c := newFakeConn()
	d.conns <- c
	return c, nil
}

func (d *fakeDialer) setFail(err error) {
	d.mu.Lock()
	d.fail = err
	d.mu.Unlock()
}

func (d *fakeDialer) nextConn(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.conns:
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}

// recorder captures every event the ticker emits, in order.
type recorder struct {
	ch chan event.Event
}

func record(tk *Ticker) *recorder {
	r := &recorder{ch: make(chan event.Event, 1024)}
	for _, k := range event.Kinds() {
		tk.On(k, func(ev event.Event) { r.ch <- ev })
	}
	return r
}

func (r *recorder) next(t *testing.T) event.Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// expect reads len(kinds) events and checks their kinds in order.
func (r *recorder) expect(t *testing.T, kinds ...event.Kind) []event.Event {
	t.Helper()
	out := make([]event.Event, 0, len(kinds))
	for i, want := range kinds {
		ev := r.next(t)
		require.Equal(t, want, ev.Kind(), "event %d", i)
		out = append(out, ev)
	}
	return out
}

// nextOf discards events until one of kind arrives.
func (r *recorder) nextOf(t *testing.T, kind event.Kind) event.Event {
	t.Helper()
	for {
		if ev := r.next(t); ev.Kind() == kind {
			return ev
		}
	}
}

func (r *recorder) assertNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.ch:
		t.Fatalf("unexpected %s event: %+v", ev.Kind(), ev)
	default:
	}
}

// flush returns once the loop has handled every command queued before it.
func flush(t *testing.T, tk *Ticker) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, tk.post(cmdSync{done: done}))
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("timed out flushing event loop")
	}
}

func newTestTicker(t *testing.T, mutate func(*Config)) (*Ticker, *fakeDialer, *fakeClock, *recorder) {
	t.Helper()
	d := newFakeDialer()
	c := newFakeClock()
	cfg := Config{
		APIKey:      "test_key",
		AccessToken: "test_token",
		Dialer:      d,
		Clock:       c,
		Logger:      quietLogger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	tk, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(tk.Stop)
	return tk, d, c, record(tk)
}

// connect drives the ticker to Connected and returns the socket.
func connect(t *testing.T, tk *Ticker, d *fakeDialer, rec *recorder) *fakeConn {
	t.Helper()
	tk.Connect()
	conn := d.nextConn(t)
	rec.expect(t, event.KindConnect)
	flush(t, tk)
	require.True(t, tk.IsConnected())
	return conn
}

func ltpFrame(token uint32, raw int32) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint16(b[0:], 1)
	binary.BigEndian.PutUint16(b[2:], 8)
	binary.BigEndian.PutUint32(b[4:], token)
	binary.BigEndian.PutUint32(b[8:], uint32(raw))
	return b
}
