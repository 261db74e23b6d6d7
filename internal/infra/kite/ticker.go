package kite

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"kite_ticker/internal/domain"
	"kite_ticker/internal/event"
	"kite_ticker/internal/infra"
	"kite_ticker/internal/protocol"
)

// DefaultReadTimeout is how long a connected socket may stay silent.
const DefaultReadTimeout = 5 * time.Second

const (
	cmdBufferSize = 64
	ioBufferSize  = 256
)

// State is the connection state of a Ticker.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Config configures a Ticker. Only APIKey and AccessToken are required.
type Config struct {
	APIKey      string
	AccessToken string
	Root        string

	DisableReconnect bool
	MaxRetries       int
	MaxDelay         time.Duration
	ReadTimeout      time.Duration

	Logger  *slog.Logger
	Metrics *infra.Metrics
	Dialer  Dialer
	Clock   Clock
}

// Ticker is a streaming market-data client. All connection state lives on a
// single event-loop goroutine; the exported methods never block on the network.
type Ticker struct {
	apiKey      string
	accessToken string
	root        string
	readTimeout time.Duration

	logger     *slog.Logger
	metrics    *infra.Metrics
	dialer     Dialer
	clock      Clock
	dispatcher *event.Dispatcher
	subs       *subscriptions
	reconn     *Reconnector

	cmds     chan any
	io       chan any
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc

	state atomic.Int32

	// connMu guards conn for writers outside the loop.
	connMu sync.Mutex
	conn   Conn

	// Owned by the loop goroutine.
	connID         string
	dialID         string
	dialCancel     context.CancelFunc
	lastRead       time.Time
	watchdog       Timer
	watchdogGen    uint64
	reconnectTimer Timer
	reconnectGen   uint64
	exhausted      bool
}

var _ domain.StreamClient = (*Ticker)(nil)

// New validates cfg and starts the ticker's event loop. Call Stop to release it.
func New(cfg Config) (*Ticker, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigError{Field: "api_key", Err: domain.ErrMissingValue}
	}
	if cfg.AccessToken == "" {
		return nil, &domain.ConfigError{Field: "access_token", Err: domain.ErrMissingValue}
	}

	root := cfg.Root
	if root == "" {
		root = DefaultRoot
	}
	if _, err := BuildURL(root, cfg.APIKey, cfg.AccessToken, time.Now()); err != nil {
		return nil, &domain.ConfigError{Field: "root", Err: err}
	}

	t := &Ticker{
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		root:        root,
		readTimeout: cfg.ReadTimeout,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		dialer:      cfg.Dialer,
		clock:       cfg.Clock,
		subs:        newSubscriptions(),
		reconn:      NewReconnector(!cfg.DisableReconnect, cfg.MaxRetries, cfg.MaxDelay),
		cmds:        make(chan any, cmdBufferSize),
		io:          make(chan any, ioBufferSize),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	if t.readTimeout <= 0 {
		t.readTimeout = DefaultReadTimeout
	}
	if t.logger == nil {
		t.logger = slog.Default().With(slog.String("module", "kite_ticker"))
	}
	if t.metrics == nil {
		t.metrics = &infra.Metrics{}
	}
	if t.dialer == nil {
		t.dialer = WebsocketDialer{}
	}
	if t.clock == nil {
		t.clock = realClock{}
	}

	t.dispatcher = event.NewDispatcher(t.logger)
	t.dispatcher.OnPanic = func(event.Kind, any) { t.metrics.RecordHandlerPanic() }

	t.ctx, t.cancel = context.WithCancel(context.Background())
	go t.run()
	return t, nil
}

// Connect opens the socket. It is a no-op while connecting or connected.
func (t *Ticker) Connect() {
	if !t.post(cmdConnect{}) {
		t.logger.Debug("connect ignored", slog.Any("error", domain.ErrClientStopped))
	}
}

// Disconnect closes the socket and cancels any pending reconnect. It never
// triggers a reconnect itself and is safe to call repeatedly.
func (t *Ticker) Disconnect() {
	t.post(cmdDisconnect{})
}

// Stop disconnects and terminates the event loop. Further calls are no-ops.
// It waits for the loop to exit, so it must not be called from a handler.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.quit) })
	<-t.done
}

// IsConnected reports whether the state is Connected.
func (t *Ticker) IsConnected() bool {
	return t.State() == StateConnected
}

func (t *Ticker) State() State {
	return State(t.state.Load())
}

// SetAutoReconnect reconfigures reconnection. Zero maxRetries or maxDelay
// select the defaults. Disabling cancels a pending retry.
func (t *Ticker) SetAutoReconnect(enabled bool, maxRetries int, maxDelay time.Duration) {
	t.reconn.Configure(enabled, maxRetries, maxDelay)
	t.post(cmdAutoReconnect{enabled: enabled})
}

// ReconnectPolicy returns the effective, clamped reconnect settings.
func (t *Ticker) ReconnectPolicy() Policy {
	return t.reconn.Policy()
}

// Subscribe registers tokens and sends a subscribe message if a socket is
// open. The input is returned unchanged; an empty list does nothing.
func (t *Ticker) Subscribe(tokens []uint32) []uint32 {
	if len(tokens) == 0 {
		return tokens
	}
	t.subs.add(tokens)
	t.sendControl(protocol.EncodeSubscribe(tokens))
	return tokens
}

// Unsubscribe is the inverse of Subscribe.
func (t *Ticker) Unsubscribe(tokens []uint32) []uint32 {
	if len(tokens) == 0 {
		return tokens
	}
	t.subs.remove(tokens)
	t.sendControl(protocol.EncodeUnsubscribe(tokens))
	return tokens
}

// SetMode switches tokens to mode. The mode is forwarded without validation.
func (t *Ticker) SetMode(mode domain.Mode, tokens []uint32) []uint32 {
	if len(tokens) == 0 {
		return tokens
	}
	t.subs.setMode(mode, tokens)
	t.sendControl(protocol.EncodeMode(mode, tokens))
	return tokens
}

// Resubscribe resends every registered token, then the mode of each token
// that has one. Typically called from an OnConnect handler.
func (t *Ticker) Resubscribe() {
	tokens := t.subs.tokens()
	if len(tokens) == 0 {
		return
	}
	t.sendControl(protocol.EncodeSubscribe(tokens))

	groups := t.subs.byMode()
	for _, mode := range []domain.Mode{domain.ModeLTP, domain.ModeQuote, domain.ModeFull} {
		if toks := groups[mode]; len(toks) > 0 {
			t.sendControl(protocol.EncodeMode(mode, toks))
			delete(groups, mode)
		}
	}
	for mode, toks := range groups {
		t.sendControl(protocol.EncodeMode(mode, toks))
	}
}

// Subscriptions returns a copy of the token -> mode registry.
func (t *Ticker) Subscriptions() map[uint32]domain.Mode {
	return t.subs.snapshot()
}

// Metrics returns the counters this ticker updates.
func (t *Ticker) Metrics() *infra.Metrics {
	return t.metrics
}

// sendControl writes a text frame to the open socket. Without one, the
// message is dropped.
func (t *Ticker) sendControl(payload []byte, err error) {
	if err != nil {
		t.logger.Error("encode control message", slog.Any("error", err))
		return
	}

	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		t.logger.Debug("control message dropped",
			slog.Any("error", domain.ErrNotConnected), slog.String("payload", string(payload)))
		return
	}
	if err := t.conn.WriteMessage(TextMessage, payload); err != nil {
		t.logger.Warn("control message write failed", slog.Any("error", err))
	}
}

// post hands a command to the loop. It reports false once the loop has exited.
func (t *Ticker) post(msg any) bool {
	select {
	case <-t.done:
		return false
	default:
	}
	select {
	case t.cmds <- msg:
		return true
	case <-t.done:
		return false
	}
}

// postIO is used by dial and reader goroutines.
func (t *Ticker) postIO(msg any) bool {
	select {
	case <-t.done:
		return false
	default:
	}
	select {
	case t.io <- msg:
		return true
	case <-t.done:
		return false
	}
}
