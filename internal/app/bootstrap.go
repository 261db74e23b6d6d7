package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"kite_ticker/internal/domain"
	"kite_ticker/internal/infra"
	"kite_ticker/internal/infra/kite"
	"kite_ticker/internal/infra/storage"
	"kite_ticker/internal/service"
)

const defaultFlushInterval = 10 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string

	Config  *infra.Config
	Logger  *slog.Logger
	Metrics *infra.Metrics
	Storage *storage.Storage
	Service *service.TickService
	Ticker  *kite.Ticker
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize loads config and builds every component. Nothing connects yet.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	slog.Info("Bootstrapping kite ticker", slog.String("version", cfg.App.Version))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized")

	// 4. Tick service and alerts
	b.Metrics = &infra.Metrics{}
	b.Service = service.NewTickService(store, b.Logger.With(slog.String("module", "tick_service")))
	for _, rule := range cfg.Alerts {
		b.Service.AddAlert(domain.NewPendingAlert(rule.Token, rule.Target, rule.Persistent))
	}

	// 5. Ticker
	tk, err := kite.New(kite.Config{
		APIKey:           cfg.Kite.APIKey,
		AccessToken:      cfg.Kite.AccessToken,
		Root:             cfg.Kite.Root,
		DisableReconnect: !cfg.ReconnectEnabled(),
		MaxRetries:       cfg.Kite.MaxRetry,
		MaxDelay:         time.Duration(cfg.Kite.MaxDelaySec) * time.Second,
		Logger:           b.Logger.With(slog.String("module", "kite_ticker")),
		Metrics:          b.Metrics,
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("create ticker: %w", err)
	}
	b.Ticker = tk
	b.wire()

	slog.Info("Ticker ready", slog.Any("policy", tk.ReconnectPolicy()))
	return nil
}

// wire connects ticker events to the service and the log.
func (b *Bootstrap) wire() {
	tk := b.Ticker

	tk.OnConnect(func() {
		slog.Info("Stream connected", slog.Int("subscriptions", len(tk.Subscriptions())))
		tk.Resubscribe()
	})

	tk.OnTicks(func(ticks []domain.Tick) {
		select {
		case b.Service.TickChan() <- ticks:
		default: // DROP
			slog.Warn("Tick batch dropped, service is behind", slog.Int("ticks", len(ticks)))
		}
	})

	tk.OnOrderUpdate(func(o domain.OrderUpdate) {
		slog.Info("Order update",
			slog.String("order_id", o.OrderID),
			slog.String("status", o.Status),
			slog.String("symbol", o.TradingSymbol),
		)
	})

	tk.OnError(func(err error) {
		slog.Warn("Stream error", slog.Any("error", err))
	})

	tk.OnReconnect(func(attempt int, delay time.Duration) {
		slog.Info("Stream reconnecting", slog.Int("attempt", attempt), slog.Duration("delay", delay))
	})

	tk.OnNoReconnect(func(attempts int) {
		slog.Error("Stream gave up reconnecting",
			slog.Int("attempts", attempts), slog.Any("error", domain.ErrMaxRetriesExceeded))
	})
}

// RestoreSubscriptions registers the stored subscriptions plus the tokens
// from config. Config tokens take the configured mode. The ticker sends them
// on the next connect.
func (b *Bootstrap) RestoreSubscriptions() error {
	stored, err := b.Storage.LoadSubscriptions()
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}

	mode := domain.Mode(b.Config.Kite.Mode)
	configured := make(map[uint32]bool, len(b.Config.Kite.Tokens))
	for _, token := range b.Config.Kite.Tokens {
		configured[token] = true
	}

	// Stored tokens first, grouped by mode in a fixed order; config tokens
	// last so their mode wins over a stored one.
	byMode := make(map[domain.Mode][]uint32)
	for token, m := range stored {
		if !configured[token] {
			byMode[m] = append(byMode[m], token)
		}
	}
	modes := make([]domain.Mode, 0, len(byMode))
	for m := range byMode {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })

	for _, m := range modes {
		b.subscribe(m, byMode[m])
	}
	b.subscribe(mode, b.Config.Kite.Tokens)

	slog.Info("Subscriptions restored",
		slog.Int("stored", len(stored)), slog.Int("configured", len(b.Config.Kite.Tokens)))
	return nil
}

func (b *Bootstrap) subscribe(mode domain.Mode, tokens []uint32) {
	if len(tokens) == 0 {
		return
	}
	b.Ticker.Subscribe(tokens)
	if mode != "" {
		b.Ticker.SetMode(mode, tokens)
	}
}

// RunMaintenance flushes snapshots, saves subscriptions and logs metrics
// every interval until ctx is done.
func (b *Bootstrap) RunMaintenance(ctx context.Context) {
	interval := time.Duration(b.Config.Storage.FlushIntervalSec) * time.Second
	if interval <= 0 {
		interval = defaultFlushInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.persist()
			snap := b.Metrics.Snapshot()
			slog.Info("Stream metrics",
				slog.Bool("connected", b.Ticker.IsConnected()),
				slog.Uint64("frames", snap.FramesReceived),
				slog.Uint64("ticks", snap.TicksDecoded),
				slog.Uint64("decode_errors", snap.DecodeErrors),
				slog.Uint64("reconnects", snap.Reconnects),
				slog.Uint64("errors", snap.ErrorsTotal),
				slog.Int64("avg_latency_ns", snap.AvgLatencyNs),
			)
		}
	}
}

func (b *Bootstrap) persist() {
	if n, err := b.Service.Flush(); err != nil {
		slog.Error("Snapshot flush failed", slog.Any("error", err))
	} else if n > 0 {
		slog.Debug("Snapshots flushed", slog.Int("count", n))
	}
	if err := b.Storage.SaveSubscriptions(b.Ticker.Subscriptions()); err != nil {
		slog.Error("Saving subscriptions failed", slog.Any("error", err))
	}
}

// Shutdown stops the ticker, persists final state and closes storage.
func (b *Bootstrap) Shutdown() {
	if b.Ticker != nil {
		b.Ticker.Stop()
	}
	if b.Storage != nil {
		if b.Service != nil && b.Ticker != nil {
			b.persist()
		}
		if err := b.Storage.Close(); err != nil {
			slog.Error("Closing storage failed", slog.Any("error", err))
		}
	}
}
