package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"kite_ticker/internal/domain"

	"github.com/shopspring/decimal"
)

// AlertHandler is called when an alert fires, outside the service lock.
type AlertHandler func(alert domain.AlertConfig, price decimal.Decimal)

// TickService keeps the latest snapshot of every instrument seen on the stream
// and evaluates price alerts against it.
type TickService struct {
	mu        sync.RWMutex
	snapshots map[uint32]*domain.InstrumentSnapshot
	dirty     map[uint32]struct{}
	alerts    []*domain.AlertConfig
	onAlert   AlertHandler

	repo     domain.SnapshotRepository
	tickChan chan []domain.Tick
	logger   *slog.Logger
}

// NewTickService creates a TickService. repo may be nil, in which case Flush
// does nothing.
func NewTickService(repo domain.SnapshotRepository, logger *slog.Logger) *TickService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickService{
		snapshots: make(map[uint32]*domain.InstrumentSnapshot),
		dirty:     make(map[uint32]struct{}),
		repo:      repo,
		tickChan:  make(chan []domain.Tick, 1000), // enough buffer for bursts
		logger:    logger,
	}
}

// AddAlert registers an alert. Alerts are evaluated on every tick of their token.
func (s *TickService) AddAlert(alert *domain.AlertConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
}

// SetAlertHandler sets the callback for fired alerts.
func (s *TickService) SetAlertHandler(h AlertHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAlert = h
}

// ActiveAlerts returns how many alerts can still fire.
func (s *TickService) ActiveAlerts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alerts {
		if a.IsActive() {
			n++
		}
	}
	return n
}

// TickChan returns the channel for incoming tick batches
func (s *TickService) TickChan() chan<- []domain.Tick {
	return s.tickChan
}

// StartTickProcessor starts a background goroutine to process ticks from the channel
func (s *TickService) StartTickProcessor(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ticks := <-s.tickChan:
				s.ProcessTicks(ticks)
			}
		}
	}()
}

type firedAlert struct {
	alert domain.AlertConfig
	price decimal.Decimal
}

// ProcessTicks merges ticks into the snapshots and fires matching alerts.
func (s *TickService) ProcessTicks(ticks []domain.Tick) {
	var fired []firedAlert

	s.mu.Lock()
	now := time.Now()
	for i := range ticks {
		tick := &ticks[i]
		snap, exists := s.snapshots[tick.InstrumentToken]
		if !exists {
			snap = &domain.InstrumentSnapshot{InstrumentToken: tick.InstrumentToken}
			s.snapshots[tick.InstrumentToken] = snap
		}
		applyTick(snap, tick)
		snap.UpdatedAt = now
		s.dirty[tick.InstrumentToken] = struct{}{}

		for _, a := range s.alerts {
			if a.InstrumentToken == tick.InstrumentToken && a.Observe(snap.LastPrice) {
				fired = append(fired, firedAlert{alert: *a, price: snap.LastPrice})
			}
		}
	}
	handler := s.onAlert
	s.mu.Unlock()

	for _, f := range fired {
		s.logger.Info("price alert triggered",
			slog.Any("token", f.alert.InstrumentToken),
			slog.String("target", f.alert.TargetPrice.String()),
			slog.String("price", f.price.String()),
			slog.String("direction", string(f.alert.Direction)),
		)
		if handler != nil {
			handler(f.alert, f.price)
		}
	}
}

// applyTick copies the fields carried by tick's mode. Fields an LTP tick does
// not carry keep their previous values.
// Must be called with lock held
func applyTick(snap *domain.InstrumentSnapshot, tick *domain.Tick) {
	snap.Mode = tick.Mode
	snap.LastPrice = decimal.NewFromFloat(tick.LastPrice)
	if tick.Mode == domain.ModeLTP {
		return
	}

	snap.Close = decimal.NewFromFloat(tick.OHLC.Close)
	snap.ChangePct = decimal.NewFromFloat(tick.NetChange).Round(4)
	if tick.ExchangeTimestamp != nil {
		t := *tick.ExchangeTimestamp
		snap.ExchangeTime = &t
	}
	if tick.IsIndex {
		return
	}

	snap.Volume = tick.VolumeTraded
	if tick.Mode == domain.ModeFull {
		snap.OI = tick.OI
		snap.BestBid = decimal.Zero
		snap.BestAsk = decimal.Zero
		if bid, ok := tick.BestBid(); ok {
			snap.BestBid = decimal.NewFromFloat(bid.Price)
		}
		if ask, ok := tick.BestAsk(); ok {
			snap.BestAsk = decimal.NewFromFloat(ask.Price)
		}
	}
}

// GetSnapshot returns a copy of the snapshot for token, or nil.
func (s *TickService) GetSnapshot(token uint32) *domain.InstrumentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[token]
	if !ok {
		return nil
	}
	cp := *snap
	return &cp
}

// GetAllSnapshots returns copies of all snapshots sorted by token
func (s *TickService) GetAllSnapshots() []domain.InstrumentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InstrumentSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		result = append(result, *snap)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].InstrumentToken < result[j].InstrumentToken
	})

	return result
}

// Flush writes snapshots changed since the last successful flush to the
// repository and returns how many were written.
func (s *TickService) Flush() (int, error) {
	if s.repo == nil {
		return 0, nil
	}

	s.mu.Lock()
	batch := make([]domain.InstrumentSnapshot, 0, len(s.dirty))
	for token := range s.dirty {
		if snap, ok := s.snapshots[token]; ok {
			batch = append(batch, *snap)
		}
	}
	s.dirty = make(map[uint32]struct{})
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.repo.SaveSnapshots(batch); err != nil {
		// Put them back so the next flush retries.
		s.mu.Lock()
		for _, snap := range batch {
			s.dirty[snap.InstrumentToken] = struct{}{}
		}
		s.mu.Unlock()
		return 0, err
	}
	return len(batch), nil
}
