package kite

import (
	"sort"
	"sync"

	"kite_ticker/internal/domain"
)

// subscriptions tracks token -> mode. An empty mode means the token was
// subscribed without an explicit mode and the server default applies.
type subscriptions struct {
	mu    sync.RWMutex
	modes map[uint32]domain.Mode
}

func newSubscriptions() *subscriptions {
	return &subscriptions{modes: make(map[uint32]domain.Mode)}
}

func (s *subscriptions) add(tokens []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range tokens {
		if _, ok := s.modes[tok]; !ok {
			s.modes[tok] = ""
		}
	}
}

func (s *subscriptions) remove(tokens []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range tokens {
		delete(s.modes, tok)
	}
}

func (s *subscriptions) setMode(mode domain.Mode, tokens []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range tokens {
		s.modes[tok] = mode
	}
}

func (s *subscriptions) snapshot() map[uint32]domain.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint32]domain.Mode, len(s.modes))
	for tok, mode := range s.modes {
		out[tok] = mode
	}
	return out
}

// tokens returns every registered token in ascending order.
func (s *subscriptions) tokens() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint32, 0, len(s.modes))
	for tok := range s.modes {
		out = append(out, tok)
	}
	sortTokens(out)
	return out
}

// byMode groups tokens that carry an explicit mode, each group ascending.
func (s *subscriptions) byMode() map[domain.Mode][]uint32 {
	s.mu.RLock()
	out := make(map[domain.Mode][]uint32)
	for tok, mode := range s.modes {
		if mode != "" {
			out[mode] = append(out[mode], tok)
		}
	}
	s.mu.RUnlock()

	for _, toks := range out {
		sortTokens(toks)
	}
	return out
}

func sortTokens(toks []uint32) {
	sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })
}
