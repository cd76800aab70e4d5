package handlers

import (
	"sync"

	"go.uber.org/zap"

	"quarto/internal/quarto/network"
)

// PairFunc takes ownership of two matched peers.
type PairFunc func(first, second *network.Peer)

// Matchmaker holds at most one peer waiting for an opponent.
type Matchmaker struct {
	pair   PairFunc
	logger *zap.Logger

	mu      sync.Mutex
	waiting *network.Peer
	closed  bool
}

func NewMatchmaker(pair PairFunc, logger *zap.Logger) *Matchmaker {
	return &Matchmaker{pair: pair, logger: logger}
}

// Offer queues p, or pairs it with the waiting peer. A waiting peer that
// has died since it was queued is dropped and p waits in its place.
func (m *Matchmaker) Offer(p *network.Peer) {
	if !p.Alive() {
		p.Close()
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		p.Close()
		return
	}

	stale := m.waiting
	if stale != nil && stale.Alive() {
		m.waiting = nil
		m.mu.Unlock()

		m.logger.Info("creating game",
			zap.String("first", stale.RemoteAddr()),
			zap.String("second", p.RemoteAddr()))
		m.pair(stale, p)
		return
	}

	m.waiting = p
	m.mu.Unlock()

	if stale != nil {
		m.logger.Info("dropping disconnected waiting player", zap.String("peer", stale.RemoteAddr()))
		stale.Close()
	}
	m.logger.Info("player waiting for an opponent", zap.String("peer", p.RemoteAddr()))
}

// Waiting returns the queued peer, if any.
func (m *Matchmaker) Waiting() *network.Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting
}

// Clear closes and removes the waiting peer.
func (m *Matchmaker) Clear() {
	m.mu.Lock()
	p := m.waiting
	m.waiting = nil
	m.mu.Unlock()

	if p != nil {
		p.Close()
	}
}

// Close clears the queue and refuses every later offer.
func (m *Matchmaker) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.Clear()
}
