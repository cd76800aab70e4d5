package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var ErrConnectionLost = errors.New("connection lost")

const inboundBuffer = 16

// Peer is one live endpoint. A reader goroutine pumps inbound messages into a
// channel so that a blocked Receive can be released by its context without
// disturbing the transport's framing. Once a peer stops being alive it is
// never revived.
type Peer struct {
	transport Transport
	addr      string
	logger    *zap.Logger

	inbound chan string
	done    chan struct{}
	closed  chan struct{}

	alive     atomic.Bool
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func NewPeer(t Transport, logger *zap.Logger) *Peer {
	p := &Peer{
		transport: t,
		addr:      t.RemoteAddr(),
		logger:    logger.With(zap.String("peer", t.RemoteAddr())),
		inbound:   make(chan string, inboundBuffer),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
	p.alive.Store(true)
	go p.pump()
	return p
}

func (p *Peer) pump() {
	defer close(p.done)
	for {
		msg, err := p.transport.ReadMessage()
		if err != nil {
			p.fail(err)
			return
		}
		if msg == "" {
			continue
		}
		p.logger.Debug("received", zap.String("msg", msg))

		select {
		case p.inbound <- msg:
		case <-p.closed:
			return
		}
	}
}

func (p *Peer) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.alive.Store(false)
}

// Err returns the transport error that ended the peer, if any.
func (p *Peer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Peer) lost() error {
	if err := p.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnectionLost, p.addr, err)
	}
	return fmt.Errorf("%w: %s", ErrConnectionLost, p.addr)
}

// Send writes one message. A failure marks the peer dead.
func (p *Peer) Send(msg string) error {
	if !p.Alive() {
		return p.lost()
	}
	if err := p.transport.WriteMessage(msg); err != nil {
		p.fail(err)
		return p.lost()
	}
	p.logger.Debug("sent", zap.String("msg", msg))
	return nil
}

// Receive blocks for the next inbound message. Messages that arrived before
// the transport failed are still delivered. A cancelled ctx returns ctx.Err()
// and leaves the peer alive.
func (p *Peer) Receive(ctx context.Context) (string, error) {
	select {
	case <-p.closed:
		return "", p.lost()
	case msg := <-p.inbound:
		return msg, nil
	default:
	}

	select {
	case msg := <-p.inbound:
		return msg, nil
	case <-p.done:
		select {
		case msg := <-p.inbound:
			return msg, nil
		default:
		}
		p.alive.Store(false)
		return "", p.lost()
	case <-p.closed:
		return "", p.lost()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.alive.Store(false)
		close(p.closed)
		if err := p.transport.Close(); err != nil {
			p.logger.Debug("closing transport", zap.Error(err))
		}
		p.logger.Info("closed connection")
	})
}

func (p *Peer) Alive() bool {
	return p.alive.Load()
}

// Done is closed once the peer can no longer receive.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) RemoteAddr() string {
	return p.addr
}
