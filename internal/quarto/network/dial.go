package network

import (
	"context"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// Dialer opens a transport to the server.
type Dialer func(ctx context.Context) (Transport, error)

func TCPDialer(addr string) Dialer {
	return func(ctx context.Context) (Transport, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return NewLineTransport(conn), nil
	}
}

// WSDialer dials a websocket endpoint such as ws://127.0.0.1:5001/ws.
func WSDialer(url string) Dialer {
	return func(ctx context.Context) (Transport, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return NewWSTransport(conn), nil
	}
}

// DialWithRetry dials until it succeeds or ctx is done, waiting interval
// between attempts. onRetry, when set, is told about every failed attempt.
func DialWithRetry(ctx context.Context, dial Dialer, interval time.Duration, onRetry func(err error, wait time.Duration)) (Transport, error) {
	for {
		t, err := dial(ctx)
		if err == nil {
			return t, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if onRetry != nil {
			onRetry(err, interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
