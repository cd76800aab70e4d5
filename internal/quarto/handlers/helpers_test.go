package handlers

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quarto/internal/quarto/models"
	"quarto/internal/quarto/network"
)

const waitFor = 2 * time.Second

// testClient is the far end of a server side peer.
type testClient struct {
	t    *testing.T
	peer *network.Peer
}

// newPipe returns a server side peer and the client talking to it.
func newPipe(t *testing.T) (*network.Peer, *testClient) {
	t.Helper()
	a, b := net.Pipe()
	server := network.NewPeer(network.NewLineTransport(a), zap.NewNop())
	client := network.NewPeer(network.NewLineTransport(b), zap.NewNop())
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, &testClient{t: t, peer: client}
}

func (c *testClient) send(msg string) {
	c.t.Helper()
	require.NoError(c.t, c.peer.Send(msg))
}

func (c *testClient) recv() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	return c.peer.Receive(ctx)
}

func (c *testClient) expect(want string) {
	c.t.Helper()
	msg, err := c.recv()
	require.NoError(c.t, err)
	assert.Equal(c.t, want, msg)
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	_, err := c.recv()
	assert.ErrorIs(c.t, err, network.ErrConnectionLost)
}

type requeueRecorder struct {
	mu    sync.Mutex
	peers []*network.Peer
}

func (r *requeueRecorder) offer(p *network.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers = append(r.peers, p)
}

func (r *requeueRecorder) offered() []*network.Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*network.Peer(nil), r.peers...)
}

type recorderStub struct {
	mu      sync.Mutex
	results []models.GameResult
}

func (r *recorderStub) Record(_ context.Context, res models.GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *recorderStub) outcomes() []models.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Outcome
	for _, res := range r.results {
		out = append(out, res.Outcome)
	}
	return out
}
