package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quarto/internal/quarto/models"
	"quarto/internal/quarto/network"
	"quarto/internal/quarto/protocol"
)

type sessionHarness struct {
	t       *testing.T
	servers [2]*network.Peer
	clients [2]*testClient
	requeue *requeueRecorder
	cancel  context.CancelFunc
	done    chan models.GameResult
	turn    models.Turn
}

func startSession(t *testing.T, starter models.Slot, readyTimeout time.Duration) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		t:       t,
		requeue: &requeueRecorder{},
		done:    make(chan models.GameResult, 1),
		turn:    models.Turn{Player: starter, Phase: models.Choosing},
	}
	for i := range h.servers {
		h.servers[i], h.clients[i] = newPipe(t)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	t.Cleanup(cancel)

	s := NewSession(h.servers[0], h.servers[1], starter, readyTimeout, h.requeue.offer, zap.NewNop())
	go func() { h.done <- s.Run(ctx) }()
	return h
}

func (h *sessionHarness) client(slot models.Slot) *testClient {
	return h.clients[slot-1]
}

// ready consumes the start messages and acknowledges them.
func (h *sessionHarness) ready() {
	h.t.Helper()
	for i, c := range h.clients {
		c.expect(protocol.FormatStart(models.Slot(i+1), h.turn.Player))
	}
	for _, c := range h.clients {
		c.send(protocol.Ready)
	}
}

// step plays one exchange: the active player sends value, the other the
// placeholder, and both expect the echo.
func (h *sessionHarness) step(value string) {
	h.t.Helper()
	h.client(h.turn.Player).send(value)
	h.client(h.turn.Player.Other()).send(protocol.Placeholder)
	for _, c := range h.clients {
		c.expect(value)
	}
	h.turn = h.turn.Next()
}

func (h *sessionHarness) result() models.GameResult {
	h.t.Helper()
	select {
	case r := <-h.done:
		return r
	case <-time.After(waitFor):
		h.t.Fatal("session did not end")
		return models.GameResult{}
	}
}

func TestSessionPlaysToWin(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)
	h.ready()

	for col, piece := range []string{"1000", "1010", "1100", "1110"} {
		h.step(piece)
		h.step(protocol.RenderLocation(0, col))
	}

	r := h.result()
	assert.Equal(t, models.OutcomeWin, r.Outcome)
	assert.Equal(t, models.Player1, r.Winner)
	assert.Equal(t, 4, r.Rounds)
	assert.Equal(t, h.turn.Player, r.Winner)
	for _, c := range h.clients {
		c.expectClosed()
	}
	assert.Empty(t, h.requeue.offered())
}

func TestSessionTurnAlternation(t *testing.T) {
	h := startSession(t, models.Player2, waitFor)
	h.ready()

	// the chooser of each round is the placer of the previous one
	h.step("0000")
	require.Equal(t, models.Turn{Player: models.Player1, Phase: models.Placing}, h.turn)
	h.step("(1, 1)")
	require.Equal(t, models.Turn{Player: models.Player1, Phase: models.Choosing}, h.turn)
	h.step("0001")
	require.Equal(t, models.Turn{Player: models.Player2, Phase: models.Placing}, h.turn)
	h.step("(2, 2)")
	require.Equal(t, models.Turn{Player: models.Player2, Phase: models.Choosing}, h.turn)

	h.cancel()
	assert.Equal(t, models.OutcomeReset, h.result().Outcome)
}

var drawPieces = []string{
	"0000", "0001", "0010", "1100",
	"0011", "0100", "0101", "1000",
	"0110", "1001", "1010", "1111",
	"1011", "1110", "1101", "0111",
}

func TestSessionDraw(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)
	h.ready()

	for i, piece := range drawPieces {
		h.step(piece)
		h.step(protocol.RenderLocation(i/models.Size, i%models.Size))
	}

	r := h.result()
	assert.Equal(t, models.OutcomeDraw, r.Outcome)
	assert.Equal(t, models.NoSlot, r.Winner)
	assert.Equal(t, models.PieceCount, r.Rounds)
}

func TestSessionDiscardsStaleMessagesBeforeReady(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)

	h.clients[0].expect("1,1")
	h.clients[1].expect("2,1")
	h.clients[0].send("1000")
	h.clients[1].send(protocol.Placeholder)
	h.clients[0].send(protocol.Ready)
	h.clients[1].send(protocol.Ready)

	h.step("0101")
	h.step("(3, 3)")

	h.cancel()
	h.result()
}

func TestSessionDisconnectRequeuesSurvivor(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)
	h.ready()
	h.step("1000")

	// player 2 should place but drops instead
	h.client(models.Player1).send(protocol.Placeholder)
	h.client(models.Player2).peer.Close()

	r := h.result()
	assert.Equal(t, models.OutcomeAborted, r.Outcome)

	offered := h.requeue.offered()
	require.Len(t, offered, 1)
	assert.Same(t, h.servers[0], offered[0])
	assert.True(t, h.servers[0].Alive())
	assert.False(t, h.servers[1].Alive())
}

func TestSessionDisconnectOfIdlePlayer(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)
	h.ready()

	// the chooser is still thinking when its opponent drops
	h.client(models.Player2).peer.Close()

	assert.Equal(t, models.OutcomeAborted, h.result().Outcome)
	offered := h.requeue.offered()
	require.Len(t, offered, 1)
	assert.Same(t, h.servers[0], offered[0])
}

func TestSessionRejectsPlayedPiece(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)
	h.ready()
	h.step("1000")
	h.step("(0, 0)")

	// player 2 now chooses and offers a piece already on the board
	h.client(models.Player2).send("1000")
	h.client(models.Player1).send(protocol.Placeholder)

	assert.Equal(t, models.OutcomeAborted, h.result().Outcome)
	h.client(models.Player2).expectClosed()
	offered := h.requeue.offered()
	require.Len(t, offered, 1)
	assert.Same(t, h.servers[0], offered[0])
}

func TestSessionRejectsOccupiedCell(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)
	h.ready()
	h.step("1000")
	h.step("(0, 0)")
	h.step("0100")

	// player 1 places onto the occupied cell
	h.client(models.Player1).send("(0, 0)")
	h.client(models.Player2).send(protocol.Placeholder)

	assert.Equal(t, models.OutcomeAborted, h.result().Outcome)
	offered := h.requeue.offered()
	require.Len(t, offered, 1)
	assert.Same(t, h.servers[1], offered[0])
}

func TestSessionToleratesDesync(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)
	h.ready()

	// the inactive player sends a conflicting piece instead of the placeholder
	h.client(models.Player1).send("1000")
	h.client(models.Player2).send("0001")
	for _, c := range h.clients {
		c.expect("1000")
	}
	h.turn = h.turn.Next()

	h.step("(1, 2)")
	h.cancel()
	assert.Equal(t, models.OutcomeReset, h.result().Outcome)
}

func TestSessionCancelClosesBoth(t *testing.T) {
	h := startSession(t, models.Player1, waitFor)
	h.ready()
	h.cancel()

	assert.Equal(t, models.OutcomeReset, h.result().Outcome)
	for _, c := range h.clients {
		c.expectClosed()
	}
	assert.Empty(t, h.requeue.offered())
}

func TestSessionReadyTimeout(t *testing.T) {
	h := startSession(t, models.Player2, 50*time.Millisecond)
	h.clients[0].expect("1,2")
	h.clients[1].expect("2,2")
	h.clients[0].send(protocol.Ready)

	assert.Equal(t, models.OutcomeAborted, h.result().Outcome)
	h.clients[1].expectClosed()
	offered := h.requeue.offered()
	require.Len(t, offered, 1)
	assert.Same(t, h.servers[0], offered[0])
}
