package handlers

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quarto/internal/quarto/config"
	"quarto/internal/quarto/models"
	"quarto/internal/quarto/network"
	"quarto/internal/quarto/protocol"
)

var ErrServerStarted = errors.New("server already started")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server accepts players, pairs them through the Matchmaker and runs one
// Session per pair.
type Server struct {
	cfg        *config.Config
	recorder   Recorder
	matchmaker *Matchmaker
	logger     *zap.Logger

	results  chan models.GameResult
	recorded chan struct{}

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	rng      *rand.Rand
	sessions map[string]context.CancelFunc
	peers    map[*network.Peer]struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewServer builds a server. recorder may be nil, in which case finished
// games are only logged.
func NewServer(cfg *config.Config, recorder Recorder, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
		results:  make(chan models.GameResult, 64),
		recorded: make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]context.CancelFunc),
		peers:    make(map[*network.Peer]struct{}),
	}
	s.matchmaker = NewMatchmaker(s.startSession, logger)
	return s
}

// ListenAndServe listens on the configured TCP address, and on the
// websocket port when one is set.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return err
	}

	var wsLn net.Listener
	if s.cfg.WSPort != 0 {
		wsLn, err = net.Listen("tcp", s.cfg.WSListenAddr())
		if err != nil {
			ln.Close()
			return err
		}
	}
	return s.Serve(ctx, ln, wsLn)
}

// Serve runs until ctx is cancelled or an admin stop arrives, then closes
// every open connection. wsLn may be nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener, wsLn net.Listener) error {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return ErrServerStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	sctx := s.ctx
	s.mu.Unlock()

	go s.recordResults()

	var ws *http.Server
	if wsLn != nil {
		ws = s.serveWS(wsLn)
	}

	s.logger.Info("server is listening", zap.String("addr", ln.Addr().String()))

	accepted := make(chan struct{})
	go func() {
		defer close(accepted)
		s.acceptNewConns(sctx, ln)
	}()

	<-sctx.Done()

	s.mu.Lock()
	s.stopped = true
	peers := make([]*network.Peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	ln.Close()
	if ws != nil {
		ws.Close()
	}
	<-accepted

	s.matchmaker.Close()
	for _, p := range peers {
		p.Close()
	}
	s.wg.Wait()

	close(s.results)
	<-s.recorded
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) acceptNewConns(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accepting connection error", zap.Error(err))
			continue
		}

		s.logger.Info("new connection", zap.String("peer", conn.RemoteAddr().String()))
		s.handle(network.NewLineTransport(conn))
	}
}

func (s *Server) serveWS(ln net.Listener) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.websocketHandler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("websocket server failed", zap.Error(err))
		}
	}()
	s.logger.Info("websocket endpoint is listening", zap.String("addr", ln.Addr().String()))
	return srv
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Info("websocket upgrade failed", zap.Error(err))
		return
	}

	s.logger.Info("new websocket connection", zap.String("peer", ws.RemoteAddr().String()))
	s.handle(network.NewWSTransport(ws))
}

// handle wraps a fresh transport in a peer and reads its handshake.
func (s *Server) handle(t network.Transport) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		t.Close()
		return
	}
	peer := network.NewPeer(t, s.logger)
	s.peers[peer] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		<-peer.Done()
		s.mu.Lock()
		delete(s.peers, peer)
		s.mu.Unlock()
	}()

	go func() {
		defer s.wg.Done()
		s.handshake(peer)
	}()
}

func (s *Server) handshake(peer *network.Peer) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout.Duration)
	role, err := peer.Receive(ctx)
	cancel()
	if err != nil {
		s.logger.Info("handshake failed", zap.String("peer", peer.RemoteAddr()), zap.Error(err))
		peer.Close()
		return
	}

	switch role {
	case protocol.RolePlayer:
		s.matchmaker.Offer(peer)
	case protocol.AdminStop:
		s.logger.Warn("stop command received", zap.String("peer", peer.RemoteAddr()))
		peer.Close()
		s.Stop()
	case protocol.AdminReset:
		s.logger.Warn("resetting server games", zap.String("peer", peer.RemoteAddr()))
		peer.Close()
		s.ResetGames()
	default:
		s.logger.Warn("unknown handshake", zap.String("peer", peer.RemoteAddr()), zap.String("role", role))
		peer.Close()
	}
}

// startSession is the Matchmaker's pairing callback.
func (s *Server) startSession(first, second *network.Peer) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		first.Close()
		second.Close()
		return
	}
	starter := models.NewTurn(s.rng).Player
	ctx, cancel := context.WithCancel(s.ctx)
	session := NewSession(first, second, starter, s.cfg.HandshakeTimeout.Duration, s.matchmaker.Offer, s.logger)
	s.sessions[session.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		result := session.Run(ctx)
		cancel()

		s.mu.Lock()
		delete(s.sessions, session.ID)
		s.mu.Unlock()

		s.results <- result
	}()
}

// Stop makes Serve stop accepting and close every connection.
func (s *Server) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// ResetGames ends every active game, disconnecting its players, and empties
// the matchmaking queue.
func (s *Server) ResetGames() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.sessions))
	for _, cancel := range s.sessions {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.matchmaker.Clear()
}

// ActiveGames returns the number of sessions in progress.
func (s *Server) ActiveGames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
