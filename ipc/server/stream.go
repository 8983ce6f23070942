package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"sync"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/metrics"
	"github.com/ValentinKolb/dIPC/ipc/transport"
	"github.com/ValentinKolb/dIPC/ipc/transport/tcp"
)

const readBufferSize = 64 * 1024

// StreamServer serves a Unix domain socket, TCP or TLS endpoint and keeps
// track of the connected sessions for broadcasting.
type StreamServer struct {
	base
	path      string
	port      int
	connector transport.IServerConnector

	mu       sync.Mutex
	listener net.Listener
	sessions []*Session // insertion order
	started  bool
	closed   bool
	stopCtx  func() bool
	gauge    func() // removes the active sessions gauge
}

// NewStreamServer creates a stream server. A port of 0 serves the Unix domain
// socket at path, otherwise path is the host to bind.
func NewStreamServer(config *common.Config, path string, port int) *StreamServer {
	return &StreamServer{
		base:      newBase(config),
		path:      path,
		port:      port,
		connector: transport.NewServerConnector(config, path, port),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IServer)
// --------------------------------------------------------------------------

func (s *StreamServer) Start(ctx context.Context) error {
	if s.path == "" {
		Logger.Errorf("Socket server path not specified, refusing to start")
		return common.ErrMissingPath
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return common.ErrServerClosed
	}
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server on %s already started", common.ServerPath(s.path, s.port))
	}
	s.started = true
	s.mu.Unlock()

	Logger.Infof("Starting %s server on %s", s.connector.GetName(), common.ServerPath(s.path, s.port))

	listener, err := s.connector.Listen(ctx)
	if err != nil {
		Logger.Errorf("Server error: %v", err)
		s.emit(Event{Name: common.EventError, Err: err})
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		// stopped while binding, nobody else will close the listener
		s.mu.Unlock()
		_ = listener.Close()
		return common.ErrServerClosed
	}
	s.listener = listener
	s.stopCtx = context.AfterFunc(ctx, func() { _ = s.Stop() })
	s.gauge = metrics.RegisterActiveSessions(common.ServerPath(s.path, s.port), s.SessionCount)
	s.mu.Unlock()

	s.emit(Event{Name: common.EventStart})
	go s.acceptLoop(listener)

	return nil
}

func (s *StreamServer) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	sessions := s.sessions
	s.sessions = nil
	stopCtx := s.stopCtx
	unregGauge := s.gauge
	s.mu.Unlock()

	if stopCtx != nil {
		stopCtx()
	}
	if unregGauge != nil {
		unregGauge()
	}

	var err error
	if listener != nil {
		// the unix listener removes its socket file on close
		err = listener.Close()
	}

	for _, session := range sessions {
		_ = session.close()
		metrics.SessionsClosed.Inc()
		Logger.Infof("Socket disconnected: %s", session.ID())
		s.emit(Event{Name: common.EventSocketDisconnected, Peer: session})
	}

	Logger.Infof("Stopped %s server on %s", s.connector.GetName(), common.ServerPath(s.path, s.port))
	s.emit(Event{Name: common.EventClose})
	close(s.done)

	return err
}

func (s *StreamServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *StreamServer) Emit(peer Peer, typeOrRaw string, data any) error {
	session, ok := peer.(*Session)
	if !ok || session == nil || session.owner != s {
		return common.ErrInvalidPeer
	}

	Logger.Debugf("Dispatching event to socket %s: %s", session.RemoteAddr(), typeOrRaw)

	payload, err := s.codec.Encode(typeOrRaw, data)
	if err != nil {
		return err
	}
	s.writeTo(session, payload)
	return nil
}

func (s *StreamServer) Broadcast(typeOrRaw string, data any) error {
	Logger.Debugf("Broadcasting event to all known sockets listening to %s: %s", common.ServerPath(s.path, s.port), typeOrRaw)

	payload, err := s.codec.Encode(typeOrRaw, data)
	if err != nil {
		return err
	}

	metrics.Broadcasts.Inc()
	for _, session := range s.Sessions() {
		s.writeTo(session, payload)
	}
	return nil
}

// --------------------------------------------------------------------------
// Public API
// --------------------------------------------------------------------------

// Sessions returns the connected sessions in the order they were accepted
func (s *StreamServer) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.sessions)
}

// SessionCount returns the number of connected sessions
func (s *StreamServer) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// acceptLoop accepts connections until the listener is closed
func (s *StreamServer) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.isClosed() {
				return
			}
			Logger.Errorf("Accept error: %v", err)
			s.emit(Event{Name: common.EventError, Err: err})
			continue
		}

		session, ok := s.track(conn)
		if !ok {
			continue
		}

		Logger.Debugf("Socket connection to server detected from %s", conn.RemoteAddr())
		metrics.SessionsAccepted.Inc()
		s.emit(Event{Name: common.EventConnect, Peer: session})

		go s.serveSession(session)
	}
}

// track records a new session, or rejects the connection when the server is
// full or already stopped
func (s *StreamServer) track(conn net.Conn) (*Session, bool) {
	if err := tcp.UpgradeConnection(conn); err != nil {
		Logger.Warningf("Failed to set socket options for %s: %v", conn.RemoteAddr(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		conn.Close()
		return nil, false
	}
	if limit := s.config.MaxConnections; limit > 0 && len(s.sessions) >= limit {
		conn.Close()
		metrics.SessionsRejected.Inc()
		Logger.Warningf("Rejected connection from %s, %d connections open", conn.RemoteAddr(), limit)
		return nil, false
	}

	session := newSession(s, conn)
	s.sessions = append(s.sessions, session)
	return session, true
}

// untrack removes a session. It reports false if the session was already gone,
// which is the case for sessions closed by Stop.
func (s *StreamServer) untrack(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(s.sessions, session)
	if idx < 0 {
		return false
	}
	s.sessions = slices.Delete(s.sessions, idx, idx+1)
	return true
}

// serveSession reads from one session until it ends, then prunes it
func (s *StreamServer) serveSession(session *Session) {
	readBuf := make([]byte, readBufferSize)
	bytesRead := metrics.BytesRead(s.connector.GetName())

	for {
		n, err := session.conn.Read(readBuf)
		if n > 0 {
			bytesRead.Add(n)
			if ferr := s.handleData(session, readBuf[:n]); ferr != nil {
				Logger.Warningf("Closing session %s: %v", session.RemoteAddr(), ferr)
				s.emit(Event{Name: common.EventError, Err: ferr, Peer: session})
				break
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				Logger.Warningf("Server socket error: %v", err)
				s.emit(Event{Name: common.EventError, Err: err, Peer: session})
			}
			break
		}
	}

	_ = session.close()
	if s.untrack(session) {
		metrics.SessionsClosed.Inc()
		Logger.Debugf("Session %s closed", session.RemoteAddr())
		s.emit(Event{Name: common.EventClose, Peer: session})
	}
}

// handleData processes one read of a session
func (s *StreamServer) handleData(session *Session, data []byte) error {
	if s.codec.Raw() {
		s.emit(Event{Name: common.EventData, Raw: s.codec.RawBytes(data), Peer: session})
		return nil
	}

	messages, ok, err := session.buffer.Feed(data)
	if err != nil {
		return err
	}
	if !ok {
		Logger.Debugf("Messages are large, you may want to consider smaller messages (%d bytes buffered)", session.buffer.Len())
		return nil
	}

	if id := messages[len(messages)-1].ID(); id != "" {
		session.setID(id)
	}
	s.deliver(session, messages)
	return nil
}

// writeTo writes an encoded message to one session, reporting failures as
// error events
func (s *StreamServer) writeTo(session *Session, payload []byte) {
	n, err := session.write(payload)
	metrics.BytesWritten(s.connector.GetName()).Add(n)
	if err != nil {
		Logger.Warningf("Error writing data to socket %s: %v", session.RemoteAddr(), err)
		s.emit(Event{Name: common.EventError, Err: err, Peer: session})
	}
}

func (s *StreamServer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
