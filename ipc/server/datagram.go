package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/metrics"
	"github.com/ValentinKolb/dIPC/ipc/transport/udp"
)

// Datagram identifies the sender of a datagram, the only notion of a peer a
// datagram server has
type Datagram struct {
	addr *net.UDPAddr
}

// NewDatagramPeer returns a peer for addr, for replying to an address that
// was not learned from an inbound datagram
func NewDatagramPeer(addr *net.UDPAddr) *Datagram {
	return &Datagram{addr: addr}
}

// ID returns the sender address as host:port
func (d *Datagram) ID() string {
	return d.addr.String()
}

func (d *Datagram) RemoteAddr() net.Addr {
	if d == nil || d.addr == nil {
		return nil
	}
	return d.addr
}

// DatagramServer serves a UDP socket. It keeps no per-peer state: every
// datagram is one complete round of frames and replies go to the sender
// address.
type DatagramServer struct {
	base
	connector *udp.ServerConnector
	port      int

	mu      sync.Mutex
	conn    *net.UDPConn
	started bool
	closed  bool
	stopCtx func() bool
}

// NewDatagramServer creates a datagram server for network ("udp4" or "udp6")
func NewDatagramServer(config *common.Config, host string, port int, network string) (*DatagramServer, error) {
	connector, err := udp.NewServerConnector(network, host, port)
	if err != nil {
		return nil, err
	}
	return &DatagramServer{
		base:      newBase(config),
		connector: connector,
		port:      port,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IServer)
// --------------------------------------------------------------------------

func (s *DatagramServer) Start(ctx context.Context) error {
	if s.connector.Host() == "" {
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
		return fmt.Errorf("server on %s already started", s.endpoint())
	}
	s.started = true
	s.mu.Unlock()

	Logger.Infof("Starting UDP %s server on %s", s.connector.GetName(), s.endpoint())

	conn, err := s.connector.ListenPacket(ctx)
	if err != nil {
		Logger.Errorf("Server error: %v", err)
		s.emit(Event{Name: common.EventError, Err: err})
		return err
	}

	s.mu.Lock()
	if s.closed {
		// stopped while binding
		s.mu.Unlock()
		_ = conn.Close()
		return common.ErrServerClosed
	}
	s.conn = conn
	s.stopCtx = context.AfterFunc(ctx, func() { _ = s.Stop() })
	s.mu.Unlock()

	s.emit(Event{Name: common.EventStart})
	go s.readLoop(conn)

	return nil
}

func (s *DatagramServer) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	stopCtx := s.stopCtx
	s.mu.Unlock()

	if stopCtx != nil {
		stopCtx()
	}

	var err error
	if conn != nil {
		err = conn.Close()
	}

	Logger.Infof("Stopped UDP %s server on %s", s.connector.GetName(), s.endpoint())
	s.emit(Event{Name: common.EventClose})
	close(s.done)

	return err
}

func (s *DatagramServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Emit sends one datagram to the address of peer. Any peer whose remote
// address is a UDP address is accepted.
func (s *DatagramServer) Emit(peer Peer, typeOrRaw string, data any) error {
	if peer == nil {
		return common.ErrInvalidPeer
	}
	addr, ok := peer.RemoteAddr().(*net.UDPAddr)
	if !ok || addr == nil {
		return common.ErrInvalidPeer
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return common.ErrServerClosed
	}

	Logger.Debugf("Dispatching event to %s: %s", addr, typeOrRaw)

	payload, err := s.codec.Encode(typeOrRaw, data)
	if err != nil {
		return err
	}

	n, err := conn.WriteToUDP(payload, addr)
	metrics.BytesWritten(s.connector.GetName()).Add(n)
	if err != nil {
		Logger.Warningf("Error writing data to socket %s: %v", addr, err)
		s.emit(Event{Name: common.EventError, Err: err, Peer: peer})
	}
	return nil
}

// Broadcast is not supported: a datagram server keeps no set of peers
func (s *DatagramServer) Broadcast(typeOrRaw string, data any) error {
	Logger.Warningf("Broadcast not supported for UDP server (%s dropped)", typeOrRaw)
	return common.ErrBroadcastUnsupported
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readLoop handles datagrams until the socket is closed
func (s *DatagramServer) readLoop(conn *net.UDPConn) {
	buf := make([]byte, udp.MaxDatagramSize)
	bytesRead := metrics.BytesRead(s.connector.GetName())

	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.isClosed() {
				return
			}
			Logger.Warningf("Server socket error: %v", err)
			s.emit(Event{Name: common.EventError, Err: err})
			continue
		}

		Logger.Debugf("Received UDP message from %s", addr)
		metrics.Datagrams.Inc()
		bytesRead.Add(n)
		s.handleDatagram(&Datagram{addr: addr}, buf[:n])
	}
}

// handleDatagram treats one datagram as a complete round of frames
func (s *DatagramServer) handleDatagram(peer *Datagram, data []byte) {
	if s.codec.Raw() {
		s.emit(Event{Name: common.EventData, Raw: s.codec.RawBytes(data), Peer: peer})
		return
	}

	messages, ok := s.codec.Decode(data)
	if !ok {
		Logger.Warningf("Dropping datagram from %s without trailing delimiter", peer.ID())
		return
	}
	s.deliver(peer, messages)
}

func (s *DatagramServer) endpoint() string {
	return common.ServerPath(s.connector.Host(), s.port)
}

func (s *DatagramServer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
