package server

import (
	"net"
	"sync"

	"github.com/ValentinKolb/dIPC/ipc/codec"
)

// Session is the server side record of one accepted stream connection. The
// frame buffer is owned by the goroutine reading the connection.
type Session struct {
	owner  *StreamServer
	conn   net.Conn
	buffer *codec.FrameBuffer

	mu sync.RWMutex
	id string
}

func newSession(owner *StreamServer, conn net.Conn) *Session {
	return &Session{
		owner:  owner,
		conn:   conn,
		buffer: codec.NewFrameBuffer(owner.codec, owner.config.MaxBufferSize),
	}
}

// ID returns the identifier taken from the data.id field of the last message
// the peer sent, empty if it never sent one. It is informational only.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.id
}

// RemoteAddr returns the address of the connected peer
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *Session) setID(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

// write sends one encoded message. net.Conn writes whole buffers atomically
// with respect to other writers, so unicast and broadcast may interleave
// without tearing frames.
func (s *Session) write(payload []byte) (int, error) {
	return s.conn.Write(payload)
}

func (s *Session) close() error {
	return s.conn.Close()
}
