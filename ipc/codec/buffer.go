package codec

import (
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/metrics"
)

// FrameBuffer accumulates partial frames of one connection. It is owned by the
// goroutine reading that connection and must not be shared.
type FrameBuffer struct {
	codec *Codec
	buf   []byte
	max   int
}

// NewFrameBuffer creates an empty buffer holding at most max bytes (0 = unbounded)
func NewFrameBuffer(codec *Codec, max int) *FrameBuffer {
	return &FrameBuffer{codec: codec, max: max}
}

// Feed appends data and decodes the buffer.
//
// While no complete round has arrived Feed returns (nil, false, nil) and keeps
// the data. On success the buffer is cleared and the decoded messages are
// returned in order. If the buffer grows beyond its limit without ending in a
// delimiter, it is dropped and common.ErrBufferOverflow is returned.
func (b *FrameBuffer) Feed(data []byte) ([]common.Message, bool, error) {
	b.buf = append(b.buf, data...)

	messages, ok := b.codec.Decode(b.buf)
	if !ok {
		if b.max > 0 && len(b.buf) > b.max {
			b.Reset()
			metrics.Overflows.Inc()
			return nil, false, common.ErrBufferOverflow
		}
		return nil, false, nil
	}

	b.Reset()
	return messages, true, nil
}

// Len returns the number of buffered bytes
func (b *FrameBuffer) Len() int {
	return len(b.buf)
}

// Reset drops all buffered bytes
func (b *FrameBuffer) Reset() {
	b.buf = b.buf[:0]
}
