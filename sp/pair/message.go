package pair

import (
	"sync"
	"sync/atomic"
)

// pooledBufferSize is the capacity of pooled receive buffers, larger messages get their own buffer
const pooledBufferSize = 64 * 1024 // 64 KB

// Message is a received message whose buffer belongs to the socket.
// The body is only valid until Free is called
type Message struct {
	// Body is the payload as sent by the peer
	Body []byte

	buf   *[]byte
	pool  *bufferPool
	freed atomic.Bool
}

// Free returns the buffer of the message to the socket. A message can only be
// freed once, further calls return ErrMessageFreed
func (m *Message) Free() error {
	if !m.freed.CompareAndSwap(false, true) {
		return ErrMessageFreed
	}
	m.pool.put(m.buf)
	m.Body = nil
	m.buf = nil
	return nil
}

// Len returns the size of the payload
func (m *Message) Len() int {
	return len(m.Body)
}

// --------------------------------------------------------------------------
// Buffer pool
// --------------------------------------------------------------------------

// bufferPool hands out receive buffers of a fixed capacity
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// get returns a buffer of length n. The second return value is nil if the
// buffer is not pooled and must not be returned
func (p *bufferPool) get(n int) ([]byte, *[]byte) {
	if n > p.size {
		return make([]byte, n), nil
	}
	b := p.pool.Get().(*[]byte)
	return (*b)[:n], b
}

func (p *bufferPool) put(b *[]byte) {
	if b != nil {
		p.pool.Put(b)
	}
}
