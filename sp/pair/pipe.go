package pair

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/transport/base"
	"github.com/someonegg/gox/syncx"
	"io"
	"net"
	"sync"
	"time"
)

// aLongTimeAgo is a deadline in the past, used to abort blocked writes
var aLongTimeAgo = time.Unix(1, 0)

// pipe is one established connection to a peer
type pipe struct {
	conn     net.Conn
	prefix   []byte
	socket   *Socket
	endpoint *Endpoint
	metrics  *common.SocketMetrics

	writeMu   sync.Mutex
	done      syncx.DoneChan
	closeOnce sync.Once
}

func newPipe(conn net.Conn, s *Socket, ep *Endpoint, metrics *common.SocketMetrics) *pipe {
	return &pipe{
		conn:     conn,
		prefix:   ep.connector.MessagePrefix(),
		socket:   s,
		endpoint: ep,
		metrics:  metrics,
		done:     syncx.NewDoneChan(),
	}
}

// send writes one message. A failed or aborted write leaves the stream in an
// unknown state, so the pipe is closed in that case
func (p *pipe) send(ctx context.Context, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := p.conn.SetWriteDeadline(deadline); err != nil {
			p.close()
			return err
		}
	}

	// abort the write when ctx is cancelled
	var watcherDone chan struct{}
	writeDone := make(chan struct{})
	if ctx.Done() != nil {
		watcherDone = make(chan struct{})
		go func() {
			defer close(watcherDone)
			select {
			case <-ctx.Done():
				_ = p.conn.SetWriteDeadline(aLongTimeAgo)
			case <-writeDone:
			}
		}()
	}

	err := base.WriteMessage(p.conn, p.prefix, data)

	close(writeDone)
	if watcherDone != nil {
		<-watcherDone
	}

	if err != nil {
		p.close()
		return err
	}
	_ = p.conn.SetWriteDeadline(time.Time{})

	p.metrics.MessagesSent.Inc()
	p.metrics.BytesSent.Add(len(data))
	return nil
}

// readLoop reads messages and queues them on the socket until the connection fails
func (p *pipe) readLoop() {
	defer p.socket.wg.Done()
	defer p.close()

	maxSize := p.socket.config.RecvMaxSize
	for {
		var pooled *[]byte
		body, err := base.ReadMessage(p.conn, p.prefix, maxSize, func(size int) []byte {
			var buf []byte
			buf, pooled = p.socket.buffers.get(size)
			return buf
		})
		if err != nil {
			p.socket.buffers.put(pooled)
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				Logger.Debugf("Connection to %s closed", p.conn.RemoteAddr())
			default:
				Logger.Warningf("Dropping connection to %s: %v", p.conn.RemoteAddr(), err)
			}
			return
		}

		p.metrics.MessagesReceived.Inc()
		p.metrics.BytesReceived.Add(len(body))

		msg := &Message{Body: body, buf: pooled, pool: p.socket.buffers}
		select {
		case p.socket.recvCh <- msg:
		case <-p.done:
			msg.Free()
			return
		case <-p.socket.closed:
			msg.Free()
			return
		}
	}
}

// close closes the connection and detaches the pipe from the socket
func (p *pipe) close() {
	p.closeOnce.Do(func() {
		p.conn.Close()
		p.done.SetDone()
		p.socket.detach(p)
	})
}

// closeConn closes a pipe that was never attached
func (p *pipe) closeConn() {
	p.closeOnce.Do(func() {
		p.conn.Close()
		p.done.SetDone()
	})
}
