package pair

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/transport"
	"github.com/ValentinKolb/dPair/sp/transport/base"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/someonegg/gox/syncx"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("pair")

const (
	// ProtocolID identifies the pair protocol on the wire (NN_PAIR)
	ProtocolID uint16 = 0x10
	// handshakeTimeout bounds the header exchange with a new peer
	handshakeTimeout = 10 * time.Second
	// acceptRetryDelay is the pause after a failed accept
	acceptRetryDelay = 10 * time.Millisecond
)

// Socket is a pair socket: a bidirectional socket with exactly one peer.
//
// A socket can have several endpoints (see Bind and Connect), but only one
// connection is used at a time. Peers connecting while another one is
// attached are refused. All methods are safe for concurrent use.
type Socket struct {
	config    common.SocketConfig
	endpoints *xsync.MapOf[int, *Endpoint]
	nextID    atomic.Int64
	buffers   *bufferPool

	// mu protects peer, peerCh and the registration of new goroutines
	mu     sync.Mutex
	peer   *pipe
	peerCh chan struct{} // closed when a peer attaches

	recvCh    chan *Message
	closed    syncx.DoneChan
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSocket creates a new pair socket with the given configuration
//
// Usage:
//
//	s, err := pair.NewSocket(common.DefaultSocketConfig())
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	if _, err := s.Bind("tcp://127.0.0.1:5555"); err != nil {
//		return err
//	}
func NewSocket(config common.SocketConfig) (*Socket, error) {
	if config.TimeoutSecond < 0 || config.DialTimeoutSecond < 0 || config.RecvMaxSize < 0 || config.RecvQueueSize < 0 {
		return nil, fmt.Errorf("%w: negative values are not allowed", ErrInvalidConfig)
	}
	if config.RecvQueueSize == 0 {
		config.RecvQueueSize = common.DefaultRecvQueueSize
	}

	return &Socket{
		config:    config,
		endpoints: xsync.NewMapOf[int, *Endpoint](),
		buffers:   newBufferPool(pooledBufferSize),
		peerCh:    make(chan struct{}),
		recvCh:    make(chan *Message, config.RecvQueueSize),
		closed:    syncx.NewDoneChan(),
	}, nil
}

// --------------------------------------------------------------------------
// Endpoints
// --------------------------------------------------------------------------

// Bind listens on the given address (e.g. tcp://127.0.0.1:5555) and accepts
// peers in the background until the endpoint is shut down or the socket is closed
func (s *Socket) Bind(address string) (*Endpoint, error) {
	addr, connector, err := resolve(address)
	if err != nil {
		return nil, err
	}

	listener, err := connector.Listen(addr.Rest, s.config)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", address, err)
	}

	ep := s.newEndpoint(addr, connector)
	ep.listener = listener

	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		listener.Close()
		return nil, ErrClosed
	}
	s.endpoints.Store(ep.id, ep)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.acceptLoop(ep)

	Logger.Infof("Bound endpoint %d to %s", ep.id, ep.Addr())
	return ep, nil
}

// Connect dials the given address and performs the protocol handshake.
// Unlike the asynchronous nn_connect of nanomsg it fails right away
// if the peer is unreachable, nothing is retried
func (s *Socket) Connect(ctx context.Context, address string) (*Endpoint, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	addr, connector, err := resolve(address)
	if err != nil {
		return nil, err
	}

	conn, err := connector.Connect(ctx, addr.Rest, s.config)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}

	ep := s.newEndpoint(addr, connector)
	p, err := s.setupPipe(conn, ep)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}

	ep.pipe = p
	s.endpoints.Store(ep.id, ep)

	if err := s.attach(p); err != nil {
		s.endpoints.Delete(ep.id)
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}

	Logger.Infof("Connected endpoint %d to %s", ep.id, address)
	return ep, nil
}

// --------------------------------------------------------------------------
// Send and receive
// --------------------------------------------------------------------------

// Send sends one message to the peer. It blocks until a peer is attached,
// the socket timeout expires or ctx is done. It returns the number of bytes sent
func (s *Socket) Send(ctx context.Context, data []byte) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.waitPeer(ctx)
	if err != nil {
		return 0, err
	}

	if err := p.send(ctx, data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, s.contextError(ctxErr)
		}
		return 0, fmt.Errorf("send: %w", err)
	}
	return len(data), nil
}

// RecvMsg receives one message in a buffer owned by the socket. The caller
// must release it with Message.Free
func (s *Socket) RecvMsg(ctx context.Context) (*Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// deliver queued messages even if the socket is closing
	select {
	case msg := <-s.recvCh:
		return msg, nil
	default:
	}

	select {
	case msg := <-s.recvCh:
		return msg, nil
	case <-ctx.Done():
		return nil, s.contextError(ctx.Err())
	case <-s.closed:
		return nil, ErrClosed
	}
}

// Recv receives one message into buf. If the message is larger than buf it is
// truncated. The returned length is always the full size of the message, so
// a result larger than len(buf) signals truncation
func (s *Socket) Recv(ctx context.Context, buf []byte) (int, error) {
	msg, err := s.RecvMsg(ctx)
	if err != nil {
		return 0, err
	}
	defer msg.Free()

	copy(buf, msg.Body)
	return msg.Len(), nil
}

// Close shuts down all endpoints and the peer connection. Messages that were
// received but not yet consumed are dropped. Only the first call closes the
// socket, every further call returns ErrClosed
func (s *Socket) Close() error {
	err := ErrClosed
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed.SetDone()
		p := s.peer
		s.mu.Unlock()

		s.endpoints.Range(func(_ int, ep *Endpoint) bool {
			ep.shutdown()
			return true
		})
		if p != nil {
			p.close()
		}

		// wait for accept loops and readers
		s.wg.Wait()

		// drop undelivered messages
		for {
			select {
			case msg := <-s.recvCh:
				msg.Free()
				continue
			default:
			}
			break
		}

		Logger.Debugf("Socket closed")
		err = nil
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *Socket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Socket) newEndpoint(addr transport.Address, connector transport.IConnector) *Endpoint {
	return &Endpoint{
		id:        int(s.nextID.Add(1)),
		address:   addr,
		connector: connector,
		socket:    s,
	}
}

// withTimeout applies the socket timeout to ctx
func (s *Socket) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.TimeoutSecond > 0 {
		return context.WithTimeout(ctx, time.Duration(s.config.TimeoutSecond)*time.Second)
	}
	return context.WithCancel(ctx)
}

// contextError maps an expired deadline to ErrTimedOut
func (s *Socket) contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimedOut, err)
	}
	return err
}

// acceptLoop accepts connections of a bound endpoint until its listener is closed
func (s *Socket) acceptLoop(ep *Endpoint) {
	defer s.wg.Done()

	for {
		conn, err := ep.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.isClosed() || ep.isShutdown() {
				return
			}
			Logger.Errorf("Accept error on endpoint %d: %v", ep.id, err)
			time.Sleep(acceptRetryDelay)
			continue
		}

		// the handshake must not block further accepts
		go func() {
			p, err := s.setupPipe(conn, ep)
			if err != nil {
				Logger.Warningf("Rejected connection on endpoint %d: %v", ep.id, err)
				return
			}
			if err := s.attach(p); err != nil {
				Logger.Warningf("Refused peer %s on endpoint %d: %v", conn.RemoteAddr(), ep.id, err)
			}
		}()
	}
}

// setupPipe upgrades the connection and performs the handshake.
// The connection is closed if anything fails
func (s *Socket) setupPipe(conn net.Conn, ep *Endpoint) (*pipe, error) {
	metrics := common.MetricsFor(ep.connector.GetName())

	if err := ep.connector.UpgradeConnection(conn, s.config); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	if err := base.Handshake(conn, ProtocolID, ProtocolID, handshakeTimeout); err != nil {
		metrics.HandshakeErrors.Inc()
		conn.Close()
		return nil, err
	}

	return newPipe(conn, s, ep, metrics), nil
}

// attach makes p the peer of the socket and starts reading from it
func (s *Socket) attach(p *pipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		p.closeConn()
		return ErrClosed
	}
	// the endpoint may have been shut down while the handshake was running
	if p.endpoint.isShutdown() {
		p.closeConn()
		return ErrInvalidEndpoint
	}
	if s.peer != nil {
		p.metrics.PeersRefused.Inc()
		p.closeConn()
		return ErrPeerExists
	}

	s.peer = p
	close(s.peerCh)
	s.peerCh = make(chan struct{})

	s.wg.Add(1)
	go p.readLoop()

	Logger.Debugf("Peer %s attached", p.conn.RemoteAddr())
	return nil
}

// detach removes p as the peer of the socket
func (s *Socket) detach(p *pipe) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.peer == p {
		s.peer = nil
		Logger.Debugf("Peer %s detached", p.conn.RemoteAddr())
	}
}

// currentPeer returns the attached peer, if any
func (s *Socket) currentPeer() *pipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// waitPeer blocks until a peer is attached
func (s *Socket) waitPeer(ctx context.Context) (*pipe, error) {
	for {
		s.mu.Lock()
		p, ch := s.peer, s.peerCh
		s.mu.Unlock()

		if s.isClosed() {
			return nil, ErrClosed
		}
		if p != nil {
			return p, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, s.contextError(ctx.Err())
		case <-s.closed:
			return nil, ErrClosed
		}
	}
}
