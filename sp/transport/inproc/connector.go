package inproc

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/someonegg/gox/syncx"
	"net"
	"sync"
	"syscall"
)

var (
	// listeners holds all bound inproc addresses of this process
	listeners = xsync.NewMapOf[string, *listener]()

	// ErrAddressInUse is returned when binding an inproc address twice
	ErrAddressInUse = fmt.Errorf("inproc: %w", syscall.EADDRINUSE)
	// ErrConnectionRefused is returned when connecting to an unbound inproc address
	ErrConnectionRefused = fmt.Errorf("inproc: %w", syscall.ECONNREFUSED)

	errListenerClosed = errors.New("inproc: listener closed")
)

// connector implements the transport.IConnector interface for in-process pipes
type connector struct{}

// NewInprocConnector creates the connector for inproc:// addresses
func NewInprocConnector() transport.IConnector {
	return &connector{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnector)
// --------------------------------------------------------------------------

func (c *connector) GetName() string {
	return "inproc"
}

func (c *connector) Connect(ctx context.Context, address string, _ common.SocketConfig) (net.Conn, error) {
	l, ok := listeners.Load(address)
	if !ok {
		return nil, fmt.Errorf("dial inproc://%s: %w", address, ErrConnectionRefused)
	}

	local, remote := net.Pipe()
	select {
	case l.acceptCh <- remote:
		return local, nil
	case <-l.done:
	case <-ctx.Done():
		local.Close()
		remote.Close()
		return nil, ctx.Err()
	}

	local.Close()
	remote.Close()
	return nil, fmt.Errorf("dial inproc://%s: %w", address, ErrConnectionRefused)
}

func (c *connector) Listen(address string, _ common.SocketConfig) (net.Listener, error) {
	l := &listener{
		addr:     addr(address),
		acceptCh: make(chan net.Conn),
		done:     syncx.NewDoneChan(),
	}
	if _, loaded := listeners.LoadOrStore(address, l); loaded {
		return nil, fmt.Errorf("listen inproc://%s: %w", address, ErrAddressInUse)
	}
	return l, nil
}

func (c *connector) UpgradeConnection(net.Conn, common.SocketConfig) error {
	return nil
}

func (c *connector) MessagePrefix() []byte {
	return nil
}

// --------------------------------------------------------------------------
// Listener
// --------------------------------------------------------------------------

// listener implements net.Listener for one inproc address
type listener struct {
	addr      addr
	acceptCh  chan net.Conn
	done      syncx.DoneChan
	closeOnce sync.Once
}

func (l *listener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.acceptCh:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *listener) Close() error {
	err := errListenerClosed
	l.closeOnce.Do(func() {
		listeners.Delete(string(l.addr))
		l.done.SetDone()
		err = nil
	})
	return err
}

func (l *listener) Addr() net.Addr {
	return l.addr
}

// addr implements net.Addr for inproc addresses
type addr string

func (a addr) Network() string { return "inproc" }
func (a addr) String() string  { return string(a) }
