package pair

import (
	"github.com/ValentinKolb/dPair/sp/transport"
	"github.com/ValentinKolb/dPair/sp/transport/inproc"
	"github.com/ValentinKolb/dPair/sp/transport/tcp"
	"github.com/ValentinKolb/dPair/sp/transport/unix"
	"net"
	"sync"
	"sync/atomic"
)

// Endpoint is a bound or connected address of a socket. Each endpoint has an
// ID that is unique within its socket, the first endpoint has ID 1
type Endpoint struct {
	id        int
	address   transport.Address
	connector transport.IConnector
	socket    *Socket

	// exactly one of listener (Bind) and pipe (Connect) is set
	listener net.Listener
	pipe     *pipe

	shutdownOnce sync.Once
	down         atomic.Bool
}

// ID returns the endpoint ID
func (e *Endpoint) ID() int {
	return e.id
}

// Addr returns the address of the endpoint. For bound endpoints this is the
// resolved address, so binding tcp://127.0.0.1:0 reports the chosen port
func (e *Endpoint) Addr() string {
	if e.listener != nil {
		return e.address.Scheme + "://" + e.listener.Addr().String()
	}
	return e.address.String()
}

// Shutdown removes the endpoint from its socket. A bound endpoint stops
// listening and drops the peer it accepted, a connected endpoint closes its
// connection. Shutting down an endpoint twice returns ErrInvalidEndpoint
func (e *Endpoint) Shutdown() error {
	if !e.shutdown() {
		return ErrInvalidEndpoint
	}
	Logger.Infof("Endpoint %d (%s) shut down", e.id, e.Addr())
	return nil
}

// shutdown releases the endpoint and reports whether this call did it
func (e *Endpoint) shutdown() bool {
	done := false
	e.shutdownOnce.Do(func() {
		e.down.Store(true)
		e.socket.endpoints.Delete(e.id)

		if e.listener != nil {
			e.listener.Close()
		}
		if e.pipe != nil {
			e.pipe.close()
		}
		if p := e.socket.currentPeer(); p != nil && p.endpoint == e {
			p.close()
		}
		done = true
	})
	return done
}

func (e *Endpoint) isShutdown() bool {
	return e.down.Load()
}

// --------------------------------------------------------------------------
// Transport selection
// --------------------------------------------------------------------------

// resolve parses the address and returns the connector for its scheme
func resolve(address string) (transport.Address, transport.IConnector, error) {
	addr, err := transport.ParseAddress(address)
	if err != nil {
		return transport.Address{}, nil, err
	}

	switch addr.Scheme {
	case transport.SchemeTCP:
		return addr, tcp.NewTCPConnector(), nil
	case transport.SchemeIPC:
		return addr, unix.NewIPCConnector(), nil
	case transport.SchemeInproc:
		return addr, inproc.NewInprocConnector(), nil
	default:
		return transport.Address{}, nil, ErrUnsupportedScheme
	}
}
