package exchange

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"time"
)

// Responder is the binding side of an exchange: it waits for a request of a
// fixed length and answers it with a fixed reply
type Responder struct {
	config common.ResponderConfig
	opts   options
}

// NewResponder creates a responder for the given configuration
func NewResponder(config common.ResponderConfig, opts ...Option) *Responder {
	return &Responder{
		config: config,
		opts:   buildOptions(opts),
	}
}

// Run binds the socket and performs the configured number of exchanges.
// The socket is closed exactly once before Run returns, on every path.
// The returned result is never nil and holds the exchanges completed so far
func (r *Responder) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{}

	if r.config.RequestSize < 0 {
		return res, fmt.Errorf("%w: negative request size %d", ErrInvalidConfig, r.config.RequestSize)
	}

	sock, err := r.opts.newSocket(r.config.Socket)
	if err != nil {
		return res, &TransportError{Op: "socket", Err: err}
	}
	defer closeSocket(sock, &err)

	ep, err := sock.Bind(r.config.Endpoint)
	if err != nil {
		return res, &TransportError{Op: "bind", Err: err}
	}
	res.Endpoint = ep.Addr()
	Logger.Infof("Responder bound to %s", res.Endpoint)

	if r.opts.onBound != nil {
		r.opts.onBound(res.Endpoint)
	}

	// one spare byte, so an oversized request is detected even when truncated
	buf := make([]byte, r.config.RequestSize+1)

	for i := range r.config.Exchanges() {
		start := time.Now()
		request, err := r.exchange(ctx, sock, buf)
		r.opts.record("responder", start, err)
		if err != nil {
			return res, err
		}
		res.Received = append(res.Received, request)
		Logger.Debugf("Exchange %d completed", i+1)
	}

	return res, nil
}

// exchange receives one request and sends the reply
func (r *Responder) exchange(ctx context.Context, sock ISocket, buf []byte) ([]byte, error) {
	n, err := sock.Recv(ctx, buf)
	if err != nil {
		return nil, &TransportError{Op: "recv", Err: err}
	}
	if n != r.config.RequestSize {
		return nil, &LengthMismatchError{Op: "recv", Expected: r.config.RequestSize, Got: n}
	}
	request := append([]byte(nil), buf[:n]...)

	sent, err := sock.Send(ctx, r.config.Reply)
	if err != nil {
		return nil, &TransportError{Op: "send", Err: err}
	}
	if sent != len(r.config.Reply) {
		return nil, &TransportError{Op: "send", Err: fmt.Errorf("%w: %d of %d bytes", ErrShortSend, sent, len(r.config.Reply))}
	}

	return request, nil
}
