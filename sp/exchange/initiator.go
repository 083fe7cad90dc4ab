package exchange

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/pair"
	"time"
)

// Initiator is the connecting side of an exchange: it sends a fixed request
// and waits for a reply of a fixed length
type Initiator struct {
	config common.InitiatorConfig
	opts   options
}

// NewInitiator creates an initiator for the given configuration
func NewInitiator(config common.InitiatorConfig, opts ...Option) *Initiator {
	return &Initiator{
		config: config,
		opts:   buildOptions(opts),
	}
}

// Run connects to the responder and performs the configured number of
// exchanges. Connecting is not retried, an unbound responder fails the run.
// The socket is closed exactly once before Run returns, on every path.
// The returned result is never nil and holds the exchanges completed so far
func (i *Initiator) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{}

	if i.config.ReplySize < 0 {
		return res, fmt.Errorf("%w: negative reply size %d", ErrInvalidConfig, i.config.ReplySize)
	}

	sock, err := i.opts.newSocket(i.config.Socket)
	if err != nil {
		return res, &TransportError{Op: "socket", Err: err}
	}
	defer closeSocket(sock, &err)

	ep, err := sock.Connect(ctx, i.config.Endpoint)
	if err != nil {
		return res, &TransportError{Op: "connect", Err: err}
	}
	res.Endpoint = ep.Addr()
	Logger.Infof("Initiator connected to %s", res.Endpoint)

	for n := range i.config.Exchanges() {
		start := time.Now()
		reply, err := i.exchange(ctx, sock)
		i.opts.record("initiator", start, err)
		if err != nil {
			return res, err
		}
		res.Received = append(res.Received, reply)
		Logger.Debugf("Exchange %d completed", n+1)
	}

	return res, nil
}

// exchange sends the request and receives one reply
func (i *Initiator) exchange(ctx context.Context, sock ISocket) ([]byte, error) {
	sent, err := sock.Send(ctx, i.config.Request)
	if err != nil {
		return nil, &TransportError{Op: "send", Err: err}
	}
	if sent != len(i.config.Request) {
		return nil, &TransportError{Op: "send", Err: fmt.Errorf("%w: %d of %d bytes", ErrShortSend, sent, len(i.config.Request))}
	}

	msg, err := sock.RecvMsg(ctx)
	if err != nil {
		return nil, &TransportError{Op: "recv", Err: err}
	}
	return i.consume(msg)
}

// consume checks the reply and releases the message buffer
func (i *Initiator) consume(msg *pair.Message) (reply []byte, err error) {
	defer func() {
		if ferr := msg.Free(); ferr != nil && err == nil {
			reply, err = nil, &TransportError{Op: "free", Err: ferr}
		}
	}()

	if msg.Len() != i.config.ReplySize {
		return nil, &LengthMismatchError{Op: "recv", Expected: i.config.ReplySize, Got: msg.Len()}
	}
	return append([]byte(nil), msg.Body...), nil
}
