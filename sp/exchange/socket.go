package exchange

import (
	"context"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/pair"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var Logger = logger.GetLogger("exchange")

// ISocket is the part of a pair socket used by an exchange
type ISocket interface {
	Bind(address string) (*pair.Endpoint, error)
	Connect(ctx context.Context, address string) (*pair.Endpoint, error)
	Send(ctx context.Context, data []byte) (int, error)
	Recv(ctx context.Context, buf []byte) (int, error)
	RecvMsg(ctx context.Context) (*pair.Message, error)
	Close() error
}

// SocketFactory creates the socket of an exchange
type SocketFactory func(config common.SocketConfig) (ISocket, error)

// NewPairSocket is the default SocketFactory
func NewPairSocket(config common.SocketConfig) (ISocket, error) {
	s, err := pair.NewSocket(config)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Result summarizes a finished run of a responder or initiator
type Result struct {
	// Endpoint is the bound (responder) or connected (initiator) address
	Endpoint string
	// Received holds a copy of every message received, one per exchange
	Received [][]byte
}

// Exchanges returns the number of completed exchanges
func (r *Result) Exchanges() int {
	return len(r.Received)
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	newSocket SocketFactory
	onBound   func(addr string)
	observe   func(d time.Duration)
}

// Option changes how a responder or initiator runs
type Option func(*options)

// WithSocketFactory replaces the socket implementation
func WithSocketFactory(f SocketFactory) Option {
	return func(o *options) {
		o.newSocket = f
	}
}

// WithBoundHook registers a function that is called with the resolved address
// once the responder is bound. Ignored by the initiator
func WithBoundHook(f func(addr string)) Option {
	return func(o *options) {
		o.onBound = f
	}
}

// WithExchangeObserver registers a function that receives the duration of every
// successful exchange
func WithExchangeObserver(f func(d time.Duration)) Option {
	return func(o *options) {
		o.observe = f
	}
}

func buildOptions(opts []Option) options {
	o := options{newSocket: NewPairSocket}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// closeSocket closes s and reports a failure through err unless err is already set
func closeSocket(s ISocket, err *error) {
	if cerr := s.Close(); cerr != nil && *err == nil {
		*err = &TransportError{Op: "close", Err: cerr}
	}
}

// record feeds the exchange metrics and the observer
func (o *options) record(role string, start time.Time, err error) {
	common.ObserveExchange(role, start, err)
	if err == nil && o.observe != nil {
		o.observe(time.Since(start))
	}
}
