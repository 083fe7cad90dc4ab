// Package exchange implements the two sides of a request/reply exchange over
// a pair socket.
//
// Key Components:
//
//   - Responder: Binds, receives a request of RequestSize bytes into a bounded
//     buffer and answers with the configured reply.
//
//   - Initiator: Connects, sends the request and receives the reply in a
//     socket owned buffer (pair.Socket.RecvMsg), which is released after the
//     length check.
//
//   - RunBench: Runs both sides in one process and reports the latency.
//
// Errors:
//
//	Every failure is either a *TransportError (errors.Is(err, ErrTransport))
//	or a *LengthMismatchError (errors.Is(err, ErrLengthMismatch)). Both sides
//	close their socket exactly once, whichever step failed.
//
// Usage:
//
//	res, err := exchange.NewResponder(common.ResponderConfig{
//		Endpoint:    "tcp://127.0.0.1:5555",
//		Reply:       []byte("LUV"),
//		RequestSize: 3,
//		Socket:      common.DefaultSocketConfig(),
//	}).Run(ctx)
package exchange
