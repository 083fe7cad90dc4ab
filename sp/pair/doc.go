// Package pair implements a pair socket: a bidirectional, message oriented
// socket with exactly one peer, wire compatible with the NN_PAIR sockets of
// nanomsg.
//
// Key Components:
//
//   - Socket: Owns endpoints, the current peer connection and the queue of
//     received messages. Created with NewSocket, released with Close.
//
//   - Endpoint: Result of Bind (listening) or Connect (dialing). Endpoints
//     are numbered from 1 and can be removed individually with Shutdown.
//
//   - Message: A received message whose buffer is owned by the socket
//     (RecvMsg). It must be released with Free exactly once.
//
// Receive modes:
//
//   - Recv copies the message into a caller supplied buffer. Larger messages
//     are truncated, the returned length is the full message size.
//
//   - RecvMsg hands out a pooled buffer, which avoids the copy.
//
// Blocking:
//
//	Send waits for a peer, Recv and RecvMsg wait for a message. Both honour
//	the context and, if configured, the socket timeout (TimeoutSecond), in
//	which case ErrTimedOut is returned. Connect dials synchronously and
//	fails if the peer is unreachable.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Every bound endpoint runs one
//	accept goroutine and the attached peer one reader goroutine. Close waits
//	for all of them.
package pair
