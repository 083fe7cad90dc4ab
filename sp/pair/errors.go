package pair

import (
	"errors"
	"github.com/ValentinKolb/dPair/sp/transport"
	"github.com/ValentinKolb/dPair/sp/transport/base"
)

var (
	// ErrClosed is returned by every operation on a closed socket,
	// including a second call to Close
	ErrClosed = errors.New("socket closed")
	// ErrMessageFreed is returned when a message is freed twice
	ErrMessageFreed = errors.New("message already freed")
	// ErrPeerExists is returned by Connect if the socket already has its peer
	ErrPeerExists = errors.New("pair socket already has a peer")
	// ErrInvalidEndpoint is returned when shutting down an endpoint that was already removed
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	// ErrTimedOut is returned when a send or receive exceeds the configured timeout
	ErrTimedOut = errors.New("operation timed out")
	// ErrInvalidConfig is returned by NewSocket for unusable settings
	ErrInvalidConfig = errors.New("invalid socket config")

	// ErrMessageTooLarge is returned when the peer sends more than RecvMaxSize bytes
	ErrMessageTooLarge = base.ErrMessageTooLarge
	// ErrProtocolMismatch is returned when the peer is not a pair socket
	ErrProtocolMismatch = base.ErrProtocolMismatch
	// ErrBadHeader is returned when the peer does not speak the SP protocol at all
	ErrBadHeader = base.ErrBadHeader
	// ErrUnsupportedScheme is returned for addresses with an unknown transport
	ErrUnsupportedScheme = transport.ErrUnsupportedScheme
)
