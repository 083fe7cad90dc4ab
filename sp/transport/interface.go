package transport

import (
	"context"
	"github.com/ValentinKolb/dPair/sp/common"
	"net"
)

// IConnector is the interface every transport (tcp, ipc, inproc) implements.
// The pair socket only deals with net.Conn and net.Listener, everything
// medium specific lives behind this interface
type IConnector interface {
	// GetName returns the name of the transport type (e.g., "tcp", "ipc")
	GetName() string

	// Connect establishes a single connection to the given address
	// The address is the part after "scheme://"
	Connect(ctx context.Context, address string, config common.SocketConfig) (net.Conn, error)

	// Listen creates a listener for the given address
	Listen(address string, config common.SocketConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.SocketConfig) error

	// MessagePrefix returns the bytes written in front of the length of every message
	MessagePrefix() []byte
}
