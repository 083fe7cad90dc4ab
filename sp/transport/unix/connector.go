package unix

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/transport"
	"github.com/ValentinKolb/dPair/sp/transport/base"
	"net"
	"os"
	"syscall"
	"time"
)

// messagePrefix is the message type byte the ipc transport puts in front of every message
var messagePrefix = []byte{0x01}

// connector implements the transport.IConnector interface for Unix sockets
type connector struct{}

// NewIPCConnector creates the connector for ipc:// addresses
func NewIPCConnector() transport.IConnector {
	return &connector{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnector)
// --------------------------------------------------------------------------

func (c *connector) GetName() string {
	return "ipc"
}

func (c *connector) Connect(ctx context.Context, address string, config common.SocketConfig) (net.Conn, error) {
	dialer := net.Dialer{}
	if config.DialTimeoutSecond > 0 {
		dialer.Timeout = time.Duration(config.DialTimeoutSecond) * time.Second
	}
	return dialer.DialContext(ctx, "unix", address)
}

func (c *connector) Listen(address string, _ common.SocketConfig) (net.Listener, error) {
	// Remove a stale socket file, but never a live one
	if _, err := os.Stat(address); err == nil {
		if conn, err := net.Dial("unix", address); err == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create Unix socket: %s: %w", address, syscall.EADDRINUSE)
		}
		if err := os.Remove(address); err != nil {
			return nil, fmt.Errorf("failed to remove existing socket: %w", err)
		}
		transport.Logger.Infof("Removed stale socket file %s", address)
	}

	listener, err := net.Listen("unix", address)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %w", err)
	}

	// Remove the socket file when the listener is closed
	listener.(*net.UnixListener).SetUnlinkOnClose(true)

	return listener, nil
}

// UpgradeConnection applies the socket buffer sizes to a Unix connection
func (c *connector) UpgradeConnection(conn net.Conn, config common.SocketConfig) error {
	if unixConn, ok := conn.(*net.UnixConn); ok {
		return base.SetBuffers(unixConn, config.SocketConf)
	}
	return nil
}

func (c *connector) MessagePrefix() []byte {
	return messagePrefix
}
