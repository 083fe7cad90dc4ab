package tcp

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/transport"
	"github.com/ValentinKolb/dPair/sp/transport/base"
	"net"
	"time"
)

// connector implements the transport.IConnector interface for TCP sockets
type connector struct{}

// NewTCPConnector creates the connector for tcp:// addresses
func NewTCPConnector() transport.IConnector {
	return &connector{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnector)
// --------------------------------------------------------------------------

func (c *connector) GetName() string {
	return "tcp"
}

func (c *connector) Connect(ctx context.Context, address string, config common.SocketConfig) (net.Conn, error) {
	dialer := net.Dialer{}
	if config.DialTimeoutSecond > 0 {
		dialer.Timeout = time.Duration(config.DialTimeoutSecond) * time.Second
	}
	return dialer.DialContext(ctx, "tcp", address)
}

func (c *connector) Listen(address string, _ common.SocketConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}
	return listener, nil
}

// UpgradeConnection applies TCPConf and the socket buffer sizes to a TCP connection
func (c *connector) UpgradeConnection(conn net.Conn, config common.SocketConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	opts := config.TCPConf

	if err := tcpConn.SetNoDelay(opts.TCPNoDelay); err != nil {
		return fmt.Errorf("failed to set TCP_NODELAY: %w", err)
	}

	if opts.TCPKeepAliveSec > 0 {
		period := time.Duration(opts.TCPKeepAliveSec) * time.Second
		keepAlive := net.KeepAliveConfig{Enable: true, Idle: period, Interval: period}
		if err := tcpConn.SetKeepAliveConfig(keepAlive); err != nil {
			return fmt.Errorf("failed to enable keep-alive: %w", err)
		}
	}

	// a negative linger keeps the OS default
	if opts.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(opts.TCPLingerSec); err != nil {
			return fmt.Errorf("failed to set linger: %w", err)
		}
	}

	return base.SetBuffers(tcpConn, config.SocketConf)
}

func (c *connector) MessagePrefix() []byte {
	return nil
}
