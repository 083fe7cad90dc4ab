package unix

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dPair/sp/common"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

// TestListenRemovesStaleSocket tests that a leftover socket file does not block binding
func TestListenRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("Failed to create stale file: %v", err)
	}

	l, err := NewIPCConnector().Listen(path, common.DefaultSocketConfig())
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	l.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected socket file to be removed on close, got %v", err)
	}
}

// TestListenInUse tests that a live socket is not taken over
func TestListenInUse(t *testing.T) {
	c := NewIPCConnector()
	conf := common.DefaultSocketConfig()
	path := filepath.Join(t.TempDir(), "live.sock")

	l, err := c.Listen(path, conf)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	// accept the probe connection of the second listen
	go func() {
		if conn, err := l.Accept(); err == nil {
			conn.Close()
		}
	}()

	if _, err := c.Listen(path, conf); !errors.Is(err, syscall.EADDRINUSE) {
		t.Fatalf("Expected EADDRINUSE, got %v", err)
	}
}

// TestConnect tests a connection over a unix socket
func TestConnect(t *testing.T) {
	c := NewIPCConnector()
	conf := common.DefaultSocketConfig()
	conf.SocketConf.WriteBufferSize = 32 * 1024
	path := filepath.Join(t.TempDir(), "connect.sock")

	l, err := c.Listen(path, conf)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	go func() {
		if conn, err := l.Accept(); err == nil {
			conn.Close()
		}
	}()

	conn, err := c.Connect(context.Background(), path, conf)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	if err := c.UpgradeConnection(conn, conf); err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}
	if got := c.MessagePrefix(); len(got) != 1 || got[0] != 0x01 {
		t.Errorf("Unexpected message prefix % x", got)
	}
}
