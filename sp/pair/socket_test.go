package pair

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/transport/inproc"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

var inprocCounter atomic.Int64

// testAddresses returns one bindable address per transport
func testAddresses(t *testing.T) map[string]string {
	return map[string]string{
		"tcp":    "tcp://127.0.0.1:0",
		"ipc":    "ipc://" + filepath.Join(t.TempDir(), "pair.sock"),
		"inproc": fmt.Sprintf("inproc://pair-test-%d", inprocCounter.Add(1)),
	}
}

// newTestSocket creates a socket that is closed when the test ends
func newTestSocket(t *testing.T, conf common.SocketConfig) *Socket {
	t.Helper()
	s, err := NewSocket(conf)
	if err != nil {
		t.Fatalf("Failed to create socket: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// connectedPair binds one socket to address and connects a second one to it
func connectedPair(t *testing.T, address string, conf common.SocketConfig) (*Socket, *Socket, *Endpoint) {
	t.Helper()
	server := newTestSocket(t, conf)
	client := newTestSocket(t, conf)

	ep, err := server.Bind(address)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if _, err := client.Connect(context.Background(), ep.Addr()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return server, client, ep
}

// eventually polls cond until it is true or a second has passed
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func shortContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

// TestExchange tests a request/reply exchange over every transport
func TestExchange(t *testing.T) {
	for name, address := range testAddresses(t) {
		t.Run(name, func(t *testing.T) {
			server, client, _ := connectedPair(t, address, common.DefaultSocketConfig())
			ctx := context.Background()

			// request
			if n, err := client.Send(ctx, []byte("WHY")); err != nil || n != 3 {
				t.Fatalf("Send failed: n=%d, err=%v", n, err)
			}

			buf := make([]byte, 4)
			n, err := server.Recv(ctx, buf)
			if err != nil {
				t.Fatalf("Recv failed: %v", err)
			}
			if n != 3 || string(buf[:n]) != "WHY" {
				t.Fatalf("Unexpected request: %q (%d bytes)", buf[:min(n, len(buf))], n)
			}

			// reply
			if _, err := server.Send(ctx, []byte("LUV")); err != nil {
				t.Fatalf("Send failed: %v", err)
			}

			msg, err := client.RecvMsg(ctx)
			if err != nil {
				t.Fatalf("RecvMsg failed: %v", err)
			}
			if msg.Len() != 3 || string(msg.Body) != "LUV" {
				t.Fatalf("Unexpected reply: %q", msg.Body)
			}
			if err := msg.Free(); err != nil {
				t.Fatalf("Free failed: %v", err)
			}
			if err := msg.Free(); !errors.Is(err, ErrMessageFreed) {
				t.Fatalf("Expected ErrMessageFreed, got %v", err)
			}

			// close exactly once
			if err := server.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if err := server.Close(); !errors.Is(err, ErrClosed) {
				t.Fatalf("Expected ErrClosed, got %v", err)
			}
		})
	}
}

// TestLargeMessages tests messages larger than the pooled buffers
func TestLargeMessages(t *testing.T) {
	server, client, _ := connectedPair(t, testAddresses(t)["tcp"], common.DefaultSocketConfig())
	ctx := context.Background()

	payload := bytes.Repeat([]byte("0123456789abcdef"), pooledBufferSize/8)
	go func() { _, _ = client.Send(ctx, payload) }()

	msg, err := server.RecvMsg(ctx)
	if err != nil {
		t.Fatalf("RecvMsg failed: %v", err)
	}
	defer msg.Free()

	if !bytes.Equal(msg.Body, payload) {
		t.Fatalf("Payload mismatch: got %d bytes, want %d bytes", msg.Len(), len(payload))
	}
}

// TestRecvTruncates tests that Recv reports the full length of a truncated message
func TestRecvTruncates(t *testing.T) {
	server, client, _ := connectedPair(t, testAddresses(t)["inproc"], common.DefaultSocketConfig())
	ctx := context.Background()

	go func() { _, _ = client.Send(ctx, []byte("ABCDE")) }()

	buf := make([]byte, 3)
	n, err := server.Recv(ctx, buf)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected full length 5, got %d", n)
	}
	if string(buf) != "ABC" {
		t.Errorf("Expected truncated payload ABC, got %q", buf)
	}
}

// TestQueuedMessagesSurvivePeerClose tests that a reply sent right before the peer closes is delivered
func TestQueuedMessagesSurvivePeerClose(t *testing.T) {
	server, client, _ := connectedPair(t, testAddresses(t)["tcp"], common.DefaultSocketConfig())
	ctx := context.Background()

	if _, err := server.Send(ctx, []byte("LUV")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	buf := make([]byte, 3)
	if n, err := client.Recv(ctx, buf); err != nil || n != 3 {
		t.Fatalf("Recv failed: n=%d, err=%v", n, err)
	}
}

// TestEndpointIDs tests that endpoint IDs start at 1 and increase
func TestEndpointIDs(t *testing.T) {
	s := newTestSocket(t, common.DefaultSocketConfig())
	addresses := testAddresses(t)

	first, err := s.Bind(addresses["tcp"])
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	second, err := s.Bind(addresses["inproc"])
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	if first.ID() != 1 || second.ID() != 2 {
		t.Errorf("Unexpected endpoint IDs %d, %d", first.ID(), second.ID())
	}
	if first.Addr() == addresses["tcp"] {
		t.Errorf("Expected resolved address, got %s", first.Addr())
	}
}

// TestBindAddressInUse tests that binding a used address fails
func TestBindAddressInUse(t *testing.T) {
	for name, address := range map[string]string{
		"tcp":    testAddresses(t)["tcp"],
		"ipc":    testAddresses(t)["ipc"],
		"inproc": testAddresses(t)["inproc"],
	} {
		t.Run(name, func(t *testing.T) {
			first := newTestSocket(t, common.DefaultSocketConfig())
			second := newTestSocket(t, common.DefaultSocketConfig())

			ep, err := first.Bind(address)
			if err != nil {
				t.Fatalf("Bind failed: %v", err)
			}
			if _, err := second.Bind(ep.Addr()); !errors.Is(err, syscall.EADDRINUSE) {
				t.Fatalf("Expected EADDRINUSE, got %v", err)
			}
		})
	}
}

// TestConnectRefused tests that connecting without a bound peer fails right away
func TestConnectRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	closedPort := "tcp://" + l.Addr().String()
	l.Close()

	for name, address := range map[string]string{
		"tcp":    closedPort,
		"inproc": "inproc://nobody-bound-this",
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestSocket(t, common.DefaultSocketConfig())
			_, err := s.Connect(context.Background(), address)
			if !errors.Is(err, syscall.ECONNREFUSED) {
				t.Fatalf("Expected ECONNREFUSED, got %v", err)
			}
		})
	}
}

// TestInvalidAddresses tests address validation
func TestInvalidAddresses(t *testing.T) {
	s := newTestSocket(t, common.DefaultSocketConfig())

	if _, err := s.Bind("ws://localhost:80"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Expected ErrUnsupportedScheme, got %v", err)
	}
	if _, err := s.Connect(context.Background(), "127.0.0.1:5555"); err == nil {
		t.Error("Expected error for address without scheme")
	}
}

// TestSecondPeerRefused tests that a pair socket only talks to one peer
func TestSecondPeerRefused(t *testing.T) {
	server, client, ep := connectedPair(t, testAddresses(t)["tcp"], common.DefaultSocketConfig())
	eventually(t, "first peer", func() bool { return server.currentPeer() != nil })
	first := server.currentPeer()

	intruder := newTestSocket(t, common.DefaultSocketConfig())
	if _, err := intruder.Connect(context.Background(), ep.Addr()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// the server drops the second connection, so the intruder loses its peer
	eventually(t, "intruder to lose its peer", func() bool { return intruder.currentPeer() == nil })

	if server.currentPeer() != first {
		t.Fatal("Server peer changed")
	}

	// the first peer still works
	ctx := context.Background()
	go func() { _, _ = client.Send(ctx, []byte("WHY")) }()
	buf := make([]byte, 3)
	if _, err := server.Recv(ctx, buf); err != nil || string(buf) != "WHY" {
		t.Fatalf("Unexpected recv: %q, %v", buf, err)
	}
}

// TestConnectWithPeer tests that Connect fails if the socket already has a peer
func TestConnectWithPeer(t *testing.T) {
	_, client, _ := connectedPair(t, testAddresses(t)["inproc"], common.DefaultSocketConfig())

	other := newTestSocket(t, common.DefaultSocketConfig())
	ep, err := other.Bind(testAddresses(t)["inproc"])
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	if _, err := client.Connect(context.Background(), ep.Addr()); !errors.Is(err, ErrPeerExists) {
		t.Fatalf("Expected ErrPeerExists, got %v", err)
	}
}

// TestMessageTooLarge tests that an oversized message drops the peer
func TestMessageTooLarge(t *testing.T) {
	conf := common.DefaultSocketConfig()
	conf.RecvMaxSize = 4
	server, client, _ := connectedPair(t, testAddresses(t)["tcp"], conf)

	if _, err := client.Send(context.Background(), []byte("too large")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	eventually(t, "client to lose its peer", func() bool { return client.currentPeer() == nil })

	if _, err := server.RecvMsg(shortContext(t)); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("Expected ErrTimedOut, got %v", err)
	}
}

// TestHandshakeRejectsOtherProtocols tests that peers speaking another protocol are dropped
func TestHandshakeRejectsOtherProtocols(t *testing.T) {
	server := newTestSocket(t, common.DefaultSocketConfig())
	ep, err := server.Bind("tcp://127.0.0.1:0")
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	testCases := []struct {
		name       string
		header     []byte
		wantHeader bool
	}{
		{name: "req socket", header: []byte{0x00, 'S', 'P', 0x00, 0x00, 0x30, 0x00, 0x00}, wantHeader: true},
		{name: "garbage", header: []byte("GET / HT")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := net.Dial("tcp", strings.TrimPrefix(ep.Addr(), "tcp://"))
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			defer conn.Close()

			if _, err := conn.Write(tc.header); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			// the server closes the connection after the header exchange
			_ = conn.SetReadDeadline(time.Now().Add(time.Second))
			got, err := io.ReadAll(conn)
			if err != nil {
				t.Fatalf("Expected connection to be closed, got %v", err)
			}
			if tc.wantHeader && !bytes.Equal(got, []byte{0x00, 'S', 'P', 0x00, 0x00, 0x10, 0x00, 0x00}) {
				t.Errorf("Unexpected server header % x", got)
			}
			if server.currentPeer() != nil {
				t.Error("Expected no peer to be attached")
			}
		})
	}
}

// TestTimeouts tests that blocking operations give up
func TestTimeouts(t *testing.T) {
	t.Run("send without peer", func(t *testing.T) {
		s := newTestSocket(t, common.DefaultSocketConfig())
		if _, err := s.Send(shortContext(t), []byte("WHY")); !errors.Is(err, ErrTimedOut) {
			t.Fatalf("Expected ErrTimedOut, got %v", err)
		}
	})

	t.Run("recv without message", func(t *testing.T) {
		_, client, _ := connectedPair(t, testAddresses(t)["inproc"], common.DefaultSocketConfig())
		if _, err := client.RecvMsg(shortContext(t)); !errors.Is(err, ErrTimedOut) {
			t.Fatalf("Expected ErrTimedOut, got %v", err)
		}
	})

	t.Run("socket timeout", func(t *testing.T) {
		conf := common.DefaultSocketConfig()
		conf.TimeoutSecond = 1
		s := newTestSocket(t, conf)

		start := time.Now()
		if _, err := s.RecvMsg(context.Background()); !errors.Is(err, ErrTimedOut) {
			t.Fatalf("Expected ErrTimedOut, got %v", err)
		}
		if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
			t.Errorf("Returned too early after %s", elapsed)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		s := newTestSocket(t, common.DefaultSocketConfig())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.RecvMsg(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	})
}

// TestCloseUnblocks tests that Close releases blocked calls and later calls fail
func TestCloseUnblocks(t *testing.T) {
	s, err := NewSocket(common.DefaultSocketConfig())
	if err != nil {
		t.Fatalf("Failed to create socket: %v", err)
	}
	if _, err := s.Bind(testAddresses(t)["inproc"]); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.RecvMsg(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RecvMsg did not return after Close")
	}

	if _, err := s.Send(context.Background(), []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Send, got %v", err)
	}
	if _, err := s.Bind(testAddresses(t)["inproc"]); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Bind, got %v", err)
	}
	if _, err := s.Connect(context.Background(), "inproc://x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Connect, got %v", err)
	}
}

// TestEndpointShutdown tests removing endpoints
func TestEndpointShutdown(t *testing.T) {
	server, client, bound := connectedPair(t, testAddresses(t)["tcp"], common.DefaultSocketConfig())
	eventually(t, "peer", func() bool { return server.currentPeer() != nil })

	if err := bound.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := bound.Shutdown(); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("Expected ErrInvalidEndpoint, got %v", err)
	}

	// the accepted peer is gone and nobody listens anymore
	eventually(t, "server to lose its peer", func() bool { return server.currentPeer() == nil })
	eventually(t, "client to lose its peer", func() bool { return client.currentPeer() == nil })

	other := newTestSocket(t, common.DefaultSocketConfig())
	if _, err := other.Connect(context.Background(), bound.Addr()); err == nil {
		t.Fatal("Expected connect to a shut down endpoint to fail")
	}
}

// TestNewSocketValidation tests that unusable configurations are rejected
func TestNewSocketValidation(t *testing.T) {
	conf := common.DefaultSocketConfig()
	conf.TimeoutSecond = -1
	if _, err := NewSocket(conf); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
}

// TestShutdownDuringHandshake tests that a connection accepted before its
// endpoint was shut down is not attached once its handshake completes
func TestShutdownDuringHandshake(t *testing.T) {
	s := newTestSocket(t, common.DefaultSocketConfig())
	ep, err := s.Bind(testAddresses(t)["inproc"])
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	// inproc connects return once the listener accepted the connection
	conn := dialRaw(t, ep)

	if err := ep.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	rawHandshake(t, conn)

	// the socket must drop the connection instead of attaching it
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Fatalf("Expected connection to be closed, got %v", err)
	}
	if _, err := s.Send(shortContext(t), []byte("WHY")); !errors.Is(err, ErrTimedOut) {
		t.Errorf("Expected send without peer to time out, got %v", err)
	}
}

// dialRaw opens an inproc connection to ep without a socket on the client side
func dialRaw(t *testing.T, ep *Endpoint) net.Conn {
	t.Helper()
	conn, err := inproc.NewInprocConnector().Connect(context.Background(), strings.TrimPrefix(ep.Addr(), "inproc://"), common.DefaultSocketConfig())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// rawHandshake performs the pair handshake by hand, both sides write their header concurrently
func rawHandshake(t *testing.T, conn net.Conn) {
	t.Helper()
	header := []byte{0x00, 'S', 'P', 0x00, byte(ProtocolID >> 8), byte(ProtocolID), 0x00, 0x00}
	written := make(chan error, 1)
	go func() {
		_, err := conn.Write(header)
		written <- err
	}()
	peerHeader := make([]byte, len(header))
	if _, err := io.ReadFull(conn, peerHeader); err != nil {
		t.Fatalf("Failed to read socket header: %v", err)
	}
	if err := <-written; err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}
}

// TestHugeLengthWithoutLimit tests that an announced length is not trusted
// when the receive limit is disabled
func TestHugeLengthWithoutLimit(t *testing.T) {
	conf := common.DefaultSocketConfig()
	conf.RecvMaxSize = 0
	s := newTestSocket(t, conf)
	ep, err := s.Bind(testAddresses(t)["inproc"])
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	conn := dialRaw(t, ep)
	rawHandshake(t, conn)

	// announce 2^63-1 bytes but send only a few, then hang up
	if _, err := conn.Write([]byte{0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 'W', 'H', 'Y'}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	conn.Close()

	if _, err := s.RecvMsg(shortContext(t)); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("Expected no message, got %v", err)
	}
	eventually(t, "peer to be dropped", func() bool { return s.currentPeer() == nil })
}
