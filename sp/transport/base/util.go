package base

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"io"
	"math"
	"net"
	"time"
)

const (
	// HeaderSize is the size of the protocol header both peers exchange on connect
	HeaderSize = 8
	// lengthSize is the size of the length field in front of every message
	lengthSize = 8
)

var (
	// ErrBadHeader is returned if the peer does not speak the SP protocol
	ErrBadHeader = errors.New("invalid protocol header")
	// ErrProtocolMismatch is returned if the peer uses an incompatible protocol
	ErrProtocolMismatch = errors.New("incompatible peer protocol")
	// ErrMessageTooLarge is returned if a message exceeds the configured maximum size
	ErrMessageTooLarge = errors.New("message too large")
	// ErrBadMessagePrefix is returned if a message does not start with the transport prefix
	ErrBadMessagePrefix = errors.New("invalid message prefix")
)

// --------------------------------------------------------------------------
// Handshake
// --------------------------------------------------------------------------

// writeHeader writes the protocol header with the format:
// - 1 byte: 0x00
// - 2 bytes: "SP"
// - 1 byte: version 0x00
// - 2 bytes: protocol id (uint16, big endian)
// - 2 bytes: reserved, 0x0000
func writeHeader(w io.Writer, protocol uint16) error {
	header := []byte{0x00, 'S', 'P', 0x00, 0, 0, 0x00, 0x00}
	binary.BigEndian.PutUint16(header[4:6], protocol)
	_, err := w.Write(header)
	return err
}

// readHeader reads the header of the peer and returns its protocol id
func readHeader(r io.Reader) (uint16, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}

	if header[0] != 0x00 || header[1] != 'S' || header[2] != 'P' || header[3] != 0x00 ||
		header[6] != 0x00 || header[7] != 0x00 {
		return 0, fmt.Errorf("%w: % x", ErrBadHeader, header)
	}

	return binary.BigEndian.Uint16(header[4:6]), nil
}

// Handshake exchanges protocol headers with the peer and checks that the peer
// speaks the expected protocol. Both sides send first, so the header is
// written concurrently to reading (synchronous pipes would deadlock otherwise).
// A timeout <= 0 disables the deadline
func Handshake(conn net.Conn, self, peer uint16, timeout time.Duration) error {
	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("failed to set handshake deadline: %w", err)
		}
		defer conn.SetDeadline(time.Time{})
	}

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- writeHeader(conn, self)
	}()

	got, err := readHeader(conn)
	if err != nil {
		// unblock a pending write before giving up
		_ = conn.SetWriteDeadline(time.Unix(1, 0))
		<-writeErr
		return fmt.Errorf("failed to read peer header: %w", err)
	}

	if err := <-writeErr; err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if got != peer {
		return fmt.Errorf("%w: got 0x%04x, expected 0x%04x", ErrProtocolMismatch, got, peer)
	}
	return nil
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

// WriteMessage writes a message to the connection with the format:
// - P bytes: transport prefix (may be empty)
// - 8 bytes: data length (uint64, big endian)
// - N bytes: data payload
func WriteMessage(conn net.Conn, prefix []byte, data []byte) error {
	header := make([]byte, len(prefix)+lengthSize)
	copy(header, prefix)
	binary.BigEndian.PutUint64(header[len(prefix):], uint64(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// ReadMessage reads a message from the connection. The buffer for the payload
// is obtained from alloc, so callers can hand out pooled buffers.
// A maxSize <= 0 disables the size check. Payloads larger than allocChunkSize
// are read in chunks, so a peer announcing a huge length cannot make the
// reader allocate more than it actually sends
func ReadMessage(r io.Reader, prefix []byte, maxSize int64, alloc func(size int) []byte) ([]byte, error) {
	header := make([]byte, len(prefix)+lengthSize)

	// Read header
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	// Check prefix
	for i, b := range prefix {
		if header[i] != b {
			return nil, fmt.Errorf("%w: 0x%02x", ErrBadMessagePrefix, header[i])
		}
	}

	// Parse length
	contentLength := binary.BigEndian.Uint64(header[len(prefix):])
	if (maxSize > 0 && contentLength > uint64(maxSize)) || contentLength > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, contentLength, maxSize)
	}

	if contentLength <= allocChunkSize {
		buf := alloc(int(contentLength))
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, unexpectedEOF(err)
		}
		return buf, nil
	}

	var body bytes.Buffer
	body.Grow(allocChunkSize)
	if _, err := io.CopyN(&body, r, int64(contentLength)); err != nil {
		return nil, unexpectedEOF(err)
	}
	return body.Bytes(), nil
}

// allocChunkSize is the largest payload that is allocated up front
const allocChunkSize = 1024 * 1024 // 1 MB

// unexpectedEOF maps io.EOF inside a message body to io.ErrUnexpectedEOF
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// --------------------------------------------------------------------------
// Socket options
// --------------------------------------------------------------------------

// BufferedConn is implemented by connections with kernel socket buffers
// (*net.TCPConn, *net.UnixConn)
type BufferedConn interface {
	SetReadBuffer(bytes int) error
	SetWriteBuffer(bytes int) error
}

// SetBuffers applies the configured socket buffer sizes, a size <= 0 keeps
// the OS default
func SetBuffers(conn BufferedConn, conf common.SocketConf) error {
	if conf.WriteBufferSize > 0 {
		if err := conn.SetWriteBuffer(conf.WriteBufferSize); err != nil {
			return fmt.Errorf("failed to set write buffer: %w", err)
		}
	}
	if conf.ReadBufferSize > 0 {
		if err := conn.SetReadBuffer(conf.ReadBufferSize); err != nil {
			return fmt.Errorf("failed to set read buffer: %w", err)
		}
	}
	return nil
}
