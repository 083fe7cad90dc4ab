package common

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultEndpoint is the address of the nanomsg pair examples
	DefaultEndpoint = "tcp://127.0.0.1:5555"
	// DefaultRequest is the payload the initiator sends by default
	DefaultRequest = "WHY"
	// DefaultReply is the payload the responder answers with by default
	DefaultReply = "LUV"
	// DefaultRecvMaxSize mirrors the library default for NN_RCVMAXSIZE (1 MiB)
	DefaultRecvMaxSize = 1024 * 1024
	// DefaultRecvQueueSize is the number of received messages buffered per socket
	DefaultRecvQueueSize = 16
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds settings for stream based transports (tcp, ipc)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds settings only used by the tcp transport
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec < 0 leaves the OS default in place
	TCPLingerSec int
}

// SocketConfig holds all parameters of a pair socket
type SocketConfig struct {
	// TimeoutSecond bounds every send and receive, 0 blocks forever
	TimeoutSecond int
	// DialTimeoutSecond bounds connecting to a remote endpoint, 0 uses the OS default
	DialTimeoutSecond int
	// RecvMaxSize is the largest message accepted from a peer, 0 disables the check
	RecvMaxSize int64
	// RecvQueueSize is the number of received messages buffered before the peer is slowed down
	RecvQueueSize int

	SocketConf SocketConf
	TCPConf    TCPConf
}

// DefaultSocketConfig returns the configuration used when nothing is set explicitly
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		RecvMaxSize:   DefaultRecvMaxSize,
		RecvQueueSize: DefaultRecvQueueSize,
		TCPConf: TCPConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// --------------------------------------------------------------------------
// Exchange configuration structs
// --------------------------------------------------------------------------

// ResponderConfig holds the parameters of the binding side of an exchange
type ResponderConfig struct {
	// Endpoint is the address to bind to (e.g. tcp://127.0.0.1:5555)
	Endpoint string
	// Reply is sent back for every request
	Reply []byte
	// RequestSize is the exact length every request must have
	RequestSize int
	// Count is the number of exchanges before the responder closes (minimum 1)
	Count int
	// Encoding is the payload codec used for printing diagnostics
	Encoding string

	Socket SocketConfig

	// Logging configuration
	LogLevel string
}

// InitiatorConfig holds the parameters of the connecting side of an exchange
type InitiatorConfig struct {
	// Endpoint is the address of the responder
	Endpoint string
	// Request is sent once per exchange
	Request []byte
	// ReplySize is the exact length every reply must have
	ReplySize int
	// Count is the number of exchanges before the initiator closes (minimum 1)
	Count int
	// Encoding is the payload codec used for printing diagnostics
	Encoding string

	Socket SocketConfig

	// Logging configuration
	LogLevel string
}

// BenchConfig holds the parameters of an in-process benchmark run
type BenchConfig struct {
	// Endpoint to run the benchmark on, an empty value picks a fresh inproc address
	Endpoint string
	// Rounds is the number of request/reply exchanges
	Rounds int
	// PayloadSize is the size of request and reply in bytes
	PayloadSize int

	Socket SocketConfig

	LogLevel string
}

// Exchanges returns the number of exchanges to run, which is at least one
func (c *ResponderConfig) Exchanges() int {
	return max(1, c.Count)
}

// Exchanges returns the number of exchanges to run, which is at least one
func (c *InitiatorConfig) Exchanges() int {
	return max(1, c.Count)
}

// --------------------------------------------------------------------------
// String representations
// --------------------------------------------------------------------------

// configWriter collects sections and fields with consistent formatting
type configWriter struct {
	sb strings.Builder
}

func (w *configWriter) section(title string) {
	w.sb.WriteString("\n")
	w.sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func (w *configWriter) field(name, value string) {
	w.sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
}

func (w *configWriter) socket(c SocketConfig) {
	w.section("Socket")
	w.field("Timeout", timeoutString(c.TimeoutSecond))
	w.field("Dial Timeout", timeoutString(c.DialTimeoutSecond))
	w.field("Recv Max Size", fmt.Sprintf("%d bytes", c.RecvMaxSize))
	w.field("Recv Queue Size", strconv.Itoa(c.RecvQueueSize))
	w.field("Write Buffer", fmt.Sprintf("%d bytes", c.SocketConf.WriteBufferSize))
	w.field("Read Buffer", fmt.Sprintf("%d bytes", c.SocketConf.ReadBufferSize))

	w.section("TCP")
	w.field("No Delay", strconv.FormatBool(c.TCPConf.TCPNoDelay))
	w.field("Keep Alive", fmt.Sprintf("%d sec", c.TCPConf.TCPKeepAliveSec))
	w.field("Linger", fmt.Sprintf("%d sec", c.TCPConf.TCPLingerSec))
}

func timeoutString(sec int) string {
	if sec <= 0 {
		return "none"
	}
	return fmt.Sprintf("%d sec", sec)
}

// String returns a formatted string representation of the responder configuration
func (c *ResponderConfig) String() string {
	w := &configWriter{}

	w.section("Responder")
	w.field("Endpoint", c.Endpoint)
	w.field("Reply Size", fmt.Sprintf("%d bytes", len(c.Reply)))
	w.field("Request Size", fmt.Sprintf("%d bytes", c.RequestSize))
	w.field("Exchanges", strconv.Itoa(c.Exchanges()))
	w.field("Encoding", c.Encoding)

	w.socket(c.Socket)

	w.section("Logging")
	w.field("Log Level", c.LogLevel)

	return w.sb.String()
}

// String returns a formatted string representation of the initiator configuration
func (c *InitiatorConfig) String() string {
	w := &configWriter{}

	w.section("Initiator")
	w.field("Endpoint", c.Endpoint)
	w.field("Request Size", fmt.Sprintf("%d bytes", len(c.Request)))
	w.field("Reply Size", fmt.Sprintf("%d bytes", c.ReplySize))
	w.field("Exchanges", strconv.Itoa(c.Exchanges()))
	w.field("Encoding", c.Encoding)

	w.socket(c.Socket)

	w.section("Logging")
	w.field("Log Level", c.LogLevel)

	return w.sb.String()
}

// String returns a formatted string representation of the bench configuration
func (c *BenchConfig) String() string {
	w := &configWriter{}

	w.section("Bench")
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = "inproc (generated)"
	}
	w.field("Endpoint", endpoint)
	w.field("Rounds", strconv.Itoa(c.Rounds))
	w.field("Payload Size", fmt.Sprintf("%d bytes", c.PayloadSize))

	w.socket(c.Socket)

	return w.sb.String()
}
