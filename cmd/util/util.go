package util

import (
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/payload"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strings"
)

// Logger is shared by all commands
var Logger = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupSocketFlags adds the socket and logging flags to a command
func SetupSocketFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Timeout in seconds for every send and receive (0 blocks forever)"))

	key = "dial-timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Timeout in seconds for connecting to the responder (0 uses the OS default)"))

	key = "recv-max-size"
	cmd.PersistentFlags().Int64(key, common.DefaultRecvMaxSize, WrapString("Largest message accepted from the peer in bytes, larger messages drop the connection (0 disables the limit)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default, ignored for inproc)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default, ignored for inproc)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, 0 disables keepalive, only for tcp)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time (in seconds, negative values keep the OS default, only for tcp)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print all metrics in the prometheus text format before exiting"))
}

// SetupExchangeFlags adds the flags shared by responder and initiator to a command
func SetupExchangeFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, common.DefaultEndpoint, WrapString("The address to bind to (respond) or connect to (initiate), e.g. tcp://127.0.0.1:5555, ipc:///tmp/dpair.sock"))

	key = "request"
	cmd.PersistentFlags().String(key, "", WrapString(fmt.Sprintf("The request payload in the selected encoding (default %s)", common.DefaultRequest)))

	key = "reply"
	cmd.PersistentFlags().String(key, "", WrapString(fmt.Sprintf("The reply payload in the selected encoding (default %s)", common.DefaultReply)))

	key = "request-size"
	cmd.PersistentFlags().Int(key, -1, WrapString("Exact length of every request in bytes (negative values use the length of the request payload)"))

	key = "reply-size"
	cmd.PersistentFlags().Int(key, -1, WrapString("Exact length of every reply in bytes (negative values use the length of the reply payload)"))

	key = "encoding"
	cmd.PersistentFlags().String(key, "text", WrapString("Encoding of the payload flags and the printed messages (text, hex, base64)"))

	key = "count"
	cmd.PersistentFlags().Int(key, 1, WrapString("Number of request/reply exchanges before the socket is closed"))
}

// InitConfig loads env files and initializes viper. The format of the
// environment variables is DPAIR_<flag> (e.g. DPAIR_ENDPOINT)
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dpair")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetSocketConfig reads the socket configuration from viper
func GetSocketConfig() common.SocketConfig {
	conf := common.DefaultSocketConfig()
	conf.TimeoutSecond = viper.GetInt("timeout")
	conf.DialTimeoutSecond = viper.GetInt("dial-timeout")
	conf.RecvMaxSize = viper.GetInt64("recv-max-size")
	conf.SocketConf = common.SocketConf{
		WriteBufferSize: viper.GetInt("write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
	}
	conf.TCPConf = common.TCPConf{
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
	}
	return conf
}

// GetCodec creates the payload codec selected by the encoding flag
func GetCodec() (payload.IPayloadCodec, error) {
	return payload.ForName(viper.GetString("encoding"))
}

// GetPayload decodes the payload flag key. If the flag is empty, fallback is
// used as is
func GetPayload(codec payload.IPayloadCodec, key, fallback string) ([]byte, error) {
	value := viper.GetString(key)
	if value == "" {
		return []byte(fallback), nil
	}
	data, err := codec.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s payload %q (%s): %w", key, value, codec.Name(), err)
	}
	return data, nil
}

// GetSize returns the size flag key, or the length of data if the flag is negative
func GetSize(key string, data []byte) int {
	if size := viper.GetInt(key); size >= 0 {
		return size
	}
	return len(data)
}

// InitLogging sets the log level from the log-level flag
func InitLogging() error {
	return common.InitLoggers(viper.GetString("log-level"))
}

// PrintMetrics writes all metrics to stdout if the metrics flag is set
func PrintMetrics() {
	if viper.GetBool("metrics") {
		fmt.Println()
		common.WriteMetrics(os.Stdout)
	}
}
