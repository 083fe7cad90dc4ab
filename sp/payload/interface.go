package payload

import "fmt"

// IPayloadCodec is the interface for all payload codecs. A codec turns the
// payload given on the command line into bytes and renders received bytes
// for diagnostics
type IPayloadCodec interface {
	// Name returns the name used to select the codec (e.g. "hex")
	Name() string
	// Decode converts a textual payload into the bytes sent on the wire
	Decode(s string) ([]byte, error)
	// Encode renders bytes received from the wire as text
	Encode(b []byte) string
}

// ForName returns the codec with the given name (text, hex, base64)
func ForName(name string) (IPayloadCodec, error) {
	switch name {
	case "text", "":
		return NewTextCodec(), nil
	case "hex":
		return NewHexCodec(), nil
	case "base64":
		return NewBase64Codec(), nil
	default:
		return nil, fmt.Errorf("invalid encoding %s (expected one of: text, hex, base64)", name)
	}
}
