package payload

import (
	"encoding/hex"
	"strings"
)

// NewHexCodec creates a codec for hex encoded payloads
func NewHexCodec() IPayloadCodec {
	return &hexCodecImpl{}
}

// hexCodecImpl implements the IPayloadCodec interface using hex encoding
type hexCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see payload.IPayloadCodec)
// --------------------------------------------------------------------------

func (h hexCodecImpl) Name() string {
	return "hex"
}

// Decode accepts upper and lower case digits, whitespace and an optional 0x prefix
func (h hexCodecImpl) Decode(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func (h hexCodecImpl) Encode(b []byte) string {
	return hex.EncodeToString(b)
}
