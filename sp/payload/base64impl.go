package payload

import (
	"encoding/base64"
	"strings"
)

// NewBase64Codec creates a codec for base64 (standard alphabet, padded) payloads
func NewBase64Codec() IPayloadCodec {
	return &base64CodecImpl{}
}

// base64CodecImpl implements the IPayloadCodec interface using base64 encoding
type base64CodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see payload.IPayloadCodec)
// --------------------------------------------------------------------------

func (b base64CodecImpl) Name() string {
	return "base64"
}

func (b base64CodecImpl) Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func (b base64CodecImpl) Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
