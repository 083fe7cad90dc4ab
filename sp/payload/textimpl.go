package payload

import (
	"bytes"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// NewTextCodec creates a codec that uses the payload text as is
func NewTextCodec() IPayloadCodec {
	return &textCodecImpl{}
}

// textCodecImpl implements the IPayloadCodec interface for plain text
type textCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see payload.IPayloadCodec)
// --------------------------------------------------------------------------

func (t textCodecImpl) Name() string {
	return "text"
}

func (t textCodecImpl) Decode(s string) ([]byte, error) {
	return []byte(s), nil
}

// Encode drops trailing NUL terminators and quotes payloads that are not printable
func (t textCodecImpl) Encode(b []byte) string {
	b = bytes.TrimRight(b, "\x00")
	if printable(b) {
		return string(b)
	}
	s := strconv.QuoteToASCII(string(b))
	return s[1 : len(s)-1]
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
