// Package payload converts between the textual payloads used on the command
// line and the raw bytes exchanged by the pair socket. The bytes on the wire
// are never touched, codecs only apply to configuration and diagnostics.
//
// Key Components:
//
//   - IPayloadCodec: Interface all codecs implement, see ForName to select
//     one by name.
//
//   - textCodecImpl: Uses the text as is. When printing, trailing NUL
//     terminators are dropped and non printable payloads are escaped.
//
//   - hexCodecImpl: Hex digits, useful for binary payloads.
//
//   - base64CodecImpl: Standard base64 with padding.
//
// Thread Safety:
//
//	All codecs are stateless and safe for concurrent use.
package payload
