// Package base implements the wire format shared by all transports of the
// pair socket. The format is the one of the SP (scalability protocols) family,
// so peers written against nanomsg interoperate.
//
// Connection setup:
//
//	Both peers send an 8 byte header immediately after connecting:
//
//	  0x00 'S' 'P' 0x00 | protocol id (2 bytes, big endian) | 0x00 0x00
//
//	and check the header of the other side. A pair socket (protocol id 0x0010)
//	only accepts pair peers.
//
// Messages:
//
//	Every message is sent as an optional transport prefix (the ipc transport
//	uses a single 0x01 byte), the payload length as 8 byte big endian integer
//	and the payload itself. Message boundaries are preserved, there is no
//	other framing.
//
// Performance:
//
//	WriteMessage uses net.Buffers to combine header and payload into a single
//	write. ReadMessage takes an allocation function, so the caller can provide
//	pooled buffers.
package base
