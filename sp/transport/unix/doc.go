// Package unix implements the ipc:// transport of the pair socket using Unix
// domain sockets, for processes running on the same machine.
//
// Addresses have the form ipc:///path/to/socket. A stale socket file left
// behind by a crashed process is removed on bind, a socket file that still
// accepts connections is treated as "address in use".
//
// Like the ipc transport of nanomsg, every message is preceded by a single
// message type byte (0x01).
package unix
