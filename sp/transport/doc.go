// Package transport defines the abstraction the pair socket uses to reach its
// peer. A transport is selected by the scheme of an URI-style address:
//
//   - tcp://host:port for TCP connections
//   - ipc:///path/to/socket for Unix domain sockets
//   - inproc://name for connections within the same process
//
// Key Components:
//
//   - IConnector: Interface implemented by every transport. It creates
//     connections and listeners and applies medium specific settings.
//
//   - Address: Parsed form of an URI-style address, see ParseAddress.
//
// The wire format shared by all transports lives in the base package.
package transport
