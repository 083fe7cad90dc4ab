// Package cmd implements the command-line interface of dPair. It provides one
// command per side of a request/reply exchange over a pair socket.
//
// The package is organized into several subpackages:
//
//   - respond: Binds and answers requests (the responder)
//   - initiate: Connects and sends requests (the initiator)
//   - bench: Runs both sides in one process and measures the latency
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Exit codes: 0 on success, 1 on transport or configuration errors and 2 if
// a message had an unexpected length.
//
// See dpair -help for a list of all commands.
package cmd
