// Package tcp implements the tcp:// transport of the pair socket.
//
// Addresses have the form tcp://host:port. Binding to port 0 picks a free
// port, the resolved address is reported by the endpoint.
//
// Accepted and dialed connections are upgraded with the configured TCP
// options (TCP_NODELAY, keep-alive, linger) and socket buffer sizes.
// Messages carry no transport prefix.
package tcp
