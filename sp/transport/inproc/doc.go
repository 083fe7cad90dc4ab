// Package inproc implements the inproc:// transport, which connects sockets
// within the same process through synchronous in-memory pipes (net.Pipe).
//
// Bound addresses are kept in a process wide registry. Binding an address
// twice fails with ErrAddressInUse, connecting to an address nobody has bound
// fails with ErrConnectionRefused. Both wrap the matching syscall errors, so
// callers can treat them like their tcp counterparts.
package inproc
