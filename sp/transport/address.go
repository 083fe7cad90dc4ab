package transport

import (
	"errors"
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"strings"
)

var Logger = logger.GetLogger("transport")

// Supported address schemes
const (
	SchemeTCP    = "tcp"
	SchemeIPC    = "ipc"
	SchemeInproc = "inproc"
)

var (
	// ErrInvalidAddress is returned for addresses that are not of the form scheme://rest
	ErrInvalidAddress = errors.New("invalid address")
	// ErrUnsupportedScheme is returned for an unknown transport scheme
	ErrUnsupportedScheme = errors.New("unsupported transport scheme")
)

// Address is a parsed endpoint address (e.g. tcp://127.0.0.1:5555)
type Address struct {
	Scheme string
	Rest   string
}

// ParseAddress splits an URI-style address into scheme and remainder
func ParseAddress(address string) (Address, error) {
	scheme, rest, ok := strings.Cut(address, "://")
	if !ok || scheme == "" || rest == "" {
		return Address{}, fmt.Errorf("%w: %q (expected scheme://address)", ErrInvalidAddress, address)
	}

	scheme = strings.ToLower(scheme)
	switch scheme {
	case SchemeTCP, SchemeIPC, SchemeInproc:
	default:
		return Address{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	return Address{Scheme: scheme, Rest: rest}, nil
}

// String returns the address in its URI-style form
func (a Address) String() string {
	return a.Scheme + "://" + a.Rest
}
