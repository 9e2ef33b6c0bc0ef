package ipc

import (
	"context"
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

// AbstractTransport binds sockets in the Linux abstract namespace. The
// kernel releases the name when the owning process exits, so there is no
// stale endpoint to clean up.
type AbstractTransport struct {
	// Namespace separates users sharing a network namespace.
	Namespace string
}

// NewAbstractTransport returns a transport whose endpoints live under namespace.
func NewAbstractTransport(namespace string) (*AbstractTransport, error) {
	return &AbstractTransport{Namespace: namespace}, nil
}

func (t *AbstractTransport) address(identity string) string {
	return "@" + t.Namespace + "/" + EndpointName(identity)
}

func (t *AbstractTransport) Listen(identity string) (net.Listener, error) {
	ln, err := net.Listen("unix", t.address(identity))
	if err != nil {
		if errors.Is(err, unix.EADDRINUSE) {
			return nil, ErrAlreadyBound
		}
		return nil, err
	}
	return ln, nil
}

func (t *AbstractTransport) Dial(ctx context.Context, identity string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", t.address(identity))
}
