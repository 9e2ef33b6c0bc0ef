//go:build !linux

package ipc

import (
	"context"
	"errors"
	"net"
)

// ErrAbstractUnsupported is returned on platforms without an abstract socket namespace.
var ErrAbstractUnsupported = errors.New("abstract sockets are only available on linux")

// AbstractTransport is unavailable outside Linux.
type AbstractTransport struct {
	Namespace string
}

// NewAbstractTransport always fails on this platform.
func NewAbstractTransport(namespace string) (*AbstractTransport, error) {
	return nil, ErrAbstractUnsupported
}

func (t *AbstractTransport) Listen(identity string) (net.Listener, error) {
	return nil, ErrAbstractUnsupported
}

func (t *AbstractTransport) Dial(ctx context.Context, identity string) (net.Conn, error) {
	return nil, ErrAbstractUnsupported
}
