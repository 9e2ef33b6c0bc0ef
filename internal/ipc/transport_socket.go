package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// SocketTransport places one Unix domain socket per identity in Dir. A lock
// file next to each socket decides ownership, so a socket left behind by a
// crashed process is replaced instead of reported as bound.
type SocketTransport struct {
	Dir string
}

// NewSocketTransport returns a transport rooted at dir.
func NewSocketTransport(dir string) *SocketTransport {
	return &SocketTransport{Dir: dir}
}

// SocketPath returns the filesystem path of the socket for identity.
func (t *SocketTransport) SocketPath(identity string) string {
	return filepath.Join(t.Dir, EndpointName(identity))
}

func (t *SocketTransport) Listen(identity string) (net.Listener, error) {
	if err := os.MkdirAll(t.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}

	path := t.SocketPath(identity)
	lock, err := acquireLock(path + ".lock")
	if err != nil {
		return nil, err
	}

	// Remove stale socket file if it exists
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		lock.release()
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		lock.release()
		return nil, err
	}
	return &lockedListener{Listener: ln, lock: lock}, nil
}

func (t *SocketTransport) Dial(ctx context.Context, identity string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", t.SocketPath(identity))
}

// lockedListener releases the ownership lock after the socket is closed.
type lockedListener struct {
	net.Listener
	lock *fileLock
	once sync.Once
	err  error
}

func (l *lockedListener) Close() error {
	l.once.Do(func() {
		l.err = l.Listener.Close()
		if err := l.lock.release(); err != nil && l.err == nil {
			l.err = err
		}
	})
	return l.err
}
