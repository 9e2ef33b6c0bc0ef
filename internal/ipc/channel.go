// Package ipc implements the local channel between viewer instances. A
// listener owns an instance identity; clients connect to it and write
// newline terminated commands.
package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penwyp/go-xpdf-session/internal/util"
)

// EndpointPrefix is prepended to an instance identity to form the endpoint name.
const EndpointPrefix = "xpdf_"

// DefaultIdentity is the instance claimed by the open-in-default-instance flag.
const DefaultIdentity = "default"

const (
	// DefaultTimeout bounds connect and drain waits.
	DefaultTimeout = 5 * time.Second
	// DefaultIdleTimeout bounds how long a server waits for the next line
	// from a connected client.
	DefaultIdleTimeout = time.Minute
)

var (
	// ErrAlreadyBound means another process holds the listener role.
	ErrAlreadyBound = errors.New("instance identity already bound")
	// ErrNotFound means no server accepted the connection.
	ErrNotFound = errors.New("no instance listening")
	// ErrTimeout is a bounded wait that expired. It also matches ErrNotFound.
	ErrTimeout = errors.New("instance channel timeout")
	// ErrInvalidIdentity rejects identities that cannot name an endpoint.
	ErrInvalidIdentity = errors.New("invalid instance identity")
	// ErrInvalidCommand rejects commands that would break line framing.
	ErrInvalidCommand = errors.New("command contains a line terminator")
)

// EndpointName maps an instance identity to its endpoint name.
func EndpointName(identity string) string {
	return EndpointPrefix + identity
}

// ValidateIdentity checks that identity can be used as an endpoint name.
func ValidateIdentity(identity string) error {
	if identity == "" || strings.ContainsAny(identity, "/\\\x00\n") || identity == "." || identity == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	return nil
}

// Transport is the platform endpoint primitive behind the channel.
type Transport interface {
	// Listen binds the endpoint for identity, failing with ErrAlreadyBound
	// when another listener owns it.
	Listen(identity string) (net.Listener, error)
	// Dial connects to the endpoint for identity.
	Dial(ctx context.Context, identity string) (net.Conn, error)
}

// Message is one complete command line received by a listener.
type Message struct {
	ConnID string
	Line   string
}

// Listener is the server side of an instance identity.
type Listener struct {
	identity    string
	ln          net.Listener
	idleTimeout time.Duration

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// Listen claims identity on transport.
func Listen(transport Transport, identity string) (*Listener, error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	ln, err := transport.Listen(identity)
	if err != nil {
		return nil, err
	}
	util.LogInfo("Instance listener bound", util.F("identity", identity), util.F("endpoint", ln.Addr().String()))
	return &Listener{
		identity:    identity,
		ln:          ln,
		idleTimeout: DefaultIdleTimeout,
		conns:       make(map[net.Conn]struct{}),
	}, nil
}

// Identity returns the instance identity this listener owns.
func (l *Listener) Identity() string {
	return l.identity
}

// SetIdleTimeout changes how long a connection may stay silent. Zero disables it.
func (l *Listener) SetIdleTimeout(d time.Duration) {
	l.idleTimeout = d
}

// Serve accepts connections until ctx is cancelled or the listener is closed.
// Every complete line is passed to deliver; lines from one connection are
// delivered in order, lines from different connections are not ordered. A
// final line without terminator is dropped.
func (l *Listener) Serve(ctx context.Context, deliver func(Message)) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			// Close waits for a concurrent close from ctx, so the identity
			// is released once Serve returns.
			l.Close()
			l.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !l.track(conn) {
			conn.Close()
			continue
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handleConn(conn, deliver)
		}()
	}
}

func (l *Listener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conns == nil {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *Listener) handleConn(conn net.Conn, deliver func(Message)) {
	defer func() {
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
		conn.Close()
	}()

	connID := uuid.NewString()
	util.LogDebug("Instance client connected", util.F("identity", l.identity), util.F("conn", connID))

	reader := bufio.NewReader(conn)
	count := 0
	for {
		if l.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(l.idleTimeout))
		}
		line, err := reader.ReadString('\n')
		if err == nil {
			count++
			deliver(Message{ConnID: connID, Line: strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")})
			continue
		}

		if line != "" {
			util.LogWarn("Dropping partial command line", util.F("conn", connID), util.F("bytes", len(line)))
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			util.LogWarn("Instance client read failed", util.F("conn", connID), util.F("error", err))
		}
		break
	}
	util.LogDebug("Instance client finished", util.F("conn", connID), util.F("commands", count))
}

// Close releases the identity and drops connected clients. Safe to call
// more than once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.ln.Close()

		l.mu.Lock()
		for conn := range l.conns {
			conn.Close()
		}
		l.conns = nil
		l.mu.Unlock()
	})
	return l.closeErr
}

// Conn is the client side of a connection to a running instance.
type Conn struct {
	conn    net.Conn
	writer  *bufio.Writer
	timeout time.Duration
}

// Dial connects to the listener owning identity. Failures are reported as
// ErrNotFound; an expired wait additionally matches ErrTimeout.
func Dial(ctx context.Context, transport Transport, identity string, timeout time.Duration) (*Conn, error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := transport.Dial(dialCtx, identity)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %w: %v", ErrNotFound, ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return &Conn{conn: conn, writer: bufio.NewWriter(conn), timeout: timeout}, nil
}

// ValidateCommand rejects commands that cannot be sent as one line.
func ValidateCommand(cmd string) error {
	if strings.ContainsAny(cmd, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, cmd)
	}
	return nil
}

// WriteCommand buffers cmd followed by a line terminator. Any flush to the
// peer this triggers waits at most the dial timeout.
func (c *Conn) WriteCommand(cmd string) error {
	if err := ValidateCommand(cmd); err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := c.writer.WriteString(cmd); err != nil {
		return writeError(err)
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return writeError(err)
	}
	return nil
}

func writeError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: write: %v", ErrTimeout, err)
	}
	return fmt.Errorf("write: %w", err)
}

// Close flushes buffered commands, waiting at most the dial timeout, and
// closes the connection.
func (c *Conn) Close() error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	flushErr := c.writer.Flush()
	closeErr := c.conn.Close()
	if flushErr != nil {
		return fmt.Errorf("drain: %w", writeError(flushErr))
	}
	return closeErr
}
