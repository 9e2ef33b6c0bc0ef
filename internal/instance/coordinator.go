// Package instance decides at startup whether this process forwards its
// request to a running viewer or becomes the running viewer itself.
package instance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/penwyp/go-xpdf-session/internal/ipc"
	"github.com/penwyp/go-xpdf-session/internal/remote"
	"github.com/penwyp/go-xpdf-session/internal/util"
	"github.com/penwyp/go-xpdf-session/internal/viewer"
)

// Coordinator runs the single-instance handshake over a transport.
type Coordinator struct {
	transport ipc.Transport
	timeout   time.Duration
}

// New returns a coordinator. A non-positive timeout selects ipc.DefaultTimeout.
func New(transport ipc.Transport, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = ipc.DefaultTimeout
	}
	return &Coordinator{transport: transport, timeout: timeout}
}

// TryDelegate sends commands, in order, to the instance owning identity.
// It returns false without side effects when no instance answers or when a
// command cannot be framed as a single line; the request is then handled
// locally instead of being forwarded in part.
func (c *Coordinator) TryDelegate(ctx context.Context, identity string, commands []string) bool {
	for _, cmd := range commands {
		if err := ipc.ValidateCommand(cmd); err != nil {
			util.LogWarn("Not delegating request", util.F("identity", identity), util.F("error", err))
			return false
		}
	}

	conn, err := ipc.Dial(ctx, c.transport, identity, c.timeout)
	if err != nil {
		util.LogDebug("No running instance", util.F("identity", identity), util.F("error", err))
		return false
	}

	for _, cmd := range commands {
		if err := conn.WriteCommand(cmd); err != nil {
			util.LogWarn("Stopped sending commands", util.F("command", cmd), util.F("error", err))
			break
		}
	}
	if err := conn.Close(); err != nil {
		// The server may have received part of the request; starting a second
		// viewer would duplicate it.
		util.LogWarn("Incomplete delivery to running instance", util.F("identity", identity), util.F("error", err))
	}

	util.LogInfo("Delegated to running instance", util.F("identity", identity), util.F("commands", len(commands)))
	return true
}

// ClaimAndServe takes the listener role for identity. It fails with
// ipc.ErrAlreadyBound when another process holds it.
func (c *Coordinator) ClaimAndServe(identity string) (*ipc.Listener, error) {
	return ipc.Listen(c.transport, identity)
}

// Mode is the startup policy picked from the command line.
type Mode int

const (
	// ModeLocal opens the requested files without any IPC.
	ModeLocal Mode = iota
	// ModeOpenDefault forwards a file to the "default" instance.
	ModeOpenDefault
	// ModeRemote forwards raw commands to a named instance.
	ModeRemote
)

func (m Mode) String() string {
	switch m {
	case ModeOpenDefault:
		return "open-default"
	case ModeRemote:
		return "remote"
	default:
		return "local"
	}
}

// Intent is the parsed command line relevant to startup.
type Intent struct {
	Open       bool
	Remote     string
	Args       []string
	FullScreen bool
	Rotate     int
	Password   string
}

// Mode returns the startup policy for the intent.
func (in Intent) Mode() Mode {
	switch {
	case in.Remote != "":
		return ModeRemote
	case in.Open:
		return ModeOpenDefault
	default:
		return ModeLocal
	}
}

// Plan is the identity and commands a delegation attempt would use.
type Plan struct {
	Mode     Mode
	Identity string
	Commands []string
}

// MakePlan derives the delegation plan. The open-default plan carries a single
// escaped "open in tab" command followed by "raise"; it is empty when no file
// was given. The remote plan forwards every argument verbatim.
func MakePlan(in Intent) (Plan, error) {
	plan := Plan{Mode: in.Mode()}
	switch plan.Mode {
	case ModeRemote:
		plan.Identity = in.Remote
		plan.Commands = append([]string(nil), in.Args...)
	case ModeOpenDefault:
		plan.Identity = ipc.DefaultIdentity
		if len(in.Args) > 0 {
			abs, err := filepath.Abs(in.Args[0])
			if err != nil {
				return Plan{}, fmt.Errorf("resolve %s: %w", in.Args[0], err)
			}
			plan.Commands = []string{remote.OpenFileIn(abs, remote.TargetTab), remote.CmdRaise}
		}
	}
	return plan, nil
}

// Result describes how startup ended.
type Result struct {
	// Delegated is true when a running instance took the request; the caller
	// should exit successfully.
	Delegated bool
	// Listener is non-nil when this process became the server for an identity.
	Listener *ipc.Listener
	Mode     Mode
}

// Start applies the startup policy. On delegation nothing is opened locally.
// Otherwise windows are created through windows and, for the IPC modes, the
// identity is claimed so later invocations can reach this process.
func (c *Coordinator) Start(ctx context.Context, in Intent, windows viewer.WindowSystem) (*Result, error) {
	plan, err := MakePlan(in)
	if err != nil {
		return nil, err
	}
	result := &Result{Mode: plan.Mode}

	if plan.Mode != ModeLocal {
		if c.TryDelegate(ctx, plan.Identity, plan.Commands) {
			result.Delegated = true
			return result, nil
		}
		result.Listener = c.claim(plan.Identity)
	}

	switch plan.Mode {
	case ModeRemote:
		windows.NewWindow(false)
		for _, cmd := range in.Args {
			if err := windows.ExecCmd(cmd); err != nil {
				util.LogWarn("Command failed", util.F("command", cmd), util.F("error", err))
			}
		}

	case ModeOpenDefault:
		if len(in.Args) > 0 {
			req := viewer.OpenRequest{
				Path:       in.Args[0],
				Rotate:     in.Rotate,
				Password:   in.Password,
				FullScreen: in.FullScreen,
			}
			if err := windows.OpenInNewWindow(req); err != nil {
				util.LogWarn("Cannot open document", util.F("path", req.Path), util.F("error", err))
			}
		}
		if windows.NumWindows() == 0 {
			windows.NewWindow(in.FullScreen)
		}

	default:
		c.openLocal(in, windows)
	}
	return result, nil
}

// claim binds identity. Losing a race to another process that bound it after
// our connect attempt leaves this process running without a listener.
func (c *Coordinator) claim(identity string) *ipc.Listener {
	l, err := c.ClaimAndServe(identity)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyBound) {
			util.LogWarn("Instance identity taken by another process", util.F("identity", identity))
		} else {
			util.LogWarn("Cannot start instance listener", util.F("identity", identity), util.F("error", err))
		}
		return nil
	}
	return l
}

func (c *Coordinator) openLocal(in Intent, windows viewer.WindowSystem) {
	files := ParseFileArgs(in.Args)
	for _, f := range files {
		req := viewer.OpenRequest{
			Path:       f.Path,
			Page:       f.Page,
			Dest:       f.Dest,
			Rotate:     in.Rotate,
			Password:   in.Password,
			FullScreen: in.FullScreen,
		}
		var err error
		if windows.NumWindows() > 0 {
			err = windows.OpenInNewTab(req)
		} else {
			err = windows.OpenInNewWindow(req)
		}
		if err != nil {
			util.LogWarn("Cannot open document", util.F("path", f.Path), util.F("error", err))
		}
	}
	if windows.NumWindows() == 0 {
		windows.NewWindow(in.FullScreen)
	}
}
