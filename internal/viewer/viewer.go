// Package viewer defines the window subsystem the session layer drives and
// a headless implementation of it that tracks documents and pages without
// rendering anything.
package viewer

import (
	"errors"
)

// ErrUnknownCommand is returned for commands the window subsystem does not implement.
var ErrUnknownCommand = errors.New("unknown command")

// OpenRequest describes a document to open. Page 0 restores the last saved page.
type OpenRequest struct {
	Path       string
	Page       int
	Dest       string
	Rotate     int
	Password   string
	FullScreen bool
}

// WindowSystem creates viewer windows and executes commands on them.
type WindowSystem interface {
	NewWindow(fullScreen bool)
	OpenInNewWindow(req OpenRequest) error
	OpenInNewTab(req OpenRequest) error
	// ExecCmd runs a command that is not bound to any particular window.
	ExecCmd(cmd string) error
	NumWindows() int
	// CloseAll closes every window, recording the page of each open document.
	CloseAll()
	// Done is closed once the last window is gone after a quit request.
	Done() <-chan struct{}
}

// PageMemory remembers the last viewed page per document.
type PageMemory interface {
	Get(path string) int
	Record(path string, page int)
}
