package viewer

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/penwyp/go-xpdf-session/internal/remote"
	"github.com/penwyp/go-xpdf-session/internal/util"
)

type tab struct {
	path string
	page int
}

type window struct {
	id         int
	fullScreen bool
	tabs       []*tab
	active     int
}

func (w *window) current() *tab {
	if w.active < 0 || w.active >= len(w.tabs) {
		return nil
	}
	return w.tabs[w.active]
}

// Headless is a WindowSystem without a display. Opening a document restores
// its saved page and closing one records the page it was left on.
type Headless struct {
	pages         PageMemory
	printCommands io.Writer

	windows []*window
	nextID  int

	doneOnce sync.Once
	done     chan struct{}
}

// NewHeadless returns an empty window system. When printCommands is non-nil
// every executed command is echoed to it.
func NewHeadless(pages PageMemory, printCommands io.Writer) *Headless {
	return &Headless{
		pages:         pages,
		printCommands: printCommands,
		done:          make(chan struct{}),
	}
}

func (h *Headless) NewWindow(fullScreen bool) {
	h.addWindow(fullScreen)
}

func (h *Headless) addWindow(fullScreen bool) *window {
	h.nextID++
	w := &window{id: h.nextID, fullScreen: fullScreen, active: -1}
	// Most recently created window first, like a raised window stack.
	h.windows = append([]*window{w}, h.windows...)
	util.LogDebug("Window created", util.F("window", w.id))
	return w
}

func (h *Headless) OpenInNewWindow(req OpenRequest) error {
	t, err := h.load(req)
	if err != nil {
		return err
	}
	w := h.addWindow(req.FullScreen)
	w.tabs = append(w.tabs, t)
	w.active = 0
	return nil
}

func (h *Headless) OpenInNewTab(req OpenRequest) error {
	if len(h.windows) == 0 {
		return h.OpenInNewWindow(req)
	}
	t, err := h.load(req)
	if err != nil {
		return err
	}
	w := h.windows[0]
	w.tabs = append(w.tabs, t)
	w.active = len(w.tabs) - 1
	return nil
}

// load resolves the starting page of a document.
func (h *Headless) load(req OpenRequest) (*tab, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("open: empty file name")
	}
	page := req.Page
	if page <= 0 {
		page = h.pages.Get(req.Path)
	}
	util.LogInfo("Opened document", util.F("path", req.Path), util.F("page", page))
	return &tab{path: req.Path, page: page}, nil
}

// ExecCmd parses and runs a single command line.
func (h *Headless) ExecCmd(line string) error {
	if h.printCommands != nil {
		fmt.Fprintln(h.printCommands, line)
	}

	cmd, err := remote.Parse(line)
	if err != nil {
		return err
	}

	switch cmd.Name {
	case remote.CmdOpenFile:
		if len(cmd.Args) < 1 {
			return fmt.Errorf("%s: missing file name", cmd.Name)
		}
		return h.OpenInNewTab(OpenRequest{Path: cmd.Args[0]})

	case remote.CmdOpenFileIn:
		if len(cmd.Args) < 2 {
			return fmt.Errorf("%s: expected file and target", cmd.Name)
		}
		req := OpenRequest{Path: cmd.Args[0]}
		if cmd.Args[1] == remote.TargetNewWindow {
			return h.OpenInNewWindow(req)
		}
		return h.OpenInNewTab(req)

	case remote.CmdGotoPage:
		if len(cmd.Args) < 1 {
			return fmt.Errorf("%s: missing page", cmd.Name)
		}
		page, err := strconv.Atoi(cmd.Args[0])
		if err != nil || page < 1 {
			return fmt.Errorf("%s: bad page %q", cmd.Name, cmd.Args[0])
		}
		return h.withCurrent(func(t *tab) { t.page = page })

	case remote.CmdNextPage:
		return h.withCurrent(func(t *tab) { t.page++ })

	case remote.CmdPrevPage:
		return h.withCurrent(func(t *tab) {
			if t.page > 1 {
				t.page--
			}
		})

	case remote.CmdRaise:
		if len(h.windows) > 0 {
			util.LogDebug("Raise window", util.F("window", h.windows[0].id))
		}
		return nil

	case remote.CmdCloseTab:
		h.closeTab()
		return nil

	case remote.CmdCloseWindow:
		if len(h.windows) > 0 {
			h.closeWindow(h.windows[0])
		}
		h.quitIfEmpty()
		return nil

	case remote.CmdQuit:
		h.CloseAll()
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
}

func (h *Headless) withCurrent(fn func(t *tab)) error {
	if len(h.windows) == 0 {
		return fmt.Errorf("no open window")
	}
	t := h.windows[0].current()
	if t == nil {
		return fmt.Errorf("no open document")
	}
	fn(t)
	return nil
}

func (h *Headless) closeTab() {
	if len(h.windows) == 0 {
		h.quitIfEmpty()
		return
	}
	w := h.windows[0]
	t := w.current()
	if t == nil {
		h.closeWindow(w)
		h.quitIfEmpty()
		return
	}
	h.pages.Record(t.path, t.page)
	w.tabs = append(w.tabs[:w.active], w.tabs[w.active+1:]...)
	if w.active >= len(w.tabs) {
		w.active = len(w.tabs) - 1
	}
	if len(w.tabs) == 0 {
		h.closeWindow(w)
	}
	h.quitIfEmpty()
}

func (h *Headless) closeWindow(w *window) {
	for _, t := range w.tabs {
		h.pages.Record(t.path, t.page)
	}
	w.tabs = nil
	for i, other := range h.windows {
		if other == w {
			h.windows = append(h.windows[:i], h.windows[i+1:]...)
			break
		}
	}
	util.LogDebug("Window closed", util.F("window", w.id))
}

func (h *Headless) quitIfEmpty() {
	if len(h.windows) == 0 {
		h.doneOnce.Do(func() { close(h.done) })
	}
}

func (h *Headless) NumWindows() int {
	return len(h.windows)
}

func (h *Headless) CloseAll() {
	for len(h.windows) > 0 {
		h.closeWindow(h.windows[0])
	}
	h.quitIfEmpty()
}

func (h *Headless) Done() <-chan struct{} {
	return h.done
}

// Document is an open document as seen by callers of Documents.
type Document struct {
	Window int
	Path   string
	Page   int
}

// Documents lists open documents, front window first.
func (h *Headless) Documents() []Document {
	var docs []Document
	for _, w := range h.windows {
		for _, t := range w.tabs {
			docs = append(docs, Document{Window: w.id, Path: t.path, Page: t.page})
		}
	}
	return docs
}
