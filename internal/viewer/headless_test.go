package viewer

import (
	"bytes"
	"testing"

	"github.com/penwyp/go-xpdf-session/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPages struct {
	pages    map[string]int
	recorded []string
}

func newMemoryPages() *memoryPages {
	return &memoryPages{pages: make(map[string]int)}
}

func (m *memoryPages) Get(path string) int {
	if p, ok := m.pages[path]; ok {
		return p
	}
	return 1
}

func (m *memoryPages) Record(path string, page int) {
	m.pages[path] = page
	m.recorded = append(m.recorded, path)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestOpenRestoresSavedPage(t *testing.T) {
	pages := newMemoryPages()
	pages.pages["/docs/a.pdf"] = 17
	h := NewHeadless(pages, nil)

	require.NoError(t, h.OpenInNewWindow(OpenRequest{Path: "/docs/a.pdf"}))
	require.NoError(t, h.OpenInNewTab(OpenRequest{Path: "/docs/b.pdf", Page: 4}))

	assert.Equal(t, []Document{
		{Window: 1, Path: "/docs/a.pdf", Page: 17},
		{Window: 1, Path: "/docs/b.pdf", Page: 4},
	}, h.Documents())
}

func TestOpenInNewTabWithoutWindow(t *testing.T) {
	h := NewHeadless(newMemoryPages(), nil)

	require.NoError(t, h.OpenInNewTab(OpenRequest{Path: "/docs/a.pdf"}))

	assert.Equal(t, 1, h.NumWindows())
}

func TestExecOpenFileInWithEscapedPath(t *testing.T) {
	h := NewHeadless(newMemoryPages(), nil)

	require.NoError(t, h.ExecCmd(remote.OpenFileIn("/docs/q(1),final.pdf", remote.TargetTab)))
	require.NoError(t, h.ExecCmd(remote.CmdRaise))

	docs := h.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "/docs/q(1),final.pdf", docs[0].Path)
}

func TestPageNavigationAndCloseRecords(t *testing.T) {
	pages := newMemoryPages()
	h := NewHeadless(pages, nil)
	require.NoError(t, h.OpenInNewWindow(OpenRequest{Path: "/docs/a.pdf"}))

	require.NoError(t, h.ExecCmd("gotoPage(9)"))
	require.NoError(t, h.ExecCmd("nextPage"))
	require.NoError(t, h.ExecCmd("nextPage"))
	require.NoError(t, h.ExecCmd("prevPage"))
	require.NoError(t, h.ExecCmd("closeTabOrQuit"))

	assert.Equal(t, 10, pages.pages["/docs/a.pdf"])
	assert.Equal(t, 0, h.NumWindows())
	assert.True(t, isClosed(h.Done()))
}

func TestQuitRecordsEveryDocument(t *testing.T) {
	pages := newMemoryPages()
	h := NewHeadless(pages, nil)
	require.NoError(t, h.OpenInNewWindow(OpenRequest{Path: "/a.pdf", Page: 2}))
	require.NoError(t, h.OpenInNewWindow(OpenRequest{Path: "/b.pdf", Page: 5}))
	require.NoError(t, h.OpenInNewTab(OpenRequest{Path: "/c.pdf", Page: 8}))

	require.NoError(t, h.ExecCmd("quit"))

	assert.ElementsMatch(t, []string{"/a.pdf", "/b.pdf", "/c.pdf"}, pages.recorded)
	assert.Equal(t, 8, pages.pages["/c.pdf"])
	assert.True(t, isClosed(h.Done()))
}

func TestCloseWindowKeepsOthersOpen(t *testing.T) {
	h := NewHeadless(newMemoryPages(), nil)
	h.NewWindow(false)
	require.NoError(t, h.OpenInNewWindow(OpenRequest{Path: "/a.pdf"}))

	require.NoError(t, h.ExecCmd("closeWindowOrQuit"))

	assert.Equal(t, 1, h.NumWindows())
	assert.False(t, isClosed(h.Done()))
}

func TestExecErrors(t *testing.T) {
	h := NewHeadless(newMemoryPages(), nil)

	assert.ErrorIs(t, h.ExecCmd("fly(away)"), ErrUnknownCommand)
	assert.ErrorIs(t, h.ExecCmd("gotoPage(3"), remote.ErrSyntax)
	assert.Error(t, h.ExecCmd("gotoPage(3)"), "no window yet")
	assert.Error(t, h.ExecCmd("openFile()"))

	require.NoError(t, h.OpenInNewWindow(OpenRequest{Path: "/a.pdf"}))
	assert.Error(t, h.ExecCmd("gotoPage(zero)"))
	assert.Error(t, h.ExecCmd("gotoPage(0)"))
}

func TestPrintCommands(t *testing.T) {
	var out bytes.Buffer
	h := NewHeadless(newMemoryPages(), &out)

	_ = h.ExecCmd("raise")
	_ = h.ExecCmd("bogus")

	assert.Equal(t, "raise\nbogus\n", out.String())
}
