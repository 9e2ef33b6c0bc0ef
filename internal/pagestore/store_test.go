package pagestore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePagesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".xpdf.pages")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "does-not-exist"), 0)

	records := store.Load()

	assert.Empty(t, records)
	assert.Equal(t, DefaultCapacity, store.Capacity())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []Record
	}{
		{
			name:    "well formed",
			content: "xpdf.pages-1\n12 /docs/a.pdf\n3 /docs/b.pdf\n",
			expected: []Record{
				{Path: "/docs/a.pdf", Page: 12},
				{Path: "/docs/b.pdf", Page: 3},
			},
		},
		{
			name:     "path containing spaces",
			content:  "xpdf.pages-1\n7 /my docs/annual report.pdf\n",
			expected: []Record{{Path: "/my docs/annual report.pdf", Page: 7}},
		},
		{
			name:     "missing separator is skipped",
			content:  "xpdf.pages-1\n5 /docs/a.pdf\n42\n",
			expected: []Record{{Path: "/docs/a.pdf", Page: 5}},
		},
		{
			name:     "non numeric page is skipped",
			content:  "xpdf.pages-1\nten /docs/a.pdf\n2 /docs/b.pdf\n",
			expected: []Record{{Path: "/docs/b.pdf", Page: 2}},
		},
		{
			name:     "zero page and empty path are skipped",
			content:  "xpdf.pages-1\n0 /docs/a.pdf\n4 \n9 /docs/c.pdf\n",
			expected: []Record{{Path: "/docs/c.pdf", Page: 9}},
		},
		{
			name:     "last line without newline",
			content:  "xpdf.pages-1\n8 /docs/a.pdf",
			expected: []Record{{Path: "/docs/a.pdf", Page: 8}},
		},
		{
			name:     "duplicate keeps most recent",
			content:  "xpdf.pages-1\n8 /docs/a.pdf\n2 /docs/a.pdf\n",
			expected: []Record{{Path: "/docs/a.pdf", Page: 8}},
		},
		{
			name:     "wrong header",
			content:  "xpdf.pages-2\n1 /docs/a.pdf\n",
			expected: nil,
		},
		{
			name:     "header without newline",
			content:  "xpdf.pages-1",
			expected: nil,
		},
		{
			name:     "empty file",
			content:  "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(writePagesFile(t, tt.content), DefaultCapacity)
			assert.Equal(t, tt.expected, store.Load())
		})
	}
}

func TestLoadCapacity(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(Header + "\n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&sb, "%d /docs/%d.pdf\n", i, i)
	}
	store := New(writePagesFile(t, sb.String()), 3)

	records := store.Load()

	require.Len(t, records, 3)
	assert.Equal(t, "/docs/1.pdf", records[0].Path)
	assert.Equal(t, "/docs/3.pdf", records[2].Path)
}

func TestSaveWritesFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".xpdf.pages")
	store := New(path, DefaultCapacity)

	err := store.Save([]Record{
		{Path: "/docs/a.pdf", Page: 4},
		{Path: "", Page: 2},
		{Path: "/docs/bad\nname.pdf", Page: 2},
		{Path: "/docs/b.pdf", Page: 1},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "xpdf.pages-1\n4 /docs/a.pdf\n1 /docs/b.pdf\n", string(data))
}

func TestSaveTruncatesToCapacity(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "pages"), 2)

	require.NoError(t, store.Save([]Record{
		{Path: "/a", Page: 1},
		{Path: "/b", Page: 2},
		{Path: "/c", Page: 3},
	}))

	assert.Equal(t, []Record{{Path: "/a", Page: 1}, {Path: "/b", Page: 2}}, store.Load())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	content := "xpdf.pages-1\n12 /docs/a.pdf\n1 /tmp/with space.pdf\n300 /x/y(z),w.pdf\n"
	path := writePagesFile(t, content)
	store := New(path, DefaultCapacity)

	require.NoError(t, store.Save(store.Load()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestSaveUnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	store := New(filepath.Join(blocker, "pages"), DefaultCapacity)

	err := store.Save([]Record{{Path: "/a", Page: 1}})

	assert.ErrorIs(t, err, ErrPersistenceUnavailable)
}

func TestStampChangesOnSave(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "pages"), DefaultCapacity)

	before, err := store.Stamp()
	require.NoError(t, err)
	assert.False(t, before.Exists)

	require.NoError(t, store.Save([]Record{{Path: "/a", Page: 1}}))
	first, err := store.Stamp()
	require.NoError(t, err)
	assert.True(t, first.Exists)

	require.NoError(t, store.Save([]Record{{Path: "/a", Page: 2}}))
	second, err := store.Stamp()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecodeBadHeader(t *testing.T) {
	_, err := Decode(strings.NewReader("garbage\n1 /a\n"), DefaultCapacity)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil, DefaultCapacity))
	assert.Equal(t, Header+"\n", buf.String())
}
