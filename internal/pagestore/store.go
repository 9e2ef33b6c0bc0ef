// Package pagestore reads and writes the per-user file that remembers the
// last page viewed in each document.
//
// The file is line oriented:
//
//	xpdf.pages-1
//	<page> <canonical path>
//	...
//
// Lines are ordered most recently used first. A missing file, an unreadable
// file or a wrong header all load as an empty list.
package pagestore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio"
	"github.com/penwyp/go-xpdf-session/internal/util"
)

const (
	// Header is the literal first line of a version 1 pages file.
	Header = "xpdf.pages-1"

	// DefaultCapacity is the number of documents remembered.
	DefaultCapacity = 100
)

var (
	// ErrPersistenceUnavailable wraps failures to write the pages file.
	ErrPersistenceUnavailable = errors.New("pages file unavailable")
	// ErrBadHeader is returned by Decode when the version header is missing or unknown.
	ErrBadHeader = errors.New("unrecognized pages file header")
	// ErrMalformedRecord marks a single line that could not be parsed.
	ErrMalformedRecord = errors.New("malformed page record")
)

// Record is the last page viewed for one document.
type Record struct {
	Path string `json:"path"`
	Page int    `json:"page"`
}

// Valid reports whether r can be stored in the pages file.
func (r Record) Valid() bool {
	return r.Path != "" && r.Page >= 1 && !strings.ContainsAny(r.Path, "\n")
}

// Store persists records at a fixed path. It holds no records itself.
type Store struct {
	path     string
	capacity int
}

// New returns a store for the file at path keeping at most capacity records.
func New(path string, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{path: path, capacity: capacity}
}

// Path returns the location of the pages file.
func (s *Store) Path() string {
	return s.path
}

// Capacity returns the maximum number of records read or written.
func (s *Store) Capacity() int {
	return s.capacity
}

// Stamp reports the current on-disk version of the pages file.
func (s *Store) Stamp() (util.FileStamp, error) {
	return util.GetFileStamp(s.path)
}

// Load reads the pages file. Any failure degrades to an empty list.
func (s *Store) Load() []Record {
	f, err := os.Open(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			util.LogWarn("Cannot open pages file", util.F("path", s.path), util.F("error", err))
		}
		return nil
	}
	defer f.Close()

	records, err := Decode(f, s.capacity)
	if err != nil {
		util.LogWarn("Ignoring pages file", util.F("path", s.path), util.F("error", err))
		return nil
	}
	util.LogDebugf("Loaded %d page records from %s", len(records), s.path)
	return records
}

// Save replaces the pages file with records. The new content is written to a
// temporary file and renamed over the old one, so readers see either the old
// or the new file in full.
func (s *Store) Save(records []Record) error {
	var buf bytes.Buffer
	if err := Encode(&buf, records, s.capacity); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrPersistenceUnavailable, err)
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}

	util.LogDebugf("Saved %d page records to %s", len(records), s.path)
	return nil
}

// Decode parses a pages file. Malformed lines are skipped; at most capacity
// records are returned. Only a bad header is an error.
func Decode(r io.Reader, capacity int) ([]Record, error) {
	br := bufio.NewReader(r)

	header, err := br.ReadString('\n')
	if err != nil || header != Header+"\n" {
		return nil, ErrBadHeader
	}

	var records []Record
	seen := make(map[string]struct{})
	lineNo := 1
	for len(records) < capacity {
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			break
		}
		lineNo++

		rec, perr := parseLine(strings.TrimSuffix(line, "\n"))
		if perr != nil {
			util.LogDebug("Skipping page record", util.F("line", lineNo), util.F("error", perr))
		} else if _, dup := seen[rec.Path]; dup {
			util.LogDebug("Skipping duplicate page record", util.F("line", lineNo), util.F("path", rec.Path))
		} else {
			seen[rec.Path] = struct{}{}
			records = append(records, rec)
		}

		if err != nil {
			break
		}
	}
	return records, nil
}

func parseLine(line string) (Record, error) {
	sep := strings.IndexByte(line, ' ')
	if sep < 0 {
		return Record{}, fmt.Errorf("%w: missing separator", ErrMalformedRecord)
	}
	page, err := strconv.Atoi(line[:sep])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad page number %q", ErrMalformedRecord, line[:sep])
	}
	rec := Record{Path: line[sep+1:], Page: page}
	if !rec.Valid() {
		return Record{}, fmt.Errorf("%w: invalid record %d %q", ErrMalformedRecord, page, rec.Path)
	}
	return rec, nil
}

// Encode writes the header followed by at most capacity valid records.
func Encode(w io.Writer, records []Record, capacity int) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return err
	}

	written := 0
	for _, rec := range records {
		if written >= capacity {
			break
		}
		if !rec.Valid() {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%d %s\n", rec.Page, rec.Path); err != nil {
			return err
		}
		written++
	}
	return bw.Flush()
}
