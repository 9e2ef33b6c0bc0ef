// Package recency keeps the last viewed page of recently opened documents in
// a fixed-size most-recently-used table backed by the pages file.
//
// A Cache is not safe for concurrent use. The host calls it from its event
// loop only.
package recency

import (
	"github.com/jellydator/ttlcache/v3"
	"github.com/penwyp/go-xpdf-session/internal/pagestore"
	"github.com/penwyp/go-xpdf-session/internal/util"
)

// DefaultPage is returned for documents with no saved page.
const DefaultPage = 1

// Backend is the persistence the cache reads from and flushes to.
type Backend interface {
	Load() []pagestore.Record
	Save(records []pagestore.Record) error
	Stamp() (util.FileStamp, error)
	Capacity() int
}

// Options configures a Cache.
type Options struct {
	// Disabled turns Get into a constant DefaultPage and Record into a no-op.
	Disabled bool
	// Canonicalize maps a user supplied path to a document identity.
	// Defaults to util.CanonicalPath.
	Canonicalize func(path string) (string, error)
}

// Cache maps canonical document paths to their last viewed page.
type Cache struct {
	backend Backend
	opts    Options
	table   *ttlcache.Cache[string, int]
	loaded  bool
	stamp   util.FileStamp
	dirty   bool
}

// New creates an unloaded cache. Nothing is read until first use.
func New(backend Backend, opts Options) *Cache {
	if opts.Canonicalize == nil {
		opts.Canonicalize = util.CanonicalPath
	}
	capacity := backend.Capacity()
	if capacity <= 0 {
		capacity = pagestore.DefaultCapacity
	}
	return &Cache{
		backend: backend,
		opts:    opts,
		table: ttlcache.New[string, int](
			ttlcache.WithCapacity[string, int](uint64(capacity)),
		),
	}
}

// Get returns the saved page for path, or DefaultPage when the document is
// unknown or its path cannot be resolved. Get does not change recency.
func (c *Cache) Get(path string) int {
	if c.opts.Disabled {
		return DefaultPage
	}
	c.Sync()

	id, ok := c.identity(path)
	if !ok {
		return DefaultPage
	}

	page := DefaultPage
	c.table.Range(func(item *ttlcache.Item[string, int]) bool {
		if item.Key() == id {
			page = item.Value()
			return false
		}
		return true
	})
	return page
}

// Record stores page as the last viewed page of path and moves the document
// to the front. The least recently used document is dropped when the table
// is full.
func (c *Cache) Record(path string, page int) {
	if c.opts.Disabled {
		return
	}
	c.Sync()

	id, ok := c.identity(path)
	if !ok {
		return
	}
	if page < 1 {
		page = DefaultPage
	}

	c.table.Delete(id)
	c.table.Set(id, page, ttlcache.NoTTL)
	c.dirty = true
	util.LogDebug("Recorded page", util.F("path", id), util.F("page", page))
}

// Forget removes path from the table.
func (c *Cache) Forget(path string) bool {
	c.Sync()

	id, ok := c.identity(path)
	if !ok {
		id = path
	}
	if !c.table.Has(id) {
		return false
	}
	c.table.Delete(id)
	c.dirty = true
	return true
}

// Clear drops every record.
func (c *Cache) Clear() {
	c.Sync()
	if c.table.Len() == 0 {
		return
	}
	c.table.DeleteAll()
	c.dirty = true
}

// Entries returns the records from most to least recently used.
func (c *Cache) Entries() []pagestore.Record {
	c.Sync()
	return c.snapshot()
}

// Dirty reports whether there are unflushed changes.
func (c *Cache) Dirty() bool {
	return c.dirty
}

// FlushIfDirty writes the table to the pages file when it changed since the
// last successful save.
func (c *Cache) FlushIfDirty() error {
	if !c.dirty {
		return nil
	}
	if err := c.backend.Save(c.snapshot()); err != nil {
		return err
	}
	c.dirty = false

	stamp, err := c.backend.Stamp()
	if err != nil {
		util.LogWarn("Cannot stat pages file after save", util.F("error", err))
		return nil
	}
	c.stamp = stamp
	return nil
}

// Sync reloads the table when the pages file differs from the version last
// read or written. Unflushed local changes are discarded by a reload: the
// last process to save wins.
func (c *Cache) Sync() {
	stamp, err := c.backend.Stamp()
	if err != nil {
		// Unreadable metadata is treated like a missing file.
		stamp = util.FileStamp{}
	}
	if c.loaded && stamp == c.stamp {
		return
	}

	if c.loaded && c.dirty {
		util.LogInfo("Pages file changed on disk, discarding unsaved page records")
	}

	c.table.DeleteAll()
	records := c.backend.Load()
	for i := len(records) - 1; i >= 0; i-- {
		c.table.Set(records[i].Path, records[i].Page, ttlcache.NoTTL)
	}
	c.loaded = true
	c.stamp = stamp
	c.dirty = false
}

func (c *Cache) snapshot() []pagestore.Record {
	records := make([]pagestore.Record, 0, c.table.Len())
	c.table.Range(func(item *ttlcache.Item[string, int]) bool {
		records = append(records, pagestore.Record{Path: item.Key(), Page: item.Value()})
		return true
	})
	return records
}

func (c *Cache) identity(path string) (string, bool) {
	id, err := c.opts.Canonicalize(path)
	if err != nil || id == "" {
		util.LogDebug("Document excluded from page cache", util.F("path", path), util.F("error", err))
		return "", false
	}
	return id, true
}
