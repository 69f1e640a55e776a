package internal

import (
	"fmt"

	"github.com/ValentinKolb/cKV/lib/db"
	"github.com/ValentinKolb/cKV/lib/db/util"
)

// --------------------------------------------------------------------------
// Table Type (entries plus their expiry index)
// --------------------------------------------------------------------------

// Table stores the entries of the database together with an index of all
// entries that carry an expiry, ordered by their expiry timestamp.
//
// Thread-safety: Table is not thread-safe, the owner must synchronise access.
type Table struct {
	Data     map[string]db.Entry   // All physically present entries
	Expiries *util.MapHeap[string] // Keys with an expiry, earliest first
	Bytes    int                   // Approximate memory footprint of all entries
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{
		Data:     make(map[string]db.Entry),
		Expiries: util.NewMapHeap[string](),
	}
}

// Put inserts or replaces the entry and keeps the expiry index in sync
func (t *Table) Put(key string, e db.Entry) {
	if old, ok := t.Data[key]; ok {
		t.Bytes -= EntrySize(key, old)
	}
	t.Data[key] = e
	t.Bytes += EntrySize(key, e)
	if e.HasExpiry() {
		t.Expiries.AddItem(key, e.ExpireAt)
	} else {
		t.Expiries.RemoveByKey(key)
	}
}

// Remove deletes the entry and reports whether it was present
func (t *Table) Remove(key string) bool {
	e, ok := t.Data[key]
	if !ok {
		return false
	}
	delete(t.Data, key)
	t.Bytes -= EntrySize(key, e)
	t.Expiries.RemoveByKey(key)
	return true
}

// Lookup returns the live entry for key at nowMs. An expired entry is removed
// and reported as missing.
func (t *Table) Lookup(key string, nowMs int64) (db.Entry, bool) {
	e, ok := t.Data[key]
	if !ok {
		return db.Entry{}, false
	}
	if e.Expired(nowMs) {
		t.Remove(key)
		return db.Entry{}, false
	}
	return e, true
}

// Reset drops every entry
func (t *Table) Reset() {
	t.Data = make(map[string]db.Entry)
	t.Bytes = 0
	t.Expiries.Reset()
}

// PopExpired removes every entry whose expiry is <= nowMs and returns the count
func (t *Table) PopExpired(nowMs int64) int {
	removed := 0
	for {
		it, ok := t.Expiries.Peek()
		if !ok || it.Priority > nowMs {
			return removed
		}
		if t.Remove(it.Key) {
			removed++
		} else {
			// index entry without data, drop it
			t.Expiries.RemoveByKey(it.Key)
		}
	}
}

func (t *Table) String() string {
	return fmt.Sprintf("Table{Entries: %d, Expiring: %d}", len(t.Data), t.Expiries.Len())
}

// --------------------------------------------------------------------------
// Size estimation
// --------------------------------------------------------------------------

// entryOverhead approximates the map bucket, string headers and timestamps
const entryOverhead = 64

// EntrySize returns the approximate number of bytes used by one entry
func EntrySize(key string, e db.Entry) int {
	return len(key) + len(e.Value) + entryOverhead
}
