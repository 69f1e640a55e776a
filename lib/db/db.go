package db

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
)

// TTL sentinels returned by KVDB.TTL.
const (
	TTLAbsent   int64 = -2 // key missing or expired
	TTLNoExpiry int64 = -1 // key present without expiry
)

// Entry is a single cached value with its metadata.
// Timestamps are unix milliseconds. ExpireAt == 0 means the entry never expires.
type Entry struct {
	Value     string
	CreatedAt int64
	ExpireAt  int64
}

// HasExpiry reports whether the entry carries an expiry.
func (e Entry) HasExpiry() bool { return e.ExpireAt != 0 }

// Expired reports whether the entry is logically dead at the given time (ms).
func (e Entry) Expired(nowMs int64) bool {
	return e.ExpireAt != 0 && e.ExpireAt <= nowMs
}

type DatabaseInfo struct {
	Keys           int            `json:"keys"`
	SizeBytes      int            `json:"size_bytes"`
	ExpiringKeys   int            `json:"expiring_keys"`
	ExpiredBacklog int            `json:"expired_backlog"`
	DbType         Implementation `json:"db_type"`
	Metadata       interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines the TTL aware key-value store used by the command engine.
//
// Concurrency contract: mutations (Set, Delete, Clear, Expire, Compute) are
// mutually exclusive and applied atomically, readers never observe a partially
// applied mutation. None of the operations fail.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or replaces the entry for key. A ttlSeconds of nil means no
	// expiry, otherwise the entry expires ttlSeconds*1000 ms from now.
	Set(key, value string, ttlSeconds *int64)

	// Delete removes the entry for key, regardless of its expiry.
	// It reports whether an entry was removed.
	Delete(key string) (removed bool)

	// Clear removes all entries.
	Clear()

	// Expire sets the expiry of a live key to now + seconds*1000 ms.
	// It returns false (and creates nothing) if the key is missing or expired.
	Expire(key string, seconds int64) (ok bool)

	// Compute atomically reads and replaces the value of key. fn receives the
	// current value (if live) and returns the new value, or del=true to remove
	// the entry. An updated entry keeps its expiry.
	Compute(key string, fn func(value string, loaded bool) (newValue string, del bool)) (value string, ok bool)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get returns the value of a live key. An expired entry is removed.
	Get(key string) (value string, ok bool)

	// Exists reports whether key is live. An expired entry is removed.
	Exists(key string) (ok bool)

	// Keys returns the live keys matching the glob pattern ("*" any run,
	// "?" exactly one character). Expired entries found on the way are removed.
	Keys(pattern string) (keys []string)

	// TTL returns the remaining lifetime of key in whole seconds (rounded up),
	// TTLNoExpiry for keys without expiry and TTLAbsent for missing keys.
	TTL(key string) (seconds int64)

	// Len returns the number of physically stored entries (including expired
	// ones that were not observed yet).
	Len() int

	// --------------------------------------------------------------------------
	// Maintenance
	// --------------------------------------------------------------------------

	// CleanupExpired removes all expired entries and returns how many were removed.
	CleanupExpired() (removed int)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close releases the database.
	Close() (err error)
}
