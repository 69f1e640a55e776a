package maple

import (
	"math"
	"sort"

	"github.com/ValentinKolb/cKV/lib/db"
	"github.com/ValentinKolb/cKV/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/cKV/lib/db/util"
	"github.com/benbjohnson/clock"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// maxInfoSamples bounds the number of entries GetInfo looks at
	maxInfoSamples = 1000
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements db.KVDB on top of a single table guarded by a FIFO lock
type mapleImpl struct {
	mu    util.FIFOMutex
	table *internal.Table
	clock clock.Clock
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	Clock clock.Clock // Time source for expiry (nil = wall clock)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		Clock: clock.New(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
//
// Thread-safety: This function is thread-safe, every instance is independent.
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}

	return &mapleImpl{
		table: internal.NewTable(),
		clock: c,
	}
}

// nowMs returns the current time in unix milliseconds
func (maple *mapleImpl) nowMs() int64 {
	return maple.clock.Now().UnixMilli()
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or replaces the entry for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key, value string, ttlSeconds *int64) {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	now := maple.nowMs()
	entry := db.Entry{Value: value, CreatedAt: now}
	if ttlSeconds != nil {
		entry.ExpireAt = expireAt(now, *ttlSeconds)
	}
	maple.table.Put(key, entry)
}

// Delete removes the entry for key, expired or not
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string) bool {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	return maple.table.Remove(key)
}

// Clear drops every entry
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Clear() {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	maple.table.Reset()
}

// Expire sets a new expiry on a live key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Expire(key string, seconds int64) bool {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	now := maple.nowMs()
	entry, ok := maple.table.Lookup(key, now)
	if !ok {
		return false
	}
	entry.ExpireAt = expireAt(now, seconds)
	maple.table.Put(key, entry)
	return true
}

// Compute runs fn on the live value of key and stores its result, all under
// the database lock.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// fn must not call back into the database.
func (maple *mapleImpl) Compute(key string, fn func(value string, loaded bool) (string, bool)) (string, bool) {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	now := maple.nowMs()
	entry, loaded := maple.table.Lookup(key, now)
	newValue, del := fn(entry.Value, loaded)
	if del {
		maple.table.Remove(key)
		return "", false
	}

	if !loaded {
		entry = db.Entry{CreatedAt: now}
	}
	entry.Value = newValue
	maple.table.Put(key, entry)
	return newValue, true
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Query Operations
// --------------------------------------------------------------------------

// Get returns the value of a live key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) (string, bool) {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	entry, ok := maple.table.Lookup(key, maple.nowMs())
	if !ok {
		return "", false
	}
	return entry.Value, true
}

// Exists reports whether key is live
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Exists(key string) bool {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	_, ok := maple.table.Lookup(key, maple.nowMs())
	return ok
}

// Keys returns the sorted live keys matching pattern. An invalid pattern
// matches nothing.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Keys(pattern string) []string {
	var matcher *util.Matcher
	if pattern != util.MatchAll {
		m, err := util.NewMatcher(pattern)
		if err != nil {
			Logger.Debugf("invalid key pattern %q: %v", pattern, err)
			return []string{}
		}
		matcher = m
	}

	maple.mu.Lock()
	defer maple.mu.Unlock()

	now := maple.nowMs()
	keys := make([]string, 0, len(maple.table.Data))
	for key, entry := range maple.table.Data {
		if entry.Expired(now) {
			maple.table.Remove(key)
			continue
		}
		if matcher != nil && !matcher.Match(key) {
			continue
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}

// TTL returns the remaining lifetime of key in seconds, rounded up
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) TTL(key string) int64 {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	now := maple.nowMs()
	entry, ok := maple.table.Lookup(key, now)
	if !ok {
		return db.TTLAbsent
	}
	if !entry.HasExpiry() {
		return db.TTLNoExpiry
	}

	remaining := entry.ExpireAt - now
	if remaining <= 0 {
		return 0
	}
	secs := remaining / 1000
	if remaining%1000 != 0 {
		secs++
	}
	return secs
}

// Len returns the number of physically stored entries
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Len() int {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	return len(maple.table.Data)
}

// --------------------------------------------------------------------------
// Maintenance
// --------------------------------------------------------------------------

// CleanupExpired removes all expired entries using the expiry index
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) CleanupExpired() int {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	removed := maple.table.PopExpired(maple.nowMs())
	if removed > 0 {
		Logger.Debugf("removed %d expired entries, %d left", removed, len(maple.table.Data))
	}
	return removed
}

// GetInfo returns statistics about the database. Value sizes are sampled,
// the backlog of expired entries is extrapolated from the sample.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	now := maple.nowMs()
	histogram := util.NewSizeHistogram()
	samples, expired := 0, 0
	for _, entry := range maple.table.Data {
		if samples >= maxInfoSamples {
			break
		}
		histogram.AddSample(len(entry.Value))
		if entry.Expired(now) {
			expired++
		}
		samples++
	}

	keys := len(maple.table.Data)
	backlog := 0
	if samples > 0 {
		backlog = expired * keys / samples
	}

	meta := &struct {
		MedianValueSize int    `json:"median_value_size"`
		P99ValueSize    int    `json:"p99_value_size"`
		Samples         int    `json:"samples"`
		Info            string `json:"info"`
	}{
		MedianValueSize: histogram.MedianEstimate(),
		P99ValueSize:    histogram.PercentileEstimate(99),
		Samples:         samples,
		Info:            "size and backlog are estimates",
	}

	return db.DatabaseInfo{
		Keys:           keys,
		SizeBytes:      maple.table.Bytes,
		ExpiringKeys:   maple.table.Expiries.Len(),
		ExpiredBacklog: backlog,
		DbType:         db.ImplMaple,
		Metadata:       meta,
	}
}

// Close drops all entries. The database must not be used afterwards.
func (maple *mapleImpl) Close() error {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	maple.table.Reset()
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// expireAt converts a relative ttl in seconds into an absolute timestamp (ms).
// Non-positive ttls yield a timestamp that is already due, ttls beyond the
// int64 range saturate.
func expireAt(nowMs, seconds int64) int64 {
	if seconds <= 0 {
		// keep ExpireAt != 0 so the entry counts as expiring
		if nowMs == 0 {
			return -1
		}
		return nowMs
	}
	if seconds > (math.MaxInt64-nowMs)/1000 {
		return math.MaxInt64
	}
	return nowMs + seconds*1000
}
