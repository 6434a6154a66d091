/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package cache provides query result caching for RegretDB.

Query Cache Overview:
=====================

The query cache stores the results of SELECT statements keyed by their SQL
text, so repeating an identical query skips compilation and execution. The
engine consults it only for SELECT and records which tables each result
was read from.

Features:
=========

  - LRU eviction when cache is full
  - TTL-based expiration, checked on access
  - Invalidation by table name
  - Thread-safe operations

Cache Invalidation:
===================

The engine invalidates a table after any statement that writes to it or
changes its schema, and clears the whole cache when the catalog is
replaced.

Usage Example:
==============

	qc := cache.New[*sql.Result](cache.Config{
		MaxEntries: 256,
		TTL:        5 * time.Minute,
		Enabled:    true,
	})

	if res, ok := qc.Get("SELECT * FROM users"); ok {
		return res
	}
	res := execute("SELECT * FROM users")
	qc.Set("SELECT * FROM users", res, []string{"users"})
*/
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config holds the configuration for the query cache.
type Config struct {
	// MaxEntries is the maximum number of cached queries.
	// When exceeded, the least recently used entries are evicted.
	MaxEntries int

	// TTL is the time-to-live for cached entries.
	TTL time.Duration

	// Enabled controls whether caching is active.
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 256,
		TTL:        5 * time.Minute,
		Enabled:    true,
	}
}

type entry[V any] struct {
	key       string
	value     V
	tables    []string
	expiresAt time.Time
	element   *list.Element
}

// QueryCache caches query results with LRU eviction and TTL expiration.
type QueryCache[V any] struct {
	config Config
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]*entry[V]
	lru   *list.List

	// tableIndex maps table names to the queries that read them
	tableIndex map[string]map[string]struct{}

	hits   int64
	misses int64
}

// New creates a new QueryCache with the given configuration.
func New[V any](config Config) *QueryCache[V] {
	def := DefaultConfig()
	if config.MaxEntries <= 0 {
		config.MaxEntries = def.MaxEntries
	}
	if config.TTL <= 0 {
		config.TTL = def.TTL
	}
	return &QueryCache[V]{
		config:     config,
		now:        time.Now,
		cache:      make(map[string]*entry[V]),
		lru:        list.New(),
		tableIndex: make(map[string]map[string]struct{}),
	}
}

// Get retrieves a cached result. Expired entries are removed and count as
// a miss.
func (qc *QueryCache[V]) Get(query string) (V, bool) {
	var zero V
	qc.mu.Lock()
	defer qc.mu.Unlock()

	if !qc.config.Enabled {
		return zero, false
	}

	e, ok := qc.cache[query]
	if !ok {
		qc.misses++
		return zero, false
	}
	if qc.now().After(e.expiresAt) {
		qc.removeEntry(e)
		qc.misses++
		return zero, false
	}

	qc.lru.MoveToFront(e.element)
	qc.hits++
	return e.value, true
}

// Set caches a result. tables lists the tables the query read.
func (qc *QueryCache[V]) Set(query string, value V, tables []string) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	if !qc.config.Enabled {
		return
	}

	if e, ok := qc.cache[query]; ok {
		qc.removeEntry(e)
	}
	for len(qc.cache) >= qc.config.MaxEntries {
		qc.evictOldest()
	}

	e := &entry[V]{
		key:       query,
		value:     value,
		tables:    append([]string(nil), tables...),
		expiresAt: qc.now().Add(qc.config.TTL),
	}
	e.element = qc.lru.PushFront(e)
	qc.cache[query] = e

	for _, table := range e.tables {
		if qc.tableIndex[table] == nil {
			qc.tableIndex[table] = make(map[string]struct{})
		}
		qc.tableIndex[table][query] = struct{}{}
	}
}

// Invalidate removes all cached queries that read the given table.
func (qc *QueryCache[V]) Invalidate(table string) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	for query := range qc.tableIndex[table] {
		if e, ok := qc.cache[query]; ok {
			qc.removeEntry(e)
		}
	}
	delete(qc.tableIndex, table)
}

// InvalidateAll clears the entire cache.
func (qc *QueryCache[V]) InvalidateAll() {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.cache = make(map[string]*entry[V])
	qc.lru = list.New()
	qc.tableIndex = make(map[string]map[string]struct{})
}

// removeEntry removes an entry from the cache (must hold lock).
func (qc *QueryCache[V]) removeEntry(e *entry[V]) {
	delete(qc.cache, e.key)
	qc.lru.Remove(e.element)

	for _, table := range e.tables {
		if queries, ok := qc.tableIndex[table]; ok {
			delete(queries, e.key)
			if len(queries) == 0 {
				delete(qc.tableIndex, table)
			}
		}
	}
}

// evictOldest removes the least recently used entry (must hold lock).
func (qc *QueryCache[V]) evictOldest() {
	elem := qc.lru.Back()
	if elem == nil {
		return
	}
	qc.removeEntry(elem.Value.(*entry[V]))
}

// Stats holds cache statistics.
type Stats struct {
	Hits       int64
	Misses     int64
	Entries    int
	MaxEntries int
	HitRate    float64
}

// Stats returns current cache statistics.
func (qc *QueryCache[V]) Stats() Stats {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	total := qc.hits + qc.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(qc.hits) / float64(total)
	}

	return Stats{
		Hits:       qc.hits,
		Misses:     qc.misses,
		Entries:    len(qc.cache),
		MaxEntries: qc.config.MaxEntries,
		HitRate:    hitRate,
	}
}

// SetEnabled enables or disables the cache. Disabling it drops every entry.
func (qc *QueryCache[V]) SetEnabled(enabled bool) {
	qc.mu.Lock()
	qc.config.Enabled = enabled
	qc.mu.Unlock()
	if !enabled {
		qc.InvalidateAll()
	}
}
