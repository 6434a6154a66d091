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
Package metrics provides Prometheus-compatible statement metrics for RegretDB.

METRIC CATEGORIES:
==================
- Statements: executed (total, by kind: SELECT, INSERT, UPDATE, ...)
- Failures: by error category (SYNTAX, PREPROCESSOR, EXECUTION, ...)
- Rows: returned by SELECT, affected by mutations
- Latency: sum and count of statement execution times

Each engine owns its own Metrics, so independent engines in one process
do not share counters.

EXAMPLE METRICS:
================

	regretdb_statements_total 42
	regretdb_statements_by_kind_total{kind="SELECT"} 30
	regretdb_statement_failures_total{category="EXECUTION"} 2
	regretdb_statement_latency_avg_microseconds 85.50
*/
package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"regretdb/internal/logging"
)

// Metrics holds the counters of one engine.
type Metrics struct {
	StatementsTotal  atomic.Uint64 // Statements that completed successfully
	StatementsFailed atomic.Uint64 // Statements that returned an error

	RowsReturned atomic.Uint64
	RowsAffected atomic.Uint64
	CacheHits    atomic.Uint64 // SELECTs answered from the query cache

	// Statement latency (in microseconds), successes and failures alike
	LatencySum   atomic.Uint64
	LatencyCount atomic.Uint64

	byKind     sync.Map // statement kind -> *atomic.Uint64
	byCategory sync.Map // error category -> *atomic.Uint64
}

// New returns a zeroed Metrics.
func New() *Metrics {
	return &Metrics{}
}

func counter(m *sync.Map, key string) *atomic.Uint64 {
	if c, ok := m.Load(key); ok {
		return c.(*atomic.Uint64)
	}
	actual, _ := m.LoadOrStore(key, &atomic.Uint64{})
	return actual.(*atomic.Uint64)
}

// RecordStatement records a successful statement.
func (m *Metrics) RecordStatement(kind string, latency time.Duration, returned, affected int) {
	m.StatementsTotal.Add(1)
	counter(&m.byKind, kind).Add(1)
	m.RowsReturned.Add(uint64(returned))
	m.RowsAffected.Add(uint64(affected))
	m.recordLatency(latency)
}

// RecordCacheHit records a SELECT served from the query cache.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Add(1)
}

// RecordFailure records a statement that failed with an error of category.
func (m *Metrics) RecordFailure(category string, latency time.Duration) {
	m.StatementsFailed.Add(1)
	counter(&m.byCategory, category).Add(1)
	m.recordLatency(latency)
}

func (m *Metrics) recordLatency(latency time.Duration) {
	m.LatencySum.Add(uint64(latency.Microseconds()))
	m.LatencyCount.Add(1)
}

// AverageLatency returns the average statement latency in microseconds.
func (m *Metrics) AverageLatency() float64 {
	count := m.LatencyCount.Load()
	if count == 0 {
		return 0
	}
	return float64(m.LatencySum.Load()) / float64(count)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	StatementsTotal  uint64
	StatementsFailed uint64
	RowsReturned     uint64
	RowsAffected     uint64
	CacheHits        uint64
	AvgLatencyMicros float64
	ByKind           map[string]uint64
	ByCategory       map[string]uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		StatementsTotal:  m.StatementsTotal.Load(),
		StatementsFailed: m.StatementsFailed.Load(),
		RowsReturned:     m.RowsReturned.Load(),
		RowsAffected:     m.RowsAffected.Load(),
		CacheHits:        m.CacheHits.Load(),
		AvgLatencyMicros: m.AverageLatency(),
		ByKind:           make(map[string]uint64),
		ByCategory:       make(map[string]uint64),
	}
	m.byKind.Range(func(k, v any) bool {
		s.ByKind[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	m.byCategory.Range(func(k, v any) bool {
		s.ByCategory[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return s
}

// WriteText writes the metrics in Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	s := m.Snapshot()
	ew := &errWriter{w: w}

	ew.printf("# HELP regretdb_statements_total Statements executed successfully\n")
	ew.printf("# TYPE regretdb_statements_total counter\n")
	ew.printf("regretdb_statements_total %d\n", s.StatementsTotal)

	ew.printf("# HELP regretdb_statements_by_kind_total Statements by kind\n")
	ew.printf("# TYPE regretdb_statements_by_kind_total counter\n")
	for _, k := range sortedKeys(s.ByKind) {
		ew.printf("regretdb_statements_by_kind_total{kind=%q} %d\n", k, s.ByKind[k])
	}

	ew.printf("# HELP regretdb_statements_failed_total Failed statements\n")
	ew.printf("# TYPE regretdb_statements_failed_total counter\n")
	ew.printf("regretdb_statements_failed_total %d\n", s.StatementsFailed)

	ew.printf("# HELP regretdb_statement_failures_total Failed statements by error category\n")
	ew.printf("# TYPE regretdb_statement_failures_total counter\n")
	for _, k := range sortedKeys(s.ByCategory) {
		ew.printf("regretdb_statement_failures_total{category=%q} %d\n", k, s.ByCategory[k])
	}

	ew.printf("# HELP regretdb_rows_returned_total Rows returned by SELECT\n")
	ew.printf("# TYPE regretdb_rows_returned_total counter\n")
	ew.printf("regretdb_rows_returned_total %d\n", s.RowsReturned)

	ew.printf("# HELP regretdb_rows_affected_total Rows inserted, updated or deleted\n")
	ew.printf("# TYPE regretdb_rows_affected_total counter\n")
	ew.printf("regretdb_rows_affected_total %d\n", s.RowsAffected)

	ew.printf("# HELP regretdb_query_cache_hits_total SELECTs answered from the query cache\n")
	ew.printf("# TYPE regretdb_query_cache_hits_total counter\n")
	ew.printf("regretdb_query_cache_hits_total %d\n", s.CacheHits)

	ew.printf("# HELP regretdb_statement_latency_avg_microseconds Average statement latency\n")
	ew.printf("# TYPE regretdb_statement_latency_avg_microseconds gauge\n")
	ew.printf("regretdb_statement_latency_avg_microseconds %.2f\n", s.AvgLatencyMicros)

	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Server exposes one Metrics instance over HTTP at /metrics.
type Server struct {
	addr    string
	metrics *Metrics
	server  *http.Server
	routes  map[string]http.Handler
	logger  *logging.Logger
}

// NewServer creates a metrics server for m listening on addr.
func NewServer(addr string, m *Metrics) *Server {
	return &Server{
		addr:    addr,
		metrics: m,
		routes:  make(map[string]http.Handler),
		logger:  logging.NewLogger("metrics"),
	}
}

// Handle serves h at pattern next to /metrics. It must be called before
// Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.routes[pattern] = h
}

// Handler returns the /metrics handler plus any mounted routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	for pattern, h := range s.routes {
		mux.Handle(pattern, h)
	}
	return mux
}

// Start starts the metrics HTTP server in the background.
func (s *Server) Start() error {
	if s.addr == "" {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("Starting metrics server", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the metrics HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Stopping metrics server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if err := s.metrics.WriteText(w); err != nil {
		s.logger.Warn("Failed to write metrics", "error", err)
	}
}
