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

package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStatement(t *testing.T) {
	m := New()
	m.RecordStatement("SELECT", 100*time.Microsecond, 3, 0)
	m.RecordStatement("SELECT", 300*time.Microsecond, 1, 0)
	m.RecordStatement("INSERT", 200*time.Microsecond, 0, 1)
	m.RecordFailure("EXECUTION", 0)
	m.RecordFailure("SYNTAX", 0)

	s := m.Snapshot()
	assert.Equal(t, uint64(3), s.StatementsTotal)
	assert.Equal(t, uint64(2), s.StatementsFailed)
	assert.Equal(t, uint64(4), s.RowsReturned)
	assert.Equal(t, uint64(1), s.RowsAffected)
	assert.Equal(t, map[string]uint64{"SELECT": 2, "INSERT": 1}, s.ByKind)
	assert.Equal(t, map[string]uint64{"EXECUTION": 1, "SYNTAX": 1}, s.ByCategory)
	assert.InDelta(t, 120.0, s.AvgLatencyMicros, 0.01)
}

func TestAverageLatencyEmpty(t *testing.T) {
	assert.Equal(t, 0.0, New().AverageLatency())
}

func TestWriteText(t *testing.T) {
	m := New()
	m.RecordStatement("UPDATE", time.Millisecond, 0, 2)
	m.RecordFailure("EXECUTION", time.Millisecond)
	m.RecordCacheHit()

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "regretdb_statements_total 1\n")
	assert.Contains(t, out, `regretdb_statements_by_kind_total{kind="UPDATE"} 1`)
	assert.Contains(t, out, `regretdb_statement_failures_total{category="EXECUTION"} 1`)
	assert.Contains(t, out, "regretdb_rows_affected_total 2\n")
	assert.Contains(t, out, "regretdb_query_cache_hits_total 1\n")
	assert.Contains(t, out, "regretdb_statement_latency_avg_microseconds 1000.00\n")
}

func TestServerHandler(t *testing.T) {
	m := New()
	m.RecordStatement("SELECT", 0, 5, 0)
	srv := NewServer("", m)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "regretdb_rows_returned_total 5")

	// An empty address disables the server.
	require.NoError(t, srv.Start())
	require.NoError(t, srv.Stop())
}

func TestServerMountedRoute(t *testing.T) {
	srv := NewServer("", New())
	srv.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
