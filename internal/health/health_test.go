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

package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regretdb/internal/sql"
	"regretdb/internal/storage"
)

func engineWith(t *testing.T, script string) *sql.Engine {
	t.Helper()
	e := sql.NewEngine(sql.NewCatalog(storage.GetCollator(storage.CollationBinary, "")))
	_, err := e.ExecuteScript(script)
	require.NoError(t, err)
	return e
}

func inspector(e *sql.Engine) func(fn func(cat *sql.Catalog)) {
	return func(fn func(cat *sql.Catalog)) { fn(e.Catalog()) }
}

func TestRunChecks(t *testing.T) {
	healthy := func() CheckResult { return CheckResult{Status: StatusHealthy} }
	degraded := func() CheckResult { return CheckResult{Status: StatusDegraded} }
	unhealthy := func() CheckResult { return CheckResult{Status: StatusUnhealthy} }

	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", map[string]Check{"a": healthy, "b": healthy}, StatusHealthy},
		{"one degraded", map[string]Check{"a": healthy, "b": degraded}, StatusDegraded},
		{"unhealthy wins", map[string]Check{"a": unhealthy, "b": degraded}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test")
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}
			resp := c.RunChecks()
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
			assert.Equal(t, tt.want == StatusHealthy, c.IsHealthy())
		})
	}
}

func TestRunChecksOrdered(t *testing.T) {
	c := NewChecker("test")
	for _, name := range []string{"snapshot", "integrity", "alpha"} {
		c.RegisterCheck(name, func() CheckResult { return CheckResult{Status: StatusHealthy} })
	}
	resp := c.RunChecks()
	names := make([]string, len(resp.Checks))
	for i, r := range resp.Checks {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"alpha", "integrity", "snapshot"}, names)
}

func TestIntegrityCheck(t *testing.T) {
	e := engineWith(t, `CREATE TABLE users (id NUMBER PRIMARY KEY);
		INSERT INTO users (id) VALUES (1)`)
	result := IntegrityCheck(inspector(e))()
	assert.Equal(t, StatusHealthy, result.Status)
}

func TestSnapshotCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.snap")

	assert.Equal(t, "in-memory", SnapshotCheck("")().Message)
	assert.Equal(t, StatusDegraded, SnapshotCheck(path)().Status)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	assert.Equal(t, StatusHealthy, SnapshotCheck(path)().Status)
}

func TestHandler(t *testing.T) {
	c := NewChecker("01.26.14")
	c.RegisterCheck("snapshot", SnapshotCheck(filepath.Join(t.TempDir(), "missing.snap")))

	tests := []struct {
		path       string
		wantCode   int
		wantStatus Status
	}{
		{"/health", http.StatusServiceUnavailable, StatusDegraded},
		{"/health/live", http.StatusOK, StatusHealthy},
		{"/health/ready", http.StatusOK, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "01.26.14", resp.Version)
		})
	}
}
