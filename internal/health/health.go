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
Package health provides health check endpoints for a RegretDB session.

ENDPOINTS:
==========

	GET /health       - Overall health, every registered check
	GET /health/live  - Liveness (the process answers)
	GET /health/ready - Readiness (no check is unhealthy)

The endpoints are served next to /metrics when the shell is started with
-metrics-addr.

STATUS VALUES:
==============
  - healthy: All checks pass
  - degraded: Some non-critical checks fail
  - unhealthy: Critical checks fail

CHECKS:
=======

IntegrityCheck runs the catalog integrity checker; any violation makes the
session unhealthy. SnapshotCheck reports degraded while a configured
snapshot has not been written yet.
*/
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"regretdb/internal/logging"
	"regretdb/internal/sql"
)

// Status represents the health status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult represents the result of a health check.
type CheckResult struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms"`
}

// Response is the body of every health endpoint.
type Response struct {
	Status    Status        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []CheckResult `json:"checks,omitempty"`
}

// Check is a function that performs a health check.
type Check func() CheckResult

// Checker manages health checks.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	version string
	logger  *logging.Logger
}

// NewChecker creates a new health checker.
func NewChecker(version string) *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		version: version,
		logger:  logging.NewLogger("health"),
	}
}

// RegisterCheck registers a health check, replacing one of the same name.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RunChecks runs all registered checks in name order.
func (c *Checker) RunChecks() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   c.version,
		Checks:    make([]CheckResult, 0, len(names)),
	}

	for _, name := range names {
		start := time.Now()
		result := c.checks[name]()
		result.Name = name
		result.Latency = time.Since(start).Milliseconds()
		response.Checks = append(response.Checks, result)

		if result.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if result.Status == StatusDegraded && response.Status == StatusHealthy {
			response.Status = StatusDegraded
		}
	}

	if response.Status != StatusHealthy {
		c.logger.Debug("Health check not passing", "status", string(response.Status))
	}
	return response
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	return c.RunChecks().Status == StatusHealthy
}

// Handler returns a mux serving /health, /health/live and /health/ready.
func (c *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", c.handleHealth)
	mux.HandleFunc("/health/live", c.handleLiveness)
	mux.HandleFunc("/health/ready", c.handleReadiness)
	return mux
}

func (c *Checker) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := c.RunChecks()
	status := http.StatusOK
	if response.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	c.write(w, status, response)
}

func (c *Checker) handleLiveness(w http.ResponseWriter, r *http.Request) {
	c.write(w, http.StatusOK, Response{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   c.version,
	})
}

func (c *Checker) handleReadiness(w http.ResponseWriter, r *http.Request) {
	response := c.RunChecks()
	status := http.StatusOK
	if response.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.write(w, status, response)
}

func (c *Checker) write(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		c.logger.Warn("Failed to write health response", "error", err)
	}
}

// IntegrityCheck reports unhealthy when the catalog has integrity
// violations. inspect must run fn against the current catalog without
// racing statements.
func IntegrityCheck(inspect func(fn func(cat *sql.Catalog))) Check {
	return func() CheckResult {
		var violations []sql.Violation
		inspect(func(cat *sql.Catalog) {
			violations = sql.Violations(cat)
		})
		if len(violations) > 0 {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("%d integrity violations, first: %s", len(violations), violations[0].String()),
			}
		}
		return CheckResult{Status: StatusHealthy}
	}
}

// SnapshotCheck reports on the snapshot file at path. An empty path means
// the session is in-memory only.
func SnapshotCheck(path string) Check {
	return func() CheckResult {
		if path == "" {
			return CheckResult{Status: StatusHealthy, Message: "in-memory"}
		}
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusDegraded, Message: "snapshot not written yet"}
		}
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Message: err.Error()}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("%d bytes, written %s", info.Size(), info.ModTime().UTC().Format(time.RFC3339)),
		}
	}
}
