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
Package sql implements the RegretDB query engine.

Pipeline Overview:
==================

Every statement travels the same path:

	SQL text -> Lexer -> Parser -> Binder -> Planner -> Executor -> Result

  - Lexer: tokens with source offsets
  - Parser: recursive descent into one Statement per call
  - Binder: resolves every identifier against the Catalog, qualifies column
    names as "table.column" and rejects type and nullability errors
  - Planner: lowers the bound statement into a PlanNode tree
  - Executor: evaluates the tree, enforcing key and reference constraints

Statements run one at a time to completion. A statement that fails at any
stage leaves the catalog unchanged.

Query Cache:
============

With EnableQueryCache the engine keeps SELECT results keyed by SQL text.
A successful statement that writes to a table or changes its schema
invalidates the results read from that table; SetCatalog clears the cache.

Usage:
======

	engine := sql.NewEngine(sql.NewCatalog(nil))
	_, err := engine.Execute("CREATE TABLE users (id NUMBER PRIMARY KEY, name TEXT)")
	res, err := engine.Execute("SELECT * FROM users ORDER BY users.id ASC")
*/
package sql

import (
	"errors"
	"strings"

	"regretdb/internal/cache"
	dberrors "regretdb/internal/errors"
	"regretdb/internal/logging"
	"regretdb/internal/metrics"
)

// Engine compiles and executes statements against one catalog.
type Engine struct {
	catalog  *Catalog
	binder   *Binder
	planner  *Planner
	executor *Executor
	metrics  *metrics.Metrics
	cache    *cache.QueryCache[*Result]
	logger   *logging.Logger
}

// NewEngine creates an engine over catalog.
func NewEngine(catalog *Catalog) *Engine {
	e := &Engine{
		planner: NewPlanner(),
		metrics: metrics.New(),
		logger:  logging.NewLogger("engine"),
	}
	e.SetCatalog(catalog)
	return e
}

// Catalog returns the catalog the engine works on.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// SetCatalog swaps the catalog, for example after loading a snapshot.
func (e *Engine) SetCatalog(catalog *Catalog) {
	e.catalog = catalog
	e.binder = NewBinder(catalog)
	e.executor = NewExecutor(catalog)
	if e.cache != nil {
		e.cache.InvalidateAll()
	}
}

// EnableQueryCache turns on SELECT result caching.
func (e *Engine) EnableQueryCache(cfg cache.Config) {
	e.cache = cache.New[*Result](cfg)
}

// CacheStats returns the query cache counters, or false when caching is
// off.
func (e *Engine) CacheStats() (cache.Stats, bool) {
	if e.cache == nil {
		return cache.Stats{}, false
	}
	return e.cache.Stats(), true
}

// Metrics returns the engine's statement counters.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Execute compiles and runs one statement.
func (e *Engine) Execute(sql string) (*Result, error) {
	stmtCtx := logging.NewStatementContext("UNKNOWN")

	if res, ok := e.cached(sql); ok {
		stmtCtx.Kind = res.Kind
		e.metrics.RecordCacheHit()
		e.metrics.RecordStatement(res.Kind, stmtCtx.Duration(), len(res.Rows), 0)
		stmtCtx.LogComplete(e.logger, "rows", len(res.Rows), "cached", true)
		return res, nil
	}

	node, stmt, err := e.compile(sql)
	if stmt != nil {
		stmtCtx.Kind = stmt.Kind()
	}
	if err != nil {
		return nil, e.fail(stmtCtx, sql, err)
	}

	res, err := e.executor.Execute(node)
	if err != nil {
		return nil, e.fail(stmtCtx, sql, err)
	}
	res.Kind = stmt.Kind()
	e.updateCache(sql, stmt, res)

	e.metrics.RecordStatement(res.Kind, stmtCtx.Duration(), len(res.Rows), res.Affected)
	stmtCtx.LogComplete(e.logger, "rows", len(res.Rows), "affected", res.Affected)
	return res, nil
}

// Explain compiles sql and returns its plan tree without executing it.
func (e *Engine) Explain(sql string) (string, error) {
	node, _, err := e.compile(sql)
	if err != nil {
		return "", attachSQL(err, sql)
	}
	return FormatPlan(node), nil
}

// ExecuteScript runs every statement of a ';'-separated script in order and
// stops at the first failure. Results of the statements that ran are
// returned either way.
func (e *Engine) ExecuteScript(script string) ([]*Result, error) {
	var results []*Result
	for _, stmt := range SplitStatements(script) {
		res, err := e.Execute(stmt)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) cached(sql string) (*Result, bool) {
	if e.cache == nil {
		return nil, false
	}
	res, ok := e.cache.Get(sql)
	if !ok {
		return nil, false
	}
	cp := *res
	return &cp, true
}

func (e *Engine) updateCache(sql string, stmt Statement, res *Result) {
	if e.cache == nil {
		return
	}
	if sel, ok := stmt.(*SelectStmt); ok {
		cp := *res
		e.cache.Set(sql, &cp, identNames(sel.Tables))
		return
	}
	if table := writtenTable(stmt); table != "" {
		e.cache.Invalidate(table)
	}
}

// writtenTable names the table a non-SELECT statement changes.
func writtenTable(stmt Statement) string {
	switch s := stmt.(type) {
	case *InsertStmt:
		return s.Table.Name
	case *UpdateStmt:
		return s.Table.Name
	case *DeleteStmt:
		return s.Table.Name
	case *CreateTableStmt:
		return s.Table.Name
	case *DropTableStmt:
		return s.Table.Name
	case *AlterAddStmt:
		return s.Table.Name
	case *AlterDropStmt:
		return s.Table.Name
	case *AlterRenameStmt:
		return s.Table.Name
	case *AlterModifyStmt:
		return s.Table.Name
	}
	return ""
}

func (e *Engine) compile(sql string) (PlanNode, Statement, error) {
	stmt, err := Parse(sql)
	if err != nil {
		return nil, nil, err
	}
	if err := e.binder.Bind(stmt); err != nil {
		return nil, stmt, err
	}
	node, err := e.planner.Plan(stmt)
	if err != nil {
		return nil, stmt, err
	}
	return node, stmt, nil
}

func (e *Engine) fail(stmtCtx *logging.StatementContext, sql string, err error) error {
	err = attachSQL(err, sql)
	category := string(dberrors.GetCategory(err))
	e.metrics.RecordFailure(category, stmtCtx.Duration())
	stmtCtx.LogError(e.logger, err, "category", category)
	return err
}

func attachSQL(err error, sql string) error {
	var dbErr *dberrors.RegretDBError
	if errors.As(err, &dbErr) && dbErr.SQL == "" {
		dbErr.WithSQL(sql)
	}
	return err
}

// SplitStatements splits a script on ';' outside single-quoted literals.
// "--" starts a comment that runs to the end of the line. Blank statements
// are dropped.
func SplitStatements(script string) []string {
	var out []string
	var cur strings.Builder
	inQuote, inComment := false, false
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for i, r := range script {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
				cur.WriteRune(r)
			}
		case r == '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == '-' && !inQuote && strings.HasPrefix(script[i:], "--"):
			inComment = true
		case r == ';' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
