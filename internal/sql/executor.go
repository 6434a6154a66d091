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
Executor Overview:
==================

The Executor evaluates a plan tree against its catalog. Read operators
(TableScan, CrossJoin, Filter, Project, Sort) produce rows bottom-up;
mutation operators validate their whole batch first and only then touch
storage, so a failing statement leaves the catalog as it was.

Constraint Enforcement:
=======================

  - PRIMARY KEY / UNIQUE: no other row holds an equal non-NULL value in
    that column; NULLs never collide
  - FOREIGN KEY: a non-NULL value must exist in the referenced column
  - UPDATE and DELETE may not change or remove a value that a row of a
    referencing column still points at

All violations are EXECUTION errors.
*/
package sql

import (
	"fmt"
	"sort"

	dberrors "regretdb/internal/errors"
	"regretdb/internal/logging"
)

// Result is the outcome of one statement. Columns and Rows are set for
// SELECT; Affected counts rows inserted, updated or deleted.
type Result struct {
	Kind     string
	Columns  []string
	Rows     []Row
	Affected int
}

// Values returns row i as a slice ordered like Columns.
func (r *Result) Values(i int) []Value {
	out := make([]Value, len(r.Columns))
	for j, c := range r.Columns {
		out[j] = r.Rows[i].Get(c)
	}
	return out
}

// Executor runs plan trees against a catalog.
type Executor struct {
	catalog *Catalog
	logger  *logging.Logger
}

// NewExecutor creates an executor for catalog.
func NewExecutor(catalog *Catalog) *Executor {
	return &Executor{catalog: catalog, logger: logging.NewLogger("executor")}
}

// Execute runs node and returns its result.
func (e *Executor) Execute(node PlanNode) (*Result, error) {
	switch n := node.(type) {
	case *CreateTableNode:
		return &Result{}, e.createTable(n)
	case *DropTableNode:
		e.logger.Debug("Dropping table", "table", n.Table)
		return &Result{}, e.catalog.DropTable(n.Table)
	case *InsertNode:
		if err := e.insert(n); err != nil {
			return nil, err
		}
		return &Result{Affected: 1}, nil
	case *UpdateNode:
		affected, err := e.update(n)
		if err != nil {
			return nil, err
		}
		return &Result{Affected: affected}, nil
	case *DeleteNode:
		affected, err := e.delete(n)
		if err != nil {
			return nil, err
		}
		return &Result{Affected: affected}, nil
	case *AlterTableNode:
		return &Result{}, e.alter(n)
	}

	rows, err := e.rows(node)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: outputColumns(node), Rows: rows}, nil
}

// ============================================================================
// Read operators
// ============================================================================

func (e *Executor) rows(node PlanNode) ([]Row, error) {
	switch n := node.(type) {
	case *TableScan:
		t, ok := e.catalog.Table(n.Table)
		if !ok {
			return nil, dberrors.TableNotFound(n.Table)
		}
		return t.Rows(), nil

	case *CrossJoin:
		left, err := e.rows(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.rows(n.Right)
		if err != nil {
			return nil, err
		}
		out := make([]Row, 0, len(left)*len(right))
		for _, l := range left {
			for _, r := range right {
				merged := make(map[string]Value, len(l.Values)+len(r.Values))
				for k, v := range l.Values {
					merged[k] = v
				}
				for k, v := range r.Values {
					merged[k] = v
				}
				out = append(out, Row{Values: merged})
			}
		}
		return out, nil

	case *Filter:
		in, err := e.rows(n.Source)
		if err != nil {
			return nil, err
		}
		var out []Row
		for _, r := range in {
			ok, err := Matches(n.Predicate, r, e.catalog.Collator())
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, r)
			}
		}
		return out, nil

	case *Project:
		in, err := e.rows(n.Source)
		if err != nil {
			return nil, err
		}
		out := make([]Row, len(in))
		for i, r := range in {
			values := make(map[string]Value, len(n.Columns))
			for _, c := range n.Columns {
				values[c] = r.Get(c)
			}
			out[i] = Row{ID: r.ID, Values: values}
		}
		return out, nil

	case *Sort:
		in, err := e.rows(n.Source)
		if err != nil {
			return nil, err
		}
		return e.sortRows(in, n.Keys)
	}
	return nil, dberrors.NewInternalError(fmt.Sprintf("%T does not produce rows", node))
}

// sortRows sorts by the last key first, then by each earlier key, with a
// stable sort per pass so earlier keys take precedence. NULL sorts last for
// ascending keys and first for descending keys.
func (e *Executor) sortRows(rows []Row, keys []SortKey) ([]Row, error) {
	out := append([]Row(nil), rows...)
	var cmpErr error
	for i := len(keys) - 1; i >= 0; i-- {
		key := keys[i]
		sort.SliceStable(out, func(a, b int) bool {
			less, err := sortLess(out[a].Get(key.Column), out[b].Get(key.Column), key.Desc, e.catalog)
			if err != nil && cmpErr == nil {
				cmpErr = err
			}
			return less
		})
		if cmpErr != nil {
			return nil, cmpErr
		}
	}
	return out, nil
}

func sortLess(a, b Value, desc bool, cat *Catalog) (bool, error) {
	switch {
	case a.IsNull() && b.IsNull():
		return false, nil
	case a.IsNull():
		return desc, nil
	case b.IsNull():
		return !desc, nil
	}
	c, err := Compare(a, b, cat.Collator())
	if err != nil {
		return false, err
	}
	if desc {
		return c > 0, nil
	}
	return c < 0, nil
}

func outputColumns(node PlanNode) []string {
	switch n := node.(type) {
	case *Project:
		return n.Columns
	case *Sort:
		return outputColumns(n.Source)
	case *Filter:
		return outputColumns(n.Source)
	}
	return nil
}

// ============================================================================
// Mutations
// ============================================================================

func (e *Executor) createTable(n *CreateTableNode) error {
	if err := e.catalog.CreateTable(n.Table, n.Columns); err != nil {
		return err
	}
	for _, c := range n.Columns {
		if ref, ok := c.Reference(); ok {
			e.catalog.ForeignKeys().Add(c.Name, ref)
		}
	}
	e.logger.Debug("Created table", "table", n.Table, "columns", len(n.Columns))
	return nil
}

func (e *Executor) insert(n *InsertNode) error {
	table, ok := e.catalog.Table(n.Table)
	if !ok {
		return dberrors.TableNotFound(n.Table)
	}

	values := make(map[string]Value, len(table.Columns))
	for i, c := range n.Columns {
		values[c] = n.Values[i]
	}
	for _, col := range table.Columns {
		if _, given := values[col.Name]; !given {
			values[col.Name] = col.Default()
		}
	}

	row := Row{Values: values}
	for _, col := range table.Columns {
		if err := e.checkColumnValue(table, col, row, nil); err != nil {
			return err
		}
	}

	_, err := e.catalog.InsertRow(n.Table, values)
	return err
}

// update validates every target row against the table as it will look
// after the statement, then writes the batch.
func (e *Executor) update(n *UpdateNode) (int, error) {
	table, ok := e.catalog.Table(n.Table)
	if !ok {
		return 0, dberrors.TableNotFound(n.Table)
	}
	targets, err := e.rows(n.Source)
	if err != nil {
		return 0, err
	}

	pending := make(map[RowID]Row, len(targets))
	updated := make([]Row, 0, len(targets))
	for _, old := range targets {
		row := old.Clone()
		for _, a := range n.Assignments {
			row.Values[a.Column] = a.Value
		}
		pending[row.ID] = row
		updated = append(updated, row)
	}

	for i, row := range updated {
		old := targets[i]
		for _, a := range n.Assignments {
			col, _ := table.Column(a.Column)
			if err := e.checkColumnValue(table, col, row, pending); err != nil {
				return 0, err
			}
			oldValue := old.Get(a.Column)
			if oldValue.IsNull() || Equal(oldValue, a.Value, e.catalog.Collator()) {
				continue
			}
			if err := e.checkNotReferenced("update", a.Column, oldValue, pending, nil); err != nil {
				return 0, err
			}
		}
	}

	if err := e.catalog.ReplaceRows(n.Table, updated); err != nil {
		return 0, err
	}
	return len(updated), nil
}

func (e *Executor) delete(n *DeleteNode) (int, error) {
	table, ok := e.catalog.Table(n.Table)
	if !ok {
		return 0, dberrors.TableNotFound(n.Table)
	}
	targets, err := e.rows(n.Source)
	if err != nil {
		return 0, err
	}

	doomed := make(map[RowID]bool, len(targets))
	for _, r := range targets {
		doomed[r.ID] = true
	}

	ids := make([]RowID, 0, len(targets))
	for _, r := range targets {
		for _, col := range table.Columns {
			v := r.Get(col.Name)
			if v.IsNull() {
				continue
			}
			if err := e.checkNotReferenced("delete", col.Name, v, nil, doomed); err != nil {
				return 0, err
			}
		}
		ids = append(ids, r.ID)
	}

	if err := e.catalog.DeleteRows(n.Table, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// checkColumnValue enforces PRIMARY KEY, UNIQUE and FOREIGN KEY for the
// value row holds in col. pending overlays rows already rewritten by the
// running statement.
func (e *Executor) checkColumnValue(table *Table, col *Column, row Row, pending map[RowID]Row) error {
	v := row.Get(col.Name)
	if v.IsNull() {
		return nil
	}

	if col.Unique() {
		for _, other := range table.rows {
			if other.ID == row.ID {
				continue
			}
			if p, ok := pending[other.ID]; ok {
				other = p
			}
			if Equal(other.Get(col.Name), v, e.catalog.Collator()) {
				kind := ConstraintUnique
				if col.Has(ConstraintPrimaryKey) {
					kind = ConstraintPrimaryKey
				}
				return dberrors.ConstraintViolation(kind.String(), col.Name).
					WithDetail(fmt.Sprintf("value %s already exists", v))
			}
		}
	}

	if ref, ok := col.Reference(); ok {
		if !e.valueExists(table.Name, ref, v, row, pending) {
			return dberrors.ForeignKeyViolation(col.Name, ref, v.String())
		}
	}
	return nil
}

// valueExists reports whether some row holds v in the qualified column.
// self is the row being written to table; it may satisfy its own
// self-reference, and pending rows shadow their stored versions.
func (e *Executor) valueExists(table, column string, v Value, self Row, pending map[RowID]Row) bool {
	t, ok := e.catalog.Table(tableOf(column))
	if !ok {
		return false
	}
	sameTable := t.Name == table
	if sameTable && Equal(self.Get(column), v, e.catalog.Collator()) {
		return true
	}
	for _, r := range t.rows {
		if sameTable {
			if r.ID == self.ID {
				continue
			}
			if p, ok := pending[r.ID]; ok {
				r = p
			}
		}
		if Equal(r.Get(column), v, e.catalog.Collator()) {
			return true
		}
	}
	return false
}

// checkNotReferenced fails when v leaves column while a referencing column
// still holds it. Rows in skip are about to disappear and pending rows
// shadow their stored versions.
func (e *Executor) checkNotReferenced(action, column string, v Value, pending map[RowID]Row, skip map[RowID]bool) error {
	fks := e.catalog.ForeignKeys().ReferencesTo(column)
	if len(fks) == 0 || e.stillHeld(column, v, pending, skip) {
		return nil
	}
	for _, fk := range fks {
		t, ok := e.catalog.Table(tableOf(fk.Referencing))
		if !ok {
			continue
		}
		sameTable := t.Name == tableOf(column)
		for _, r := range t.rows {
			if sameTable {
				if skip[r.ID] {
					continue
				}
				if p, ok := pending[r.ID]; ok {
					r = p
				}
			}
			if Equal(r.Get(fk.Referencing), v, e.catalog.Collator()) {
				return dberrors.RowReferenced(action, fmt.Sprintf("%s = %s", column, v), fk.Referencing)
			}
		}
	}
	return nil
}

// stillHeld reports whether a row of column keeps holding v once the
// statement is applied.
func (e *Executor) stillHeld(column string, v Value, pending map[RowID]Row, skip map[RowID]bool) bool {
	t, ok := e.catalog.Table(tableOf(column))
	if !ok {
		return false
	}
	for _, r := range t.rows {
		if skip[r.ID] {
			continue
		}
		if p, ok := pending[r.ID]; ok {
			r = p
		}
		if Equal(r.Get(column), v, e.catalog.Collator()) {
			return true
		}
	}
	return false
}

// ============================================================================
// ALTER TABLE
// ============================================================================

func (e *Executor) alter(n *AlterTableNode) error {
	table, ok := e.catalog.Table(n.Table)
	if !ok {
		return dberrors.TableNotFound(n.Table)
	}

	switch n.Action {
	case AlterAdd:
		col := n.Column
		fill := col.Default()
		if err := e.checkExistingValues(table, &col, func(Row) Value { return fill }); err != nil {
			return err
		}
		if err := e.catalog.AddColumn(n.Table, col, fill); err != nil {
			return err
		}
		if ref, ok := col.Reference(); ok {
			e.catalog.ForeignKeys().Add(col.Name, ref)
		}
	case AlterDrop:
		return e.catalog.DropColumn(n.Table, n.Column.Name)
	case AlterRename:
		return e.catalog.RenameColumn(n.Table, n.Column.Name, n.NewName)
	case AlterModify:
		col := n.Column
		if err := e.checkExistingValues(table, &col, func(r Row) Value { return r.Get(col.Name) }); err != nil {
			return err
		}
		return e.catalog.ModifyColumn(n.Table, col)
	}
	return nil
}

// checkExistingValues verifies that the stored rows, with value(row) in
// col, satisfy col's type and constraints.
func (e *Executor) checkExistingValues(table *Table, col *Column, value func(Row) Value) error {
	seen := make([]Value, 0, len(table.rows))
	for _, r := range table.rows {
		v := value(r)
		if v.IsNull() {
			if col.Required() || col.Has(ConstraintForeignKey) {
				return dberrors.ConstraintViolation(requiredBy(col), col.Name).
					WithDetail(fmt.Sprintf("row %d would hold NULL", r.ID))
			}
			continue
		}
		if v.Kind.ColumnType() != col.Type {
			return dberrors.NewExecutionError(fmt.Sprintf("Cannot convert column %s to %s", col.Name, col.Type)).
				WithDetail(fmt.Sprintf("row %d holds %s value %s", r.ID, v.Kind, v))
		}
		if col.Unique() {
			for _, s := range seen {
				if Equal(s, v, e.catalog.Collator()) {
					kind := ConstraintUnique
					if col.Has(ConstraintPrimaryKey) {
						kind = ConstraintPrimaryKey
					}
					return dberrors.ConstraintViolation(kind.String(), col.Name).
						WithDetail(fmt.Sprintf("value %s appears more than once", v))
				}
			}
			seen = append(seen, v)
		}
		if ref, ok := col.Reference(); ok {
			if !e.valueExists(table.Name, ref, v, r, nil) {
				return dberrors.ForeignKeyViolation(col.Name, ref, v.String())
			}
		}
	}
	return nil
}
