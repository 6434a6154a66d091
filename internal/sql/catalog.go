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
Catalog Overview:
=================

The Catalog is the single source of truth of an engine: table schemas,
row storage and the foreign-key registry. It is an explicit object; every
Binder, Planner and Executor is handed the catalog it works on, so several
independent catalogs can live in one process.

Schema:
=======

	tables:      table name -> ordered qualified column names
	columns:     "table.column" -> declared type + ordered constraints
	rows:        table name -> ordered rows
	foreignKeys: ordered {referencing, referenced} pairs

Row Identity:
=============

Every row gets a RowID when it is inserted. Update and delete address rows
by RowID, so two rows with identical values stay distinguishable.

Thread Safety:
==============

The catalog is not synchronised. One caller drives one statement to
completion before the next begins.
*/
package sql

import (
	"fmt"
	"strings"

	dberrors "regretdb/internal/errors"
	"regretdb/internal/storage"
)

// RowID is the synthetic identity of a stored row.
type RowID uint64

// Row maps qualified column names to values.
type Row struct {
	ID     RowID
	Values map[string]Value
}

// Get returns the value of column, or NULL when the row has no such key.
func (r Row) Get(column string) Value {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return Null()
}

// Clone returns a copy whose value map can be modified independently.
func (r Row) Clone() Row {
	values := make(map[string]Value, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Row{ID: r.ID, Values: values}
}

// Column is the schema of one column. Name is qualified.
type Column struct {
	Name        string       `json:"name"`
	Type        ColumnType   `json:"type"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// Has reports whether the column carries a constraint of kind k.
func (c *Column) Has(k ConstraintKind) bool {
	return hasConstraint(c.Constraints, k)
}

// Default returns the DEFAULT value, or NULL when there is none.
func (c *Column) Default() Value {
	if d, ok := findConstraint(c.Constraints, ConstraintDefault); ok {
		return d.Default
	}
	return Null()
}

// Reference returns the referenced column of a FOREIGN KEY constraint.
func (c *Column) Reference() (string, bool) {
	fk, ok := findConstraint(c.Constraints, ConstraintForeignKey)
	return fk.Ref, ok
}

// Unique reports whether values of the column must be distinct.
func (c *Column) Unique() bool {
	return c.Has(ConstraintPrimaryKey) || c.Has(ConstraintUnique)
}

// ShortName returns the column name without its table prefix.
func (c *Column) ShortName() string { return columnOf(c.Name) }

// Definition renders the column as it would appear in CREATE TABLE.
func (c *Column) Definition() (string, error) {
	parts := []string{c.ShortName(), string(c.Type)}
	for _, k := range c.Constraints {
		if k.Kind == ConstraintDefault {
			if _, err := k.Default.SQL(); err != nil {
				return "", err
			}
		}
		parts = append(parts, k.String())
	}
	return strings.Join(parts, " "), nil
}

// Required reports whether the column rejects NULL.
func (c *Column) Required() bool {
	return c.Has(ConstraintNotNull) || c.Has(ConstraintPrimaryKey)
}

// Table holds the schema and rows of one table.
type Table struct {
	Name    string
	Columns []*Column
	rows    []Row
	index   map[RowID]int
}

func newTable(name string, cols []Column) *Table {
	t := &Table{Name: name, index: make(map[RowID]int)}
	for i := range cols {
		c := cols[i]
		c.Constraints = append([]Constraint(nil), c.Constraints...)
		t.Columns = append(t.Columns, &c)
	}
	return t
}

// Column returns the column with the given qualified name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns the qualified column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Rows returns the live rows. The slice is a copy; the value maps are not.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// RowCount returns the number of stored rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Row returns the row with the given id.
func (t *Table) Row(id RowID) (Row, bool) {
	i, ok := t.index[id]
	if !ok {
		return Row{}, false
	}
	return t.rows[i], true
}

func (t *Table) reindex() {
	t.index = make(map[RowID]int, len(t.rows))
	for i, r := range t.rows {
		t.index[r.ID] = i
	}
}

// Catalog is the schema and row registry of one database.
type Catalog struct {
	tables      map[string]*Table
	order       []string
	foreignKeys *ForeignKeyRegistry
	collator    storage.Collator
	nextID      RowID
}

// NewCatalog creates an empty catalog. TEXT values are compared with coll;
// a nil collator means byte order.
func NewCatalog(coll storage.Collator) *Catalog {
	if coll == nil {
		coll = &storage.DefaultCollator{}
	}
	return &Catalog{
		tables:      make(map[string]*Table),
		foreignKeys: &ForeignKeyRegistry{},
		collator:    coll,
		nextID:      1,
	}
}

// Collator returns the collation used for TEXT comparisons.
func (c *Catalog) Collator() storage.Collator { return c.collator }

// ForeignKeys returns the registry of foreign-key relationships.
func (c *Catalog) ForeignKeys() *ForeignKeyRegistry { return c.foreignKeys }

// HasTable reports whether a table exists.
func (c *Catalog) HasTable(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// Table returns a table by name.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// TableNames returns table names in creation order.
func (c *Catalog) TableNames() []string {
	return append([]string(nil), c.order...)
}

// Column looks up a qualified column.
func (c *Catalog) Column(qualified string) (*Column, bool) {
	t, ok := c.tables[tableOf(qualified)]
	if !ok {
		return nil, false
	}
	return t.Column(qualified)
}

// CreateTable registers a table with the given columns and empty storage.
func (c *Catalog) CreateTable(name string, cols []Column) error {
	if c.HasTable(name) {
		return dberrors.NewInternalError(fmt.Sprintf("table %s already exists", name))
	}
	c.tables[name] = newTable(name, cols)
	c.order = append(c.order, name)
	return nil
}

// DropTable removes a table, its rows and every foreign key touching it.
func (c *Catalog) DropTable(name string) error {
	if !c.HasTable(name) {
		return dberrors.TableNotFound(name)
	}
	delete(c.tables, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.foreignKeys.RemoveTable(name)
	return nil
}

// InsertRow appends a row and returns its id. values must hold exactly the
// table's columns.
func (c *Catalog) InsertRow(table string, values map[string]Value) (RowID, error) {
	t, ok := c.tables[table]
	if !ok {
		return 0, dberrors.TableNotFound(table)
	}
	if len(values) != len(t.Columns) {
		return 0, dberrors.NewInternalError(fmt.Sprintf("row for %s has %d values, table has %d columns",
			table, len(values), len(t.Columns)))
	}
	for _, col := range t.Columns {
		if _, ok := values[col.Name]; !ok {
			return 0, dberrors.NewInternalError(fmt.Sprintf("row for %s is missing column %s", table, col.Name))
		}
	}

	id := c.nextID
	c.nextID++
	t.index[id] = len(t.rows)
	t.rows = append(t.rows, Row{ID: id, Values: values})
	return id, nil
}

// ReplaceRows overwrites stored rows that have the same ids as rows.
func (c *Catalog) ReplaceRows(table string, rows []Row) error {
	t, ok := c.tables[table]
	if !ok {
		return dberrors.TableNotFound(table)
	}
	for _, r := range rows {
		i, ok := t.index[r.ID]
		if !ok {
			return dberrors.NewInternalError(fmt.Sprintf("row %d not found in %s", r.ID, table))
		}
		t.rows[i] = r
	}
	return nil
}

// DeleteRows removes the rows with the given ids.
func (c *Catalog) DeleteRows(table string, ids []RowID) error {
	t, ok := c.tables[table]
	if !ok {
		return dberrors.TableNotFound(table)
	}
	drop := make(map[RowID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := t.index[id]; !ok {
			return dberrors.NewInternalError(fmt.Sprintf("row %d not found in %s", id, table))
		}
		drop[id] = struct{}{}
	}
	kept := t.rows[:0]
	for _, r := range t.rows {
		if _, ok := drop[r.ID]; !ok {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	t.reindex()
	return nil
}

// AddColumn appends a column to a table and sets it to fill in every
// existing row.
func (c *Catalog) AddColumn(table string, col Column, fill Value) error {
	t, ok := c.tables[table]
	if !ok {
		return dberrors.TableNotFound(table)
	}
	if _, exists := t.Column(col.Name); exists {
		return dberrors.NewInternalError(fmt.Sprintf("column %s already exists", col.Name))
	}
	col.Constraints = append([]Constraint(nil), col.Constraints...)
	t.Columns = append(t.Columns, &col)
	for _, r := range t.rows {
		r.Values[col.Name] = fill
	}
	return nil
}

// DropColumn removes a column from the schema, the rows and the registry.
func (c *Catalog) DropColumn(table, column string) error {
	t, ok := c.tables[table]
	if !ok {
		return dberrors.TableNotFound(table)
	}
	for i, col := range t.Columns {
		if col.Name == column {
			t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
			for _, r := range t.rows {
				delete(r.Values, column)
			}
			c.foreignKeys.RemoveColumn(column)
			return nil
		}
	}
	return dberrors.ColumnNotFound(columnOf(column), table)
}

// RenameColumn renames a column everywhere it is named: schema, rows,
// foreign-key constraints of other columns and the registry.
func (c *Catalog) RenameColumn(table, oldName, newName string) error {
	t, ok := c.tables[table]
	if !ok {
		return dberrors.TableNotFound(table)
	}
	col, ok := t.Column(oldName)
	if !ok {
		return dberrors.ColumnNotFound(columnOf(oldName), table)
	}
	col.Name = newName
	for _, r := range t.rows {
		r.Values[newName] = r.Values[oldName]
		delete(r.Values, oldName)
	}
	for _, other := range c.tables {
		for _, oc := range other.Columns {
			for i := range oc.Constraints {
				if oc.Constraints[i].Kind == ConstraintForeignKey && oc.Constraints[i].Ref == oldName {
					oc.Constraints[i].Ref = newName
				}
			}
		}
	}
	c.foreignKeys.RenameColumn(oldName, newName)
	return nil
}

// ModifyColumn replaces the type and constraints of a column. Foreign keys
// registered from the column are replaced by the new definition's.
func (c *Catalog) ModifyColumn(table string, def Column) error {
	t, ok := c.tables[table]
	if !ok {
		return dberrors.TableNotFound(table)
	}
	col, ok := t.Column(def.Name)
	if !ok {
		return dberrors.ColumnNotFound(columnOf(def.Name), table)
	}
	col.Type = def.Type
	col.Constraints = append([]Constraint(nil), def.Constraints...)

	c.foreignKeys.filter(func(fk ForeignKey) bool { return fk.Referencing != def.Name })
	if ref, ok := col.Reference(); ok {
		c.foreignKeys.Add(def.Name, ref)
	}
	return nil
}

// TotalRows returns the number of rows across all tables.
func (c *Catalog) TotalRows() int {
	n := 0
	for _, t := range c.tables {
		n += len(t.rows)
	}
	return n
}
