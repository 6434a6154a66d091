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
Binder Overview:
================

The Binder validates a parsed statement against the catalog and qualifies
it in place: after a successful Bind every column identifier of the
statement is written as "table.column" and names an existing column.

A failed Bind leaves the catalog untouched; the statement may have been
partly qualified. Every error is a PREPROCESSOR error carrying the word it
is about, so it can be rendered by underlining that word.

Shared checks:
==============

  - checkTable:      the table exists
  - checkTables:     no table is listed twice, and each exists
  - checkColumn:     qualify one column against the tables in scope
  - checkColumns:    checkColumn for a list, rejecting duplicates
  - checkExpression: checkColumn for every identifier of a WHERE tree
  - checkType:       NULL-ability and literal kind against the column
*/
package sql

import (
	"fmt"
	"strings"

	dberrors "regretdb/internal/errors"
)

// Binder qualifies and validates statements against one catalog.
type Binder struct {
	catalog *Catalog
}

// NewBinder creates a binder for catalog.
func NewBinder(catalog *Catalog) *Binder {
	return &Binder{catalog: catalog}
}

// Bind validates stmt and rewrites its identifiers to qualified names.
func (b *Binder) Bind(stmt Statement) error {
	if stmt.Text() == "" {
		return dberrors.NewInternalError(fmt.Sprintf("%s statement reached the binder without its SQL text", stmt.Kind()))
	}

	var err error
	switch s := stmt.(type) {
	case *SelectStmt:
		err = b.bindSelect(s)
	case *InsertStmt:
		err = b.bindInsert(s)
	case *UpdateStmt:
		err = b.bindUpdate(s)
	case *DeleteStmt:
		err = b.bindDelete(s)
	case *CreateTableStmt:
		err = b.bindCreate(s)
	case *DropTableStmt:
		err = b.bindDrop(s)
	case *AlterAddStmt:
		err = b.bindAlterAdd(s)
	case *AlterDropStmt:
		err = b.bindAlterDrop(s)
	case *AlterRenameStmt:
		err = b.bindAlterRename(s)
	case *AlterModifyStmt:
		err = b.bindAlterModify(s)
	default:
		err = dberrors.NewInternalError(fmt.Sprintf("unknown statement type %T", stmt))
	}

	if e, ok := err.(*dberrors.RegretDBError); ok && e.SQL == "" {
		return e.WithSQL(stmt.Text())
	}
	return err
}

// ============================================================================
// Statements
// ============================================================================

func (b *Binder) bindSelect(s *SelectStmt) error {
	if err := b.checkTables(s.Tables); err != nil {
		return err
	}
	scope := identNames(s.Tables)

	var columns []*Identifier
	for _, col := range s.Columns {
		switch {
		case col.Name == "*":
			for _, table := range scope {
				columns = append(columns, b.expand(table, col.Pos)...)
			}
		case col.IsStar():
			table := col.Qualifier()
			if err := b.checkTable(table); err != nil {
				return err
			}
			if !contains(scope, table) {
				return notInScope(table)
			}
			columns = append(columns, b.expand(table, col.Pos)...)
		default:
			columns = append(columns, col)
		}
	}
	if err := b.checkColumns(scope, columns); err != nil {
		return err
	}
	s.Columns = columns

	if s.Where != nil {
		if err := b.checkExpression(scope, s.Where); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, item := range s.OrderBy {
		if err := b.checkColumn(scope, item.Column); err != nil {
			return err
		}
		if seen[item.Column.Name] {
			return duplicateColumn(item.Column)
		}
		seen[item.Column.Name] = true
	}
	return nil
}

func (b *Binder) bindInsert(s *InsertStmt) error {
	if len(s.Columns) != len(s.Values) {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeArityMismatch, "",
			fmt.Sprintf("Columns length(%d) != values length(%d)", len(s.Columns), len(s.Values)))
	}
	if err := b.checkTable(s.Table.Name); err != nil {
		return err
	}
	scope := []string{s.Table.Name}
	if err := b.checkColumns(scope, s.Columns); err != nil {
		return err
	}

	given := make(map[string]bool, len(s.Columns))
	for i, col := range s.Columns {
		given[col.Name] = true
		if err := b.checkType(col.Name, s.Values[i].Value); err != nil {
			return err
		}
	}

	// Omitted columns are filled with their DEFAULT, so only columns that
	// reject NULL and have no usable default must be listed.
	table, _ := b.catalog.Table(s.Table.Name)
	for _, col := range table.Columns {
		if given[col.Name] || !col.Required() || !col.Default().IsNull() {
			continue
		}
		return dberrors.NewPreProcessorError(dberrors.ErrCodeNullViolation, columnOf(col.Name),
			fmt.Sprintf("Column '%s' must be specified (%s constraint)", col.Name, requiredBy(col)))
	}
	return nil
}

func (b *Binder) bindUpdate(s *UpdateStmt) error {
	if err := b.checkTable(s.Table.Name); err != nil {
		return err
	}
	scope := []string{s.Table.Name}

	seen := make(map[string]bool, len(s.Assignments))
	for _, a := range s.Assignments {
		if err := b.checkColumn(scope, a.Column); err != nil {
			return err
		}
		if seen[a.Column.Name] {
			return duplicateColumn(a.Column)
		}
		seen[a.Column.Name] = true
		if err := b.checkType(a.Column.Name, a.Value.Value); err != nil {
			return err
		}
	}

	if s.Where != nil {
		return b.checkExpression(scope, s.Where)
	}
	return nil
}

func (b *Binder) bindDelete(s *DeleteStmt) error {
	if err := b.checkTable(s.Table.Name); err != nil {
		return err
	}
	if s.Where != nil {
		return b.checkExpression([]string{s.Table.Name}, s.Where)
	}
	return nil
}

func (b *Binder) bindCreate(s *CreateTableStmt) error {
	name := s.Table.Name
	if b.catalog.HasTable(name) {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeTableExists, name,
			fmt.Sprintf("Table '%s' already exists", name))
	}

	// Column types of the new table, for self-referencing foreign keys.
	local := make(map[string]ColumnType, len(s.Columns))
	for _, def := range s.Columns {
		q := name + "." + def.Name.Name
		if _, dup := local[q]; dup {
			return dberrors.NewPreProcessorError(dberrors.ErrCodeDuplicateColumn, def.Name.Name,
				fmt.Sprintf("Duplicate column name '%s' in table '%s'", def.Name.Name, name))
		}
		local[q] = def.Type
	}

	primaryKeys := 0
	for i := range s.Columns {
		def := &s.Columns[i]
		if def.Has(ConstraintPrimaryKey) {
			primaryKeys++
			if primaryKeys > 1 {
				return dberrors.NewPreProcessorError(dberrors.ErrCodeMultiplePrimaryKeys, "KEY",
					fmt.Sprintf("Multiple PRIMARY KEY constraints defined for table '%s'", name))
			}
		}
		def.Name.Name = name + "." + def.Name.Name
		if err := b.checkColumnDef(name, def, local); err != nil {
			return err
		}
	}
	return nil
}

func (b *Binder) bindDrop(s *DropTableStmt) error {
	if err := b.checkTable(s.Table.Name); err != nil {
		return err
	}
	if refs := b.catalog.ForeignKeys().ReferencesToTable(s.Table.Name); len(refs) > 0 {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeTableReferenced, s.Table.Name,
			fmt.Sprintf("Unable to drop table '%s'. Foreign key references exist: %s",
				s.Table.Name, joinForeignKeys(refs)))
	}
	return nil
}

func (b *Binder) bindAlterAdd(s *AlterAddStmt) error {
	if err := b.checkTable(s.Table.Name); err != nil {
		return err
	}
	table, _ := b.catalog.Table(s.Table.Name)
	def := &s.Column
	base := def.Name.Name
	def.Name.Name = s.Table.Name + "." + base

	if _, exists := table.Column(def.Name.Name); exists {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeDuplicateColumn, base,
			fmt.Sprintf("Column '%s' already exists in table '%s'", base, s.Table.Name))
	}
	if def.Has(ConstraintPrimaryKey) && tableHasPrimaryKey(table, "") {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeMultiplePrimaryKeys, "KEY",
			fmt.Sprintf("Multiple PRIMARY KEY constraints defined for table '%s'", s.Table.Name))
	}
	return b.checkColumnDef(s.Table.Name, def, map[string]ColumnType{def.Name.Name: def.Type})
}

func (b *Binder) bindAlterDrop(s *AlterDropStmt) error {
	if err := b.checkTable(s.Table.Name); err != nil {
		return err
	}
	if err := b.checkColumn([]string{s.Table.Name}, s.Column); err != nil {
		return err
	}
	table, _ := b.catalog.Table(s.Table.Name)
	if len(table.Columns) == 1 {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeUnsupportedAlter, s.Column.Base(),
			fmt.Sprintf("Cannot drop column '%s': it is the only column of table '%s'", s.Column.Name, s.Table.Name))
	}
	var refs []ForeignKey
	for _, fk := range b.catalog.ForeignKeys().ReferencesTo(s.Column.Name) {
		if fk.Referencing != s.Column.Name {
			refs = append(refs, fk)
		}
	}
	if len(refs) > 0 {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeTableReferenced, s.Column.Base(),
			fmt.Sprintf("Unable to drop column '%s'. Foreign key references exist: %s",
				s.Column.Name, joinForeignKeys(refs)))
	}
	return nil
}

func (b *Binder) bindAlterRename(s *AlterRenameStmt) error {
	if err := b.checkTable(s.Table.Name); err != nil {
		return err
	}
	if err := b.checkColumn([]string{s.Table.Name}, s.Column); err != nil {
		return err
	}
	base := s.NewName.Name
	s.NewName.Name = s.Table.Name + "." + base
	if _, exists := b.catalog.Column(s.NewName.Name); exists {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeDuplicateColumn, base,
			fmt.Sprintf("Column '%s' already exists in table '%s'", base, s.Table.Name))
	}
	return nil
}

func (b *Binder) bindAlterModify(s *AlterModifyStmt) error {
	if err := b.checkTable(s.Table.Name); err != nil {
		return err
	}
	def := &s.Column
	if err := b.checkColumn([]string{s.Table.Name}, def.Name); err != nil {
		return err
	}
	table, _ := b.catalog.Table(s.Table.Name)
	current, _ := table.Column(def.Name.Name)

	if def.Has(ConstraintPrimaryKey) && tableHasPrimaryKey(table, def.Name.Name) {
		return dberrors.NewPreProcessorError(dberrors.ErrCodeMultiplePrimaryKeys, "KEY",
			fmt.Sprintf("Multiple PRIMARY KEY constraints defined for table '%s'", s.Table.Name))
	}
	if def.Type != current.Type {
		var refs []ForeignKey
		for _, fk := range b.catalog.ForeignKeys().ReferencesTo(def.Name.Name) {
			if fk.Referencing != def.Name.Name {
				refs = append(refs, fk)
			}
		}
		if len(refs) > 0 {
			return dberrors.NewPreProcessorError(dberrors.ErrCodeInvalidReference, def.Name.Base(),
				fmt.Sprintf("Cannot change type of column '%s': foreign key references exist: %s",
					def.Name.Name, joinForeignKeys(refs)))
		}
	}
	return b.checkColumnDef(s.Table.Name, def, map[string]ColumnType{def.Name.Name: def.Type})
}

// checkColumnDef validates the DEFAULT and FOREIGN KEY constraints of a
// column definition whose name is already qualified. local lists columns
// being defined by the same statement, so that a table may reference itself.
func (b *Binder) checkColumnDef(table string, def *ColumnDef, local map[string]ColumnType) error {
	probe := &Column{Name: def.Name.Name, Type: def.Type, Constraints: def.Constraints}

	for _, c := range def.Constraints {
		switch c.Kind {
		case ConstraintDefault:
			if err := checkValue(probe, c.Default); err != nil {
				return err
			}
		case ConstraintForeignKey:
			refTable, refCol := tableOf(c.Ref), columnOf(c.Ref)
			var refType ColumnType
			if t, ok := local[c.Ref]; ok {
				refType = t
			} else {
				if refTable != table && !b.catalog.HasTable(refTable) {
					return dberrors.TableNotFound(refTable)
				}
				col, ok := b.catalog.Column(c.Ref)
				if !ok {
					return dberrors.ColumnNotFound(refCol, refTable)
				}
				refType = col.Type
			}
			if refType != def.Type {
				return dberrors.NewPreProcessorError(dberrors.ErrCodeInvalidReference, refCol,
					fmt.Sprintf("FOREIGN KEY type mismatch: column '%s' is %s but referenced column '%s' is %s",
						def.Name.Name, def.Type, c.Ref, refType))
			}
		}
	}
	return nil
}

// ============================================================================
// Shared checks
// ============================================================================

func (b *Binder) checkTable(name string) error {
	if !b.catalog.HasTable(name) {
		return dberrors.TableNotFound(name)
	}
	return nil
}

func (b *Binder) checkTables(tables []*Identifier) error {
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if seen[t.Name] {
			return dberrors.NewPreProcessorError(dberrors.ErrCodeDuplicateTable, t.Name,
				fmt.Sprintf("Duplicate table '%s' found.", t.Name))
		}
		if err := b.checkTable(t.Name); err != nil {
			return err
		}
		seen[t.Name] = true
	}
	return nil
}

// checkColumn qualifies id against the tables in scope. An unprefixed
// column is accepted only when exactly one table is in scope.
func (b *Binder) checkColumn(scope []string, id *Identifier) error {
	table, col := id.Qualifier(), id.Base()
	if table == "" {
		if len(scope) != 1 {
			return dberrors.NewPreProcessorError(dberrors.ErrCodeAmbiguousColumn, col,
				fmt.Sprintf("Column '%s' must be prefixed (ambiguity error)", col))
		}
		table = scope[0]
	}
	if !contains(scope, table) {
		return notInScope(table)
	}
	qualified := table + "." + col
	if _, ok := b.catalog.Column(qualified); !ok {
		return dberrors.ColumnNotFound(col, table)
	}
	id.Name = qualified
	return nil
}

func (b *Binder) checkColumns(scope []string, ids []*Identifier) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if err := b.checkColumn(scope, id); err != nil {
			return err
		}
		if seen[id.Name] {
			return duplicateColumn(id)
		}
		seen[id.Name] = true
	}
	return nil
}

func (b *Binder) checkExpression(scope []string, expr Expr) error {
	switch e := expr.(type) {
	case *Identifier:
		return b.checkColumn(scope, e)
	case *Literal:
		return nil
	case *UnaryExpr:
		return b.checkExpression(scope, e.Operand)
	case *BinaryExpr:
		if err := b.checkExpression(scope, e.Left); err != nil {
			return err
		}
		return b.checkExpression(scope, e.Right)
	default:
		return dberrors.NewInternalError(fmt.Sprintf("unknown expression node %T", expr))
	}
}

// checkType checks a literal written to a qualified column.
func (b *Binder) checkType(column string, v Value) error {
	col, ok := b.catalog.Column(column)
	if !ok {
		return dberrors.ColumnNotFound(columnOf(column), tableOf(column))
	}
	return checkValue(col, v)
}

// checkValue rejects NULL for NOT NULL, PRIMARY KEY and FOREIGN KEY columns
// and any non-NULL value whose kind differs from the column type.
func checkValue(col *Column, v Value) error {
	if v.IsNull() {
		if col.Required() || col.Has(ConstraintForeignKey) {
			e := dberrors.NullViolation(col.Name)
			e.Word = columnOf(col.Name)
			return e
		}
		return nil
	}
	if v.Kind.ColumnType() != col.Type {
		e := dberrors.TypeMismatch(string(col.Type), v.Kind.String(), col.Name)
		e.Word = columnOf(col.Name)
		return e
	}
	return nil
}

func (b *Binder) expand(table string, pos int) []*Identifier {
	t, _ := b.catalog.Table(table)
	out := make([]*Identifier, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, &Identifier{Kind: IdentColumn, Name: c.Name, Pos: pos})
	}
	return out
}

// ============================================================================
// Helpers
// ============================================================================

func identNames(ids []*Identifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Name
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func notInScope(table string) error {
	return dberrors.NewPreProcessorError(dberrors.ErrCodeTableNotInScope, table,
		fmt.Sprintf("Table '%s' is not specified in 'FROM' clause", table))
}

func duplicateColumn(id *Identifier) error {
	return dberrors.NewPreProcessorError(dberrors.ErrCodeDuplicateColumn, id.Base(),
		fmt.Sprintf("Duplicate column '%s' found", id.Name))
}

func tableHasPrimaryKey(t *Table, except string) bool {
	for _, c := range t.Columns {
		if c.Name != except && c.Has(ConstraintPrimaryKey) {
			return true
		}
	}
	return false
}

func requiredBy(col *Column) string {
	if col.Has(ConstraintPrimaryKey) {
		return "PRIMARY KEY"
	}
	return "NOT NULL"
}

func joinForeignKeys(fks []ForeignKey) string {
	parts := make([]string, len(fks))
	for i, fk := range fks {
		parts[i] = fk.String()
	}
	return strings.Join(parts, ", ")
}
