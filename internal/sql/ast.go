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
Abstract Syntax Tree (AST) Overview:
====================================

The parser produces one Statement per call. Statement and Expr are closed
sum types: their marker methods are unexported, so only the node types in
this file implement them and every type switch over them can be checked
for exhaustiveness.

AST Node Hierarchy:
===================

	Statement (interface)
	├── SelectStmt
	├── InsertStmt
	├── UpdateStmt
	├── DeleteStmt
	├── CreateTableStmt
	├── DropTableStmt
	├── AlterAddStmt
	├── AlterDropStmt
	├── AlterRenameStmt
	└── AlterModifyStmt

	Expr (interface)
	├── Identifier
	├── Literal
	├── UnaryExpr   (NOT, IS NULL, IS NOT NULL)
	└── BinaryExpr  (AND, OR, = != < > <= >=)

Identifier names may be written unqualified ("id") or qualified
("users.id"). The binder rewrites every column identifier in place to its
qualified form, so after binding Name is always "table.column".
*/
package sql

import (
	"fmt"
	"strings"
)

// IdentKind tells what an Identifier names.
type IdentKind int

const (
	IdentColumn    IdentKind = iota // an existing column
	IdentTable                      // a table
	IdentNewColumn                  // a column being defined
)

func (k IdentKind) String() string {
	switch k {
	case IdentTable:
		return "TABLE"
	case IdentNewColumn:
		return "NEW_COLUMN"
	default:
		return "COLUMN"
	}
}

// Identifier is a table or column reference.
type Identifier struct {
	Kind IdentKind
	Name string
	Pos  int // source offset of the first character
}

// Qualifier returns the table prefix of a qualified name, or "".
func (i *Identifier) Qualifier() string {
	if dot := strings.IndexByte(i.Name, '.'); dot >= 0 {
		return i.Name[:dot]
	}
	return ""
}

// Base returns the name without its table prefix.
func (i *Identifier) Base() string {
	if dot := strings.IndexByte(i.Name, '.'); dot >= 0 {
		return i.Name[dot+1:]
	}
	return i.Name
}

// IsStar reports whether the identifier is "*" or "table.*".
func (i *Identifier) IsStar() bool {
	return i.Base() == "*"
}

func (i *Identifier) String() string { return i.Name }

// Literal is a constant in the statement text.
type Literal struct {
	Value Value
	Pos   int
}

func (l *Literal) String() string {
	if l.Value.Kind == KindText {
		return "'" + l.Value.Str + "'"
	}
	return l.Value.String()
}

// ConstraintKind enumerates the column constraints.
type ConstraintKind int

const (
	ConstraintPrimaryKey ConstraintKind = iota
	ConstraintNotNull
	ConstraintUnique
	ConstraintForeignKey
	ConstraintDefault
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintPrimaryKey:
		return "PRIMARY KEY"
	case ConstraintNotNull:
		return "NOT NULL"
	case ConstraintUnique:
		return "UNIQUE"
	case ConstraintForeignKey:
		return "FOREIGN KEY"
	default:
		return "DEFAULT"
	}
}

// Constraint is a column constraint. Ref holds the referenced column as
// "table.column" for FOREIGN KEY; Default holds the value for DEFAULT.
type Constraint struct {
	Kind    ConstraintKind `json:"kind"`
	Ref     string         `json:"ref,omitempty"`
	Default Value          `json:"default"`
}

// String renders the constraint as it is written in a column definition.
func (c Constraint) String() string {
	switch c.Kind {
	case ConstraintForeignKey:
		table, column, _ := strings.Cut(c.Ref, ".")
		return fmt.Sprintf("FOREIGN KEY REFERENCES %s(%s)", table, column)
	case ConstraintDefault:
		lit, err := c.Default.SQL()
		if err != nil {
			lit = c.Default.String()
		}
		return "DEFAULT " + lit
	default:
		return c.Kind.String()
	}
}

// Operator is an expression operator.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot
	OpIsNull
	OpIsNotNull
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

var operatorText = map[Operator]string{
	OpAnd: "AND", OpOr: "OR", OpNot: "NOT",
	OpIsNull: "IS NULL", OpIsNotNull: "IS NOT NULL",
	OpEq: "=", OpNe: "!=", OpLt: "<", OpGt: ">", OpLe: "<=", OpGe: ">=",
}

var comparisonOps = map[string]Operator{
	"=": OpEq, "!=": OpNe, "<": OpLt, ">": OpGt, "<=": OpLe, ">=": OpGe,
}

func (o Operator) String() string { return operatorText[o] }

// IsComparison reports whether o is one of = != < > <= >=.
func (o Operator) IsComparison() bool { return o >= OpEq }

// Expr is a node of a WHERE expression tree.
type Expr interface {
	exprNode()
	String() string
}

// UnaryExpr is NOT x, x IS NULL or x IS NOT NULL.
type UnaryExpr struct {
	Op      Operator
	Operand Expr
}

// BinaryExpr is a logical connective or a comparison.
type BinaryExpr struct {
	Op    Operator
	Left  Expr
	Right Expr
}

func (*Identifier) exprNode() {}
func (*Literal) exprNode()    {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}

func (e *UnaryExpr) String() string {
	if e.Op == OpNot {
		return fmt.Sprintf("(NOT %s)", e.Operand)
	}
	return fmt.Sprintf("(%s %s)", e.Operand, e.Op)
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// Statement is a parsed SQL statement. Text returns the source it was
// parsed from.
type Statement interface {
	statementNode()
	Kind() string
	Text() string
	setText(string)
}

type stmtText struct {
	sql string
}

func (s *stmtText) Text() string       { return s.sql }
func (s *stmtText) setText(sql string) { s.sql = sql }

// OrderByItem is one sort key.
type OrderByItem struct {
	Column *Identifier
	Desc   bool
}

// SelectStmt represents SELECT columns FROM tables [WHERE] [ORDER BY].
// Columns may contain "*" or "table.*" until the binder expands them.
type SelectStmt struct {
	stmtText
	Columns []*Identifier
	Tables  []*Identifier
	Where   Expr
	OrderBy []OrderByItem
}

// InsertStmt represents INSERT INTO table (columns) VALUES (values).
type InsertStmt struct {
	stmtText
	Table   *Identifier
	Columns []*Identifier
	Values  []*Literal
}

// Assignment is one "column = literal" of an UPDATE.
type Assignment struct {
	Column *Identifier
	Value  *Literal
}

// UpdateStmt represents UPDATE table SET assignments [WHERE].
type UpdateStmt struct {
	stmtText
	Table       *Identifier
	Assignments []Assignment
	Where       Expr
}

// DeleteStmt represents DELETE FROM table [WHERE].
type DeleteStmt struct {
	stmtText
	Table *Identifier
	Where Expr
}

// ColumnDef is "name type constraint*" in CREATE TABLE or ALTER TABLE.
type ColumnDef struct {
	Name        *Identifier
	Type        ColumnType
	Constraints []Constraint
}

// Has reports whether the definition carries a constraint of kind k.
func (c ColumnDef) Has(k ConstraintKind) bool {
	return hasConstraint(c.Constraints, k)
}

// CreateTableStmt represents CREATE TABLE table (coldefs).
type CreateTableStmt struct {
	stmtText
	Table   *Identifier
	Columns []ColumnDef
}

// DropTableStmt represents DROP TABLE table.
type DropTableStmt struct {
	stmtText
	Table *Identifier
}

// AlterAddStmt represents ALTER TABLE t ADD COLUMN coldef.
type AlterAddStmt struct {
	stmtText
	Table  *Identifier
	Column ColumnDef
}

// AlterDropStmt represents ALTER TABLE t DROP COLUMN c.
type AlterDropStmt struct {
	stmtText
	Table  *Identifier
	Column *Identifier
}

// AlterRenameStmt represents ALTER TABLE t RENAME COLUMN c TO n.
type AlterRenameStmt struct {
	stmtText
	Table   *Identifier
	Column  *Identifier
	NewName *Identifier
}

// AlterModifyStmt represents ALTER TABLE t MODIFY COLUMN coldef.
type AlterModifyStmt struct {
	stmtText
	Table  *Identifier
	Column ColumnDef
}

func (*SelectStmt) statementNode()      {}
func (*InsertStmt) statementNode()      {}
func (*UpdateStmt) statementNode()      {}
func (*DeleteStmt) statementNode()      {}
func (*CreateTableStmt) statementNode() {}
func (*DropTableStmt) statementNode()   {}
func (*AlterAddStmt) statementNode()    {}
func (*AlterDropStmt) statementNode()   {}
func (*AlterRenameStmt) statementNode() {}
func (*AlterModifyStmt) statementNode() {}

func (*SelectStmt) Kind() string      { return "SELECT" }
func (*InsertStmt) Kind() string      { return "INSERT" }
func (*UpdateStmt) Kind() string      { return "UPDATE" }
func (*DeleteStmt) Kind() string      { return "DELETE" }
func (*CreateTableStmt) Kind() string { return "CREATE" }
func (*DropTableStmt) Kind() string   { return "DROP" }
func (*AlterAddStmt) Kind() string    { return "ALTER" }
func (*AlterDropStmt) Kind() string   { return "ALTER" }
func (*AlterRenameStmt) Kind() string { return "ALTER" }
func (*AlterModifyStmt) Kind() string { return "ALTER" }

func hasConstraint(cs []Constraint, k ConstraintKind) bool {
	for _, c := range cs {
		if c.Kind == k {
			return true
		}
	}
	return false
}

func findConstraint(cs []Constraint, k ConstraintKind) (Constraint, bool) {
	for _, c := range cs {
		if c.Kind == k {
			return c, true
		}
	}
	return Constraint{}, false
}
