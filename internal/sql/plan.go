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

package sql

import (
	"fmt"
	"strings"
)

// PlanNode is one operator of a plan tree. Each node owns its children.
type PlanNode interface {
	planNode()
	// describe returns the one-line label used in EXPLAIN output.
	describe() string
	children() []PlanNode
}

// TableScan reads every row of a table.
type TableScan struct {
	Table string
}

// CrossJoin is the Cartesian product of two inputs.
type CrossJoin struct {
	Left, Right PlanNode
}

// Filter keeps rows for which Predicate is TRUE.
type Filter struct {
	Source    PlanNode
	Predicate Expr
}

// Project keeps the listed qualified columns, in order.
type Project struct {
	Source  PlanNode
	Columns []string
}

// SortKey is one ORDER BY key.
type SortKey struct {
	Column string
	Desc   bool
}

// Sort orders its input by Keys.
type Sort struct {
	Source PlanNode
	Keys   []SortKey
}

// CreateTableNode registers a new table.
type CreateTableNode struct {
	Table   string
	Columns []Column
}

// InsertNode appends one row.
type InsertNode struct {
	Table   string
	Columns []string
	Values  []Value
}

// ColumnValue is a qualified column and the value assigned to it.
type ColumnValue struct {
	Column string
	Value  Value
}

// UpdateNode rewrites the rows produced by Source.
type UpdateNode struct {
	Source      PlanNode
	Table       string
	Assignments []ColumnValue
}

// DeleteNode removes the rows produced by Source.
type DeleteNode struct {
	Source PlanNode
	Table  string
}

// DropTableNode removes a table.
type DropTableNode struct {
	Table string
}

// AlterAction is the kind of ALTER TABLE change.
type AlterAction int

const (
	AlterAdd AlterAction = iota
	AlterDrop
	AlterRename
	AlterModify
)

func (a AlterAction) String() string {
	switch a {
	case AlterAdd:
		return "ADD"
	case AlterDrop:
		return "DROP"
	case AlterRename:
		return "RENAME"
	default:
		return "MODIFY"
	}
}

// AlterTableNode changes one column of a table. Column holds the full
// definition for ADD and MODIFY and only the name for DROP and RENAME.
type AlterTableNode struct {
	Table   string
	Action  AlterAction
	Column  Column
	NewName string
}

func (*TableScan) planNode()       {}
func (*CrossJoin) planNode()       {}
func (*Filter) planNode()          {}
func (*Project) planNode()         {}
func (*Sort) planNode()            {}
func (*CreateTableNode) planNode() {}
func (*InsertNode) planNode()      {}
func (*UpdateNode) planNode()      {}
func (*DeleteNode) planNode()      {}
func (*DropTableNode) planNode()   {}
func (*AlterTableNode) planNode()  {}

func (n *TableScan) describe() string { return "TableScan " + n.Table }
func (n *CrossJoin) describe() string { return "CrossJoin" }
func (n *Filter) describe() string    { return "Filter " + n.Predicate.String() }
func (n *Project) describe() string   { return "Project " + strings.Join(n.Columns, ", ") }

func (n *Sort) describe() string {
	keys := make([]string, len(n.Keys))
	for i, k := range n.Keys {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		keys[i] = k.Column + " " + dir
	}
	return "Sort " + strings.Join(keys, ", ")
}

func (n *CreateTableNode) describe() string {
	cols := make([]string, len(n.Columns))
	for i, c := range n.Columns {
		cols[i] = columnSignature(c)
	}
	return fmt.Sprintf("CreateTable %s (%s)", n.Table, strings.Join(cols, ", "))
}

func (n *InsertNode) describe() string {
	vals := make([]string, len(n.Values))
	for i, v := range n.Values {
		vals[i] = v.String()
	}
	return fmt.Sprintf("Insert %s (%s) VALUES (%s)", n.Table, strings.Join(n.Columns, ", "), strings.Join(vals, ", "))
}

func (n *UpdateNode) describe() string {
	parts := make([]string, len(n.Assignments))
	for i, a := range n.Assignments {
		parts[i] = a.Column + " = " + a.Value.String()
	}
	return fmt.Sprintf("Update %s SET %s", n.Table, strings.Join(parts, ", "))
}

func (n *DeleteNode) describe() string    { return "Delete " + n.Table }
func (n *DropTableNode) describe() string { return "DropTable " + n.Table }

func (n *AlterTableNode) describe() string {
	switch n.Action {
	case AlterRename:
		return fmt.Sprintf("AlterTable %s RENAME %s TO %s", n.Table, n.Column.Name, n.NewName)
	case AlterDrop:
		return fmt.Sprintf("AlterTable %s DROP %s", n.Table, n.Column.Name)
	default:
		return fmt.Sprintf("AlterTable %s %s %s", n.Table, n.Action, columnSignature(n.Column))
	}
}

func (*TableScan) children() []PlanNode       { return nil }
func (n *CrossJoin) children() []PlanNode     { return []PlanNode{n.Left, n.Right} }
func (n *Filter) children() []PlanNode        { return []PlanNode{n.Source} }
func (n *Project) children() []PlanNode       { return []PlanNode{n.Source} }
func (n *Sort) children() []PlanNode          { return []PlanNode{n.Source} }
func (*CreateTableNode) children() []PlanNode { return nil }
func (*InsertNode) children() []PlanNode      { return nil }
func (n *UpdateNode) children() []PlanNode    { return []PlanNode{n.Source} }
func (n *DeleteNode) children() []PlanNode    { return []PlanNode{n.Source} }
func (*DropTableNode) children() []PlanNode   { return nil }
func (*AlterTableNode) children() []PlanNode  { return nil }

// FormatPlan renders a plan tree, one node per line, children indented
// under their parent.
func FormatPlan(node PlanNode) string {
	var sb strings.Builder
	formatPlan(&sb, node, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func formatPlan(sb *strings.Builder, node PlanNode, depth int) {
	if depth > 0 {
		sb.WriteString(strings.Repeat("  ", depth-1))
		sb.WriteString("-> ")
	}
	sb.WriteString(node.describe())
	sb.WriteByte('\n')
	for _, child := range node.children() {
		formatPlan(sb, child, depth+1)
	}
}

func columnSignature(c Column) string {
	parts := []string{c.Name, string(c.Type)}
	for _, k := range c.Constraints {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, " ")
}
