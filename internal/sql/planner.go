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

	dberrors "regretdb/internal/errors"
)

// Planner lowers bound statements into plan trees. It reads nothing but the
// statement: join order follows the FROM clause and no alternatives are
// considered.
type Planner struct{}

// NewPlanner creates a planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan maps a bound statement to its plan tree.
func (p *Planner) Plan(stmt Statement) (PlanNode, error) {
	switch s := stmt.(type) {
	case *SelectStmt:
		return p.planSelect(s), nil
	case *InsertStmt:
		node := &InsertNode{Table: s.Table.Name}
		for i, c := range s.Columns {
			node.Columns = append(node.Columns, c.Name)
			node.Values = append(node.Values, s.Values[i].Value)
		}
		return node, nil
	case *UpdateStmt:
		node := &UpdateNode{Source: scanWhere(s.Table.Name, s.Where), Table: s.Table.Name}
		for _, a := range s.Assignments {
			node.Assignments = append(node.Assignments, ColumnValue{Column: a.Column.Name, Value: a.Value.Value})
		}
		return node, nil
	case *DeleteStmt:
		return &DeleteNode{Source: scanWhere(s.Table.Name, s.Where), Table: s.Table.Name}, nil
	case *CreateTableStmt:
		node := &CreateTableNode{Table: s.Table.Name}
		for _, def := range s.Columns {
			node.Columns = append(node.Columns, columnFromDef(def))
		}
		return node, nil
	case *DropTableStmt:
		return &DropTableNode{Table: s.Table.Name}, nil
	case *AlterAddStmt:
		return &AlterTableNode{Table: s.Table.Name, Action: AlterAdd, Column: columnFromDef(s.Column)}, nil
	case *AlterDropStmt:
		return &AlterTableNode{Table: s.Table.Name, Action: AlterDrop, Column: Column{Name: s.Column.Name}}, nil
	case *AlterRenameStmt:
		return &AlterTableNode{Table: s.Table.Name, Action: AlterRename,
			Column: Column{Name: s.Column.Name}, NewName: s.NewName.Name}, nil
	case *AlterModifyStmt:
		return &AlterTableNode{Table: s.Table.Name, Action: AlterModify, Column: columnFromDef(s.Column)}, nil
	default:
		return nil, dberrors.NewInternalError(fmt.Sprintf("cannot plan statement type %T", stmt))
	}
}

// planSelect builds Scan -> CrossJoin -> Filter -> Project -> Sort. When a
// sort key is not projected the Sort is placed below the Project so the key
// is still available.
func (p *Planner) planSelect(s *SelectStmt) PlanNode {
	var node PlanNode = &TableScan{Table: s.Tables[0].Name}
	for _, t := range s.Tables[1:] {
		node = &CrossJoin{Left: node, Right: &TableScan{Table: t.Name}}
	}
	if s.Where != nil {
		node = &Filter{Source: node, Predicate: s.Where}
	}

	columns := identNames(s.Columns)
	if len(s.OrderBy) == 0 {
		return &Project{Source: node, Columns: columns}
	}

	keys := make([]SortKey, len(s.OrderBy))
	projected := true
	for i, item := range s.OrderBy {
		keys[i] = SortKey{Column: item.Column.Name, Desc: item.Desc}
		if !contains(columns, item.Column.Name) {
			projected = false
		}
	}
	if projected {
		return &Sort{Source: &Project{Source: node, Columns: columns}, Keys: keys}
	}
	return &Project{Source: &Sort{Source: node, Keys: keys}, Columns: columns}
}

func scanWhere(table string, where Expr) PlanNode {
	var node PlanNode = &TableScan{Table: table}
	if where != nil {
		node = &Filter{Source: node, Predicate: where}
	}
	return node
}

func columnFromDef(def ColumnDef) Column {
	return Column{
		Name:        def.Name.Name,
		Type:        def.Type,
		Constraints: append([]Constraint(nil), def.Constraints...),
	}
}
