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

// ForeignKey is one registered relationship between two qualified columns.
type ForeignKey struct {
	Referencing string `json:"referencing"`
	Referenced  string `json:"referenced"`
}

func (fk ForeignKey) String() string {
	return fmt.Sprintf("%s -> %s", fk.Referencing, fk.Referenced)
}

// ForeignKeyRegistry keeps the foreign keys of a catalog in registration order.
type ForeignKeyRegistry struct {
	keys []ForeignKey
}

// Add registers a relationship.
func (r *ForeignKeyRegistry) Add(referencing, referenced string) {
	r.keys = append(r.keys, ForeignKey{Referencing: referencing, Referenced: referenced})
}

// All returns a copy of every registered relationship.
func (r *ForeignKeyRegistry) All() []ForeignKey {
	return append([]ForeignKey(nil), r.keys...)
}

// ReferencesTo returns the relationships whose referenced side is column.
func (r *ForeignKeyRegistry) ReferencesTo(column string) []ForeignKey {
	var out []ForeignKey
	for _, fk := range r.keys {
		if fk.Referenced == column {
			out = append(out, fk)
		}
	}
	return out
}

// ReferencesFrom returns the relationships whose referencing side is column.
func (r *ForeignKeyRegistry) ReferencesFrom(column string) []ForeignKey {
	var out []ForeignKey
	for _, fk := range r.keys {
		if fk.Referencing == column {
			out = append(out, fk)
		}
	}
	return out
}

// ReferencesToTable returns the relationships pointing into table from
// columns of other tables. Self-references are excluded.
func (r *ForeignKeyRegistry) ReferencesToTable(table string) []ForeignKey {
	var out []ForeignKey
	for _, fk := range r.keys {
		if tableOf(fk.Referenced) == table && tableOf(fk.Referencing) != table {
			out = append(out, fk)
		}
	}
	return out
}

// RemoveTable drops every relationship that has either side in table.
func (r *ForeignKeyRegistry) RemoveTable(table string) {
	r.filter(func(fk ForeignKey) bool {
		return tableOf(fk.Referencing) != table && tableOf(fk.Referenced) != table
	})
}

// RemoveColumn drops every relationship that has column on either side.
func (r *ForeignKeyRegistry) RemoveColumn(column string) {
	r.filter(func(fk ForeignKey) bool {
		return fk.Referencing != column && fk.Referenced != column
	})
}

// RenameColumn rewrites both sides of every relationship naming oldName.
func (r *ForeignKeyRegistry) RenameColumn(oldName, newName string) {
	for i := range r.keys {
		if r.keys[i].Referencing == oldName {
			r.keys[i].Referencing = newName
		}
		if r.keys[i].Referenced == oldName {
			r.keys[i].Referenced = newName
		}
	}
}

func (r *ForeignKeyRegistry) filter(keep func(ForeignKey) bool) {
	kept := r.keys[:0]
	for _, fk := range r.keys {
		if keep(fk) {
			kept = append(kept, fk)
		}
	}
	r.keys = kept
}

// tableOf returns the table part of a qualified column name.
func tableOf(qualified string) string {
	table, _, _ := strings.Cut(qualified, ".")
	return table
}

// columnOf returns the column part of a qualified column name.
func columnOf(qualified string) string {
	if _, col, ok := strings.Cut(qualified, "."); ok {
		return col
	}
	return qualified
}
