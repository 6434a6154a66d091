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
Package export writes a RegretDB catalog out in other formats.

Formats:
========

  - SQL: CREATE TABLE and INSERT statements that replay through
    sql.Engine.Execute into an identical catalog (row ids aside).
  - SQLite: a database file written through database/sql and go-sqlite3.
  - CSV: one file per table with a header row.

Replay Order:
=============

Foreign keys are checked on insert, so a dump must create and fill a
referenced table before any table that references it. OrderTables sorts
tables so that every referenced table comes first, keeping creation order
among unrelated tables. Rows of a self-referencing table are ordered the
same way: a row is written once every value it references has been written
or is held by the row itself.

Foreign keys added later with ALTER TABLE can form a cycle between tables.
Such a catalog has no replay order and export fails.
*/
package export

import (
	"fmt"
	"strings"

	dberrors "regretdb/internal/errors"
	"regretdb/internal/sql"
)

// Options select what an export contains.
type Options struct {
	// Tables restricts the export to the named tables. Empty means all.
	Tables     []string
	SchemaOnly bool
	DataOnly   bool
}

// Stats summarise a finished export.
type Stats struct {
	Tables int
	Rows   int
}

// OrderTables returns table names so that each table follows every other
// table it references.
func OrderTables(cat *sql.Catalog) ([]string, error) {
	names := cat.TableNames()
	deps := make(map[string][]string, len(names))
	for _, fk := range cat.ForeignKeys().All() {
		from := tableOf(fk.Referencing)
		to := tableOf(fk.Referenced)
		if from != to {
			deps[from] = append(deps[from], to)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(names))
	var order []string

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return dberrors.NewStorageError("cannot order tables for export").
				WithDetail("foreign key cycle: " + strings.Join(append(path, name), " -> "))
		}
		state[name] = visiting
		for _, dep := range deps[name] {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// orderRows returns the rows of t so that self-references resolve when the
// rows are inserted one by one.
func orderRows(cat *sql.Catalog, t *sql.Table) ([]sql.Row, error) {
	var selfRefs []sql.ForeignKey
	for _, c := range t.Columns {
		for _, fk := range cat.ForeignKeys().ReferencesFrom(c.Name) {
			if tableOf(fk.Referenced) == t.Name {
				selfRefs = append(selfRefs, fk)
			}
		}
	}
	rows := t.Rows()
	if len(selfRefs) == 0 {
		return rows, nil
	}

	coll := cat.Collator()
	var written []sql.Row
	ready := func(r sql.Row) bool {
		for _, fk := range selfRefs {
			v := r.Get(fk.Referencing)
			if v.IsNull() || sql.Equal(v, r.Get(fk.Referenced), coll) {
				continue
			}
			held := false
			for _, w := range written {
				if sql.Equal(v, w.Get(fk.Referenced), coll) {
					held = true
					break
				}
			}
			if !held {
				return false
			}
		}
		return true
	}

	pending := rows
	for len(pending) > 0 {
		var next []sql.Row
		for _, r := range pending {
			if ready(r) {
				written = append(written, r)
			} else {
				next = append(next, r)
			}
		}
		if len(next) == len(pending) {
			return nil, dberrors.NewStorageError("cannot order rows for export").
				WithDetail(fmt.Sprintf("table %s has %d rows with unresolved self-references", t.Name, len(next)))
		}
		pending = next
	}
	return written, nil
}

// selected filters order down to the tables named in opts.
func selected(cat *sql.Catalog, order []string, opts Options) ([]string, error) {
	if len(opts.Tables) == 0 {
		return order, nil
	}
	want := make(map[string]bool, len(opts.Tables))
	for _, name := range opts.Tables {
		if !cat.HasTable(name) {
			return nil, dberrors.TableNotFound(name)
		}
		want[name] = true
	}
	var out []string
	for _, name := range order {
		if want[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

func tableOf(qualified string) string {
	table, _, _ := strings.Cut(qualified, ".")
	return table
}
