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

package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	dberrors "regretdb/internal/errors"
	"regretdb/internal/sql"
)

// ToSQL writes cat as statements that RegretDB can replay, one per line.
func ToSQL(cat *sql.Catalog, w io.Writer, opts Options) (Stats, error) {
	var stats Stats
	order, err := OrderTables(cat)
	if err != nil {
		return stats, err
	}
	tables, err := selected(cat, order, opts)
	if err != nil {
		return stats, err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "-- RegretDB dump\n-- Tables: %d\n", len(tables))

	if !opts.DataOnly {
		bw.WriteString("\n-- Schema\n")
		for _, name := range tables {
			t, _ := cat.Table(name)
			stmt, err := CreateTableSQL(t)
			if err != nil {
				return stats, err
			}
			bw.WriteString(stmt + ";\n")
		}
	}

	if !opts.SchemaOnly {
		bw.WriteString("\n-- Data\n")
		for _, name := range tables {
			t, _ := cat.Table(name)
			rows, err := orderRows(cat, t)
			if err != nil {
				return stats, err
			}
			for _, r := range rows {
				stmt, err := InsertSQL(t, r)
				if err != nil {
					return stats, err
				}
				bw.WriteString(stmt + ";\n")
				stats.Rows++
			}
		}
	}

	stats.Tables = len(tables)
	if err := bw.Flush(); err != nil {
		return stats, dberrors.NewStorageError("failed to write dump").WithCause(err)
	}
	return stats, nil
}

// CreateTableSQL renders the CREATE TABLE statement of t.
func CreateTableSQL(t *sql.Table) (string, error) {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		def, err := c.Definition()
		if err != nil {
			return "", dberrors.NewStorageError(fmt.Sprintf("cannot export column %s", c.Name)).WithCause(err)
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.Name, strings.Join(defs, ", ")), nil
}

// InsertSQL renders one row as an INSERT naming every column, so stored
// NULLs are not replaced by defaults on replay.
func InsertSQL(t *sql.Table, r sql.Row) (string, error) {
	cols := make([]string, len(t.Columns))
	vals := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		lit, err := r.Get(c.Name).SQL()
		if err != nil {
			return "", dberrors.NewStorageError(fmt.Sprintf("cannot export %s row %d", t.Name, r.ID)).WithCause(err)
		}
		cols[i] = c.ShortName()
		vals[i] = lit
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(cols, ", "), strings.Join(vals, ", ")), nil
}
