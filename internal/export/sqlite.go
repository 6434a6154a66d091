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
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	dberrors "regretdb/internal/errors"
	regret "regretdb/internal/sql"
)

// sqliteTypes maps column types to SQLite declared types.
var sqliteTypes = map[regret.ColumnType]string{
	regret.TypeNumber: "NUMERIC",
	regret.TypeText:   "TEXT",
	regret.TypeBool:   "BOOLEAN",
	regret.TypeBlob:   "BLOB",
}

// ToSQLite writes cat into a new SQLite database at path. An existing file
// is replaced. The whole export runs in one transaction.
func ToSQLite(ctx context.Context, cat *regret.Catalog, path string, opts Options) (Stats, error) {
	var stats Stats
	order, err := OrderTables(cat)
	if err != nil {
		return stats, err
	}
	tables, err := selected(cat, order, opts)
	if err != nil {
		return stats, err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return stats, ioError("failed to replace "+path, err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return stats, ioError("failed to open "+path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, ioError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, name := range tables {
		t, _ := cat.Table(name)
		if !opts.DataOnly {
			if _, err := tx.ExecContext(ctx, sqliteCreateTable(t)); err != nil {
				return stats, ioError("failed to create table "+name, err)
			}
		}
		if opts.SchemaOnly {
			continue
		}

		rows, err := orderRows(cat, t)
		if err != nil {
			return stats, err
		}
		stmt, err := tx.PrepareContext(ctx, sqliteInsert(t))
		if err != nil {
			return stats, ioError("failed to prepare insert for "+name, err)
		}
		for _, r := range rows {
			args := make([]any, len(t.Columns))
			for i, c := range t.Columns {
				args[i] = sqliteValue(r.Get(c.Name))
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				stmt.Close()
				return stats, ioError(fmt.Sprintf("failed to insert %s row %d", name, r.ID), err)
			}
			stats.Rows++
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return stats, ioError("failed to commit", err)
	}
	stats.Tables = len(tables)
	return stats, nil
}

func sqliteCreateTable(t *regret.Table) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		parts := []string{quoteIdent(c.ShortName()), sqliteTypes[c.Type]}
		if c.Has(regret.ConstraintPrimaryKey) {
			parts = append(parts, "PRIMARY KEY")
		}
		if c.Has(regret.ConstraintNotNull) {
			parts = append(parts, "NOT NULL")
		}
		if c.Has(regret.ConstraintUnique) {
			parts = append(parts, "UNIQUE")
		}
		if d := c.Default(); !d.IsNull() {
			parts = append(parts, "DEFAULT "+sqliteLiteral(d))
		}
		if ref, ok := c.Reference(); ok {
			table, column, _ := strings.Cut(ref, ".")
			parts = append(parts, fmt.Sprintf("REFERENCES %s(%s)", quoteIdent(table), quoteIdent(column)))
		}
		defs[i] = strings.Join(parts, " ")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(t.Name), strings.Join(defs, ", "))
}

func sqliteInsert(t *regret.Table) string {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c.ShortName())
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// sqliteValue converts v to a driver argument. NUMBER values are passed as
// text so SQLite applies NUMERIC affinity without a float round trip.
func sqliteValue(v regret.Value) any {
	switch v.Kind {
	case regret.KindNumber:
		return v.Num.String()
	case regret.KindText:
		return v.Str
	case regret.KindBoolean:
		if v.Bool {
			return 1
		}
		return 0
	case regret.KindBlob:
		return v.Bytes
	default:
		return nil
	}
}

func sqliteLiteral(v regret.Value) string {
	switch v.Kind {
	case regret.KindText:
		return "'" + strings.ReplaceAll(v.Str, "'", "''") + "'"
	case regret.KindBoolean:
		if v.Bool {
			return "1"
		}
		return "0"
	default:
		return v.String()
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func ioError(message string, err error) error {
	return &dberrors.RegretDBError{
		Code:     dberrors.ErrCodeIOError,
		Category: dberrors.CategoryStorage,
		Message:  message,
		Cause:    err,
	}
}
