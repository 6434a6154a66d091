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

	dberrors "regretdb/internal/errors"
)

// Violation is one broken invariant found in stored data.
type Violation struct {
	Code    dberrors.ErrorCode
	Table   string
	Row     RowID
	Column  string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s row %d: %s", v.Table, v.Row, v.Message)
}

// Violations walks every stored row and reports rows whose key set differs
// from their table's columns, values of the wrong type, NULLs in required
// columns, duplicate unique values and dangling foreign-key values.
func Violations(cat *Catalog) []Violation {
	var out []Violation
	coll := cat.Collator()

	for _, name := range cat.TableNames() {
		t, _ := cat.Table(name)
		for _, r := range t.rows {
			if len(r.Values) != len(t.Columns) {
				out = append(out, Violation{Code: dberrors.ErrCodeRowShape, Table: name, Row: r.ID,
					Message: fmt.Sprintf("row has %d values, table has %d columns", len(r.Values), len(t.Columns))})
			}
			for _, col := range t.Columns {
				v, ok := r.Values[col.Name]
				switch {
				case !ok:
					out = append(out, Violation{Code: dberrors.ErrCodeRowShape, Table: name, Row: r.ID, Column: col.Name,
						Message: fmt.Sprintf("missing column %s", col.Name)})
				case v.IsNull():
					if col.Required() {
						out = append(out, Violation{Code: dberrors.ErrCodeMissingValue, Table: name, Row: r.ID, Column: col.Name,
							Message: fmt.Sprintf("NULL in %s column %s", requiredBy(col), col.Name)})
					}
				case v.Kind.ColumnType() != col.Type:
					out = append(out, Violation{Code: dberrors.ErrCodeRowShape, Table: name, Row: r.ID, Column: col.Name,
						Message: fmt.Sprintf("%s value %s in %s column %s", v.Kind, v, col.Type, col.Name)})
				}
			}
		}

		for _, col := range t.Columns {
			if !col.Unique() {
				continue
			}
			var seen []Value
			for _, r := range t.rows {
				v := r.Get(col.Name)
				if v.IsNull() {
					continue
				}
				for _, s := range seen {
					if Equal(s, v, coll) {
						out = append(out, Violation{Code: dberrors.ErrCodeDuplicateValue, Table: name, Row: r.ID, Column: col.Name,
							Message: fmt.Sprintf("duplicate value %s in unique column %s", v, col.Name)})
						break
					}
				}
				seen = append(seen, v)
			}
		}
	}

	for _, fk := range cat.ForeignKeys().All() {
		src, ok := cat.Table(tableOf(fk.Referencing))
		if !ok {
			continue
		}
		dst, ok := cat.Table(tableOf(fk.Referenced))
		if !ok {
			out = append(out, Violation{Code: dberrors.ErrCodeDanglingReference, Table: src.Name, Column: fk.Referencing,
				Message: fmt.Sprintf("foreign key %s names a missing table", fk)})
			continue
		}
		for _, r := range src.rows {
			v := r.Get(fk.Referencing)
			if v.IsNull() {
				continue
			}
			found := false
			for _, target := range dst.rows {
				if Equal(target.Get(fk.Referenced), v, coll) {
					found = true
					break
				}
			}
			if !found {
				out = append(out, Violation{Code: dberrors.ErrCodeDanglingReference, Table: src.Name, Row: r.ID, Column: fk.Referencing,
					Message: fmt.Sprintf("value %s of %s not found in %s", v, fk.Referencing, fk.Referenced)})
			}
		}
	}
	return out
}

// CheckIntegrity returns nil when the catalog holds no violations, and an
// INTEGRITY error listing them otherwise. The error code is that of the
// first violation.
func CheckIntegrity(cat *Catalog) error {
	vs := Violations(cat)
	if len(vs) == 0 {
		return nil
	}
	lines := make([]string, len(vs))
	for i, v := range vs {
		lines[i] = v.String()
	}
	return dberrors.NewIntegrityError(vs[0].Code,
		fmt.Sprintf("%d integrity violation(s) found", len(vs))).
		WithDetail(strings.Join(lines, "; "))
}
