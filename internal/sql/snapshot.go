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
Snapshot Format:
================

A snapshot is the JSON encoding of a whole catalog:

	{
	  "version": 1,
	  "next_row_id": 7,
	  "tables": [
	    {"name": "users",
	     "columns": [{"name": "users.id", "type": "NUMBER", "constraints": [...]}],
	     "rows": [{"id": 1, "values": [{"type": "NUMBER", "value": "1"}]}]}
	  ],
	  "foreign_keys": [{"referencing": "orders.user_id", "referenced": "users.id"}]
	}

Row values are listed in column order. Tables keep creation order. The
bytes are handed to storage.SnapshotStore, which adds the file header and
optional encryption.
*/
package sql

import (
	"encoding/json"
	"fmt"

	dberrors "regretdb/internal/errors"
	"regretdb/internal/storage"
)

const snapshotFormatVersion = 1

type snapshotRow struct {
	ID     RowID   `json:"id"`
	Values []Value `json:"values"`
}

type snapshotTable struct {
	Name    string        `json:"name"`
	Columns []Column      `json:"columns"`
	Rows    []snapshotRow `json:"rows"`
}

type snapshotDoc struct {
	Version     int             `json:"version"`
	NextRowID   RowID           `json:"next_row_id"`
	Tables      []snapshotTable `json:"tables"`
	ForeignKeys []ForeignKey    `json:"foreign_keys"`
}

// Snapshot encodes the catalog's schema, rows and foreign keys.
func (c *Catalog) Snapshot() ([]byte, error) {
	doc := snapshotDoc{
		Version:     snapshotFormatVersion,
		NextRowID:   c.nextID,
		ForeignKeys: c.foreignKeys.All(),
	}
	for _, name := range c.order {
		t := c.tables[name]
		st := snapshotTable{Name: name}
		for _, col := range t.Columns {
			st.Columns = append(st.Columns, *col)
		}
		for _, r := range t.rows {
			values := make([]Value, len(t.Columns))
			for i, col := range t.Columns {
				values[i] = r.Get(col.Name)
			}
			st.Rows = append(st.Rows, snapshotRow{ID: r.ID, Values: values})
		}
		doc.Tables = append(doc.Tables, st)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, dberrors.NewStorageError("failed to encode snapshot").WithCause(err)
	}
	return data, nil
}

// RestoreCatalog rebuilds a catalog from Snapshot output. Structural
// problems are reported as snapshot corruption; data that decodes but breaks
// a constraint fails the integrity check.
func RestoreCatalog(data []byte, coll storage.Collator) (*Catalog, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, dberrors.SnapshotCorrupted(err.Error()).WithCause(err)
	}
	if doc.Version != snapshotFormatVersion {
		return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("unsupported snapshot version %d", doc.Version))
	}

	cat := NewCatalog(coll)
	for _, st := range doc.Tables {
		if st.Name == "" || cat.HasTable(st.Name) {
			return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("invalid or duplicate table name %q", st.Name))
		}
		for _, col := range st.Columns {
			if tableOf(col.Name) != st.Name {
				return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("column %s does not belong to table %s", col.Name, st.Name))
			}
			if _, ok := ParseColumnType(string(col.Type)); !ok {
				return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("column %s has unknown type %q", col.Name, col.Type))
			}
		}
		if err := cat.CreateTable(st.Name, st.Columns); err != nil {
			return nil, err
		}

		t := cat.tables[st.Name]
		for _, sr := range st.Rows {
			if len(sr.Values) != len(t.Columns) {
				return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("row %d of %s has %d values, expected %d",
					sr.ID, st.Name, len(sr.Values), len(t.Columns)))
			}
			if _, dup := t.index[sr.ID]; dup || sr.ID == 0 {
				return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("invalid or duplicate row id %d in %s", sr.ID, st.Name))
			}
			values := make(map[string]Value, len(t.Columns))
			for i, col := range t.Columns {
				values[col.Name] = sr.Values[i]
			}
			t.index[sr.ID] = len(t.rows)
			t.rows = append(t.rows, Row{ID: sr.ID, Values: values})
			if sr.ID >= cat.nextID {
				cat.nextID = sr.ID + 1
			}
		}
	}
	if doc.NextRowID > cat.nextID {
		cat.nextID = doc.NextRowID
	}

	for _, fk := range doc.ForeignKeys {
		if _, ok := cat.Column(fk.Referencing); !ok {
			return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("foreign key %s names a missing column", fk))
		}
		if _, ok := cat.Column(fk.Referenced); !ok {
			return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("foreign key %s names a missing column", fk))
		}
		cat.foreignKeys.Add(fk.Referencing, fk.Referenced)
	}

	if err := CheckIntegrity(cat); err != nil {
		return nil, err
	}
	return cat, nil
}
