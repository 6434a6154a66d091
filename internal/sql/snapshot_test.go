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
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberrors "regretdb/internal/errors"
	"regretdb/internal/storage"
)

func TestSnapshotRoundTrip(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders,
		"INSERT INTO users (id, name, email) VALUES (1, 'ann', 'a@x')",
		"INSERT INTO users (id) VALUES (2)",
		"INSERT INTO orders (id, user_id, note) VALUES (10, 2, 'pens')",
	)
	data, err := e.Catalog().Snapshot()
	require.NoError(t, err)

	restored, err := RestoreCatalog(data, nil)
	require.NoError(t, err)

	assert.Equal(t, e.Catalog().TableNames(), restored.TableNames())
	assert.Equal(t, e.Catalog().ForeignKeys().All(), restored.ForeignKeys().All())

	for _, name := range restored.TableNames() {
		before, _ := e.Catalog().Table(name)
		after, _ := restored.Table(name)
		assert.Equal(t, before.ColumnNames(), after.ColumnNames())
		require.Equal(t, before.RowCount(), after.RowCount())
		for i, r := range before.Rows() {
			got := after.Rows()[i]
			assert.Equal(t, r.ID, got.ID)
			for _, c := range before.ColumnNames() {
				assert.Equal(t, r.Get(c).String(), got.Get(c).String(), c)
				assert.Equal(t, r.Get(c).Kind, got.Get(c).Kind, c)
			}
		}
	}

	// Constraints survive and new rows get fresh ids.
	e2 := NewEngine(restored)
	requireExecError(t, e2, "INSERT INTO users (id) VALUES (1)", dberrors.ErrCodeConstraintViolation)
	requireExecError(t, e2, "DELETE FROM users WHERE id = 2", dberrors.ErrCodeRowReferenced)
	mustExec(t, e2, "INSERT INTO users (id) VALUES (3)")
	users, _ := restored.Table("users")
	last := users.Rows()[users.RowCount()-1]
	assert.Greater(t, uint64(last.ID), uint64(3))
}

func TestSnapshotAllKinds(t *testing.T) {
	e := newTestEngine(t, "CREATE TABLE k (n NUMBER, s TEXT, b BOOL, x BLOB)",
		"INSERT INTO k (n, s, b, x) VALUES (-1.25, 'hi', TRUE, x'deadbeef')",
		"INSERT INTO k (n) VALUES (0)",
	)
	data, err := e.Catalog().Snapshot()
	require.NoError(t, err)

	restored, err := RestoreCatalog(data, nil)
	require.NoError(t, err)
	k, _ := restored.Table("k")
	row := k.Rows()[0]
	assert.Equal(t, "-1.25", row.Get("k.n").String())
	assert.Equal(t, Text("hi"), row.Get("k.s"))
	assert.Equal(t, Bool(true), row.Get("k.b"))
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, row.Get("k.x").Bytes)
	assert.True(t, k.Rows()[1].Get("k.x").IsNull())
}

func TestRestoreCatalogRejectsCorruption(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders,
		"INSERT INTO users (id) VALUES (1)",
		"INSERT INTO orders (id, user_id) VALUES (1, 1)",
	)
	good, err := e.Catalog().Snapshot()
	require.NoError(t, err)

	mutate := func(f func(doc *snapshotDoc)) []byte {
		var doc snapshotDoc
		require.NoError(t, json.Unmarshal(good, &doc))
		f(&doc)
		out, err := json.Marshal(doc)
		require.NoError(t, err)
		return out
	}

	tests := []struct {
		name      string
		data      []byte
		integrity bool
	}{
		{"not json", []byte("{oops"), false},
		{"wrong version", mutate(func(d *snapshotDoc) { d.Version = 9 }), false},
		{"row arity", mutate(func(d *snapshotDoc) { d.Tables[0].Rows[0].Values = d.Tables[0].Rows[0].Values[:1] }), false},
		{"foreign column", mutate(func(d *snapshotDoc) { d.Tables[0].Columns[0].Name = "other.id" }), false},
		{"unknown type", mutate(func(d *snapshotDoc) { d.Tables[0].Columns[1].Type = "VARCHAR" }), false},
		{"duplicate row id", mutate(func(d *snapshotDoc) { d.Tables[0].Rows = append(d.Tables[0].Rows, d.Tables[0].Rows[0]) }), false},
		{"missing fk column", mutate(func(d *snapshotDoc) { d.ForeignKeys[0].Referenced = "users.nope" }), false},
		{"dangling value", mutate(func(d *snapshotDoc) { d.Tables[1].Rows[0].Values[1] = Int(5) }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RestoreCatalog(tt.data, nil)
			require.Error(t, err)
			if tt.integrity {
				assert.True(t, dberrors.IsIntegrityError(err), "%v", err)
			} else {
				assert.Equal(t, dberrors.ErrCodeSnapshotCorrupted, dberrors.GetCode(err), "%v", err)
			}
		})
	}
}

func TestSnapshotThroughEncryptedStore(t *testing.T) {
	e := newTestEngine(t, createUsers, "INSERT INTO users (id, email) VALUES (1, 'secret@x')")
	data, err := e.Catalog().Snapshot()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "db.snap")
	store, err := storage.NewSnapshotStore(path, true, "hunter2")
	require.NoError(t, err)
	require.NoError(t, store.Write(data))

	reader, err := storage.NewSnapshotStore(path, false, "hunter2")
	require.NoError(t, err)
	payload, err := reader.Read()
	require.NoError(t, err)

	restored, err := RestoreCatalog(payload, storage.GetCollator(storage.CollationCaseInsensitive, ""))
	require.NoError(t, err)
	assert.Equal(t, storage.CollationCaseInsensitive, restored.Collator().Name())

	res := mustExec(t, NewEngine(restored), "SELECT id FROM users WHERE email = 'SECRET@X'")
	assert.Len(t, res.Rows, 1)
}
