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
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberrors "regretdb/internal/errors"
	regret "regretdb/internal/sql"
)

func newEngine(t *testing.T, stmts ...string) *regret.Engine {
	t.Helper()
	e := regret.NewEngine(regret.NewCatalog(nil))
	for _, s := range stmts {
		_, err := e.Execute(s)
		require.NoError(t, err, s)
	}
	return e
}

// shop creates the referencing table before populating the referenced one
// with ALTER, so creation order differs from replay order.
func shop(t *testing.T) *regret.Engine {
	return newEngine(t,
		"CREATE TABLE orders (id NUMBER PRIMARY KEY, note TEXT)",
		"CREATE TABLE users (id NUMBER PRIMARY KEY, name TEXT DEFAULT 'ALICE', active BOOL, avatar BLOB)",
		"ALTER TABLE orders ADD user_id NUMBER DEFAULT 1 REFERENCES users(id)",
		"INSERT INTO users (id, name, active, avatar) VALUES (1, 'ann', TRUE, x'00ff')",
		"INSERT INTO users (id, active) VALUES (2, FALSE)",
		"UPDATE users SET name = NULL WHERE id = 2",
		"INSERT INTO orders (id, note, user_id) VALUES (10, 'pens', 2)",
		"INSERT INTO orders (id, note) VALUES (11, 'ink')",
	)
}

func TestOrderTables(t *testing.T) {
	e := shop(t)
	order, err := OrderTables(e.Catalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, order)

	e = newEngine(t,
		"CREATE TABLE a (id NUMBER PRIMARY KEY)",
		"CREATE TABLE b (id NUMBER PRIMARY KEY, a_id NUMBER REFERENCES a(id))",
		"ALTER TABLE a ADD b_id NUMBER REFERENCES b(id)",
	)
	_, err = OrderTables(e.Catalog())
	require.Error(t, err)
	assert.Equal(t, dberrors.CategoryStorage, dberrors.GetCategory(err))
}

func TestToSQL(t *testing.T) {
	e := shop(t)
	var buf bytes.Buffer
	stats, err := ToSQL(e.Catalog(), &buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, Stats{Tables: 2, Rows: 4}, stats)

	assert.Equal(t, ""+
		"-- RegretDB dump\n"+
		"-- Tables: 2\n"+
		"\n-- Schema\n"+
		"CREATE TABLE users (id NUMBER PRIMARY KEY, name TEXT DEFAULT 'ALICE', active BOOL, avatar BLOB);\n"+
		"CREATE TABLE orders (id NUMBER PRIMARY KEY, note TEXT, user_id NUMBER DEFAULT 1 FOREIGN KEY REFERENCES users(id));\n"+
		"\n-- Data\n"+
		"INSERT INTO users (id, name, active, avatar) VALUES (1, 'ann', TRUE, x'00ff');\n"+
		"INSERT INTO users (id, name, active, avatar) VALUES (2, NULL, FALSE, NULL);\n"+
		"INSERT INTO orders (id, note, user_id) VALUES (10, 'pens', 2);\n"+
		"INSERT INTO orders (id, note, user_id) VALUES (11, 'ink', 1);\n",
		buf.String())
}

func TestToSQLReplays(t *testing.T) {
	src := shop(t)
	var buf bytes.Buffer
	_, err := ToSQL(src.Catalog(), &buf, Options{})
	require.NoError(t, err)

	dst := newEngine(t)
	_, err = dst.ExecuteScript(buf.String())
	require.NoError(t, err)

	for _, name := range src.Catalog().TableNames() {
		want, _ := src.Catalog().Table(name)
		got, ok := dst.Catalog().Table(name)
		require.True(t, ok, name)
		require.Equal(t, want.RowCount(), got.RowCount(), name)
		for i, r := range want.Rows() {
			for _, c := range want.ColumnNames() {
				assert.Equal(t, r.Get(c).String(), got.Rows()[i].Get(c).String(), c)
			}
		}
	}
	assert.ElementsMatch(t, src.Catalog().ForeignKeys().All(), dst.Catalog().ForeignKeys().All())
	assert.NoError(t, regret.CheckIntegrity(dst.Catalog()))
}

func TestToSQLSelfReferenceOrder(t *testing.T) {
	e := newEngine(t,
		"CREATE TABLE emp (id NUMBER PRIMARY KEY, boss NUMBER REFERENCES emp(id))",
		"INSERT INTO emp (id, boss) VALUES (1, 1)",
		"INSERT INTO emp (id, boss) VALUES (2, 1)",
		"UPDATE emp SET boss = 2 WHERE id = 1",
		"INSERT INTO emp (id, boss) VALUES (3, 3)",
		"UPDATE emp SET boss = 3 WHERE id = 2",
	)
	// Stored order: 1 -> 2, 2 -> 3, 3 -> 3. Replay must start with 3.
	var buf bytes.Buffer
	_, err := ToSQL(e.Catalog(), &buf, Options{DataOnly: true})
	require.NoError(t, err)
	inserts := strings.Split(strings.TrimSpace(buf.String()), "\n")[4:]
	assert.Equal(t, []string{
		"INSERT INTO emp (id, boss) VALUES (3, 3);",
		"INSERT INTO emp (id, boss) VALUES (2, 3);",
		"INSERT INTO emp (id, boss) VALUES (1, 2);",
	}, inserts)
}

func TestToSQLOptions(t *testing.T) {
	e := shop(t)

	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{"schema only", Options{SchemaOnly: true}, []string{"CREATE TABLE users"}, []string{"INSERT"}},
		{"data only", Options{DataOnly: true}, []string{"INSERT INTO orders"}, []string{"CREATE TABLE"}},
		{"one table", Options{Tables: []string{"orders"}}, []string{"CREATE TABLE orders"}, []string{"users (id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := ToSQL(e.Catalog(), &buf, tt.opts)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}

	_, err := ToSQL(e.Catalog(), &bytes.Buffer{}, Options{Tables: []string{"nope"}})
	assert.Equal(t, dberrors.ErrCodeTableNotFound, dberrors.GetCode(err))
}

func TestToSQLite(t *testing.T) {
	e := shop(t)
	path := filepath.Join(t.TempDir(), "shop.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	stats, err := ToSQLite(context.Background(), e.Catalog(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, Stats{Tables: 2, Rows: 4}, stats)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "orders"`).Scan(&count))
	assert.Equal(t, 2, count)

	var name sql.NullString
	var active bool
	var avatar []byte
	require.NoError(t, db.QueryRow(`SELECT name, active, avatar FROM "users" WHERE id = 1`).Scan(&name, &active, &avatar))
	assert.Equal(t, "ann", name.String)
	assert.True(t, active)
	assert.Equal(t, []byte{0x00, 0xff}, avatar)

	require.NoError(t, db.QueryRow(`SELECT name FROM "users" WHERE id = 2`).Scan(&name))
	assert.False(t, name.Valid)

	var userID int
	require.NoError(t, db.QueryRow(`SELECT user_id FROM "orders" WHERE id = 11`).Scan(&userID))
	assert.Equal(t, 1, userID)
}

func TestToCSV(t *testing.T) {
	e := shop(t)
	dir := filepath.Join(t.TempDir(), "csv")

	stats, err := ToCSV(e.Catalog(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, Stats{Tables: 2, Rows: 4}, stats)

	f, err := os.Open(filepath.Join(dir, "users.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "name", "active", "avatar"},
		{"1", "ann", "TRUE", "x'00ff'"},
		{"2", "", "FALSE", ""},
	}, records)
}
