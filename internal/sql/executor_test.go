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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberrors "regretdb/internal/errors"
)

func mustExec(t *testing.T, e *Engine, sql string) *Result {
	t.Helper()
	res, err := e.Execute(sql)
	require.NoError(t, err, sql)
	return res
}

// column returns the rendered values of one result column.
func column(t *testing.T, res *Result, name string) []string {
	t.Helper()
	var out []string
	for _, r := range res.Rows {
		v, ok := r.Values[name]
		require.True(t, ok, "result has no column %s", name)
		out = append(out, v.String())
	}
	return out
}

func requireExecError(t *testing.T, e *Engine, sql string, code dberrors.ErrorCode) {
	t.Helper()
	_, err := e.Execute(sql)
	require.Error(t, err, sql)
	assert.True(t, dberrors.IsExecutionError(err), "%v", err)
	assert.Equal(t, code, dberrors.GetCode(err), "%v", err)
}

func TestExecutorCreateTable(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders)

	users, ok := e.Catalog().Table("users")
	require.True(t, ok)
	assert.Equal(t, []string{"users.id", "users.name", "users.email"}, users.ColumnNames())

	fks := e.Catalog().ForeignKeys().All()
	assert.Equal(t, []ForeignKey{{Referencing: "orders.user_id", Referenced: "users.id"}}, fks)
}

func TestExecutorInsertAndSelect(t *testing.T) {
	e := newTestEngine(t, createUsers)

	res := mustExec(t, e, "INSERT INTO users (id) VALUES (1)")
	assert.Equal(t, 1, res.Affected)
	assert.Equal(t, "INSERT", res.Kind)

	res = mustExec(t, e, "SELECT * FROM users")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"users.id", "users.name", "users.email"}, res.Columns)
	values := res.Values(0)
	require.Len(t, values, 3)
	assert.Equal(t, KindNumber, values[0].Kind)
	assert.Equal(t, "1", values[0].String())
	assert.Equal(t, Text("ALICE"), values[1])
	assert.True(t, values[2].IsNull())
}

func TestPrimaryKeyConstraint(t *testing.T) {
	e := newTestEngine(t, createUsers, "INSERT INTO users (id) VALUES (1)")

	requireExecError(t, e, "INSERT INTO users (id) VALUES (1)", dberrors.ErrCodeConstraintViolation)

	res := mustExec(t, e, "SELECT users.id FROM users")
	assert.Equal(t, []string{"1"}, column(t, res, "users.id"), "a rejected row must not be stored")
}

func TestUniqueConstraint(t *testing.T) {
	e := newTestEngine(t, createUsers,
		"INSERT INTO users (id, email) VALUES (1, 'a@x')",
		"INSERT INTO users (id) VALUES (2)",
		"INSERT INTO users (id) VALUES (3)",
	)

	requireExecError(t, e, "INSERT INTO users (id, email) VALUES (4, 'a@x')", dberrors.ErrCodeConstraintViolation)
	assert.Equal(t, 3, mustRowCount(t, e, "users"), "NULLs never collide")
}

func mustRowCount(t *testing.T, e *Engine, table string) int {
	t.Helper()
	tbl, ok := e.Catalog().Table(table)
	require.True(t, ok)
	return tbl.RowCount()
}

func TestForeignKeyConstraint(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders, "INSERT INTO users (id) VALUES (1)")

	requireExecError(t, e, "INSERT INTO orders (id, user_id) VALUES (1, 99)", dberrors.ErrCodeForeignKeyViolation)
	mustExec(t, e, "INSERT INTO orders (id, user_id) VALUES (1, 1)")
	assert.Equal(t, 1, mustRowCount(t, e, "orders"))
}

func TestSelfReferencingForeignKey(t *testing.T) {
	e := newTestEngine(t, "CREATE TABLE staff (id NUMBER PRIMARY KEY, boss NUMBER REFERENCES staff(id))")

	mustExec(t, e, "INSERT INTO staff (id, boss) VALUES (1, 1)")
	mustExec(t, e, "INSERT INTO staff (id, boss) VALUES (2, 1)")
	requireExecError(t, e, "INSERT INTO staff (id, boss) VALUES (3, 7)", dberrors.ErrCodeForeignKeyViolation)

	requireExecError(t, e, "DELETE FROM staff WHERE id = 1", dberrors.ErrCodeRowReferenced)
	res := mustExec(t, e, "DELETE FROM staff")
	assert.Equal(t, 2, res.Affected, "rows deleted together may reference each other")
}

func TestExecutorUpdate(t *testing.T) {
	e := newTestEngine(t, createUsers,
		"INSERT INTO users (id, email) VALUES (1, 'a')",
		"INSERT INTO users (id, email) VALUES (2, 'b')",
	)

	res := mustExec(t, e, "UPDATE users SET name = 'BOB' WHERE id = 2")
	assert.Equal(t, 1, res.Affected)

	res = mustExec(t, e, "SELECT name FROM users ORDER BY id ASC")
	assert.Equal(t, []string{"ALICE", "BOB"}, column(t, res, "users.name"))

	res = mustExec(t, e, "UPDATE users SET id = 10 WHERE id = 1")
	assert.Equal(t, 1, res.Affected)
	res = mustExec(t, e, "UPDATE users SET name = 'X' WHERE email = 'nobody'")
	assert.Equal(t, 0, res.Affected)
}

func TestUpdateValidatesWholeBatch(t *testing.T) {
	e := newTestEngine(t, createUsers,
		"INSERT INTO users (id, email) VALUES (1, 'a')",
		"INSERT INTO users (id, email) VALUES (2, 'b')",
	)

	requireExecError(t, e, "UPDATE users SET email = 'c'", dberrors.ErrCodeConstraintViolation)

	res := mustExec(t, e, "SELECT email FROM users ORDER BY id ASC")
	assert.Equal(t, []string{"a", "b"}, column(t, res, "users.email"), "no row of a failed batch is written")

	// The only row keeps its own value.
	mustExec(t, e, "UPDATE users SET email = 'a' WHERE id = 1")
}

func TestUpdateReferencedValue(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders,
		"INSERT INTO users (id) VALUES (1)",
		"INSERT INTO users (id) VALUES (2)",
		"INSERT INTO orders (id, user_id) VALUES (1, 1)",
	)

	requireExecError(t, e, "UPDATE users SET id = 3 WHERE id = 1", dberrors.ErrCodeRowReferenced)
	mustExec(t, e, "UPDATE users SET id = 3 WHERE id = 2")
	requireExecError(t, e, "UPDATE orders SET user_id = 42", dberrors.ErrCodeForeignKeyViolation)
	mustExec(t, e, "UPDATE orders SET user_id = 3")
}

func TestForeignKeyDeleteRestriction(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders,
		"INSERT INTO users (id) VALUES (1)",
		"INSERT INTO users (id) VALUES (2)",
		"INSERT INTO orders (id, user_id) VALUES (1, 1)",
	)

	requireExecError(t, e, "DELETE FROM users", dberrors.ErrCodeRowReferenced)
	assert.Equal(t, 2, mustRowCount(t, e, "users"))

	res := mustExec(t, e, "DELETE FROM users WHERE id = 2")
	assert.Equal(t, 1, res.Affected)

	mustExec(t, e, "DELETE FROM orders")
	res = mustExec(t, e, "DELETE FROM users")
	assert.Equal(t, 1, res.Affected)
}

func TestDeleteIdenticalRows(t *testing.T) {
	e := newTestEngine(t, "CREATE TABLE t (a NUMBER)",
		"INSERT INTO t (a) VALUES (1)",
		"INSERT INTO t (a) VALUES (1)",
		"INSERT INTO t (a) VALUES (2)",
	)
	res := mustExec(t, e, "DELETE FROM t WHERE a = 1")
	assert.Equal(t, 2, res.Affected)
	assert.Equal(t, 1, mustRowCount(t, e, "t"))
}

func TestSortNullPlacement(t *testing.T) {
	e := newTestEngine(t, "CREATE TABLE s (id NUMBER PRIMARY KEY, a NUMBER)",
		"INSERT INTO s (id, a) VALUES (1, 2)",
		"INSERT INTO s (id, a) VALUES (2, NULL)",
		"INSERT INTO s (id, a) VALUES (3, 1)",
	)

	res := mustExec(t, e, "SELECT a FROM s ORDER BY a ASC")
	assert.Equal(t, []string{"1", "2", "NULL"}, column(t, res, "s.a"))

	res = mustExec(t, e, "SELECT a FROM s ORDER BY a DESC")
	assert.Equal(t, []string{"NULL", "2", "1"}, column(t, res, "s.a"))

	// Sorting by a column that is not selected.
	res = mustExec(t, e, "SELECT id FROM s ORDER BY a DESC")
	assert.Equal(t, []string{"2", "1", "3"}, column(t, res, "s.id"))
	assert.Equal(t, []string{"s.id"}, res.Columns)
	_, hasA := res.Rows[0].Values["s.a"]
	assert.False(t, hasA)
}

func TestSortMultipleKeys(t *testing.T) {
	e := newTestEngine(t, "CREATE TABLE p (id NUMBER PRIMARY KEY, grp TEXT, score NUMBER)",
		"INSERT INTO p (id, grp, score) VALUES (1, 'b', 10)",
		"INSERT INTO p (id, grp, score) VALUES (2, 'a', 5)",
		"INSERT INTO p (id, grp, score) VALUES (3, 'b', 30)",
		"INSERT INTO p (id, grp, score) VALUES (4, 'a', 50)",
		"INSERT INTO p (id, grp, score) VALUES (5, 'a', 5)",
	)

	res := mustExec(t, e, "SELECT id FROM p ORDER BY grp ASC, score DESC")
	assert.Equal(t, []string{"4", "2", "5", "3", "1"}, column(t, res, "p.id"), "ties keep insertion order")

	res = mustExec(t, e, "SELECT id FROM p ORDER BY grp, score ASC")
	assert.Equal(t, []string{"2", "5", "4", "1", "3"}, column(t, res, "p.id"))
}

func TestExecutorCrossJoin(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders,
		"INSERT INTO users (id, name) VALUES (1, 'ann')",
		"INSERT INTO users (id, name) VALUES (2, 'ben')",
		"INSERT INTO orders (id, user_id, note) VALUES (10, 2, 'pens')",
		"INSERT INTO orders (id, user_id, note) VALUES (11, 1, 'ink')",
		"INSERT INTO orders (id, user_id, note) VALUES (12, 2, 'pads')",
	)

	res := mustExec(t, e, "SELECT * FROM users, orders")
	assert.Len(t, res.Rows, 6)

	res = mustExec(t, e, "SELECT users.name, orders.note FROM users, orders WHERE users.id = orders.user_id ORDER BY orders.id DESC")
	assert.Equal(t, []string{"ben", "ann", "ben"}, column(t, res, "users.name"))
	assert.Equal(t, []string{"pads", "ink", "pens"}, column(t, res, "orders.note"))
}

func TestFilterNullSemantics(t *testing.T) {
	e := newTestEngine(t, createUsers,
		"INSERT INTO users (id, email) VALUES (1, 'a')",
		"INSERT INTO users (id) VALUES (2)",
		"INSERT INTO users (id, email) VALUES (3, 'c')",
	)

	a := mustExec(t, e, "SELECT id FROM users WHERE NOT (email IS NULL)")
	b := mustExec(t, e, "SELECT id FROM users WHERE email IS NOT NULL")
	assert.Equal(t, []string{"1", "3"}, column(t, a, "users.id"))
	assert.Equal(t, column(t, a, "users.id"), column(t, b, "users.id"))

	res := mustExec(t, e, "SELECT id FROM users WHERE email = 'a' OR email != 'a'")
	assert.Equal(t, []string{"1", "3"}, column(t, res, "users.id"), "unknown rows are filtered out")
}

func TestAlterTable(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders,
		"INSERT INTO users (id) VALUES (1)",
		"INSERT INTO users (id) VALUES (2)",
		"INSERT INTO orders (id, user_id) VALUES (1, 1)",
	)

	t.Run("add with default", func(t *testing.T) {
		mustExec(t, e, "ALTER TABLE users ADD COLUMN age NUMBER DEFAULT 18")
		res := mustExec(t, e, "SELECT age FROM users")
		assert.Equal(t, []string{"18", "18"}, column(t, res, "users.age"))
	})

	t.Run("add required without default", func(t *testing.T) {
		requireExecError(t, e, "ALTER TABLE users ADD nick TEXT NOT NULL", dberrors.ErrCodeConstraintViolation)
		_, exists := e.Catalog().Column("users.nick")
		assert.False(t, exists)
	})

	t.Run("add unique with shared default", func(t *testing.T) {
		requireExecError(t, e, "ALTER TABLE users ADD code TEXT UNIQUE DEFAULT 'x'", dberrors.ErrCodeConstraintViolation)
	})

	t.Run("modify to unique with duplicates", func(t *testing.T) {
		requireExecError(t, e, "ALTER TABLE users MODIFY age NUMBER UNIQUE", dberrors.ErrCodeConstraintViolation)
	})

	t.Run("modify type with incompatible values", func(t *testing.T) {
		requireExecError(t, e, "ALTER TABLE users MODIFY age TEXT", dberrors.ErrCodeExecution)
	})

	t.Run("modify constraints", func(t *testing.T) {
		mustExec(t, e, "ALTER TABLE users MODIFY name TEXT NOT NULL DEFAULT 'ANON'")
		col, _ := e.Catalog().Column("users.name")
		assert.True(t, col.Required())
		mustExec(t, e, "INSERT INTO users (id) VALUES (3)")
		res := mustExec(t, e, "SELECT name FROM users WHERE id = 3")
		assert.Equal(t, []string{"ANON"}, column(t, res, "users.name"))
	})

	t.Run("rename referenced column", func(t *testing.T) {
		mustExec(t, e, "ALTER TABLE users RENAME COLUMN id TO uid")
		assert.Equal(t, []ForeignKey{{Referencing: "orders.user_id", Referenced: "users.uid"}},
			e.Catalog().ForeignKeys().All())
		mustExec(t, e, "INSERT INTO orders (id, user_id) VALUES (2, 2)")
		requireExecError(t, e, "INSERT INTO orders (id, user_id) VALUES (3, 9)", dberrors.ErrCodeForeignKeyViolation)
		res := mustExec(t, e, "SELECT uid FROM users WHERE uid = 1")
		assert.Len(t, res.Rows, 1)
	})

	t.Run("drop column", func(t *testing.T) {
		mustExec(t, e, "ALTER TABLE users DROP COLUMN age")
		users, _ := e.Catalog().Table("users")
		assert.Equal(t, []string{"users.uid", "users.name", "users.email"}, users.ColumnNames())
		for _, r := range users.Rows() {
			assert.Len(t, r.Values, 3)
		}
	})

	t.Run("add foreign key", func(t *testing.T) {
		mustExec(t, e, "CREATE TABLE tags (label TEXT PRIMARY KEY)")
		mustExec(t, e, "ALTER TABLE tags ADD owner NUMBER REFERENCES users(uid)")
		assert.Len(t, e.Catalog().ForeignKeys().ReferencesTo("users.uid"), 2)
	})

	require.NoError(t, CheckIntegrity(e.Catalog()))
}

func TestDropTableForeignKeyClosure(t *testing.T) {
	e := newTestEngine(t, createUsers, createOrders)

	_, err := e.Execute("DROP TABLE users")
	require.Error(t, err)
	assert.Equal(t, dberrors.ErrCodeTableReferenced, dberrors.GetCode(err))

	mustExec(t, e, "DROP TABLE orders")
	mustExec(t, e, "DROP TABLE users")
	assert.Empty(t, e.Catalog().TableNames())
	assert.Empty(t, e.Catalog().ForeignKeys().All())
}
