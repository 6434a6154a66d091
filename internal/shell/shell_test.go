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

package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regretdb/internal/config"
	"regretdb/internal/sql"
)

func TestReader(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{"single line", []string{"SELECT a FROM t;"}, []string{"SELECT a FROM t;"}},
		{"multi line", []string{"SELECT a", "FROM t", "WHERE a = 1;"}, []string{"SELECT a FROM t WHERE a = 1;"}},
		{"continuation", []string{`SELECT a \`, "FROM t;"}, []string{"SELECT a  FROM t;"}},
		{"command", []string{`\tables`}, []string{`\tables`}},
		{"command after sql", []string{"SELECT a FROM t;", `\q`}, []string{"SELECT a FROM t;", `\q`}},
		{"blank lines", []string{"", "  ", "DROP TABLE t;"}, []string{"DROP TABLE t;"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Reader
			var got []string
			for _, line := range tt.lines {
				if input, ok := r.Add(line); ok {
					got = append(got, input)
				}
			}
			assert.Equal(t, tt.want, got)
			assert.False(t, r.InProgress())
		})
	}
}

func TestReaderFlush(t *testing.T) {
	var r Reader
	_, ok := r.Add("SELECT a")
	require.False(t, ok)
	assert.True(t, r.InProgress())

	input, ok := r.Flush()
	assert.True(t, ok)
	assert.Equal(t, "SELECT a", input)

	_, ok = r.Flush()
	assert.False(t, ok)
}

func newSession(t *testing.T, mutate func(c *config.Config)) (*Session, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SnapshotPath = ""
	if mutate != nil {
		mutate(cfg)
	}
	var out bytes.Buffer
	s, err := NewSession(cfg, &out, false)
	require.NoError(t, err)
	return s, &out
}

func TestSessionSQL(t *testing.T) {
	s, out := newSession(t, nil)

	assert.False(t, s.Handle("CREATE TABLE users (id NUMBER PRIMARY KEY, name TEXT);"))
	assert.False(t, s.Handle("INSERT INTO users (id, name) VALUES (1, 'ann'); INSERT INTO users (id) VALUES (2);"))
	assert.Contains(t, out.String(), "CREATE OK\nINSERT 1\nINSERT 1\n")

	out.Reset()
	s.Handle("SELECT name FROM users ORDER BY id DESC;")
	assert.Contains(t, out.String(), "| NULL |")
	assert.Contains(t, out.String(), "2 rows returned")

	out.Reset()
	s.Handle("INSERT INTO users (id) VALUES (1);")
	assert.Contains(t, out.String(), "ExecutingError")
}

func TestSessionCommands(t *testing.T) {
	s, out := newSession(t, nil)
	require.NoError(t, s.Exec("CREATE TABLE users (id NUMBER PRIMARY KEY); CREATE TABLE orders (id NUMBER, user_id NUMBER REFERENCES users(id))"))

	tests := []struct {
		input string
		want  []string
	}{
		{`\tables`, []string{"users", "orders", "0 rows"}},
		{`\schema orders`, []string{"CREATE TABLE orders (id NUMBER, user_id NUMBER FOREIGN KEY REFERENCES users(id));"}},
		{`\schema users`, []string{"referenced by orders.user_id"}},
		{`\schema nope`, []string{"PreProcessorError"}},
		{`\explain SELECT id FROM users`, []string{"Project users.id\n-> TableScan users"}},
		{`\check`, []string{"integrity OK"}},
		{`\stats`, []string{"statements", "# query cache: "}},
		{`\config`, []string{"Collation:"}},
		{`\h`, []string{`\schema <table>`}},
		{`\bogus`, []string{"unknown command"}},
		{`\save`, []string{"no snapshot path configured"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out.Reset()
			assert.False(t, s.Handle(tt.input))
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}

	assert.True(t, s.Handle(`\q`))
	assert.True(t, s.Handle(`\quit`))
}

func TestSessionSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.snap")
	s, out := newSession(t, nil)
	require.NoError(t, s.Exec("CREATE TABLE t (a NUMBER); INSERT INTO t (a) VALUES (7)"))

	s.Handle(`\save ` + path)
	assert.Contains(t, out.String(), "saved 1 tables to "+path)

	require.NoError(t, s.Exec("DROP TABLE t"))
	assert.Empty(t, s.Engine().Catalog().TableNames())

	s.Handle(`\load ` + path)
	assert.Equal(t, []string{"t"}, s.Engine().Catalog().TableNames())

	out.Reset()
	s.Handle(`\load ` + filepath.Join(t.TempDir(), "missing.snap"))
	assert.Contains(t, out.String(), "StorageError")
	assert.Equal(t, []string{"t"}, s.Engine().Catalog().TableNames())
}

func TestSessionAutosave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auto.snap")
	s, _ := newSession(t, func(c *config.Config) {
		c.SnapshotPath = path
		c.Autosave = true
	})

	require.NoError(t, s.Exec("CREATE TABLE t (a NUMBER)"))
	require.NoError(t, s.Exec("INSERT INTO t (a) VALUES (1)"))
	_, err := os.Stat(path)
	require.NoError(t, err)

	// A new session picks the snapshot up.
	s2, _ := newSession(t, func(c *config.Config) { c.SnapshotPath = path })
	tbl, ok := s2.Engine().Catalog().Table("t")
	require.True(t, ok)
	assert.Equal(t, 1, tbl.RowCount())
}

func TestSessionEncryptedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enc.snap")
	s, _ := newSession(t, func(c *config.Config) {
		c.SnapshotPath = path
		c.EncryptionEnabled = true
		c.EncryptionPassphrase = "hunter2"
		c.Autosave = true
	})
	require.NoError(t, s.Exec("CREATE TABLE t (a TEXT); INSERT INTO t (a) VALUES ('secret')"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	cfg := config.DefaultConfig()
	cfg.SnapshotPath = path
	cfg.EncryptionEnabled = true
	cfg.EncryptionPassphrase = "wrong"
	_, err = NewSession(cfg, &bytes.Buffer{}, false)
	assert.Error(t, err)
}

func TestSessionExport(t *testing.T) {
	s, out := newSession(t, nil)
	require.NoError(t, s.Exec("CREATE TABLE t (a NUMBER); INSERT INTO t (a) VALUES (7)"))

	path := filepath.Join(t.TempDir(), "dump.sql")
	s.Handle(`\export ` + path)
	assert.Contains(t, out.String(), "exported 1 tables, 1 rows")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INSERT INTO t (a) VALUES (7);")
}

func TestCompletions(t *testing.T) {
	words := Completions()
	assert.Contains(t, words, `\schema`)
	assert.Contains(t, words, "SELECT")
	assert.Contains(t, words, "REFERENCES")
}

func TestSessionInspect(t *testing.T) {
	s, _ := newSession(t, nil)
	assert.Empty(t, s.SnapshotPath())
	require.NoError(t, s.Exec("CREATE TABLE t (a NUMBER); INSERT INTO t (a) VALUES (1)"))

	var rows int
	s.Inspect(func(cat *sql.Catalog) { rows = cat.TotalRows() })
	assert.Equal(t, 1, rows)
}
