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

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaret(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		offset int
		length int
		want   string
	}{
		{"middle token", "SELECT x FRM t", 9, 3, "SELECT x FRM t\n         ^^^"},
		{"start", "SELEC x", 0, 5, "SELEC x\n^^^^^"},
		{"past end", "SELECT", 99, 1, "SELECT\n      ^"},
		{"zero length", "DROP", 2, 0, "DROP\n  ^"},
		{"second line", "SELECT a\nFROM ?", 14, 1, "FROM ?\n     ^"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Caret(tt.sql, tt.offset, tt.length))
		})
	}
}

func TestUnderline(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		word string
		want string
	}{
		{
			name: "every occurrence",
			sql:  "SELECT nme FROM t WHERE nme = 1",
			word: "nme",
			want: "SELECT nme FROM t WHERE nme = 1\n       ^^^              ^^^",
		},
		{
			name: "skips string literals",
			sql:  "SELECT a FROM t WHERE b = 'a'",
			word: "a",
			want: "SELECT a FROM t WHERE b = 'a'\n       ^",
		},
		{
			name: "whole words only",
			sql:  "SELECT id, user_id FROM t",
			word: "id",
			want: "SELECT id, user_id FROM t\n       ^^",
		},
		{
			name: "qualified reference",
			sql:  "SELECT t.x FROM t",
			word: "x",
			want: "SELECT t.x FROM t\n         ^",
		},
		{
			name: "no occurrence",
			sql:  "DROP TABLE t",
			word: "zzz",
			want: "DROP TABLE t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Underline(tt.sql, tt.word))
		})
	}
}

func TestPrettyByCategory(t *testing.T) {
	syntax := NewSyntaxError("bad", 4, 2).WithSQL("SELECT")
	assert.Equal(t, "SELECT\n    ^^", syntax.Pretty())

	pre := TableNotFound("users").WithSQL("SELECT * FROM users")
	assert.Equal(t, "SELECT * FROM users\n              ^^^^^", pre.Pretty())

	exec := ConstraintViolation("PRIMARY KEY", "users.id").WithSQL("INSERT INTO users(id) VALUES(1)")
	assert.Empty(t, exec.Pretty())

	assert.Empty(t, NewSyntaxError("no text", 0, 1).Pretty())
}

func TestUserMessage(t *testing.T) {
	err := ConstraintViolation("UNIQUE", "users.email").WithHint("pick another value")
	assert.Equal(t, "ExecutingError: Violation of UNIQUE constraint on column users.email\nHINT: pick another value", err.UserMessage())

	syntax := UnexpectedToken("FROM", "'FRM'", 9, 3).WithSQL("SELECT x FRM t")
	assert.Equal(t, "SyntaxError: expected FROM, found 'FRM'\nSELECT x FRM t\n         ^^^", syntax.UserMessage())
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", NewExecutionError("boom"))

	assert.True(t, IsExecutionError(wrapped))
	assert.False(t, IsSyntaxError(wrapped))
	assert.Equal(t, ErrCodeExecution, GetCode(wrapped))
	assert.Equal(t, CategoryExecution, GetCategory(wrapped))

	assert.True(t, IsSyntaxError(UnterminatedString(3)))
	assert.True(t, IsPreProcessorError(ColumnNotFound("x", "t")))
	assert.True(t, IsIntegrityError(NewIntegrityError(ErrCodeDanglingReference, "dangling")))
	assert.True(t, IsInternalError(NewInternalError("bug")))

	plain := fmt.Errorf("plain")
	assert.Equal(t, ErrorCode(0), GetCode(plain))
	assert.Equal(t, CategoryInternal, GetCategory(plain))
	assert.Equal(t, "ERROR: plain", FormatError(plain))
}
