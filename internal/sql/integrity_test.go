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

func populated(t *testing.T) *Engine {
	return newTestEngine(t, createUsers, createOrders,
		"INSERT INTO users (id, email) VALUES (1, 'a')",
		"INSERT INTO users (id, email) VALUES (2, 'b')",
		"INSERT INTO orders (id, user_id) VALUES (10, 1)",
	)
}

func TestCheckIntegrityClean(t *testing.T) {
	e := populated(t)
	assert.NoError(t, CheckIntegrity(e.Catalog()))
	assert.Empty(t, Violations(e.Catalog()))
}

func TestViolations(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(c *Catalog)
		code    dberrors.ErrorCode
	}{
		{"null primary key", func(c *Catalog) {
			c.tables["users"].rows[0].Values["users.id"] = Null()
		}, dberrors.ErrCodeMissingValue},
		{"duplicate unique", func(c *Catalog) {
			c.tables["users"].rows[1].Values["users.email"] = Text("a")
		}, dberrors.ErrCodeDuplicateValue},
		{"dangling reference", func(c *Catalog) {
			c.tables["orders"].rows[0].Values["orders.user_id"] = Int(77)
		}, dberrors.ErrCodeDanglingReference},
		{"missing key", func(c *Catalog) {
			delete(c.tables["orders"].rows[0].Values, "orders.note")
		}, dberrors.ErrCodeRowShape},
		{"wrong type", func(c *Catalog) {
			c.tables["users"].rows[0].Values["users.name"] = Int(3)
		}, dberrors.ErrCodeRowShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := populated(t)
			tt.corrupt(e.Catalog())

			vs := Violations(e.Catalog())
			require.NotEmpty(t, vs)
			codes := make([]dberrors.ErrorCode, len(vs))
			for i, v := range vs {
				codes[i] = v.Code
			}
			assert.Contains(t, codes, tt.code)

			err := CheckIntegrity(e.Catalog())
			require.Error(t, err)
			assert.True(t, dberrors.IsIntegrityError(err))
		})
	}
}

func TestViolationsAreAggregated(t *testing.T) {
	e := populated(t)
	c := e.Catalog()
	c.tables["users"].rows[0].Values["users.id"] = Null()
	c.tables["orders"].rows[0].Values["orders.user_id"] = Int(77)

	err := CheckIntegrity(c)
	require.Error(t, err)

	var dbErr *dberrors.RegretDBError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "2 integrity violation(s) found", dbErr.Message)
	assert.Contains(t, dbErr.Detail, "users row 1")
	assert.Contains(t, dbErr.Detail, "orders row 3")
}
