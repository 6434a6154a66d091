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
	"regretdb/internal/storage"
)

func col(name string) *Identifier { return &Identifier{Kind: IdentColumn, Name: name} }
func lit(v Value) *Literal        { return &Literal{Value: v} }

func TestEvaluateThreeValuedLogic(t *testing.T) {
	truthy := lit(Bool(true))
	falsy := lit(Bool(false))
	unknown := lit(Null())

	tests := []struct {
		name string
		expr Expr
		want Value
	}{
		{"true AND unknown", &BinaryExpr{Op: OpAnd, Left: truthy, Right: unknown}, Null()},
		{"false AND unknown", &BinaryExpr{Op: OpAnd, Left: unknown, Right: falsy}, Bool(false)},
		{"true AND true", &BinaryExpr{Op: OpAnd, Left: truthy, Right: truthy}, Bool(true)},
		{"true OR unknown", &BinaryExpr{Op: OpOr, Left: unknown, Right: truthy}, Bool(true)},
		{"false OR unknown", &BinaryExpr{Op: OpOr, Left: falsy, Right: unknown}, Null()},
		{"false OR false", &BinaryExpr{Op: OpOr, Left: falsy, Right: falsy}, Bool(false)},
		{"NOT unknown", &UnaryExpr{Op: OpNot, Operand: unknown}, Null()},
		{"NOT false", &UnaryExpr{Op: OpNot, Operand: falsy}, Bool(true)},
		{"NULL = 1", &BinaryExpr{Op: OpEq, Left: unknown, Right: lit(Int(1))}, Null()},
		{"NULL IS NULL", &UnaryExpr{Op: OpIsNull, Operand: unknown}, Bool(true)},
		{"1 IS NOT NULL", &UnaryExpr{Op: OpIsNotNull, Operand: lit(Int(1))}, Bool(true)},
		{"1 < 2", &BinaryExpr{Op: OpLt, Left: lit(Int(1)), Right: lit(Int(2))}, Bool(true)},
		{"'b' >= 'a'", &BinaryExpr{Op: OpGe, Left: lit(Text("b")), Right: lit(Text("a"))}, Bool(true)},
		{"1 = '1'", &BinaryExpr{Op: OpEq, Left: lit(Int(1)), Right: lit(Text("1"))}, Bool(false)},
		{"1 != '1'", &BinaryExpr{Op: OpNe, Left: lit(Int(1)), Right: lit(Text("1"))}, Bool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, Row{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Bool, got.Bool)
		})
	}
}

func TestEvaluateColumns(t *testing.T) {
	row := Row{Values: map[string]Value{"t.a": Int(5), "t.b": Int(7), "t.c": Null()}}

	ok, err := Matches(&BinaryExpr{Op: OpLt, Left: col("t.a"), Right: col("t.b")}, row, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(&BinaryExpr{Op: OpEq, Left: col("t.c"), Right: col("t.c")}, row, nil)
	require.NoError(t, err)
	assert.False(t, ok, "NULL = NULL is unknown")

	_, err = Evaluate(col("t.missing"), row, nil)
	require.Error(t, err)
	assert.Equal(t, dberrors.CategoryInternal, dberrors.GetCategory(err))
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate(&BinaryExpr{Op: OpLt, Left: lit(Int(1)), Right: lit(Text("a"))}, Row{}, nil)
	assert.Equal(t, dberrors.ErrCodeIncomparable, dberrors.GetCode(err))

	_, err = Matches(lit(Int(1)), Row{}, nil)
	assert.True(t, dberrors.IsExecutionError(err))
}

func TestNotIsNullMatchesIsNotNull(t *testing.T) {
	rows := []Row{
		{ID: 1, Values: map[string]Value{"t.a": Int(1)}},
		{ID: 2, Values: map[string]Value{"t.a": Null()}},
		{ID: 3, Values: map[string]Value{"t.a": Text("x")}},
		{ID: 4, Values: map[string]Value{"t.a": Null()}},
	}
	notIsNull := &UnaryExpr{Op: OpNot, Operand: &UnaryExpr{Op: OpIsNull, Operand: col("t.a")}}
	isNotNull := &UnaryExpr{Op: OpIsNotNull, Operand: col("t.a")}

	var left, right []RowID
	for _, r := range rows {
		if ok, err := Matches(notIsNull, r, nil); assert.NoError(t, err) && ok {
			left = append(left, r.ID)
		}
		if ok, err := Matches(isNotNull, r, nil); assert.NoError(t, err) && ok {
			right = append(right, r.ID)
		}
	}
	assert.Equal(t, []RowID{1, 3}, left)
	assert.Equal(t, left, right)
}

func TestEvaluateUsesCollation(t *testing.T) {
	coll := storage.GetCollator(storage.CollationCaseInsensitive, "")

	expr := &BinaryExpr{Op: OpEq, Left: lit(Text("Alice")), Right: lit(Text("ALICE"))}
	ok, err := Matches(expr, Row{}, coll)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(expr, Row{}, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
