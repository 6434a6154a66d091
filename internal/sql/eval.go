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

	dberrors "regretdb/internal/errors"
	"regretdb/internal/storage"
)

// Evaluate computes expr against one row under three-valued logic. The
// result is TRUE, FALSE, NULL (unknown) or, for a bare operand, its value.
//
//	AND: FALSE if either side is FALSE, else NULL if either is NULL, else TRUE
//	OR:  TRUE if either side is TRUE, else NULL if either is NULL, else FALSE
//	NOT: NULL stays NULL
//	=, !=, <, >, <=, >=: NULL if either side is NULL
//	IS [NOT] NULL: never NULL
func Evaluate(expr Expr, row Row, coll storage.Collator) (Value, error) {
	switch e := expr.(type) {
	case *Literal:
		return e.Value, nil

	case *Identifier:
		v, ok := row.Values[e.Name]
		if !ok {
			return Value{}, dberrors.NewInternalError(fmt.Sprintf("column %s is not available in the row", e.Name))
		}
		return v, nil

	case *UnaryExpr:
		v, err := Evaluate(e.Operand, row, coll)
		if err != nil {
			return Value{}, err
		}
		switch e.Op {
		case OpIsNull:
			return Bool(v.IsNull()), nil
		case OpIsNotNull:
			return Bool(!v.IsNull()), nil
		case OpNot:
			b, known, err := truth(v)
			if err != nil || !known {
				return Null(), err
			}
			return Bool(!b), nil
		}

	case *BinaryExpr:
		left, err := Evaluate(e.Left, row, coll)
		if err != nil {
			return Value{}, err
		}
		right, err := Evaluate(e.Right, row, coll)
		if err != nil {
			return Value{}, err
		}
		switch e.Op {
		case OpAnd, OpOr:
			return logical(e.Op, left, right)
		default:
			return compareValues(e.Op, left, right, coll)
		}
	}
	return Value{}, dberrors.NewInternalError(fmt.Sprintf("cannot evaluate %T", expr))
}

// Matches reports whether expr evaluates to TRUE for row. FALSE and unknown
// both exclude the row.
func Matches(expr Expr, row Row, coll storage.Collator) (bool, error) {
	v, err := Evaluate(expr, row, coll)
	if err != nil {
		return false, err
	}
	b, known, err := truth(v)
	return known && b, err
}

// truth interprets v as a boolean; known is false for NULL.
func truth(v Value) (b, known bool, err error) {
	switch v.Kind {
	case KindNull:
		return false, false, nil
	case KindBoolean:
		return v.Bool, true, nil
	default:
		return false, false, dberrors.NewExecutionError(
			fmt.Sprintf("%s value %s used as a condition", v.Kind, v))
	}
}

func logical(op Operator, left, right Value) (Value, error) {
	l, lKnown, err := truth(left)
	if err != nil {
		return Value{}, err
	}
	r, rKnown, err := truth(right)
	if err != nil {
		return Value{}, err
	}

	if op == OpAnd {
		if (lKnown && !l) || (rKnown && !r) {
			return Bool(false), nil
		}
	} else {
		if (lKnown && l) || (rKnown && r) {
			return Bool(true), nil
		}
	}
	if !lKnown || !rKnown {
		return Null(), nil
	}
	return Bool(op == OpAnd), nil
}

func compareValues(op Operator, left, right Value, coll storage.Collator) (Value, error) {
	if left.IsNull() || right.IsNull() {
		return Null(), nil
	}
	if left.Kind != right.Kind {
		switch op {
		case OpEq:
			return Bool(false), nil
		case OpNe:
			return Bool(true), nil
		}
	}
	c, err := Compare(left, right, coll)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case OpEq:
		return Bool(c == 0), nil
	case OpNe:
		return Bool(c != 0), nil
	case OpLt:
		return Bool(c < 0), nil
	case OpGt:
		return Bool(c > 0), nil
	case OpLe:
		return Bool(c <= 0), nil
	case OpGe:
		return Bool(c >= 0), nil
	}
	return Value{}, dberrors.NewInternalError(fmt.Sprintf("unknown comparison operator %s", op))
}
