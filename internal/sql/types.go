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
Package sql contains the column types and scalar values of RegretDB.

Supported Column Types:
=======================

  - NUMBER: arbitrary precision decimal values
  - TEXT:   string values, compared under the catalog's collation
  - BLOB:   binary data, written as b'hex' or x'hex'
  - BOOL:   TRUE / FALSE

Types carry no size or precision parameters. Every column also accepts
NULL unless a constraint forbids it.

Values:
=======

A Value is a tagged scalar. Its Kind mirrors the literal kinds of the
grammar (NUMBER, TEXT, BOOLEAN, BLOB, NULL); a literal is assignable to a
column when its kind maps to the column type or when it is NULL.
*/
package sql

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	dberrors "regretdb/internal/errors"
	"regretdb/internal/storage"
)

// ColumnType represents the declared type of a column.
type ColumnType string

// Column type constants.
const (
	TypeText   ColumnType = "TEXT"
	TypeNumber ColumnType = "NUMBER"
	TypeBlob   ColumnType = "BLOB"
	TypeBool   ColumnType = "BOOL"
)

// ParseColumnType maps a type keyword to a ColumnType.
func ParseColumnType(name string) (ColumnType, bool) {
	switch t := ColumnType(strings.ToUpper(name)); t {
	case TypeText, TypeNumber, TypeBlob, TypeBool:
		return t, true
	default:
		return "", false
	}
}

// Kind is the runtime kind of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindBoolean
	KindBlob
)

// String returns the literal kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "NUMBER"
	case KindText:
		return "TEXT"
	case KindBoolean:
		return "BOOLEAN"
	case KindBlob:
		return "BLOB"
	default:
		return "NULL"
	}
}

// ColumnType returns the column type a value of this kind is stored in.
// NULL has no column type and returns "".
func (k Kind) ColumnType() ColumnType {
	switch k {
	case KindNumber:
		return TypeNumber
	case KindText:
		return TypeText
	case KindBoolean:
		return TypeBool
	case KindBlob:
		return TypeBlob
	default:
		return ""
	}
}

// Value is a scalar stored in a row or produced by an expression.
type Value struct {
	Kind  Kind
	Num   decimal.Decimal
	Str   string
	Bool  bool
	Bytes []byte
}

// Null returns the NULL value.
func Null() Value { return Value{Kind: KindNull} }

// Number wraps a decimal.
func Number(d decimal.Decimal) Value { return Value{Kind: KindNumber, Num: d} }

// Int returns a NUMBER value for n.
func Int(n int64) Value { return Number(decimal.NewFromInt(n)) }

// Text wraps a string.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// Blob wraps a byte slice.
func Blob(b []byte) Value { return Value{Kind: KindBlob, Bytes: b} }

// ParseNumber parses a numeric literal.
func ParseNumber(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Value{}, err
	}
	return Number(d), nil
}

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return v.Num.String()
	case KindText:
		return v.Str
	case KindBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindBlob:
		return "x'" + hex.EncodeToString(v.Bytes) + "'"
	default:
		return "NULL"
	}
}

// SQL renders the value as a literal that the tokenizer reads back to the
// same value. TEXT containing a single quote has no literal form.
func (v Value) SQL() (string, error) {
	switch v.Kind {
	case KindText:
		if strings.ContainsRune(v.Str, '\'') {
			return "", fmt.Errorf("text value %q contains a single quote", v.Str)
		}
		return "'" + v.Str + "'", nil
	default:
		return v.String(), nil
	}
}

// Compare orders two non-NULL values of the same kind. TEXT is compared
// under coll; FALSE sorts before TRUE.
func Compare(a, b Value, coll storage.Collator) (int, error) {
	if a.IsNull() || b.IsNull() {
		return 0, dberrors.NewInternalError("NULL passed to Compare")
	}
	if a.Kind != b.Kind {
		return 0, &dberrors.RegretDBError{
			Code:     dberrors.ErrCodeIncomparable,
			Category: dberrors.CategoryExecution,
			Message:  fmt.Sprintf("cannot compare %s with %s", a.Kind, b.Kind),
		}
	}
	switch a.Kind {
	case KindNumber:
		return a.Num.Cmp(b.Num), nil
	case KindText:
		if coll == nil {
			return strings.Compare(a.Str, b.Str), nil
		}
		return coll.Compare(a.Str, b.Str), nil
	case KindBoolean:
		switch {
		case a.Bool == b.Bool:
			return 0, nil
		case !a.Bool:
			return -1, nil
		default:
			return 1, nil
		}
	case KindBlob:
		return bytes.Compare(a.Bytes, b.Bytes), nil
	}
	return 0, dberrors.NewInternalError(fmt.Sprintf("unknown value kind %d", a.Kind))
}

// Equal reports whether two values are equal and non-NULL. Values of
// different kinds are never equal.
func Equal(a, b Value, coll storage.Collator) bool {
	if a.IsNull() || b.IsNull() || a.Kind != b.Kind {
		return false
	}
	c, err := Compare(a, b, coll)
	return err == nil && c == 0
}

// jsonValue is the snapshot encoding of a Value.
type jsonValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch v.Kind {
	case KindNull:
		return json.Marshal(jsonValue{Type: "NULL"})
	case KindNumber:
		payload = v.Num.String()
	case KindText:
		payload = v.Str
	case KindBoolean:
		payload = v.Bool
	case KindBlob:
		payload = hex.EncodeToString(v.Bytes)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Type: v.Kind.String(), Value: raw})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	switch jv.Type {
	case "NULL":
		*v = Null()
	case "NUMBER":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return err
		}
		n, err := ParseNumber(s)
		if err != nil {
			return err
		}
		*v = n
	case "TEXT":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return err
		}
		*v = Text(s)
	case "BOOLEAN":
		var b bool
		if err := json.Unmarshal(jv.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case "BLOB":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return err
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return err
		}
		*v = Blob(b)
	default:
		return fmt.Errorf("unknown value type %q", jv.Type)
	}
	return nil
}
