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
Package errors provides structured error handling for RegretDB.

Every failure raised while compiling or executing a statement is a
*RegretDBError. The category tells the caller which phase rejected the
statement:

  - SYNTAX:       the tokenizer or parser could not read the statement
  - PREPROCESSOR: the binder rejected a table, column, type or constraint
  - EXECUTION:    a constraint was violated while mutating rows
  - INTEGRITY:    a standalone integrity pass found inconsistent data
  - STORAGE:      a snapshot or export could not be read or written
  - INTERNAL:     an invariant of the engine itself was broken

Syntax and preprocessor errors carry the statement text and the position of
the offending token or word so that Pretty can point at it:

	SELECT nme FROM users
	       ^^^
*/
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier.
type ErrorCode int

const (
	// Syntax errors (1000-1999)
	ErrCodeSyntax              ErrorCode = 1000
	ErrCodeUnexpectedToken     ErrorCode = 1001
	ErrCodeUnexpectedCharacter ErrorCode = 1002
	ErrCodeUnterminatedString  ErrorCode = 1003
	ErrCodeInvalidLiteral      ErrorCode = 1004
	ErrCodeUnknownStatement    ErrorCode = 1005
	ErrCodeTrailingInput       ErrorCode = 1006
	ErrCodeDuplicateConstraint ErrorCode = 1007

	// Preprocessor (binder) errors (2000-2999)
	ErrCodePreProcessor        ErrorCode = 2000
	ErrCodeTableNotFound       ErrorCode = 2001
	ErrCodeTableExists         ErrorCode = 2002
	ErrCodeDuplicateTable      ErrorCode = 2003
	ErrCodeColumnNotFound      ErrorCode = 2004
	ErrCodeDuplicateColumn     ErrorCode = 2005
	ErrCodeAmbiguousColumn     ErrorCode = 2006
	ErrCodeTableNotInScope     ErrorCode = 2007
	ErrCodeTypeMismatch        ErrorCode = 2008
	ErrCodeNullViolation       ErrorCode = 2009
	ErrCodeArityMismatch       ErrorCode = 2010
	ErrCodeMultiplePrimaryKeys ErrorCode = 2011
	ErrCodeInvalidReference    ErrorCode = 2012
	ErrCodeTableReferenced     ErrorCode = 2013
	ErrCodeUnsupportedAlter    ErrorCode = 2014

	// Execution errors (3000-3999)
	ErrCodeExecution           ErrorCode = 3000
	ErrCodeConstraintViolation ErrorCode = 3001
	ErrCodeForeignKeyViolation ErrorCode = 3002
	ErrCodeRowReferenced       ErrorCode = 3003
	ErrCodeIncomparable        ErrorCode = 3004

	// Integrity errors (4000-4999)
	ErrCodeIntegrity         ErrorCode = 4000
	ErrCodeDanglingReference ErrorCode = 4001
	ErrCodeDuplicateValue    ErrorCode = 4002
	ErrCodeMissingValue      ErrorCode = 4003
	ErrCodeRowShape          ErrorCode = 4004

	// Storage errors (5000-5999)
	ErrCodeStorage           ErrorCode = 5000
	ErrCodeSnapshotCorrupted ErrorCode = 5001
	ErrCodeIOError           ErrorCode = 5002

	// Internal errors (9000-9999)
	ErrCodeInternal ErrorCode = 9000
)

// Category represents the error category.
type Category string

const (
	CategorySyntax       Category = "SYNTAX"
	CategoryPreProcessor Category = "PREPROCESSOR"
	CategoryExecution    Category = "EXECUTION"
	CategoryIntegrity    Category = "INTEGRITY"
	CategoryStorage      Category = "STORAGE"
	CategoryInternal     Category = "INTERNAL"
)

// RegretDBError represents a structured error in RegretDB.
type RegretDBError struct {
	Code     ErrorCode
	Category Category
	Message  string
	Detail   string
	Hint     string
	Cause    error

	// Source position. SQL is the statement text; Offset and Length locate
	// the offending token for syntax errors; Word is the identifier a
	// preprocessor error is about.
	SQL    string
	Offset int
	Length int
	Word   string
}

// Error implements the error interface.
func (e *RegretDBError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ERROR %d (%s): %s - %s", e.Code, e.Category, e.Message, e.Detail)
	}
	return fmt.Sprintf("ERROR %d (%s): %s", e.Code, e.Category, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RegretDBError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message including the marked
// statement text when a position is known.
func (e *RegretDBError) UserMessage() string {
	msg := fmt.Sprintf("%s: %s", e.kindName(), e.Message)
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if marked := e.Pretty(); marked != "" {
		msg += "\n" + marked
	}
	if e.Hint != "" {
		msg += fmt.Sprintf("\nHINT: %s", e.Hint)
	}
	return msg
}

func (e *RegretDBError) kindName() string {
	switch e.Category {
	case CategorySyntax:
		return "SyntaxError"
	case CategoryPreProcessor:
		return "PreProcessorError"
	case CategoryExecution:
		return "ExecutingError"
	case CategoryIntegrity:
		return "IntegrityError"
	case CategoryStorage:
		return "StorageError"
	default:
		return "InternalError"
	}
}

// WithDetail adds detail to the error.
func (e *RegretDBError) WithDetail(detail string) *RegretDBError {
	e.Detail = detail
	return e
}

// WithHint adds a hint to the error.
func (e *RegretDBError) WithHint(hint string) *RegretDBError {
	e.Hint = hint
	return e
}

// WithCause adds a cause to the error.
func (e *RegretDBError) WithCause(cause error) *RegretDBError {
	e.Cause = cause
	return e
}

// WithSQL attaches the statement text the error refers to.
func (e *RegretDBError) WithSQL(sql string) *RegretDBError {
	e.SQL = sql
	return e
}

// WithPosition sets the offset and length of the offending token.
func (e *RegretDBError) WithPosition(offset, length int) *RegretDBError {
	e.Offset = offset
	e.Length = length
	return e
}

// ============================================================================
// Syntax Error Constructors
// ============================================================================

// NewSyntaxError creates a new syntax error at the given source offset.
func NewSyntaxError(message string, offset, length int) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeSyntax,
		Category: CategorySyntax,
		Message:  message,
		Offset:   offset,
		Length:   length,
	}
}

// UnexpectedToken creates an error for a token the parser did not expect.
func UnexpectedToken(expected, got string, offset, length int) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeUnexpectedToken,
		Category: CategorySyntax,
		Message:  fmt.Sprintf("expected %s, found %s", expected, got),
		Offset:   offset,
		Length:   length,
	}
}

// UnexpectedCharacter creates an error for a character the tokenizer cannot classify.
func UnexpectedCharacter(ch rune, offset int) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeUnexpectedCharacter,
		Category: CategorySyntax,
		Message:  fmt.Sprintf("unexpected character %q at position %d", ch, offset),
		Offset:   offset,
		Length:   1,
	}
}

// UnterminatedString creates an error for a literal missing its closing quote.
func UnterminatedString(offset int) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeUnterminatedString,
		Category: CategorySyntax,
		Message:  "unterminated string literal",
		Offset:   offset,
		Length:   1,
	}
}

// ============================================================================
// Preprocessor Error Constructors
// ============================================================================

// NewPreProcessorError creates a binder error about the given word.
func NewPreProcessorError(code ErrorCode, word, message string) *RegretDBError {
	return &RegretDBError{
		Code:     code,
		Category: CategoryPreProcessor,
		Message:  message,
		Word:     word,
	}
}

// TableNotFound creates an error for missing tables.
func TableNotFound(table string) *RegretDBError {
	return NewPreProcessorError(ErrCodeTableNotFound, table,
		fmt.Sprintf("Table '%s' not found.", table))
}

// ColumnNotFound creates an error for missing columns.
func ColumnNotFound(column, table string) *RegretDBError {
	return NewPreProcessorError(ErrCodeColumnNotFound, column,
		fmt.Sprintf("Column '%s' not found in table '%s'", column, table))
}

// TypeMismatch creates an error for a literal whose kind differs from the column type.
func TypeMismatch(expected, got, column string) *RegretDBError {
	return NewPreProcessorError(ErrCodeTypeMismatch, "",
		fmt.Sprintf("Expected type: %s got: %s in column: '%s'", expected, got, column))
}

// NullViolation creates an error for a NULL written to a column that forbids it.
func NullViolation(column string) *RegretDBError {
	return NewPreProcessorError(ErrCodeNullViolation, "",
		fmt.Sprintf("Column '%s' cannot be NULL", column))
}

// ============================================================================
// Execution Error Constructors
// ============================================================================

// NewExecutionError creates a new execution error.
func NewExecutionError(message string) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeExecution,
		Category: CategoryExecution,
		Message:  message,
	}
}

// ConstraintViolation creates an error for PRIMARY KEY or UNIQUE violations.
func ConstraintViolation(constraint, column string) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeConstraintViolation,
		Category: CategoryExecution,
		Message:  fmt.Sprintf("Violation of %s constraint on column %s", constraint, column),
	}
}

// ForeignKeyViolation creates an error for a value missing from the referenced column.
func ForeignKeyViolation(column, referenced, value string) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeForeignKeyViolation,
		Category: CategoryExecution,
		Message:  fmt.Sprintf("Violation of FOREIGN KEY constraint on column %s", column),
		Detail:   fmt.Sprintf("value %s not found in %s", value, referenced),
	}
}

// RowReferenced creates an error for changing or deleting a referenced row.
func RowReferenced(action, column, referencing string) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeRowReferenced,
		Category: CategoryExecution,
		Message:  fmt.Sprintf("Cannot %s row: %s is referenced by %s", action, column, referencing),
	}
}

// ============================================================================
// Integrity Error Constructors
// ============================================================================

// NewIntegrityError creates a new integrity error.
func NewIntegrityError(code ErrorCode, message string) *RegretDBError {
	return &RegretDBError{
		Code:     code,
		Category: CategoryIntegrity,
		Message:  message,
	}
}

// ============================================================================
// Storage Error Constructors
// ============================================================================

// NewStorageError creates a new storage error.
func NewStorageError(message string) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeStorage,
		Category: CategoryStorage,
		Message:  message,
	}
}

// SnapshotCorrupted creates an error for an unreadable snapshot.
func SnapshotCorrupted(detail string) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeSnapshotCorrupted,
		Category: CategoryStorage,
		Message:  "snapshot corrupted",
		Detail:   detail,
		Hint:     "Check the passphrase or restore an older snapshot",
	}
}

// ============================================================================
// Internal Error Constructors
// ============================================================================

// NewInternalError creates an error for a broken engine invariant.
func NewInternalError(message string) *RegretDBError {
	return &RegretDBError{
		Code:     ErrCodeInternal,
		Category: CategoryInternal,
		Message:  message,
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func categoryOf(err error) (Category, bool) {
	var e *RegretDBError
	if errors.As(err, &e) {
		return e.Category, true
	}
	return "", false
}

// IsSyntaxError checks if an error is a syntax error.
func IsSyntaxError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategorySyntax
}

// IsPreProcessorError checks if an error was raised by the binder.
func IsPreProcessorError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryPreProcessor
}

// IsExecutionError checks if an error is an execution error.
func IsExecutionError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryExecution
}

// IsIntegrityError checks if an error is an integrity error.
func IsIntegrityError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryIntegrity
}

// IsInternalError checks if an error is an internal error.
func IsInternalError(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryInternal
}

// GetCode returns the error code if it's a RegretDBError, or 0 otherwise.
func GetCode(err error) ErrorCode {
	var e *RegretDBError
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// GetCategory returns the error category, or INTERNAL for foreign errors.
func GetCategory(err error) Category {
	if c, ok := categoryOf(err); ok {
		return c
	}
	return CategoryInternal
}

// FormatError formats an error for user display.
func FormatError(err error) string {
	var e *RegretDBError
	if errors.As(err, &e) {
		return e.UserMessage()
	}
	return fmt.Sprintf("ERROR: %v", err)
}
