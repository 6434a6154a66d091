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
Lexer Overview:
===============

The Lexer is the first stage of the statement pipeline. It turns the raw
SQL text into a slice of tokens, each remembering where it started in the
source so that later stages can point at it in error messages.

	Input: "SELECT name FROM users WHERE id = 1"

	Output Tokens:
	  1. {TokenKeyword,  "SELECT", 0}
	  2. {TokenIdent,    "name",   7}
	  3. {TokenKeyword,  "FROM",   12}
	  4. {TokenIdent,    "users",  17}
	  5. {TokenKeyword,  "WHERE",  23}
	  6. {TokenIdent,    "id",     29}
	  7. {TokenOperator, "=",      32}
	  8. {TokenNumber,   "1",      34}
	  9. {TokenEOF,      "",       35}

Literals:
=========

  - NUMBER:  123, 3.14, -7
  - TEXT:    'hello' (no escape sequences; the value excludes the quotes)
  - BOOLEAN: TRUE / FALSE in any case
  - BLOB:    b'00ff' or x'00FF' (an even number of hex digits)
  - NULL

Identifiers are [A-Za-z_][A-Za-z0-9_]*. An identifier matching a keyword is
upper-cased and becomes a keyword token; other identifiers keep their case.
*/
package sql

import (
	"encoding/hex"
	"fmt"
	"strings"

	dberrors "regretdb/internal/errors"
)

// TokenType represents the type of a lexical token.
type TokenType int

// Token type constants.
const (
	TokenEOF       TokenType = iota // End of input
	TokenIdent                      // Identifier (table name, column name)
	TokenKeyword                    // SQL keyword (SELECT, FROM, etc.)
	TokenNumber                     // Numeric literal (123)
	TokenText                       // Text literal ('hello')
	TokenBoolean                    // TRUE / FALSE
	TokenBlob                       // Blob literal (x'00ff'); Value holds the hex digits
	TokenNull                       // NULL
	TokenOperator                   // = != < > <= >=
	TokenComma                      // ,
	TokenLParen                     // (
	TokenRParen                     // )
	TokenDot                        // .
	TokenStar                       // *
	TokenSemicolon                  // ;
)

var tokenTypeNames = map[TokenType]string{
	TokenEOF:       "end of input",
	TokenIdent:     "identifier",
	TokenKeyword:   "keyword",
	TokenNumber:    "number",
	TokenText:      "text",
	TokenBoolean:   "boolean",
	TokenBlob:      "blob",
	TokenNull:      "NULL",
	TokenOperator:  "operator",
	TokenComma:     "','",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenDot:       "'.'",
	TokenStar:      "'*'",
	TokenSemicolon: "';'",
}

// String returns a human readable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a single lexical unit from the input.
type Token struct {
	Type   TokenType // The category of this token
	Value  string    // Normalised value (keywords upper-cased, quotes stripped)
	Offset int       // Byte offset of the first source character
	Len    int       // Number of source bytes the token spans
}

// describe renders the token for "expected X, found Y" messages.
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenText:
		return fmt.Sprintf("'%s'", t.Value)
	case TokenIdent:
		return fmt.Sprintf("identifier %s", t.Value)
	default:
		return fmt.Sprintf("'%s'", t.Value)
	}
}

// keywords is the fixed set of reserved words. TRUE, FALSE and NULL are
// handled separately because they are literals.
var keywords = map[string]struct{}{
	// Statements
	"SELECT": {}, "FROM": {}, "WHERE": {}, "ORDER": {}, "BY": {}, "ASC": {}, "DESC": {},
	"INSERT": {}, "INTO": {}, "VALUES": {},
	"UPDATE": {}, "SET": {},
	"DELETE": {},
	"CREATE": {}, "TABLE": {},
	"DROP": {},
	"ALTER": {}, "ADD": {}, "RENAME": {}, "MODIFY": {}, "COLUMN": {}, "TO": {},
	// Recognised so that the parser can reject them with a clear message
	"JOIN": {}, "ON": {},
	// Logical operators
	"AND": {}, "OR": {}, "NOT": {}, "IS": {},
	// Constraints
	"PRIMARY": {}, "KEY": {}, "UNIQUE": {}, "FOREIGN": {}, "REFERENCES": {}, "DEFAULT": {},
	// Column types
	"TEXT": {}, "NUMBER": {}, "BLOB": {}, "BOOL": {},
}

// IsKeyword reports whether word is reserved.
func IsKeyword(word string) bool {
	_, ok := keywords[strings.ToUpper(word)]
	return ok
}

// Keywords returns the reserved words, used for shell completion.
func Keywords() []string {
	out := make([]string, 0, len(keywords)+3)
	for k := range keywords {
		out = append(out, k)
	}
	return append(out, "TRUE", "FALSE", "NULL")
}

// Lexer transforms an input string into tokens.
type Lexer struct {
	input string // The SQL input string
	pos   int    // Current position in the input
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the whole input. The returned slice always ends with a
// TokenEOF whose offset is the input length.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Tokenize is a convenience wrapper around NewLexer(sql).Tokenize().
func Tokenize(sql string) ([]Token, error) {
	return NewLexer(sql).Tokenize()
}

// NextToken returns the next token, or a SyntaxError positioned at the
// offending character.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Offset: len(l.input), Len: 1}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch {
	case (ch == 'b' || ch == 'B' || ch == 'x' || ch == 'X') && l.peek(1) == '\'':
		return l.readBlob()
	case isIdentStart(ch):
		return l.readWord(), nil
	case isDigit(ch), ch == '-' && isDigit(l.peek(1)):
		return l.readNumber(), nil
	case ch == '\'':
		l.pos++
		end := strings.IndexByte(l.input[l.pos:], '\'')
		if end < 0 {
			return Token{}, dberrors.UnterminatedString(start).WithSQL(l.input)
		}
		l.pos += end + 1
		return l.token(TokenText, l.input[start+1:l.pos-1], start), nil
	}

	// Operators
	switch ch {
	case '<', '>':
		l.pos++
		if l.peek(0) == '=' {
			l.pos++
		} else if ch == '<' && l.peek(0) == '>' {
			l.pos++
			return l.token(TokenOperator, "!=", start), nil
		}
		return l.token(TokenOperator, l.input[start:l.pos], start), nil
	case '!':
		if l.peek(1) == '=' {
			l.pos += 2
			return l.token(TokenOperator, "!=", start), nil
		}
	case '=':
		l.pos++
		return l.token(TokenOperator, "=", start), nil
	}

	// Single-character tokens
	var typ TokenType
	switch ch {
	case ',':
		typ = TokenComma
	case '(':
		typ = TokenLParen
	case ')':
		typ = TokenRParen
	case '.':
		typ = TokenDot
	case '*':
		typ = TokenStar
	case ';':
		typ = TokenSemicolon
	default:
		return Token{}, dberrors.UnexpectedCharacter(rune(ch), start).WithSQL(l.input)
	}
	l.pos++
	return l.token(typ, string(ch), start), nil
}

func (l *Lexer) token(typ TokenType, value string, start int) Token {
	return Token{Type: typ, Value: value, Offset: start, Len: l.pos - start}
}

func (l *Lexer) readWord() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	word := l.input[start:l.pos]
	upper := strings.ToUpper(word)

	switch upper {
	case "TRUE", "FALSE":
		return l.token(TokenBoolean, upper, start)
	case "NULL":
		return l.token(TokenNull, upper, start)
	}
	if _, ok := keywords[upper]; ok {
		return l.token(TokenKeyword, upper, start)
	}
	return l.token(TokenIdent, word, start)
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	// A fractional part needs at least one digit after the point, otherwise
	// the dot is left for the parser.
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return l.token(TokenNumber, l.input[start:l.pos], start)
}

func (l *Lexer) readBlob() (Token, error) {
	start := l.pos
	l.pos += 2 // prefix and opening quote
	end := strings.IndexByte(l.input[l.pos:], '\'')
	if end < 0 {
		return Token{}, dberrors.UnterminatedString(start).WithSQL(l.input)
	}
	digits := l.input[l.pos : l.pos+end]
	l.pos += end + 1
	if _, err := hex.DecodeString(digits); err != nil {
		return Token{}, &dberrors.RegretDBError{
			Code:     dberrors.ErrCodeInvalidLiteral,
			Category: dberrors.CategorySyntax,
			Message:  fmt.Sprintf("invalid blob literal %s", l.input[start:l.pos]),
			Detail:   "blob literals need an even number of hex digits",
			SQL:      l.input,
			Offset:   start,
			Length:   l.pos - start,
		}
	}
	return l.token(TokenBlob, strings.ToLower(digits), start), nil
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n < len(l.input) {
		return l.input[l.pos+n]
	}
	return 0
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
