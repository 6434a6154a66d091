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
Parser Overview:
================

The Parser is a recursive-descent parser with one entry point per leading
keyword. It works on the token slice produced by the Lexer, keeping a
current and a lookahead token.

Grammar:
========

	stmt       := select | insert | update | delete | create | drop | alter
	select     := SELECT (columns | '*') FROM tables [WHERE expr] [ORDER BY order_list]
	insert     := INSERT INTO table '(' columns ')' VALUES '(' literals ')'
	update     := UPDATE table SET column '=' literal (',' column '=' literal)* [WHERE expr]
	delete     := DELETE FROM table [WHERE expr]
	create     := CREATE TABLE table '(' coldef (',' coldef)* ')'
	drop       := DROP TABLE table
	alter      := ALTER TABLE table ( ADD [COLUMN] coldef
	                                | DROP [COLUMN] column
	                                | RENAME [COLUMN] column TO column
	                                | MODIFY [COLUMN] coldef )
	order_list := column_list (ASC | DESC) (',' column_list (ASC | DESC))*
	coldef     := ident type constraint*

Expression Precedence (lowest to highest):
==========================================

	OR  ->  AND  ->  NOT  ->  comparison | IS [NOT] NULL | '(' expr ')' | TRUE | FALSE

A comparison is "column op (literal | column)".

A single trailing ';' is accepted. Anything after a complete statement is
a syntax error.
*/
package sql

import (
	"encoding/hex"
	"fmt"

	dberrors "regretdb/internal/errors"
)

// Parser transforms tokens into a Statement.
type Parser struct {
	sql    string
	tokens []Token
	pos    int
	cur    Token // Current token
	peek   Token // Next token (lookahead)
}

// NewParser tokenizes sql and returns a parser positioned on its first token.
func NewParser(sql string) (*Parser, error) {
	tokens, err := Tokenize(sql)
	if err != nil {
		return nil, err
	}
	p := &Parser{sql: sql, tokens: tokens, pos: -1}
	p.nextToken()
	return p, nil
}

// Parse is a convenience wrapper: tokenize and parse one statement.
func Parse(sql string) (Statement, error) {
	p, err := NewParser(sql)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.cur = p.tokens[p.pos]
	if p.pos+1 < len(p.tokens) {
		p.peek = p.tokens[p.pos+1]
	} else {
		p.peek = p.cur
	}
}

// Parse parses exactly one statement.
func (p *Parser) Parse() (Statement, error) {
	var (
		stmt Statement
		err  error
	)

	if p.cur.Type != TokenKeyword {
		return nil, p.errorAt(dberrors.ErrCodeUnknownStatement, p.cur,
			fmt.Sprintf("unknown statement start: %s", p.cur.describe()))
	}
	switch p.cur.Value {
	case "SELECT":
		stmt, err = p.parseSelect()
	case "INSERT":
		stmt, err = p.parseInsert()
	case "UPDATE":
		stmt, err = p.parseUpdate()
	case "DELETE":
		stmt, err = p.parseDelete()
	case "CREATE":
		stmt, err = p.parseCreate()
	case "DROP":
		stmt, err = p.parseDrop()
	case "ALTER":
		stmt, err = p.parseAlter()
	default:
		return nil, p.errorAt(dberrors.ErrCodeUnknownStatement, p.cur,
			fmt.Sprintf("unknown statement start: %s", p.cur.describe()))
	}
	if err != nil {
		return nil, err
	}

	if p.cur.Type == TokenSemicolon {
		p.nextToken()
	}
	if p.cur.Type != TokenEOF {
		e := p.errorAt(dberrors.ErrCodeTrailingInput, p.cur,
			fmt.Sprintf("unexpected token after end of statement: %s", p.cur.describe()))
		if p.cur.Type == TokenKeyword && p.cur.Value == "JOIN" {
			e = e.WithHint("JOIN is not supported; list the tables separated by commas and filter in WHERE")
		}
		return nil, e
	}

	stmt.setText(p.sql)
	return stmt, nil
}

// ============================================================================
// Statements
// ============================================================================

func (p *Parser) parseSelect() (*SelectStmt, error) {
	p.nextToken() // SELECT
	stmt := &SelectStmt{}

	if p.cur.Type == TokenStar {
		stmt.Columns = []*Identifier{{Kind: IdentColumn, Name: "*", Pos: p.cur.Offset}}
		p.nextToken()
	} else {
		cols, err := p.parseColumnList(true)
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	for {
		table, err := p.parseTableName()
		if err != nil {
			return nil, err
		}
		stmt.Tables = append(stmt.Tables, table)
		if p.cur.Type != TokenComma {
			break
		}
		p.nextToken()
	}

	if p.isKeyword("WHERE") {
		p.nextToken()
		where, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.isKeyword("ORDER") {
		orderBy, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = orderBy
	}
	return stmt, nil
}

// parseOrderBy parses ORDER BY groups. Each group is a column list followed
// by a mandatory direction that applies to every column of the group.
func (p *Parser) parseOrderBy() ([]OrderByItem, error) {
	p.nextToken() // ORDER
	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}
	var items []OrderByItem
	for {
		cols, err := p.parseColumnList(false)
		if err != nil {
			return nil, err
		}
		if !p.isKeyword("ASC") && !p.isKeyword("DESC") {
			return nil, p.unexpected("'ASC' or 'DESC'")
		}
		desc := p.cur.Value == "DESC"
		p.nextToken()
		for _, c := range cols {
			items = append(items, OrderByItem{Column: c, Desc: desc})
		}
		if p.cur.Type != TokenComma {
			return items, nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseInsert() (*InsertStmt, error) {
	p.nextToken() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &InsertStmt{Table: table}

	if err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}
	if stmt.Columns, err = p.parseColumnList(false); err != nil {
		return nil, err
	}
	if err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, lit)
		if p.cur.Type != TokenComma {
			break
		}
		p.nextToken()
	}
	if err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseUpdate() (*UpdateStmt, error) {
	p.nextToken() // UPDATE
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &UpdateStmt{Table: table}

	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseColumn(false)
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenOperator || p.cur.Value != "=" {
			return nil, p.unexpected("'='")
		}
		p.nextToken()
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: col, Value: val})
		if p.cur.Type != TokenComma {
			break
		}
		p.nextToken()
	}

	if p.isKeyword("WHERE") {
		p.nextToken()
		if stmt.Where, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseDelete() (*DeleteStmt, error) {
	p.nextToken() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStmt{Table: table}
	if p.isKeyword("WHERE") {
		p.nextToken()
		if stmt.Where, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseCreate() (*CreateTableStmt, error) {
	p.nextToken() // CREATE
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &CreateTableStmt{Table: table}

	if err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}
	for {
		def, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, def)
		if p.cur.Type != TokenComma {
			break
		}
		p.nextToken()
	}
	if err := p.expect(TokenRParen, "',' or ')'"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseDrop() (*DropTableStmt, error) {
	p.nextToken() // DROP
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	return &DropTableStmt{Table: table}, nil
}

func (p *Parser) parseAlter() (Statement, error) {
	p.nextToken() // ALTER
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}

	if p.cur.Type != TokenKeyword {
		return nil, p.unexpected("'ADD', 'DROP', 'RENAME' or 'MODIFY'")
	}
	action := p.cur.Value
	switch action {
	case "ADD", "DROP", "RENAME", "MODIFY":
		p.nextToken()
	default:
		return nil, p.unexpected("'ADD', 'DROP', 'RENAME' or 'MODIFY'")
	}
	if p.isKeyword("COLUMN") {
		p.nextToken()
	}

	switch action {
	case "ADD":
		def, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		return &AlterAddStmt{Table: table, Column: def}, nil
	case "MODIFY":
		def, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		def.Name.Kind = IdentColumn
		return &AlterModifyStmt{Table: table, Column: def}, nil
	case "DROP":
		col, err := p.parseColumn(false)
		if err != nil {
			return nil, err
		}
		return &AlterDropStmt{Table: table, Column: col}, nil
	default: // RENAME
		col, err := p.parseColumn(false)
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("TO"); err != nil {
			return nil, err
		}
		name, err := p.parseNewColumnName()
		if err != nil {
			return nil, err
		}
		return &AlterRenameStmt{Table: table, Column: col, NewName: name}, nil
	}
}

// ============================================================================
// Column definitions and constraints
// ============================================================================

func (p *Parser) parseColumnDef() (ColumnDef, error) {
	name, err := p.parseNewColumnName()
	if err != nil {
		return ColumnDef{}, err
	}

	if p.cur.Type != TokenKeyword {
		return ColumnDef{}, p.unexpected("column type (TEXT, NUMBER, BLOB or BOOL)")
	}
	typ, ok := ParseColumnType(p.cur.Value)
	if !ok {
		return ColumnDef{}, p.unexpected("column type (TEXT, NUMBER, BLOB or BOOL)")
	}
	p.nextToken()
	if p.cur.Type == TokenLParen {
		return ColumnDef{}, p.errorAt(dberrors.ErrCodeSyntax, p.cur,
			fmt.Sprintf("sized types are not supported: %s takes no parameters", typ))
	}

	constraints, err := p.parseConstraints()
	if err != nil {
		return ColumnDef{}, err
	}
	return ColumnDef{Name: name, Type: typ, Constraints: constraints}, nil
}

// parseConstraints greedily consumes column constraints. The same kind may
// appear at most once per column.
func (p *Parser) parseConstraints() ([]Constraint, error) {
	var out []Constraint
	for {
		start := p.cur
		var c Constraint

		switch {
		case p.isKeyword("NOT"):
			p.nextToken()
			if p.cur.Type != TokenNull {
				return nil, p.unexpected("NULL")
			}
			p.nextToken()
			c = Constraint{Kind: ConstraintNotNull}
		case p.isKeyword("PRIMARY"):
			p.nextToken()
			if err := p.expectKeyword("KEY"); err != nil {
				return nil, err
			}
			c = Constraint{Kind: ConstraintPrimaryKey}
		case p.isKeyword("UNIQUE"):
			p.nextToken()
			c = Constraint{Kind: ConstraintUnique}
		case p.isKeyword("FOREIGN"), p.isKeyword("REFERENCES"):
			ref, err := p.parseReference()
			if err != nil {
				return nil, err
			}
			c = Constraint{Kind: ConstraintForeignKey, Ref: ref}
		case p.isKeyword("DEFAULT"):
			p.nextToken()
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			c = Constraint{Kind: ConstraintDefault, Default: lit.Value}
		default:
			return out, nil
		}

		if hasConstraint(out, c.Kind) {
			return nil, &dberrors.RegretDBError{
				Code:     dberrors.ErrCodeDuplicateConstraint,
				Category: dberrors.CategorySyntax,
				Message:  fmt.Sprintf("duplicate %s constraint", c.Kind),
				SQL:      p.sql,
				Offset:   start.Offset,
				Length:   start.Len,
			}
		}
		out = append(out, c)
	}
}

// parseReference parses "[FOREIGN KEY] REFERENCES table(column)" and
// returns "table.column".
func (p *Parser) parseReference() (string, error) {
	if p.isKeyword("FOREIGN") {
		p.nextToken()
		if err := p.expectKeyword("KEY"); err != nil {
			return "", err
		}
	}
	if err := p.expectKeyword("REFERENCES"); err != nil {
		return "", err
	}
	table, err := p.parseTableName()
	if err != nil {
		return "", err
	}
	if err := p.expect(TokenLParen, "'('"); err != nil {
		return "", err
	}
	if p.cur.Type != TokenIdent {
		return "", p.unexpected("column name")
	}
	column := p.cur.Value
	p.nextToken()
	if err := p.expect(TokenRParen, "')'"); err != nil {
		return "", err
	}
	return table.Name + "." + column, nil
}

// ============================================================================
// Expressions
// ============================================================================

func (p *Parser) parseExpression() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.nextToken()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.isKeyword("NOT") {
		p.nextToken()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: OpNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	switch p.cur.Type {
	case TokenLParen:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case TokenBoolean:
		return p.parseLiteral()
	case TokenIdent:
	default:
		return nil, p.unexpected("column, '(' or boolean literal")
	}

	left, err := p.parseColumn(false)
	if err != nil {
		return nil, err
	}

	if p.isKeyword("IS") {
		p.nextToken()
		op := OpIsNull
		if p.isKeyword("NOT") {
			op = OpIsNotNull
			p.nextToken()
		}
		if p.cur.Type != TokenNull {
			return nil, p.unexpected("NULL")
		}
		p.nextToken()
		return &UnaryExpr{Op: op, Operand: left}, nil
	}

	if p.cur.Type != TokenOperator {
		return nil, p.unexpected("comparison operator")
	}
	op := comparisonOps[p.cur.Value]
	p.nextToken()

	var right Expr
	if p.cur.Type == TokenIdent {
		right, err = p.parseColumn(false)
	} else {
		right, err = p.parseLiteral()
	}
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: op, Left: left, Right: right}, nil
}

// ============================================================================
// Identifiers and literals
// ============================================================================

func (p *Parser) parseTableName() (*Identifier, error) {
	if p.cur.Type != TokenIdent {
		return nil, p.unexpected("table name")
	}
	id := &Identifier{Kind: IdentTable, Name: p.cur.Value, Pos: p.cur.Offset}
	p.nextToken()
	return id, nil
}

func (p *Parser) parseNewColumnName() (*Identifier, error) {
	if p.cur.Type != TokenIdent {
		return nil, p.unexpected("column name")
	}
	id := &Identifier{Kind: IdentNewColumn, Name: p.cur.Value, Pos: p.cur.Offset}
	p.nextToken()
	return id, nil
}

// parseColumn parses ident, ident.ident, or (when allowStar is set) ident.*.
func (p *Parser) parseColumn(allowStar bool) (*Identifier, error) {
	if p.cur.Type != TokenIdent {
		return nil, p.unexpected("column name")
	}
	id := &Identifier{Kind: IdentColumn, Name: p.cur.Value, Pos: p.cur.Offset}
	p.nextToken()

	if p.cur.Type != TokenDot {
		return id, nil
	}
	p.nextToken()
	switch {
	case p.cur.Type == TokenIdent:
		id.Name += "." + p.cur.Value
	case p.cur.Type == TokenStar && allowStar:
		id.Name += ".*"
	default:
		return nil, p.unexpected("column name after '.'")
	}
	p.nextToken()
	return id, nil
}

func (p *Parser) parseColumnList(allowStar bool) ([]*Identifier, error) {
	var cols []*Identifier
	for {
		col, err := p.parseColumn(allowStar)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.cur.Type != TokenComma {
			return cols, nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseLiteral() (*Literal, error) {
	tok := p.cur
	lit := &Literal{Pos: tok.Offset}

	switch tok.Type {
	case TokenNumber:
		v, err := ParseNumber(tok.Value)
		if err != nil {
			return nil, p.errorAt(dberrors.ErrCodeInvalidLiteral, tok,
				fmt.Sprintf("invalid number %s", tok.Value))
		}
		lit.Value = v
	case TokenText:
		lit.Value = Text(tok.Value)
	case TokenBoolean:
		lit.Value = Bool(tok.Value == "TRUE")
	case TokenBlob:
		b, err := hex.DecodeString(tok.Value)
		if err != nil {
			return nil, p.errorAt(dberrors.ErrCodeInvalidLiteral, tok, "invalid blob literal")
		}
		lit.Value = Blob(b)
	case TokenNull:
		lit.Value = Null()
	default:
		return nil, p.unexpected("literal value")
	}
	p.nextToken()
	return lit, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (p *Parser) isKeyword(kw string) bool {
	return p.cur.Type == TokenKeyword && p.cur.Value == kw
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.unexpected("'" + kw + "'")
	}
	p.nextToken()
	return nil
}

func (p *Parser) expect(t TokenType, what string) error {
	if p.cur.Type != t {
		return p.unexpected(what)
	}
	p.nextToken()
	return nil
}

func (p *Parser) unexpected(expected string) *dberrors.RegretDBError {
	return dberrors.UnexpectedToken(expected, p.cur.describe(), p.cur.Offset, p.cur.Len).WithSQL(p.sql)
}

func (p *Parser) errorAt(code dberrors.ErrorCode, tok Token, msg string) *dberrors.RegretDBError {
	e := dberrors.NewSyntaxError(msg, tok.Offset, tok.Len).WithSQL(p.sql)
	e.Code = code
	return e
}
