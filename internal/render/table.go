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
Package render formats statement results for the interactive shell.

Table Layout:
=============

A SELECT result is drawn as a grid with a header row:

	+----+-------+
	| id | name  |
	+----+-------+
	| 1  | ALICE |
	| 2  | NULL  |
	+----+-------+
	2 rows returned

Column widths are measured in terminal cells, so East Asian wide runes
count as two. Every column is at least three cells wide.

Other statements render as a one-line status such as "INSERT 1".
*/
package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"

	"regretdb/internal/sql"
)

// minColumnWidth keeps narrow columns readable.
const minColumnWidth = 3

// Options control table rendering.
type Options struct {
	// MaxRows caps the number of rows drawn. Zero means no cap.
	MaxRows int
	// Qualified keeps the "table." prefix on header names.
	Qualified bool
}

// Result writes res to w: a table for SELECT, a status line otherwise.
func Result(w io.Writer, res *sql.Result, opts Options) error {
	if res.Kind != "SELECT" {
		_, err := fmt.Fprintln(w, Status(res))
		return err
	}
	return Table(w, res, opts)
}

// Status returns the one-line summary of a non-SELECT result.
func Status(res *sql.Result) string {
	switch res.Kind {
	case "INSERT", "UPDATE", "DELETE":
		return fmt.Sprintf("%s %d", res.Kind, res.Affected)
	case "SELECT":
		return RowCount(len(res.Rows))
	default:
		return res.Kind + " OK"
	}
}

// RowCount returns the footer line for n rows.
func RowCount(n int) string {
	switch n {
	case 0:
		return "(0 rows)"
	case 1:
		return "1 row returned"
	default:
		return fmt.Sprintf("%d rows returned", n)
	}
}

// Table draws the rows of a SELECT result.
func Table(w io.Writer, res *sql.Result, opts Options) error {
	headers := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		headers[i] = c
		if !opts.Qualified {
			if _, short, ok := strings.Cut(c, "."); ok {
				headers[i] = short
			}
		}
	}

	shown := len(res.Rows)
	if opts.MaxRows > 0 && shown > opts.MaxRows {
		shown = opts.MaxRows
	}
	cells := make([][]string, shown)
	for i := 0; i < shown; i++ {
		vals := res.Values(i)
		cells[i] = make([]string, len(vals))
		for j, v := range vals {
			cells[i][j] = v.String()
		}
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = max(minColumnWidth, DisplayWidth(h))
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], DisplayWidth(c))
		}
	}

	var b strings.Builder
	border := borderLine(widths)
	b.WriteString(border)
	writeRow(&b, headers, widths)
	b.WriteString(border)
	for _, row := range cells {
		writeRow(&b, row, widths)
	}
	if len(cells) > 0 {
		b.WriteString(border)
	}

	b.WriteString(RowCount(len(res.Rows)))
	b.WriteByte('\n')
	if shown < len(res.Rows) {
		fmt.Fprintf(&b, "(showing first %d)\n", shown)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func borderLine(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	b.WriteByte('|')
	for i, c := range cells {
		b.WriteByte(' ')
		b.WriteString(c)
		b.WriteString(strings.Repeat(" ", widths[i]-DisplayWidth(c)))
		b.WriteString(" |")
	}
	b.WriteByte('\n')
}

// DisplayWidth returns the number of terminal cells s occupies.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
