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
	"strings"
)

// Pretty renders the statement text with a marker line under the offending
// part. Syntax errors get carets under the token at Offset; preprocessor
// errors get every occurrence of Word outside string literals underlined.
// It returns "" when the error carries no statement text.
func (e *RegretDBError) Pretty() string {
	if e.SQL == "" {
		return ""
	}
	switch e.Category {
	case CategorySyntax:
		return Caret(e.SQL, e.Offset, e.Length)
	case CategoryPreProcessor:
		if e.Word == "" {
			return e.SQL
		}
		return Underline(e.SQL, e.Word)
	default:
		return ""
	}
}

// Caret returns sql followed by a line of '^' under [offset, offset+length).
// An offset past the end of the text points just after the last character.
func Caret(sql string, offset, length int) string {
	if offset < 0 {
		offset = 0
	}
	if offset > len(sql) {
		offset = len(sql)
	}
	if length < 1 {
		length = 1
	}

	// Only the line holding the offset is shown for multi-line statements.
	start := strings.LastIndexByte(sql[:offset], '\n') + 1
	end := strings.IndexByte(sql[offset:], '\n')
	if end < 0 {
		end = len(sql)
	} else {
		end += offset
	}
	line := sql[start:end]
	col := offset - start
	if col+length > len(line)+1 {
		length = len(line) + 1 - col
		if length < 1 {
			length = 1
		}
	}
	return line + "\n" + strings.Repeat(" ", col) + strings.Repeat("^", length)
}

// Underline returns sql with every whole-word occurrence of word that is not
// inside a single-quoted literal marked with '^' on the following line.
func Underline(sql, word string) string {
	marks := make([]bool, len(sql))
	inString := false
	for i := 0; i < len(sql); {
		if sql[i] == '\'' {
			inString = !inString
			i++
			continue
		}
		if !inString && strings.HasPrefix(sql[i:], word) && wordBoundary(sql, i, i+len(word)) {
			for j := i; j < i+len(word); j++ {
				marks[j] = true
			}
			i += len(word)
			continue
		}
		i++
	}

	var sb strings.Builder
	lineStart := 0
	for lineStart <= len(sql) {
		lineEnd := strings.IndexByte(sql[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(sql)
		} else {
			lineEnd += lineStart
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(sql[lineStart:lineEnd])

		marker := make([]byte, 0, lineEnd-lineStart)
		for j := lineStart; j < lineEnd; j++ {
			if marks[j] {
				marker = append(marker, '^')
			} else {
				marker = append(marker, ' ')
			}
		}
		if m := strings.TrimRight(string(marker), " "); m != "" {
			sb.WriteByte('\n')
			sb.WriteString(m)
		}
		lineStart = lineEnd + 1
	}
	return sb.String()
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
