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

package shell

import "strings"

// Reader accumulates input lines until they form a complete input.
type Reader struct {
	buf strings.Builder
}

// InProgress reports whether a partial input is buffered.
func (r *Reader) InProgress() bool {
	return r.buf.Len() > 0
}

// Reset discards any partial input.
func (r *Reader) Reset() {
	r.buf.Reset()
}

// Add feeds one line. It returns the complete input and true once the
// buffered lines form one.
func (r *Reader) Add(line string) (string, bool) {
	line = strings.TrimSpace(line)

	if strings.HasSuffix(line, `\`) && !isCommand(line) {
		r.buf.WriteString(strings.TrimSuffix(line, `\`))
		r.buf.WriteByte(' ')
		return "", false
	}

	if !r.InProgress() {
		if line == "" {
			return "", false
		}
		if isCommand(line) || strings.HasSuffix(line, ";") {
			return line, true
		}
	}

	r.buf.WriteString(line)
	input := strings.TrimSpace(r.buf.String())
	if !strings.HasSuffix(input, ";") {
		r.buf.WriteByte(' ')
		return "", false
	}
	r.buf.Reset()
	return input, true
}

// Flush returns whatever partial input is buffered, for end of input.
func (r *Reader) Flush() (string, bool) {
	input := strings.TrimSpace(r.buf.String())
	r.buf.Reset()
	return input, input != ""
}

// isCommand reports whether line is a backslash command. A lone "\" is a
// continuation marker, not a command.
func isCommand(line string) bool {
	return strings.HasPrefix(line, `\`) && len(line) > 1
}
