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

package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", AlgorithmNone, false},
		{"none", AlgorithmNone, false},
		{"gzip", AlgorithmGzip, false},
		{"gz", AlgorithmGzip, false},
		{"zstd", AlgorithmNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriterReader(t *testing.T) {
	script := strings.Repeat("INSERT INTO t (a) VALUES (1);\n", 100)

	for _, algo := range []Algorithm{AlgorithmNone, AlgorithmGzip} {
		t.Run(algo.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, algo, LevelBest)
			require.NoError(t, err)
			_, err = w.Write([]byte(script))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if algo == AlgorithmGzip {
				assert.Less(t, buf.Len(), len(script))
			}

			rc, detected, err := NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			defer rc.Close()
			assert.Equal(t, algo, detected)

			data, err := ReadAll(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, script, string(data))
		})
	}
}

func TestReaderShortInput(t *testing.T) {
	data, err := ReadAll(strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	data, err = ReadAll(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReaderCorrupt(t *testing.T) {
	_, _, err := NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
	assert.Error(t, err)
}

func TestWriterInvalidLevel(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, AlgorithmGzip, Level(42))
	assert.Error(t, err)
}
