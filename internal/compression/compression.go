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
Package compression provides stream compression for RegretDB dumps.

Compression Overview:
=====================

regretdb-dump can compress its SQL output, and the regretdb shell reads
scripts through NewReader so a compressed dump replays without a separate
decompression step.

Supported Algorithms:
=====================

 1. none: Output is written unchanged
 2. gzip: RFC 1952 streams, readable by standard gzip tools

Detection:
==========

NewReader sniffs the gzip magic bytes (0x1f 0x8b). Anything else is read
as plain text, so uncompressed scripts keep working.
*/
package compression

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	dberrors "regretdb/internal/errors"
)

// Algorithm represents a compression algorithm
type Algorithm int

const (
	AlgorithmNone Algorithm = iota
	AlgorithmGzip
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmGzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses a compression algorithm from string
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "none", "":
		return AlgorithmNone, nil
	case "gzip", "gz":
		return AlgorithmGzip, nil
	default:
		return AlgorithmNone, fmt.Errorf("unknown compression algorithm: %s", s)
	}
}

// Level represents compression level
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 5
	LevelBest    Level = 9
)

var gzipMagic = []byte{0x1f, 0x8b}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w so that everything written is compressed with algo.
// Close flushes the compressed stream but does not close w.
func NewWriter(w io.Writer, algo Algorithm, level Level) (io.WriteCloser, error) {
	switch algo {
	case AlgorithmNone:
		return nopWriteCloser{w}, nil
	case AlgorithmGzip:
		gz, err := gzip.NewWriterLevel(w, int(level))
		if err != nil {
			return nil, dberrors.NewStorageError("invalid compression level").WithCause(err)
		}
		return gz, nil
	default:
		return nil, dberrors.NewStorageError("unsupported compression algorithm " + algo.String())
	}
}

// NewReader returns a reader over the decompressed content of r along with
// the detected algorithm.
func NewReader(r io.Reader) (io.ReadCloser, Algorithm, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, AlgorithmNone, dberrors.NewStorageError("failed to read input").WithCause(err)
	}
	if !bytes.Equal(head, gzipMagic) {
		return io.NopCloser(br), AlgorithmNone, nil
	}
	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, AlgorithmGzip, dberrors.NewStorageError("corrupt gzip stream").WithCause(err)
	}
	return gz, AlgorithmGzip, nil
}

// ReadAll reads r to the end, decompressing it when it is gzip.
func ReadAll(r io.Reader) ([]byte, error) {
	rc, _, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, dberrors.NewStorageError("failed to decompress input").WithCause(err)
	}
	return data, nil
}
