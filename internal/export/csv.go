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

package export

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"regretdb/internal/sql"
)

// ToCSV writes one <table>.csv file per table into dir. NULL is written as
// an empty field.
func ToCSV(cat *sql.Catalog, dir string, opts Options) (Stats, error) {
	var stats Stats
	tables, err := selected(cat, cat.TableNames(), opts)
	if err != nil {
		return stats, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stats, ioError("failed to create "+dir, err)
	}

	for _, name := range tables {
		t, _ := cat.Table(name)
		n, err := writeCSV(t, filepath.Join(dir, name+".csv"))
		if err != nil {
			return stats, err
		}
		stats.Tables++
		stats.Rows += n
	}
	return stats, nil
}

func writeCSV(t *sql.Table, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, ioError("failed to create "+path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.ShortName()
	}
	if err := w.Write(header); err != nil {
		return 0, ioError("failed to write "+path, err)
	}

	rows := t.Rows()
	for _, r := range rows {
		record := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			if v := r.Get(c.Name); !v.IsNull() {
				record[i] = v.String()
			}
		}
		if err := w.Write(record); err != nil {
			return 0, ioError("failed to write "+path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, ioError("failed to write "+path, err)
	}
	return len(rows), f.Close()
}
