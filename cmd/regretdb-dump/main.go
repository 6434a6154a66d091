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
Package main is the entry point for the RegretDB dump utility.

It loads a catalog snapshot and writes it out as a SQL script, a SQLite
database or CSV files. A SQL dump replays through the regretdb shell, compressed or not:

	regretdb-dump -snapshot ./data/catalog.snap -z -o backup.sql.gz
	regretdb -f backup.sql.gz -snapshot ./restored.snap -autosave

Usage:

	regretdb-dump -snapshot <file> [options]

Options:

	-snapshot <file>    Snapshot to read (default: snapshot_path from config)
	-c <file>           Configuration file
	-o <path>           Output file, or directory for csv (default: stdout)
	-f <format>         Output format: sql, sqlite, csv (default: sql)
	-t <tables>         Comma-separated list of tables (default: all)
	-schema-only        Dump schema only, no data
	-data-only          Dump data only, no schema
	-z                  Compress sql output with gzip
	-level <n>          Compression level for -z, 1 to 9 (default: 5)
	-prompt-passphrase  Prompt for the snapshot encryption passphrase
	-v                  Verbose output

Environment Variables:

	REGRETDB_ENCRYPTION_PASSPHRASE  Passphrase for encrypted snapshots
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"regretdb/internal/compression"
	"regretdb/internal/config"
	dberrors "regretdb/internal/errors"
	"regretdb/internal/export"
	"regretdb/internal/logging"
	"regretdb/internal/sql"
	"regretdb/internal/storage"
)

var (
	snapshotPath     = flag.String("snapshot", "", "Snapshot file to read")
	configFile       = flag.String("c", "", "Configuration file")
	outputPath       = flag.String("o", "", "Output file, or directory for csv (default: stdout)")
	format           = flag.String("f", "sql", "Output format: sql, sqlite, csv")
	tables           = flag.String("t", "", "Comma-separated list of tables to dump (default: all)")
	schemaOnly       = flag.Bool("schema-only", false, "Dump schema only, no data")
	dataOnly         = flag.Bool("data-only", false, "Dump data only, no schema")
	compress         = flag.Bool("z", false, "Compress sql output with gzip")
	compressLevel    = flag.Int("level", int(compression.LevelDefault), "Compression level for -z (1-9)")
	promptPassphrase = flag.Bool("prompt-passphrase", false, "Prompt for the encryption passphrase")
	verbose          = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if err := runExport(); err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %s\n", dberrors.FormatError(err))
		os.Exit(1)
	}
}

func runExport() error {
	start := time.Now()

	cfgMgr := config.Global()
	if err := cfgMgr.Load(*configFile); err != nil {
		return err
	}
	cfg := cfgMgr.Get()
	if *snapshotPath != "" {
		cfg.SnapshotPath = *snapshotPath
	}

	level := logging.WARN
	if *verbose {
		level = logging.INFO
	}
	logging.Configure(logging.Config{Level: level, Output: os.Stderr, JSONMode: cfg.LogJSON})
	log := logging.NewLogger("dump")

	if *promptPassphrase {
		pass, err := readPassphrase("Encryption passphrase: ")
		if err != nil {
			return err
		}
		cfg.EncryptionPassphrase = pass
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	opts := export.Options{SchemaOnly: *schemaOnly, DataOnly: *dataOnly}
	if *tables != "" {
		for _, t := range strings.Split(*tables, ",") {
			opts.Tables = append(opts.Tables, strings.TrimSpace(t))
		}
	}

	var stats export.Stats
	switch *format {
	case "sql":
		stats, err = dumpSQL(cat, opts)
	case "sqlite":
		if *outputPath == "" {
			return fmt.Errorf("-o is required for sqlite output")
		}
		stats, err = export.ToSQLite(context.Background(), cat, *outputPath, opts)
	case "csv":
		dir := *outputPath
		if dir == "" {
			dir = "."
		}
		stats, err = export.ToCSV(cat, dir, opts)
	default:
		return fmt.Errorf("unsupported format: %s", *format)
	}
	if err != nil {
		return err
	}

	log.Info("Export completed",
		"format", *format,
		"tables", stats.Tables,
		"rows", stats.Rows,
		"duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}

// loadCatalog reads and restores the snapshot. An encrypted snapshot is
// detected on read, so the passphrase is passed whenever one is known.
func loadCatalog(cfg *config.Config) (*sql.Catalog, error) {
	store, err := storage.NewSnapshotStore(cfg.SnapshotPath, false, cfg.EncryptionPassphrase)
	if err != nil {
		return nil, err
	}
	data, err := store.Read()
	if err != nil {
		return nil, err
	}
	coll, err := storage.ParseCollation(cfg.Collation)
	if err != nil {
		return nil, err
	}
	return sql.RestoreCatalog(data, storage.GetCollator(coll, cfg.Locale))
}

func dumpSQL(cat *sql.Catalog, opts export.Options) (export.Stats, error) {
	var out io.Writer = os.Stdout
	if *outputPath != "" && *outputPath != "-" {
		f, err := os.Create(*outputPath)
		if err != nil {
			return export.Stats{}, fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	algo := compression.AlgorithmNone
	if *compress {
		algo = compression.AlgorithmGzip
	}
	w, err := compression.NewWriter(out, algo, compression.Level(*compressLevel))
	if err != nil {
		return export.Stats{}, err
	}
	stats, err := export.ToSQL(cat, w, opts)
	if err != nil {
		return stats, err
	}
	return stats, w.Close()
}

func readPassphrase(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for passphrase: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pass), nil
}
