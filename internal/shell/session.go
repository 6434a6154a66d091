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
Package shell implements the interactive RegretDB session behind the
regretdb command.

Session Overview:
=================

A Session owns one engine and, when a snapshot path is configured, the
snapshot store it is persisted to. Input is either SQL, executed through
sql.Engine, or a local command starting with a backslash:

	\q, \quit          leave the shell
	\h, \help          list commands
	\tables            list tables with row counts
	\schema <table>    show the CREATE TABLE statement of a table
	\explain <sql>     show the plan of a statement without running it
	\check             run the integrity checker
	\stats             show statement metrics and query cache counters
	\save [path]       write a snapshot
	\load [path]       replace the catalog with a snapshot
	\export <path>     write the catalog as a SQL script
	\config            show the active configuration

Autosave:
=========

With autosave enabled every successful statement that changes the catalog
is followed by a snapshot write. A failed autosave is reported but does
not undo the statement.

Line Input:
===========

Reader turns raw lines into complete inputs. SQL is complete at a line
ending in ';'. A trailing '\' always continues the input on the next line.
Backslash commands are complete on their own line.
*/
package shell

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"regretdb/internal/banner"
	"regretdb/internal/cache"
	"regretdb/internal/config"
	dberrors "regretdb/internal/errors"
	"regretdb/internal/export"
	"regretdb/internal/logging"
	"regretdb/internal/render"
	"regretdb/internal/sql"
	"regretdb/internal/storage"
)

// Session is one interactive shell session. Inputs are handled one at a
// time; Inspect lets other goroutines read the catalog between them.
type Session struct {
	mu     sync.Mutex
	engine *sql.Engine
	cfg    *config.Config
	store  *storage.SnapshotStore
	out    io.Writer
	color  bool
	logger *logging.Logger
}

// NewSession creates a session for cfg. When cfg names a snapshot that
// exists it is loaded; otherwise the session starts with an empty catalog.
func NewSession(cfg *config.Config, out io.Writer, color bool) (*Session, error) {
	s := &Session{
		cfg:    cfg,
		out:    out,
		color:  color,
		logger: logging.NewLogger("shell"),
	}

	coll, err := s.collator()
	if err != nil {
		return nil, err
	}
	s.engine = sql.NewEngine(sql.NewCatalog(coll))
	if cfg.QueryCacheSize > 0 {
		cc := cache.DefaultConfig()
		cc.MaxEntries = cfg.QueryCacheSize
		s.engine.EnableQueryCache(cc)
	}

	if cfg.SnapshotPath == "" {
		return s, nil
	}
	s.store, err = s.openStore(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	if s.store.Exists() {
		if err := s.loadFrom(s.store); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Engine returns the engine the session executes against.
func (s *Session) Engine() *sql.Engine { return s.engine }

// SnapshotPath returns the configured snapshot path, or "" when the
// session is in-memory only.
func (s *Session) SnapshotPath() string {
	if s.store == nil {
		return ""
	}
	return s.store.Path()
}

// Inspect runs fn against the current catalog while no input is being
// handled.
func (s *Session) Inspect(fn func(cat *sql.Catalog)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.engine.Catalog())
}

func (s *Session) collator() (storage.Collator, error) {
	c, err := storage.ParseCollation(s.cfg.Collation)
	if err != nil {
		return nil, dberrors.NewStorageError("invalid collation").WithCause(err)
	}
	return storage.GetCollator(c, s.cfg.Locale), nil
}

func (s *Session) openStore(path string) (*storage.SnapshotStore, error) {
	return storage.NewSnapshotStore(path, s.cfg.EncryptionEnabled, s.cfg.EncryptionPassphrase)
}

// Handle processes one complete input and reports whether the session
// should end.
func (s *Session) Handle(input string) (quit bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.HasPrefix(input, `\`) {
		return s.command(input)
	}
	s.exec(input)
	return false
}

// Exec runs every statement of input and prints each result. It stops at
// the first failure and returns it.
func (s *Session) Exec(input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(input)
}

func (s *Session) exec(input string) error {
	for _, stmt := range sql.SplitStatements(input) {
		res, err := s.engine.Execute(stmt)
		if err != nil {
			s.printError(err)
			return err
		}
		if err := render.Result(s.out, res, render.Options{MaxRows: s.cfg.MaxDisplayRows}); err != nil {
			return err
		}
		if res.Kind != "SELECT" {
			s.autosave()
		}
	}
	return nil
}

func (s *Session) autosave() {
	if !s.cfg.Autosave || s.store == nil {
		return
	}
	if err := s.saveTo(s.store); err != nil {
		s.logger.Warn("Autosave failed", "path", s.store.Path(), "error", err)
		s.printError(err)
	}
}

func (s *Session) command(input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(arg), ";"))

	var err error
	switch name {
	case `\q`, `\quit`:
		return true
	case `\h`, `\help`, `\?`:
		s.printHelp()
	case `\tables`, `\dt`:
		s.printTables()
	case `\schema`, `\d`:
		err = s.printSchema(arg)
	case `\explain`:
		err = s.explain(arg)
	case `\check`:
		err = s.check()
	case `\stats`:
		err = s.printStats()
	case `\save`:
		err = s.save(arg)
	case `\load`:
		err = s.load(arg)
	case `\export`:
		err = s.exportSQL(arg)
	case `\config`:
		banner.PrintConfig(s.out, s.cfg, s.color)
	default:
		err = dberrors.NewExecutionError(fmt.Sprintf("unknown command %s", name)).
			WithHint(`Type \h for the list of commands`)
	}
	if err != nil {
		s.printError(err)
	}
	return false
}

func (s *Session) printStats() error {
	if err := s.engine.Metrics().WriteText(s.out); err != nil {
		return err
	}
	if st, ok := s.engine.CacheStats(); ok {
		fmt.Fprintf(s.out, "# query cache: %d/%d entries, %d hits, %d misses, hit rate %.2f\n",
			st.Entries, st.MaxEntries, st.Hits, st.Misses, st.HitRate)
	}
	return nil
}

func (s *Session) printTables() {
	cat := s.engine.Catalog()
	names := cat.TableNames()
	if len(names) == 0 {
		fmt.Fprintln(s.out, "(no tables)")
		return
	}
	for _, name := range names {
		t, _ := cat.Table(name)
		fmt.Fprintf(s.out, "%-24s %d rows\n", name, t.RowCount())
	}
}

func (s *Session) printSchema(name string) error {
	if name == "" {
		return dberrors.NewExecutionError(`usage: \schema <table>`)
	}
	t, ok := s.engine.Catalog().Table(name)
	if !ok {
		return dberrors.TableNotFound(name)
	}
	stmt, err := export.CreateTableSQL(t)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, stmt+";")
	for _, c := range t.Columns {
		for _, fk := range s.engine.Catalog().ForeignKeys().ReferencesTo(c.Name) {
			fmt.Fprintf(s.out, "  referenced by %s\n", fk.Referencing)
		}
	}
	return nil
}

func (s *Session) explain(stmt string) error {
	if stmt == "" {
		return dberrors.NewExecutionError(`usage: \explain <statement>`)
	}
	plan, err := s.engine.Explain(stmt)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, plan)
	return nil
}

func (s *Session) check() error {
	violations := sql.Violations(s.engine.Catalog())
	if len(violations) == 0 {
		fmt.Fprintln(s.out, "integrity OK")
		return nil
	}
	for _, v := range violations {
		fmt.Fprintln(s.out, v.String())
	}
	return sql.CheckIntegrity(s.engine.Catalog())
}

// storeFor returns the configured store, or a store for path when one is
// given.
func (s *Session) storeFor(path string) (*storage.SnapshotStore, error) {
	if path != "" {
		return s.openStore(path)
	}
	if s.store == nil {
		return nil, dberrors.NewStorageError("no snapshot path configured").
			WithHint(`Pass a path, set snapshot_path, or start with -snapshot`)
	}
	return s.store, nil
}

func (s *Session) save(path string) error {
	store, err := s.storeFor(path)
	if err != nil {
		return err
	}
	if err := s.saveTo(store); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "saved %d tables to %s\n", len(s.engine.Catalog().TableNames()), store.Path())
	return nil
}

func (s *Session) saveTo(store *storage.SnapshotStore) error {
	data, err := s.engine.Catalog().Snapshot()
	if err != nil {
		return err
	}
	return store.Write(data)
}

func (s *Session) load(path string) error {
	store, err := s.storeFor(path)
	if err != nil {
		return err
	}
	if err := s.loadFrom(store); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "loaded %d tables from %s\n", len(s.engine.Catalog().TableNames()), store.Path())
	return nil
}

// loadFrom replaces the catalog only when the snapshot restores cleanly.
func (s *Session) loadFrom(store *storage.SnapshotStore) error {
	data, err := store.Read()
	if err != nil {
		return err
	}
	coll, err := s.collator()
	if err != nil {
		return err
	}
	cat, err := sql.RestoreCatalog(data, coll)
	if err != nil {
		return err
	}
	s.engine.SetCatalog(cat)
	s.logger.Info("Snapshot loaded", "path", store.Path(), "tables", len(cat.TableNames()), "rows", cat.TotalRows())
	return nil
}

func (s *Session) exportSQL(path string) error {
	if path == "" {
		return dberrors.NewExecutionError(`usage: \export <path>`)
	}
	f, err := os.Create(path)
	if err != nil {
		return dberrors.NewStorageError("failed to create " + path).WithCause(err)
	}
	defer f.Close()
	stats, err := export.ToSQL(s.engine.Catalog(), f, export.Options{})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "exported %d tables, %d rows to %s\n", stats.Tables, stats.Rows, path)
	return f.Close()
}

func (s *Session) printError(err error) {
	msg := dberrors.FormatError(err)
	if s.color {
		msg = banner.AnsiRed + msg + banner.AnsiReset
	}
	fmt.Fprintln(s.out, msg)
}

var commandHelp = [][2]string{
	{`\q`, "Quit the shell"},
	{`\h`, "Show this help"},
	{`\tables`, "List tables with row counts"},
	{`\schema <table>`, "Show the definition of a table"},
	{`\explain <sql>`, "Show the plan of a statement without running it"},
	{`\check`, "Check the catalog for integrity violations"},
	{`\stats`, "Show statement metrics"},
	{`\save [path]`, "Write a snapshot"},
	{`\load [path]`, "Replace the catalog with a snapshot"},
	{`\export <path>`, "Write the catalog as a SQL script"},
	{`\config`, "Show the active configuration"},
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	for _, h := range commandHelp {
		fmt.Fprintf(s.out, "  %-18s %s\n", h[0], h[1])
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "SQL statements end with ';'. End a line with '\\' to continue it.")
}

// Completions returns the words offered for tab completion.
func Completions() []string {
	out := make([]string, 0, len(commandHelp)+64)
	for _, h := range commandHelp {
		name, _, _ := strings.Cut(h[0], " ")
		out = append(out, name)
	}
	keywords := sql.Keywords()
	sort.Strings(keywords)
	return append(out, keywords...)
}
