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
Package wizard provides the interactive configuration wizard behind
"regretdb -init".

Interactive Flow:
=================

 1. Start from the configuration already loaded (defaults, file, env)
 2. Step 1, Storage: snapshot path, autosave, encryption
 3. Step 2, Engine: collation and locale, query cache size
 4. Step 3, Shell: log level, rows per result
 5. Show the summary and ask where to save the file

Every prompt shows its current value in brackets; pressing Enter keeps it.
An invalid answer is reported and asked again. End of input accepts the
remaining defaults.

Encryption Passphrase:
======================

The passphrase is never written to the configuration file. When
encryption is enabled the wizard reminds the user to export
REGRETDB_ENCRYPTION_PASSPHRASE before starting the shell.
*/
package wizard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"regretdb/internal/banner"
	"regretdb/internal/config"
	"regretdb/internal/storage"
)

// Wizard prompts on out and reads answers from in.
type Wizard struct {
	in    *bufio.Reader
	out   io.Writer
	color bool
}

// New creates a wizard.
func New(in io.Reader, out io.Writer, color bool) *Wizard {
	return &Wizard{in: bufio.NewReader(in), out: out, color: color}
}

// Run walks through every step starting from base and returns the edited
// configuration and the path it should be saved to, or "" when the user
// declined to save.
func (w *Wizard) Run(base *config.Config) (*config.Config, string) {
	cfg := *base
	w.printHeader()

	w.stepHeader(1, "Storage")
	cfg.SnapshotPath = w.prompt("  Snapshot file (empty for memory only)", cfg.SnapshotPath)
	cfg.SnapshotPath = expandHome(cfg.SnapshotPath)
	if cfg.SnapshotPath != "" {
		cfg.Autosave = w.promptBool("  Save after every change", cfg.Autosave)
		cfg.EncryptionEnabled = w.promptBool("  Encrypt the snapshot", cfg.EncryptionEnabled)
	} else {
		cfg.Autosave = false
		cfg.EncryptionEnabled = false
	}
	fmt.Fprintln(w.out)

	w.stepHeader(2, "Engine")
	cfg.Collation = w.promptValid("  Collation (default, binary, nocase, unicode)", cfg.Collation, validateCollation)
	if cfg.Collation == string(storage.CollationUnicode) {
		cfg.Locale = w.promptValid("  Locale", cfg.Locale, func(s string) bool { return s != "" })
	}
	cfg.QueryCacheSize = w.promptInt("  Cached SELECT results (0 disables)", cfg.QueryCacheSize)
	fmt.Fprintln(w.out)

	w.stepHeader(3, "Shell")
	cfg.LogLevel = w.promptValid("  Log level (debug, info, warn, error)", cfg.LogLevel, validateLogLevel)
	cfg.MaxDisplayRows = w.promptInt("  Rows shown per result (0 for all)", cfg.MaxDisplayRows)
	fmt.Fprintln(w.out)

	w.printSummary(&cfg)

	path := cfg.ConfigFile
	if path == "" {
		path = filepath.Join(config.GetDefaultConfigDir(), "regretdb.conf")
	}
	if !w.promptBool("  Save to file", true) {
		return &cfg, ""
	}
	return &cfg, expandHome(w.prompt("  File path", path))
}

// Save validates cfg and writes it to path.
func Save(cfg *config.Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.SaveToFile(path)
}

func (w *Wizard) printHeader() {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiBold, "RegretDB configuration"))
	fmt.Fprintln(w.out, "  Press Enter to keep the value in brackets.")
	fmt.Fprintln(w.out)
}

func (w *Wizard) stepHeader(step int, title string) {
	fmt.Fprintf(w.out, "  %s\n", w.paint(banner.AnsiCyan+banner.AnsiBold, fmt.Sprintf("Step %d: %s", step, title)))
	fmt.Fprintln(w.out, "  "+strings.Repeat("-", 40))
}

func (w *Wizard) printSummary(cfg *config.Config) {
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiBold, "Summary"))
	banner.PrintConfig(w.out, cfg, w.color)
	if cfg.EncryptionEnabled {
		fmt.Fprintf(w.out, "  %s\n\n", w.paint(banner.AnsiYellow,
			"Set "+config.EnvEncryptionPassphrase+" before starting regretdb."))
	}
}

func (w *Wizard) paint(codes, s string) string {
	if !w.color {
		return s
	}
	return codes + s + banner.AnsiReset
}

// prompt displays a prompt and returns the answer or defaultVal.
func (w *Wizard) prompt(prompt, defaultVal string) string {
	fmt.Fprintf(w.out, "%s [%s]: ", prompt, w.paint(banner.AnsiYellow, defaultVal))
	input, _ := w.in.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func (w *Wizard) promptValid(prompt, defaultVal string, validate func(string) bool) string {
	for {
		value := w.prompt(prompt, defaultVal)
		if validate(value) {
			return value
		}
		w.invalid(value)
		if w.exhausted() {
			return defaultVal
		}
	}
}

func (w *Wizard) promptBool(prompt string, defaultVal bool) bool {
	def := "n"
	if defaultVal {
		def = "y"
	}
	for {
		switch strings.ToLower(w.prompt(prompt+" (y/n)", def)) {
		case "y", "yes", "true", "1":
			return true
		case "n", "no", "false", "0":
			return false
		}
		w.invalid("answer y or n")
		if w.exhausted() {
			return defaultVal
		}
	}
}

func (w *Wizard) promptInt(prompt string, defaultVal int) int {
	for {
		value := w.prompt(prompt, strconv.Itoa(defaultVal))
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
		w.invalid(value)
		if w.exhausted() {
			return defaultVal
		}
	}
}

func (w *Wizard) invalid(value string) {
	fmt.Fprintf(w.out, "  %s\n", w.paint(banner.AnsiRed, "Invalid input: "+value))
}

// exhausted reports whether the input has ended, so a retry loop cannot
// spin forever.
func (w *Wizard) exhausted() bool {
	_, err := w.in.Peek(1)
	return err != nil
}

func validateCollation(s string) bool {
	_, err := storage.ParseCollation(s)
	return err == nil
}

func validateLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
