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
Package banner provides the startup banner of the RegretDB shell.

Banner Display Overview:
========================

The ASCII art logo is embedded from banner.txt at compile time. The shell
prints it followed by a short summary of the active configuration, so the
user sees where the catalog is persisted and how TEXT is compared before
typing the first statement.

ANSI Color Codes:
=================

Colors use ANSI escape sequences (\033[<code>m). Pass color=false when
the output is not a terminal.
*/
package banner

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"regretdb/internal/config"
)

//go:embed banner.txt
var banner string

// ANSI escape codes for terminal text formatting.
const (
	AnsiRed    = "\033[31m"
	AnsiGreen  = "\033[32m"
	AnsiYellow = "\033[33m"
	AnsiCyan   = "\033[36m"
	AnsiReset  = "\033[0m"
	AnsiBold   = "\033[1m"
	AnsiDim    = "\033[2m"
)

// Version information for RegretDB.
const (
	Version   = "01.26.14"
	Copyright = "(c)2026 Firefly Software Solutions Inc"
	License   = "Licensed under Apache 2.0"
)

// lineWidth is the width of section headers.
const lineWidth = 60

type painter struct {
	color bool
}

func (p painter) paint(codes, s string) string {
	if !p.color {
		return s
	}
	return codes + s + AnsiReset
}

// Logo returns the embedded ASCII art.
func Logo() string {
	return strings.TrimRight(banner, "\n")
}

// Print writes the logo, version line and copyright to w.
func Print(w io.Writer, color bool) {
	p := painter{color}
	fmt.Fprintln(w, p.paint(AnsiRed, Logo()))
	fmt.Fprintln(w, p.paint(AnsiRed+AnsiBold, ":: RegretDB ::                 (v"+Version+")"))
	fmt.Fprintln(w, p.paint(AnsiGreen+AnsiBold, Copyright))
	fmt.Fprintln(w, p.paint(AnsiGreen+AnsiBold, License))
	fmt.Fprintln(w)
}

// PrintWithConfig writes the banner followed by a summary of cfg.
func PrintWithConfig(w io.Writer, cfg *config.Config, color bool) {
	Print(w, color)
	PrintConfig(w, cfg, color)
}

// PrintConfig writes the configuration summary shown at startup and by
// the shell's \config command.
func PrintConfig(w io.Writer, cfg *config.Config, color bool) {
	p := painter{color}

	source := "defaults + environment"
	if cfg.ConfigFile != "" {
		source = cfg.ConfigFile
	}
	fmt.Fprintf(w, "  %s %s\n\n", p.paint(AnsiDim, "Config:"), p.paint(AnsiYellow, source))

	printSectionHeader(w, p, "Storage")
	snapshot := cfg.SnapshotPath
	if snapshot == "" {
		snapshot = "(memory only)"
	}
	printRow(w, p, "Snapshot", snapshot)
	printRow(w, p, "Autosave", onOff(p, cfg.Autosave))
	if cfg.EncryptionEnabled {
		printRow(w, p, "Encryption", p.paint(AnsiGreen, "AES-256-GCM"))
	} else {
		printRow(w, p, "Encryption", onOff(p, false))
	}
	fmt.Fprintln(w)

	printSectionHeader(w, p, "Engine")
	collation := cfg.Collation
	if cfg.Collation == "unicode" {
		collation += " (" + cfg.Locale + ")"
	}
	printRow(w, p, "Collation", collation)
	printRow(w, p, "Log", cfg.LogLevel)
	rows := "unlimited"
	if cfg.MaxDisplayRows > 0 {
		rows = fmt.Sprintf("%d", cfg.MaxDisplayRows)
	}
	printRow(w, p, "Max rows", rows)
	cacheSize := onOff(p, false)
	if cfg.QueryCacheSize > 0 {
		cacheSize = fmt.Sprintf("%d results", cfg.QueryCacheSize)
	}
	printRow(w, p, "Cache", cacheSize)
	fmt.Fprintln(w)
}

func printSectionHeader(w io.Writer, p painter, title string) {
	rightPad := max(0, lineWidth-len(title)-6)
	fmt.Fprintf(w, "  %s[ %s ]%s\n",
		p.paint(AnsiDim, "--"), p.paint(AnsiCyan+AnsiBold, title),
		p.paint(AnsiDim, strings.Repeat("-", rightPad)))
}

func printRow(w io.Writer, p painter, key, value string) {
	fmt.Fprintf(w, "  %s %s\n", p.paint(AnsiDim, fmt.Sprintf("%-11s", key+":")), value)
}

func onOff(p painter, on bool) string {
	if on {
		return p.paint(AnsiGreen, "on")
	}
	return p.paint(AnsiYellow, "off")
}
