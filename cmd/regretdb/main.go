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
Package main is the entry point for the RegretDB interactive shell.

Startup Flow:
=============

 1. Load configuration: defaults, then config file, then REGRETDB_*
    environment variables, then command-line flags
 2. Configure logging
 3. Open the session; an existing snapshot is restored and checked
 4. Optionally start the metrics and health HTTP endpoints
 5. Run one statement (-e), a script (-f), or the REPL

Command-Line Flags:
===================

	-c             path to a configuration file
	-e             execute one input and exit
	-f             execute a script file (plain or gzip) and exit
	-snapshot      snapshot file (overrides snapshot_path)
	-autosave      write the snapshot after every change
	-metrics-addr  serve /metrics and /health on this address, e.g. :9090
	-log-level     debug, info, warn or error
	-no-color      disable ANSI colors
	-init          create a configuration file interactively and exit
	-version       print the version and exit

REPL:
=====

On a terminal the shell uses readline for history, editing and tab
completion of commands and keywords. When stdin is not a terminal it
reads lines plainly, so scripts can be piped in.
*/
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"regretdb/internal/banner"
	"regretdb/internal/compression"
	"regretdb/internal/config"
	"regretdb/internal/health"
	"regretdb/internal/logging"
	"regretdb/internal/metrics"
	"regretdb/internal/shell"
	"regretdb/internal/wizard"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("c", "", "Path to configuration file")
	execute := flag.String("e", "", "Execute one input and exit")
	script := flag.String("f", "", "Execute a script file and exit")
	snapshot := flag.String("snapshot", "", "Snapshot file (overrides snapshot_path)")
	autosave := flag.Bool("autosave", false, "Write the snapshot after every change")
	metricsAddr := flag.String("metrics-addr", "", "Serve /metrics on this address")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	noColor := flag.Bool("no-color", false, "Disable ANSI colors")
	initConfig := flag.Bool("init", false, "Create a configuration file interactively")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("regretdb version %s\n", banner.Version)
		return 0
	}

	cfgMgr := config.Global()
	if err := cfgMgr.Load(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	cfg := cfgMgr.Get()

	// Flags explicitly set on the command line win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "snapshot":
			cfg.SnapshotPath = *snapshot
		case "autosave":
			cfg.Autosave = *autosave
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	cfgMgr.Set(cfg)

	if *initConfig {
		return runWizard(cfg, !*noColor && term.IsTerminal(int(os.Stdout.Fd())))
	}

	interactive := *execute == "" && *script == "" && isTerminal()
	color := !*noColor && term.IsTerminal(int(os.Stdout.Fd()))

	logging.Configure(logging.Config{
		Level:    logging.ParseLevel(cfg.LogLevel),
		Output:   os.Stderr,
		JSONMode: cfg.LogJSON,
		Color:    color,
	})
	log := logging.NewLogger("main")
	if cfg.ConfigFile != "" {
		log.Info("Configuration loaded", "file", cfg.ConfigFile)
	}

	sess, err := shell.NewSession(cfg, os.Stdout, color)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *metricsAddr != "" {
		checker := health.NewChecker(banner.Version)
		checker.RegisterCheck("integrity", health.IntegrityCheck(sess.Inspect))
		checker.RegisterCheck("snapshot", health.SnapshotCheck(sess.SnapshotPath()))

		srv := metrics.NewServer(*metricsAddr, sess.Engine().Metrics())
		srv.Handle("/health", checker.Handler())
		srv.Handle("/health/", checker.Handler())
		if err := srv.Start(); err != nil {
			log.Error("Failed to start metrics server", "error", err)
			return 1
		}
		defer srv.Stop()
	}

	switch {
	case *execute != "":
		return exitCode(runInput(sess, *execute))
	case *script != "":
		data, err := readScript(*script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read script: %v\n", err)
			return 1
		}
		return exitCode(sess.Exec(string(data)))
	case interactive:
		banner.PrintWithConfig(os.Stdout, cfg, color)
		runREPL(sess, cfg)
	default:
		runSimpleREPL(sess, os.Stdin)
	}
	return 0
}

func runWizard(cfg *config.Config, color bool) int {
	edited, path := wizard.New(os.Stdin, os.Stdout, color).Run(cfg)
	if path == "" {
		fmt.Println("Configuration not saved.")
		return 0
	}
	if err := wizard.Save(edited, path); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save configuration: %v\n", err)
		return 1
	}
	fmt.Printf("Configuration saved to %s\n", path)
	return 0
}

func runInput(sess *shell.Session, input string) error {
	if strings.HasPrefix(strings.TrimSpace(input), `\`) {
		sess.Handle(input)
		return nil
	}
	return sess.Exec(input)
}

// readScript reads a script file, decompressing it when it is gzip.
func readScript(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return compression.ReadAll(f)
}

func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

// isTerminal returns true if stdin is a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func createReadlineInstance(historyFile string) (*readline.Instance, error) {
	items := make([]readline.PrefixCompleterInterface, 0, 64)
	for _, word := range shell.Completions() {
		items = append(items, readline.PcItem(word))
	}

	return readline.NewEx(&readline.Config{
		Prompt:              "regretdb> ",
		HistoryFile:         historyFile,
		AutoComplete:        readline.NewPrefixCompleter(items...),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
}

// filterInput disables Ctrl+Z.
func filterInput(r rune) (rune, bool) {
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}

func runREPL(sess *shell.Session, cfg *config.Config) {
	rl, err := createReadlineInstance(cfg.HistoryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Advanced line editing unavailable: %v\n", err)
		runSimpleREPL(sess, os.Stdin)
		return
	}
	defer rl.Close()

	fmt.Printf("  Type %s to quit, %s for help, Tab for completion\n\n", `\q`, `\h`)

	var reader shell.Reader
	for {
		if reader.InProgress() {
			rl.SetPrompt("      -> ")
		} else {
			rl.SetPrompt("regretdb> ")
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if reader.InProgress() {
				reader.Reset()
				continue
			}
			fmt.Println(`(Use \q to quit or Ctrl+D to exit)`)
			continue
		}
		if err != nil {
			if input, ok := reader.Flush(); ok {
				sess.Handle(input)
			}
			fmt.Println("Goodbye!")
			return
		}

		input, ok := reader.Add(line)
		if !ok {
			continue
		}
		if sess.Handle(input) {
			fmt.Println("Goodbye!")
			return
		}
	}
}

// runSimpleREPL reads plain lines from r, for piped input or when readline
// is unavailable.
func runSimpleREPL(sess *shell.Session, r io.Reader) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		os.Exit(130)
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var reader shell.Reader
	for scanner.Scan() {
		input, ok := reader.Add(scanner.Text())
		if !ok {
			continue
		}
		if sess.Handle(input) {
			return
		}
	}
	if input, ok := reader.Flush(); ok {
		sess.Handle(input)
	}
}
