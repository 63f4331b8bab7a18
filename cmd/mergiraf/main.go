// Package main provides the mergiraf CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/predohenr/mergiraf/internal/settings"
)

// Version is the current mergiraf CLI version.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "mergiraf",
	Short:   "Syntax-aware three-way merge",
	Long:    `Mergiraf resolves merge conflicts by parsing files into syntax trees and merging at the declaration level, falling back to a line-based merge when structured merge can't produce a clean result. Files in an unsupported language are reported as an error and not merged.`,
	Version: Version,
}

// exitCode carries the tri-state result a RunE can't express through its
// own error return alone: 0 clean, 1 conflicts remain (not a Go error),
// negative on a hard failure (which also returns a non-nil error, printed
// by main before exiting).
var exitCode int

func init() {
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(languagesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
	os.Exit(exitCode)
}

// attemptsCacheDir returns the on-disk root for the attempts cache,
// `~/.cache/mergiraf/attempts` (spec §6 "Persisted state").
func attemptsCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(dir, "mergiraf", "attempts"), nil
}

// loadSettings layers the optional user config file over the built-in
// defaults (spec §6, "Configuration as a record" in SPEC_FULL.md).
func loadSettings() (settings.Config, error) {
	path, err := settings.ConfigPath()
	if err != nil {
		return settings.DefaultConfig(), nil
	}
	return settings.LoadConfig(path)
}

// mergirafDisabled reports whether the `mergiraf=0` or legacy
// MERGIRAF_DISABLE environment variables opt out of structured merging
// (supplemented feature 2).
func mergirafDisabled() bool {
	if v, ok := os.LookupEnv("mergiraf"); ok && v == "0" {
		return true
	}
	if _, ok := os.LookupEnv("MERGIRAF_DISABLE"); ok {
		return true
	}
	return false
}

// legacyPlaceholders are the literal merge-driver placeholders Git passed
// unexpanded in place of revision names before Git 2.44
// (supplemented feature 1).
var legacyPlaceholders = map[string]bool{
	"%S": true,
	"%X": true,
	"%Y": true,
	"%P": true,
}

// resolveRevisionName falls back to def and warns when name is one of
// Git's old literal merge-driver placeholders instead of a real name.
func resolveRevisionName(name, def string) string {
	if legacyPlaceholders[name] {
		fmt.Fprintf(os.Stderr, "warning: your Git passed the literal placeholder %q instead of a revision name; upgrade to Git >= 2.44 for named revisions. Using %q.\n", name, def)
		return def
	}
	if name == "" {
		return def
	}
	return name
}
