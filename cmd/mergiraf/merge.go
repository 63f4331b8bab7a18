package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/predohenr/mergiraf/internal/attemptscache"
	"github.com/predohenr/mergiraf/internal/lang"
	"github.com/predohenr/mergiraf/internal/pipeline"
	"github.com/predohenr/mergiraf/internal/settings"
)

var (
	mergeFast      bool
	mergeCompact   bool
	mergeGit       bool
	mergeOutput    string
	mergePathName  string
	mergeBaseName  string
	mergeLeftName  string
	mergeRightName string
	mergeTimeoutMS int
)

var mergeCmd = &cobra.Command{
	Use:   "merge BASE LEFT RIGHT",
	Short: "Three-way merge of three files",
	Long: `Merge parses BASE, LEFT and RIGHT with the language detected from
--path-name (or LEFT's own path) and merges them at the declaration level,
falling back to a line-based merge if the structured merge can't produce a
clean result. If the language isn't supported, it reports an error and
merges nothing.

Examples:
  mergiraf merge base.go left.go right.go
  mergiraf merge base.py left.py right.py --output merged.py --compact`,
	Args: cobra.ExactArgs(3),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeFast, "fast", false, "Skip structured merge and use the line-based fallback directly")
	mergeCmd.Flags().BoolVar(&mergeCompact, "compact", false, "Move lines shared by all revisions out of the start and end of each conflict")
	mergeCmd.Flags().BoolVar(&mergeGit, "git", false, "Being invoked as a Git merge driver: tolerate Git's legacy %S/%X/%Y placeholders in the name flags")
	mergeCmd.Flags().StringVar(&mergeOutput, "output", "", "Write the merged result here instead of stdout")
	mergeCmd.Flags().StringVar(&mergePathName, "path-name", "", "Path to use for language detection (defaults to LEFT's own path)")
	mergeCmd.Flags().StringVar(&mergeBaseName, "base-name", "", "Revision name shown for BASE in conflict markers")
	mergeCmd.Flags().StringVar(&mergeLeftName, "left-name", "", "Revision name shown for LEFT in conflict markers")
	mergeCmd.Flags().StringVar(&mergeRightName, "right-name", "", "Revision name shown for RIGHT in conflict markers")
	mergeCmd.Flags().IntVar(&mergeTimeoutMS, "timeout", 0, "Structured-merge timeout in milliseconds (default 5000)")
}

func runMerge(cmd *cobra.Command, args []string) error {
	baseFile, leftFile, rightFile := args[0], args[1], args[2]

	baseContent, err := os.ReadFile(baseFile)
	if err != nil {
		return fmt.Errorf("reading base file: %w", err)
	}
	leftContent, err := os.ReadFile(leftFile)
	if err != nil {
		return fmt.Errorf("reading left file: %w", err)
	}
	rightContent, err := os.ReadFile(rightFile)
	if err != nil {
		return fmt.Errorf("reading right file: %w", err)
	}

	if mergirafDisabled() {
		logrus.Warn("mergiraf disabled via environment, falling back to git merge-file")
		return fallbackToGitMergeFile(baseFile, leftFile, rightFile)
	}

	pathName := mergePathName
	if pathName == "" {
		pathName = leftFile
	}
	profile, err := lang.Detect(pathName)
	if err != nil {
		return err
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	overrides := settings.DisplaySettings{Compact: mergeCompact}
	if mergeGit {
		overrides.BaseName = resolveRevisionName(mergeBaseName, "base")
		overrides.LeftName = resolveRevisionName(mergeLeftName, "left")
		overrides.RightName = resolveRevisionName(mergeRightName, "right")
	} else {
		overrides.BaseName = mergeBaseName
		overrides.LeftName = mergeLeftName
		overrides.RightName = mergeRightName
	}
	cfg, err = settings.ApplyCLIOverrides(cfg, overrides)
	if err != nil {
		return err
	}
	ds := cfg.Display

	timeout := pipeline.DefaultTimeout
	if mergeTimeoutMS > 0 {
		timeout = time.Duration(mergeTimeoutMS) * time.Millisecond
	}

	var result *pipeline.MergeResult
	if mergeFast {
		result = pipeline.LineBasedMerge(baseContent, leftContent, rightContent, profile, ds)
	} else {
		result = pipeline.ResolveCascading(baseContent, leftContent, rightContent, profile, ds, cfg.Matcher, timeout)
	}

	// review diffs the best result against the line-based one, so that
	// baseline is stored even when another method won.
	results := []*pipeline.MergeResult{result}
	if result.Method != pipeline.MethodLineBased {
		results = append(results, pipeline.LineBasedMerge(baseContent, leftContent, rightContent, profile, ds))
	}
	recordAttempt(pathName, baseContent, leftContent, rightContent, profile, results, result)

	switch {
	case mergeOutput != "":
		if err := os.WriteFile(mergeOutput, []byte(result.Contents), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", mergeOutput, err)
		}
	case mergeGit:
		// Git's merge-driver protocol expects the driver to overwrite
		// "ours" (LEFT) in place when no explicit output path is given.
		if err := os.WriteFile(leftFile, []byte(result.Contents), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", leftFile, err)
		}
	default:
		fmt.Print(result.Contents)
	}

	if result.ConflictCount > 0 {
		exitCode = 1
	}
	if result.HasAdditionalIssues {
		fmt.Fprintf(os.Stderr, "warning: %s merge introduced a duplicate declaration; review the result\n", result.Method)
	}
	return nil
}

// fallbackToGitMergeFile shells out to Git's own merge-file helper when
// mergiraf is disabled via environment variable (supplemented feature 2).
func fallbackToGitMergeFile(base, left, right string) error {
	c := exec.Command("git", "merge-file", "--diff-algorithm=histogram", left, base, right)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
			return nil
		}
		return fmt.Errorf("running git merge-file: %w", err)
	}
	return nil
}

// recordAttempt persists every result tried plus the inputs to the
// attempts cache (spec §6 "Persisted state"), best-effort: a caching
// failure is logged and never fails the merge itself.
func recordAttempt(path string, base, left, right []byte, profile *lang.Profile, results []*pipeline.MergeResult, best *pipeline.MergeResult) {
	dir, err := attemptsCacheDir()
	if err != nil {
		logrus.Debugf("attempts cache unavailable: %v", err)
		return
	}
	cache, err := attemptscache.Open(dir)
	if err != nil {
		logrus.Debugf("opening attempts cache: %v", err)
		return
	}
	defer cache.Close()

	id, attemptDir, err := cache.NewAttempt(path)
	if err != nil {
		logrus.Debugf("recording attempt: %v", err)
		return
	}

	ext := ".txt"
	if profile != nil && len(profile.Extensions) > 0 {
		ext = "." + profile.Extensions[0]
	}
	_ = cache.StoreFile(attemptDir, "Base"+ext, base)
	_ = cache.StoreFile(attemptDir, "Left"+ext, left)
	_ = cache.StoreFile(attemptDir, "Right"+ext, right)
	for _, r := range results {
		if r == nil {
			continue
		}
		_ = cache.StoreFile(attemptDir, r.Method+".merged", []byte(r.Contents))
	}
	if best != nil {
		if err := cache.MarkBest(id, attemptDir, best.Method, best.HasAdditionalIssues); err != nil {
			logrus.Debugf("marking best attempt: %v", err)
		}
	}
	logrus.Debugf("recorded attempt %s for %s under %s", id, path, filepath.Dir(attemptDir))
}
