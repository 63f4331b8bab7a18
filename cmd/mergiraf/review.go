package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/predohenr/mergiraf/internal/attemptscache"
)

var reviewCmd = &cobra.Command{
	Use:   "review ID",
	Short: "Diff a stored attempt's best result against its line-based baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	id := args[0]

	dir, err := attemptsCacheDir()
	if err != nil {
		return err
	}
	cache, err := attemptscache.Open(dir)
	if err != nil {
		return fmt.Errorf("opening attempts cache: %w", err)
	}
	defer cache.Close()

	attempt, err := cache.Get(id)
	if err != nil {
		return err
	}
	if attempt.BestMethod == "" {
		return fmt.Errorf("attempt %s has no recorded best result", id)
	}

	attemptDir := cache.Dir(id)
	baseline, err := readMerged(attemptDir, "line_based")
	if err != nil {
		return err
	}
	best, err := readMerged(attemptDir, attempt.BestMethod)
	if err != nil {
		return err
	}

	fmt.Printf("attempt %s (%s), best method: %s\n\n", attempt.ID, attempt.Path, attempt.BestMethod)
	if attempt.BestMethod == "line_based" {
		fmt.Println("the best result is already the line-based baseline; nothing to compare")
		return nil
	}
	printDiff(baseline, best)
	return nil
}

func readMerged(attemptDir, method string) (string, error) {
	content, err := os.ReadFile(filepath.Join(attemptDir, method+".merged"))
	if err != nil {
		return "", fmt.Errorf("reading %s result for attempt: %w", method, err)
	}
	return string(content), nil
}

// printDiff renders a +/-/space prefixed line diff between before and
// after, mirroring the line-mode diffmatchpatch usage the teacher uses
// for its own diff output, simplified to a flat listing rather than
// grouped hunks.
func printDiff(before, after string) {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	diffs = dmp.DiffCleanupSemantic(diffs)

	for _, d := range diffs {
		lines := strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n")
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			prefix = "  "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range lines {
			fmt.Println(prefix + line)
		}
	}
}
