package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/predohenr/mergiraf/internal/attemptscache"
	"github.com/predohenr/mergiraf/internal/bugreport"
)

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report ID_OR_FILE",
	Short: "Bundle a merge reproducer for a bug report",
	Long: `Report packs the three input revisions and every method's merged
output for a stored attempt (looked up by ID) - or, if ID_OR_FILE isn't a
known attempt id, just that one file - into a zstd-compressed tarball
suitable for attaching to an issue.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "Output archive path (default: <id>.mergiraf-report.tar.zst)")
}

func runReport(cmd *cobra.Command, args []string) error {
	id := args[0]

	files, out, err := gatherReportFiles(id)
	if err != nil {
		return err
	}

	bundle, err := bugreport.Build(files)
	if err != nil {
		return fmt.Errorf("building bug report: %w", err)
	}

	if reportOutput != "" {
		out = reportOutput
	}
	if err := os.WriteFile(out, bundle, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(bundle))
	return nil
}

func gatherReportFiles(id string) ([]bugreport.File, string, error) {
	dir, err := attemptsCacheDir()
	if err == nil {
		if cache, err := attemptscache.Open(dir); err == nil {
			defer cache.Close()
			if _, err := cache.Get(id); err == nil {
				files, err := filesUnder(cache.Dir(id))
				if err != nil {
					return nil, "", err
				}
				return files, id + ".mergiraf-report.tar.zst", nil
			}
		}
	}

	content, err := os.ReadFile(id)
	if err != nil {
		return nil, "", fmt.Errorf("%s is neither a known attempt id nor a readable file: %w", id, err)
	}
	name := filepath.Base(id)
	return []bugreport.File{{Name: name, Content: content}}, name + ".mergiraf-report.tar.zst", nil
}

func filesUnder(dir string) ([]bugreport.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading attempt dir %s: %w", dir, err)
	}
	var out []bugreport.File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		out = append(out, bugreport.File{Name: e.Name(), Content: content})
	}
	return out, nil
}
