package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/predohenr/mergiraf/internal/lang"
)

var languagesGitattributes bool

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

func init() {
	languagesCmd.Flags().BoolVar(&languagesGitattributes, "gitattributes", false, "Print a .gitattributes snippet registering mergiraf as the merge driver for each extension")
}

func runLanguages(cmd *cobra.Command, args []string) error {
	profiles := lang.All()

	if languagesGitattributes {
		for _, p := range profiles {
			for _, ext := range p.Extensions {
				fmt.Printf("*.%s merge=mergiraf\n", ext)
			}
			for _, name := range p.SpecialFilenames {
				fmt.Printf("%s merge=mergiraf\n", name)
			}
		}
		return nil
	}

	for _, p := range profiles {
		exts := make([]string, len(p.Extensions))
		for i, e := range p.Extensions {
			exts[i] = "." + e
		}
		fmt.Printf("%-12s %s\n", p.Name, strings.Join(exts, ", "))
	}
	return nil
}
