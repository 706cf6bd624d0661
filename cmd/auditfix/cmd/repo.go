package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var repoCmd = &cobra.Command{
	Use:   "repo URL",
	Short: "List the code files of a public GitHub repository",
	Long: `List the code files of a public GitHub repository. URL may be a full
github.com URL (optionally with /tree/BRANCH), github.com/OWNER/REPO or
OWNER/REPO.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		listing, err := newClient().ListRepository(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printValue(out, listing)
		}

		r := listing.Repository
		fmt.Fprintf(out, "%s/%s@%s (%d files)\n\n", r.Owner, r.Repo, r.Branch, listing.TotalFiles)
		if len(listing.Files) == 0 {
			fmt.Fprintln(out, "No code files found.")
			return nil
		}

		rows := make([][]string, len(listing.Files))
		for i, f := range listing.Files {
			rows[i] = []string{f.Path, strconv.FormatInt(f.Size, 10), f.Extension}
		}
		printTable(out, []string{"PATH", "SIZE", "EXT"}, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repoCmd)
}
