package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	analyzeParallel  int
	analyzeKeepGoing bool
)

type analyzeResult struct {
	File   string          `json:"file"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE...",
	Short: "Upload files for security analysis",
	Long: `Validate each file and upload it to the gateway for analysis. Uploads
run concurrently, bounded by --parallel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		results := make([]analyzeResult, len(args))

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(max(analyzeParallel, 1))

		var mu sync.Mutex
		failed := 0
		for i, path := range args {
			g.Go(func() error {
				results[i].File = path
				err := func() error {
					if err := validateFile(path); err != nil {
						return err
					}
					content, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					data, err := c.AnalyzeFile(ctx, filepath.Base(path), content)
					if err != nil {
						return err
					}
					results[i].Result = data
					return nil
				}()
				if err == nil {
					return nil
				}

				results[i].Error = err.Error()
				mu.Lock()
				failed++
				mu.Unlock()
				if analyzeKeepGoing {
					return nil
				}
				return fmt.Errorf("%s: %w", path, err)
			})
		}
		groupErr := g.Wait()

		out := cmd.OutOrStdout()
		if output == "json" {
			if err := printValue(out, results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				switch {
				case r.Error != "":
					fmt.Fprintf(out, "== %s: FAILED: %s\n", r.File, r.Error)
				case r.Result != nil:
					fmt.Fprintf(out, "== %s\n", r.File)
					if err := printJSON(out, r.Result); err != nil {
						return err
					}
				}
			}
		}

		if groupErr != nil {
			return groupErr
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeParallel, "parallel", "p", 4, "Maximum concurrent uploads")
	analyzeCmd.Flags().BoolVar(&analyzeKeepGoing, "keep-going", false, "Continue after a failed upload")
	rootCmd.AddCommand(analyzeCmd)
}
