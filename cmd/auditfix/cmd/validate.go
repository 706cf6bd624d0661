package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/auditfix/auditfix-gateway/pkg/filecheck"
)

// validateFile checks a local file without reading its content.
func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return filecheck.Validate(filepath.Base(path), info.Size())
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check files against the upload rules",
	Long: `Check that each file is at most 5MB, has a supported extension and is
not empty. Nothing is sent to the gateway.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		rows := make([][]string, 0, len(args))
		for _, path := range args {
			status := "ok"
			if err := validateFile(path); err != nil {
				status = err.Error()
				failed++
			}
			rows = append(rows, []string{path, status})
		}

		if output == "json" {
			result := make(map[string]string, len(rows))
			for _, r := range rows {
				result[r[0]] = r[1]
			}
			if err := printValue(out, result); err != nil {
				return err
			}
		} else {
			printTable(out, []string{"FILE", "RESULT"}, rows)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
