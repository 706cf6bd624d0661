package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auditfix/auditfix-gateway/pkg/client"
)

var (
	fixFile     string
	fixMessage  string
	fixSeverity string
	fixLine     int
	fixColumn   int
	fixLanguage string
	fixWrite    bool
)

// languageByExt maps file extensions to the language named in the prompt.
var languageByExt = map[string]string{
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".go":   "go",
	".java": "java",
	".php":  "php",
	".rb":   "ruby",
	".cs":   "csharp",
	".cpp":  "cpp",
	".c":    "c",
	".rs":   "rust",
	".kt":   "kotlin",
}

func detectLanguage(path string) string {
	return languageByExt[strings.ToLower(filepath.Ext(path))]
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Generate an AI fix for a reported issue",
	Long: `Send a file and one of its reported issues to the gateway and print the
suggested fix. With --write the fixed code replaces the file content.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(fixFile)
		if err != nil {
			return err
		}

		lang := fixLanguage
		if lang == "" {
			lang = detectLanguage(fixFile)
		}

		fix, err := newClient().GenerateFix(cmd.Context(), client.FixRequest{
			OriginalCode: string(content),
			Issue: &client.Issue{
				Message:  fixMessage,
				Severity: fixSeverity,
				Line:     fixLine,
				Column:   fixColumn,
			},
			FileName: filepath.Base(fixFile),
			Language: lang,
		})
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Fallback {
				return fmt.Errorf("fix generation unavailable, review the issue manually: %w", err)
			}
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			if err := printValue(out, fix); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "Explanation:\n  %s\n\n", fix.Explanation)
			if len(fix.Recommendations) > 0 {
				fmt.Fprintln(out, "Recommendations:")
				for _, r := range fix.Recommendations {
					fmt.Fprintf(out, "  - %s\n", r)
				}
				fmt.Fprintln(out)
			}
			if !fixWrite {
				fmt.Fprintf(out, "Fixed code:\n%s\n", fix.FixedCode)
			}
		}

		if fixWrite {
			info, err := os.Stat(fixFile)
			if err != nil {
				return err
			}
			if err := os.WriteFile(fixFile, []byte(fix.FixedCode), info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to write fix: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote fix to %s\n", fixFile)
		}
		return nil
	},
}

func init() {
	fixCmd.Flags().StringVarP(&fixFile, "file", "f", "", "Source file (required)")
	fixCmd.Flags().StringVarP(&fixMessage, "message", "m", "", "Issue message (required)")
	fixCmd.Flags().StringVarP(&fixSeverity, "severity", "s", "medium", "Issue severity")
	fixCmd.Flags().IntVarP(&fixLine, "line", "l", 0, "Issue line")
	fixCmd.Flags().IntVar(&fixColumn, "column", 0, "Issue column")
	fixCmd.Flags().StringVar(&fixLanguage, "language", "", "Source language (default: detected from extension)")
	fixCmd.Flags().BoolVarP(&fixWrite, "write", "w", false, "Overwrite the file with the fixed code")
	_ = fixCmd.MarkFlagRequired("file")
	_ = fixCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(fixCmd)
}
