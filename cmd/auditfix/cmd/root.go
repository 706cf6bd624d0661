// Package cmd contains all CLI commands for auditfix.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auditfix/auditfix-gateway/pkg/client"
)

var (
	// Global flags
	gatewayURL string
	output     string
)

func newClient() *client.Client {
	return client.New(gatewayURL)
}

// printJSON formats and prints JSON output
func printJSON(w io.Writer, data []byte) error {
	var formatted bytes.Buffer
	if err := json.Indent(&formatted, data, "", "  "); err != nil {
		// If it's not valid JSON, just print as-is
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, formatted.String())
	return err
}

// printValue marshals v and prints it as indented JSON
func printValue(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return printJSON(w, data)
}

// printTable prints data in a simple table format
func printTable(w io.Writer, headers []string, rows [][]string) {
	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		fmt.Fprintf(w, "%-*s  ", widths[i], h)
	}
	fmt.Fprintln(w)

	for i := range headers {
		fmt.Fprintf(w, "%s  ", strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(w, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w)
	}
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "auditfix",
	Short: "CLI client for the AuditFix gateway",
	Long: `auditfix is a command-line client for the AuditFix gateway.

It provides commands to:
  - Validate source files before upload
  - Upload files for security analysis
  - Generate an AI fix for a reported issue
  - List the code files of a public GitHub repository

Examples:
  # Check which files would be accepted
  auditfix validate src/*.js

  # Analyze several files, four uploads at a time
  auditfix analyze --parallel 4 src/*.go

  # Ask for a fix of an issue on line 12
  auditfix fix --file app.js --message "Use of eval" --severity high --line 12

  # List a repository
  auditfix repo https://github.com/octocat/hello-world

Environment Variables:
  AUDITFIX_URL  Base URL of the gateway (default: http://localhost:8080)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&gatewayURL, "url", "u", getEnvOrDefault("AUDITFIX_URL", "http://localhost:8080"), "Gateway base URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format: table, json")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
