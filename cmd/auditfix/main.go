// Package main provides the auditfix CLI for the AuditFix gateway.
package main

import (
	"os"

	"github.com/auditfix/auditfix-gateway/cmd/auditfix/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
