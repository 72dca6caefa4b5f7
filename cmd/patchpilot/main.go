// Command patchpilot analyzes pull requests with parallel security, quality,
// and logic reviewers and prints a merge decision.
package main

import (
	"os"

	"github.com/patchpilot/patchpilot/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
