// Command postflow runs the post approval workflow from the command line.
package main

import (
	"os"

	"github.com/Iron-Ham/postflow/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(cmd.ExitCode(err))
	}
}
