// Command fragwatch reads and watches fragment projections over a
// normalized SQLite store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/fragwatch/internal/cli"
	"github.com/roach88/fragwatch/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	if err := cli.NewRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
