// Command compound operates an auto-compounding staking pool ledger.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/compound/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
