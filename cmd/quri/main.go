// Command quri compiles filter expressions into whitelisted SQL.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/quri/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
