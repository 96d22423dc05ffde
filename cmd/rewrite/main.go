// Command rewrite runs rule-driven string rewriting from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/roach88/rewrite/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
