package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alex-abrams711/synapse/internal/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes: 0 allow, 1 usage or configuration error, 2 blocking verdict.
const exitBlocked = 2

func main() {
	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		if errors.Is(err, cli.ErrBlocked) {
			os.Exit(exitBlocked)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
