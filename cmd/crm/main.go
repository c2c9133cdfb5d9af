package main

import (
	"fmt"
	"os"
)

var (
	Version    = "develop"
	CommitHash = "n/a"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crm:", err)
		os.Exit(1)
	}
}
