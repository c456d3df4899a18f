package main

import (
	"fmt"
	"os"

	"github.com/boostv/optimizer-core/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
