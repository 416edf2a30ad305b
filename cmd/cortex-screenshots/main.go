package main

import (
	"fmt"
	"os"

	"github.com/bobmcallan/cortex-screenshots/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Screenshot failed: %v\n", err)
		os.Exit(1)
	}
}
