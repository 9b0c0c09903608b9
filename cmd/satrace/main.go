package main

import (
	"os"

	"github.com/blockberries/satrace/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
