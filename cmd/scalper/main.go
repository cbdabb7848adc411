package main

import (
	"os"

	"github.com/rustyeddy/scalper/cmd/scalper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
