package main

import (
	"os"

	"github.com/rustyeddy/gridbt/cmd/gridbt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
