package main

import (
	"os"

	"github.com/charlontank/wakeguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
