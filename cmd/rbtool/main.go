// Package main provides the entry point for the rbtool CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/rbjoin/cmd/rbtool/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
