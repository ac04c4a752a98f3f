// Package main is the entry point for the pdfstruct CLI.
package main

import (
	"os"

	"github.com/jmylchreest/pdfstruct/cmd/pdfstruct/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
