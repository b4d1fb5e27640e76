package main

// Operator CLI for the PDF text index:
//   go run ./cmd/pdfsearch install
//   go run ./cmd/pdfsearch backfill

import (
	"fmt"
	"os"

	"pdfsearch/cmd/pdfsearch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
