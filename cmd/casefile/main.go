// Command casefile extracts structured case fields from report documents
// and prints aggregate counts over the results.
package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/casefile/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
