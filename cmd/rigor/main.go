// rigor scores the mathematical rigor of proofs, notes and papers.
// Single binary: one-shot scoring, a background daemon and an HTTP API.
package main

import (
	"os"

	"github.com/corey/rigor/cmd/rigor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
