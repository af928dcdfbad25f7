package main

import (
	"os"
	_ "time/tzdata"

	"github.com/rustyeddy/ledger/cmd/ledger/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
