package main

import (
	"os"

	"github.com/v0idum/nft-transfers-tracker/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
