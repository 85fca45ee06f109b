package main

import (
	"fmt"
	"os"

	"github.com/medfocus/medgenie/cmd/medgenie/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
