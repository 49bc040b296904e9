// Command accordion serves the list-backed accordion widget and manages its lists.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/accordion/cmd/accordion/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
