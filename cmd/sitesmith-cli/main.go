// Command sitesmith-cli generates websites through a sitesmith service and
// renders the streamed analysis, code and summary in the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/MikeSquared-Agency/sitesmith/cmd/sitesmith-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
