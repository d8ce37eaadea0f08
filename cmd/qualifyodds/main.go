package main

import (
	"fmt"
	"os"

	"github.com/rewired-gh/qualifyodds/internal/cli"
	"github.com/rewired-gh/qualifyodds/internal/logger"
)

func main() {
	err := cli.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
