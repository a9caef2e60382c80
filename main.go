// ./main.go
package main

import (
	"github.com/finagg/portalagent/cmd"
)

// main is the entry point for the portalagent CLI.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
