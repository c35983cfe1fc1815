package main

import (
	"celtrix/cmd" // CLI commands and execution
)

// main is the program entry point. It delegates to cmd.Execute, which parses
// the command line and exits non-zero on failure.
//
// celtrix scaffolds full-stack web projects:
//   - Checks that the tools a stack needs (node, python, pip, the package manager) are installed
//   - Runs the stack's generator and install commands in a fresh project directory
//   - Patches the generated files (settings, routes, Vite config, package.json) idempotently
//   - Writes .env files and a .celtrix.json manifest describing the run
//
// A failed run removes the project directory, so a retry starts clean.
func main() {
	cmd.Execute()
}
