// Command pcos-screen runs PCOS pre-screenings from the command line against
// a local SQLite store, and manages the PostgreSQL schema of the server.
package main

import (
	"os"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
