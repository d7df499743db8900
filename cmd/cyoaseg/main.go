package main

import (
	"fmt"
	"os"
)

// Set by the linker: -ldflags "-X main.buildVersion=..."
var buildVersion = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
}
