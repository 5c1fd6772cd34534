package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"backmybuild/cmd"
)

func main() {
	// A .env file is a convenience for local development, not a requirement.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
