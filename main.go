package main

import (
	"fmt"
	"os"

	"jarvis/cmd"
)

const Version = "v0.01.00"

func main() {
	if err := cmd.Execute(Version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
