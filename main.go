package main

import (
	"os"

	"github.com/focuslock/focuslock/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
