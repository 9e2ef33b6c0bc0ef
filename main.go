package main

import (
	"os"

	"github.com/penwyp/go-xpdf-session/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(99)
	}
}
