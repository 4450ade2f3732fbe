package main

import (
	"os"

	"github.com/Makepad-fr/deskview/internal/cli"
)

func main() {
	// Hand the args to the command tree; it picks the exit code
	// (0 ok, 1 error, 2 usage).
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
