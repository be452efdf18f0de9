package main

import (
	"context"
	"os"

	"github.com/de-tools/compliance-atlas/pkg/runtime/terminal"
	"github.com/de-tools/compliance-atlas/pkg/services/bootstrap"
	"github.com/de-tools/compliance-atlas/pkg/terminal/commands"
)

func main() {
	cli := terminal.NewCLI(terminal.Options{
		Build:    bootstrap.Build,
		Registry: commands.DefaultRegistry,
		Output:   os.Stdout,
		Errors:   os.Stderr,
	})

	os.Exit(cli.Run(context.Background(), os.Args[1:]))
}
