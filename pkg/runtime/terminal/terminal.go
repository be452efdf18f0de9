package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/compliance-atlas/pkg/terminal/commands"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	env     *commands.Env
	opts    Options
	verbose bool
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Build    commands.EngineFactory
	Registry commands.RegistryFactory
	Input    io.Reader
	Output   io.Writer
	Errors   io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Errors == nil {
		opts.Errors = os.Stderr
	}

	cli := &CLI{
		opts: opts,
		env: &commands.Env{
			Build:    opts.Build,
			Registry: opts.Registry,
		},
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Run executes the command line and returns the process exit code.
func (cli *CLI) Run(ctx context.Context, args []string) int {
	cli.rootCmd.SetArgs(args)
	err := cli.rootCmd.ExecuteContext(ctx)
	if err != nil && !silent(err) {
		fmt.Fprintf(cli.opts.Errors, "Error: %v\n", err)
	}
	return commands.ExitCode(err)
}

// silent exit errors only carry a status, e.g. "issues were found".
func silent(err error) bool {
	var exitErr *commands.ExitError
	return errors.As(err, &exitErr) && exitErr.Err == nil
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "compliance",
		Short:         "Cloud resource compliance scanner",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := zerolog.WarnLevel
			if cli.verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cli.opts.Errors, NoColor: cli.env.NoColor}).
				Level(level).
				With().Timestamp().Logger()
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}
	cmd.SetIn(cli.opts.Input)
	cmd.SetOut(cli.opts.Output)
	cmd.SetErr(cli.opts.Errors)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &commands.ExitError{Code: commands.ExitSetup, Err: err}
	})

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cli.env.ConfigPath, "config", "c", "", "Path to a settings file (yaml, toml or json)")
	flags.StringVar(&cli.env.Region, "region", "", "AWS region to scan")
	flags.StringVar(&cli.env.Profile, "profile", "", "AWS shared config profile")
	flags.BoolVar(&cli.env.NoColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&cli.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(commands.NewScanCmd(cli.env))
	cmd.AddCommand(commands.NewEvaluateCmd(cli.env))
	cmd.AddCommand(commands.NewHistoryCmd(cli.env))
	cmd.AddCommand(commands.NewProfilesCmd(cli.env))

	return cmd
}
