package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/bootstrap"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
)

const (
	ExitOK     = 0
	ExitIssues = 1
	ExitSetup  = 2
)

// ExitError carries a process exit code. A nil Err means there is nothing
// to print.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to the process exit code. Anything that is
// not an explicit exit status is unrecoverable.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitSetup
}

func setupFailure(err error) error {
	return &ExitError{Code: ExitSetup, Err: err}
}

type EngineFactory func(ctx context.Context, s config.Settings, opts bootstrap.Options) (*bootstrap.Engine, error)

type RegistryFactory func() (config.Registry, error)

func DefaultRegistry() (config.Registry, error) {
	return config.NewRegistry(config.DefaultPaths())
}

// Env is the state shared by every command: global flags and the factories
// used to reach the outside world.
type Env struct {
	ConfigPath string
	Region     string
	Profile    string
	NoColor    bool

	Build    EngineFactory
	Registry RegistryFactory
}

// Settings loads the configuration and applies the global flag overrides.
func (e *Env) Settings(ctx context.Context) (config.Settings, error) {
	s, err := config.Load(e.ConfigPath)
	if err != nil {
		return config.Settings{}, setupFailure(err)
	}
	if e.Region != "" {
		s.Region = e.Region
	}
	if e.Profile != "" {
		s.Profile = e.Profile
	}
	if s.Profile == "" {
		return s, nil
	}

	registry, err := e.registry()
	if err != nil {
		return config.Settings{}, setupFailure(fmt.Errorf("%w: %w", domain.ErrSetup, err))
	}
	region, err := registry.GetRegion(ctx, s.Profile)
	if err != nil {
		return config.Settings{}, setupFailure(fmt.Errorf("%w: %w", domain.ErrSetup, err))
	}
	if s.Region == "" {
		s.Region = region
	}
	return s, nil
}

func (e *Env) engine(ctx context.Context, s config.Settings, opts bootstrap.Options) (*bootstrap.Engine, error) {
	build := e.Build
	if build == nil {
		build = bootstrap.Build
	}
	engine, err := build(ctx, s, opts)
	if err != nil {
		return nil, setupFailure(err)
	}
	return engine, nil
}

func (e *Env) registry() (config.Registry, error) {
	if e.Registry != nil {
		return e.Registry()
	}
	return DefaultRegistry()
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
