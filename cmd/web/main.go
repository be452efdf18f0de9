package main

import (
	"fmt"
	"net"
	"os"

	"github.com/de-tools/compliance-atlas/pkg/metrics"
	"github.com/de-tools/compliance-atlas/pkg/server"
	"github.com/de-tools/compliance-atlas/pkg/services/bootstrap"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
	"github.com/de-tools/compliance-atlas/pkg/services/scan"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the compliance evaluation web server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to a settings file (yaml, toml or json)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	collector := metrics.NewCollector()
	engine, err := bootstrap.Build(ctx, settings, bootstrap.Options{
		Steps:   scan.Steps{Persist: true},
		Metrics: collector,
	})
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	defer engine.Close()

	logger.Info().
		Str("history", settings.History.Backend).
		Msg("compliance engine ready")

	addr := settings.Server.Addr
	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")
	if port != "" {
		addr = net.JoinHostPort(host, port)
	}

	api := server.NewWebAPI(server.Config{
		Addr: addr,
		Dependencies: server.Dependencies{
			Engine:   engine.Orchestrator,
			Severity: engine.Orchestrator.Config().Evaluator.Catalog().Severity,
			Metrics:  collector.Handler(),
			Logger:   logger,
		},
	})
	return api.Start()
}
