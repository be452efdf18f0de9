package commands

import (
	"encoding/json"
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/adapters"
	"github.com/de-tools/compliance-atlas/pkg/models/api"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/bootstrap"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type EvaluateCmd struct {
	env     *Env
	file    string
	persist bool
}

func NewEvaluateCmd(env *Env) *cobra.Command {
	ec := &EvaluateCmd{env: env}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a single resource descriptor read from a file or stdin",
		RunE:  ec.run,
	}

	cmd.Flags().StringVarP(&ec.file, "file", "f", "", "Path to a JSON resource descriptor (default stdin)")
	cmd.Flags().BoolVar(&ec.persist, "persist", false, "Record a decisive verdict in the history store")

	return cmd
}

func (ec *EvaluateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	raw, err := readInput(ec.file, cmd.InOrStdin())
	if err != nil {
		return setupFailure(fmt.Errorf("failed to read descriptor: %w", err))
	}
	var descriptor api.Descriptor
	if err := json.Unmarshal(raw, &descriptor); err != nil {
		return setupFailure(fmt.Errorf("invalid descriptor: %w", err))
	}

	settings, err := ec.env.Settings(ctx)
	if err != nil {
		return err
	}
	if !ec.persist {
		settings.History.Backend = config.HistoryNone
	}
	engine, err := ec.env.engine(ctx, settings, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer engine.Close()

	ev := engine.Orchestrator.EvaluateResource(ctx, adapters.MapDescriptorApiToDomain(descriptor))
	response := adapters.MapEvaluationDomainToApi(ev, engine.Orchestrator.Config().Evaluator.Catalog().Severity)

	if ec.persist && ev.Verdict.Decisive() {
		if err := engine.Orchestrator.RecordEvaluation(ctx, ev); err != nil {
			logger.Error().Err(err).Str("resource_id", ev.ResourceID).Msg("failed to persist evaluation")
		} else {
			response.Persisted = true
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(response); err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}

	if ev.Verdict == domain.VerdictNonCompliant {
		return &ExitError{Code: ExitIssues}
	}
	return nil
}
