package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/de-tools/compliance-atlas/pkg/metrics"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/alert"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
	"github.com/de-tools/compliance-atlas/pkg/services/evaluator"
	"github.com/de-tools/compliance-atlas/pkg/services/inventory"
	inventoryaws "github.com/de-tools/compliance-atlas/pkg/services/inventory/aws"
	"github.com/de-tools/compliance-atlas/pkg/services/report"
	"github.com/de-tools/compliance-atlas/pkg/services/rules"
	"github.com/de-tools/compliance-atlas/pkg/services/scan"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb/evaluation"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb/scanrun"
	storedynamodb "github.com/de-tools/compliance-atlas/pkg/store/dynamodb"
	"github.com/de-tools/compliance-atlas/pkg/store/history"
	"github.com/rs/zerolog"
)

// Options select which collaborators an entry point needs.
type Options struct {
	// Types limits the inventory sources; empty means all.
	Types     []domain.ResourceType
	Inventory bool
	Steps     scan.Steps
	Metrics   *metrics.Collector
}

// Engine is a fully wired orchestrator plus the resources it owns.
type Engine struct {
	Orchestrator *scan.Orchestrator
	Runs         scanrun.Store
	db           *sql.DB
}

func (e *Engine) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

var openDB = duckdb.NewDB

// Build constructs the engine. Every failure wraps domain.ErrSetup and
// releases whatever was opened before it.
func Build(ctx context.Context, s config.Settings, opts Options) (_ *Engine, err error) {
	logger := zerolog.Ctx(ctx)
	engine := &Engine{}
	defer func() {
		if err != nil {
			engine.Close()
		}
	}()

	var awsCfg *awssdk.Config
	loadAWS := func() (awssdk.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		cfg, err := inventoryaws.LoadConfig(ctx, s.Profile, s.Region)
		if err != nil {
			return awssdk.Config{}, err
		}
		awsCfg = &cfg
		return cfg, nil
	}

	cfg := scan.EngineConfig{
		Region:    s.Region,
		Evaluator: evaluator.New(rules.Default(s.Rules)),
		Metrics:   opts.Metrics,
		FanOut:    s.FanOut,
		Steps:     opts.Steps,
	}

	if opts.Inventory {
		aws, err := loadAWS()
		if err != nil {
			return nil, err
		}
		cfg.Region = aws.Region
		enumerator, err := inventory.NewEnumerator(inventoryaws.NewSources(aws, opts.Types...)...)
		if err != nil {
			return nil, setupErr("inventory", err)
		}
		cfg.Enumerator = enumerator
	}

	store, err := buildHistory(s.History, engine, loadAWS)
	if err != nil {
		return nil, err
	}
	cfg.History = store
	cfg.Runs = engine.Runs

	if opts.Steps.Alert && s.Alert.TopicARN != "" {
		aws, err := loadAWS()
		if err != nil {
			return nil, err
		}
		transport, err := alert.NewSNSTransport(sns.NewFromConfig(aws), s.Alert.TopicARN)
		if err != nil {
			return nil, setupErr("alert transport", err)
		}
		cfg.Dispatcher = alert.NewDispatcher(transport)
	} else if opts.Steps.Alert {
		logger.Debug().Msg("no alert topic configured, alerts disabled")
	}

	if opts.Steps.Publish {
		sink, err := buildSink(s.Report, loadAWS)
		if err != nil {
			return nil, err
		}
		if sink != nil {
			cfg.Publisher = report.NewPublisher(sink, s.Report.Prefix)
		}
	}

	o, err := scan.NewOrchestrator(cfg)
	if err != nil {
		return nil, setupErr("orchestrator", err)
	}
	engine.Orchestrator = o
	return engine, nil
}

func buildHistory(s config.HistorySettings, engine *Engine, loadAWS func() (awssdk.Config, error)) (history.Store, error) {
	switch s.Backend {
	case config.HistoryNone, "":
		return nil, nil
	case config.HistoryDynamoDB:
		aws, err := loadAWS()
		if err != nil {
			return nil, err
		}
		store, err := storedynamodb.NewStore(awsdynamodb.NewFromConfig(aws), s.DynamoDBTable)
		if err != nil {
			return nil, setupErr("dynamodb history", err)
		}
		return store, nil
	case config.HistoryDuckDB:
		db, err := openDB(duckdb.Settings{DbPath: s.DuckDBPath})
		if err != nil {
			return nil, setupErr("duckdb history", err)
		}
		engine.db = db
		store, err := evaluation.NewStore(db)
		if err != nil {
			return nil, setupErr("duckdb history", err)
		}
		runs, err := scanrun.NewStore(db)
		if err != nil {
			return nil, setupErr("scan run store", err)
		}
		engine.Runs = runs
		return store, nil
	default:
		return nil, setupErr("history", fmt.Errorf("unknown backend %q", s.Backend))
	}
}

func buildSink(s config.ReportSettings, loadAWS func() (awssdk.Config, error)) (report.Sink, error) {
	switch {
	case s.Bucket != "":
		aws, err := loadAWS()
		if err != nil {
			return nil, err
		}
		sink, err := report.NewS3Sink(s3.NewFromConfig(aws), s.Bucket)
		if err != nil {
			return nil, setupErr("report sink", err)
		}
		return sink, nil
	case s.OutputDir != "":
		return report.FileSink{Dir: s.OutputDir}, nil
	default:
		return nil, nil
	}
}

func setupErr(component string, err error) error {
	if errors.Is(err, domain.ErrSetup) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrSetup, component, err)
}
