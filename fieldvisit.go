package fieldvisit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldvisit/pkg/provision"
	"github.com/goliatone/go-fieldvisit/pkg/reference"
	"github.com/goliatone/go-fieldvisit/pkg/store"
	"github.com/goliatone/go-fieldvisit/pkg/submission"
	"github.com/goliatone/go-fieldvisit/pkg/wizard"
)

// Version is the module version reported by the CLI.
const Version = "0.1.0"

// Session aliases the wizard session for callers that only import the root
// package.
type Session = wizard.Session

// StepDefinition aliases the wizard step config type.
type StepDefinition = wizard.StepDefinition

// Row aliases the flattened submission row.
type Row = submission.Row

// AssetFile aliases the media payload passed to the upload stage.
type AssetFile = submission.AssetFile

// ErrAborted is returned when the operator cancels the wizard.
var ErrAborted = wizard.ErrAborted

// Config wires one deployment: the backing stores, the destination table and
// folder, and the step definitions driving the wizard.
type Config struct {
	Tabular      store.Tabular
	Files        store.Files
	TableID      string
	RootFolderID string

	// Steps defaults to the built-in observation steps when empty.
	Steps []wizard.StepDefinition

	// Driver defaults to the interactive terminal driver when nil.
	Driver wizard.PromptDriver

	Logger *zap.Logger
}

// App bundles the reference loader, wizard and submission pipeline for one
// configured deployment.
type App struct {
	steps    []wizard.StepDefinition
	machine  *wizard.Machine
	loader   *reference.Loader
	pipeline *submission.Pipeline
	driver   wizard.PromptDriver
	logger   *zap.Logger
}

// New validates the config and assembles an App.
func New(cfg Config) (*App, error) {
	if cfg.Tabular == nil {
		return nil, fmt.Errorf("fieldvisit: tabular store is required")
	}
	if cfg.TableID == "" {
		return nil, fmt.Errorf("fieldvisit: table id is required")
	}

	steps := cfg.Steps
	if len(steps) == 0 {
		steps = wizard.DefaultSteps()
	}
	machine, err := wizard.NewMachine(steps)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := cfg.Driver
	if driver == nil {
		driver = wizard.NewSurveyDriver()
	}

	loader, err := reference.NewLoader(cfg.Tabular, cfg.TableID, reference.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	var prov *provision.Provisioner
	if cfg.Files != nil {
		prov, err = provision.NewProvisioner(cfg.Files, provision.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}
	pipeline, err := submission.NewPipeline(steps, cfg.Tabular, cfg.Files, prov, cfg.TableID, cfg.RootFolderID,
		submission.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &App{
		steps:    steps,
		machine:  machine,
		loader:   loader,
		pipeline: pipeline,
		driver:   driver,
		logger:   logger,
	}, nil
}

// Steps returns the step definitions the app runs with.
func (a *App) Steps() []wizard.StepDefinition {
	return append([]wizard.StepDefinition(nil), a.steps...)
}

// Collect loads reference data and walks the operator through every step.
// The returned session is ready to submit; ErrAborted means the operator
// cancelled.
func (a *App) Collect(ctx context.Context) (*wizard.Session, error) {
	data, err := a.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	runner, err := wizard.NewRunner(a.machine, a.driver,
		wizard.WithReferenceData(data),
		wizard.WithRunnerLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}

// Submit uploads the session's staged assets and appends the flattened row.
// Assets carry the file bytes for everything staged during Collect. On
// success the session is reset to its initial state; on failure it is left
// untouched so the caller can retry.
func (a *App) Submit(ctx context.Context, sess *wizard.Session, assets []submission.AssetFile) (submission.Row, error) {
	if err := a.pipeline.UploadAssets(ctx, sess, assets); err != nil {
		return nil, err
	}
	row, err := a.pipeline.Submit(ctx, sess)
	if err != nil {
		return nil, err
	}
	a.machine.Reset(sess)
	return row, nil
}
