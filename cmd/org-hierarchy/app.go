package main

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
	"github.com/iota-uz/org-hierarchy/modules/org/infrastructure/awsorg"
	"github.com/iota-uz/org-hierarchy/pkg/composables"
	"github.com/iota-uz/org-hierarchy/pkg/configuration"
)

type orgDirectory interface {
	hierarchy.Directory
	Roots(ctx context.Context) ([]hierarchy.Root, error)
}

// app holds what the commands share. Tests replace the factories.
type app struct {
	cfg    *configuration.Configuration
	logger *logrus.Logger
	stdout io.Writer
	stderr io.Writer

	newDirectory func(ctx context.Context, opts configuration.AWSOptions) (orgDirectory, error)
	connectDB    func(ctx context.Context, dsn string) (*pgxpool.Pool, error)

	closed bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:       stdout,
		stderr:       stderr,
		newDirectory: newAWSDirectory,
		connectDB:    connectDB,
	}
}

func newAWSDirectory(ctx context.Context, opts configuration.AWSOptions) (orgDirectory, error) {
	c, err := awsorg.NewFromOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (a *app) init(envFiles []string) error {
	if a.cfg == nil {
		cfg, err := configuration.Load(envFiles)
		if err != nil {
			return withCode(exitUsage, err)
		}
		a.cfg = cfg
	}
	if a.logger == nil {
		a.logger = a.cfg.Logger()
	}
	if a.logger == nil {
		a.logger = logrus.New()
		a.logger.SetOutput(a.stderr)
	}
	return nil
}

// runContext tags ctx with a fresh run id and a logger carrying it.
func (a *app) runContext(ctx context.Context) (context.Context, uuid.UUID) {
	runID := uuid.New()
	entry := a.logger.WithField("run_id", runID.String())
	ctx = composables.WithRunID(ctx, runID)
	return composables.WithLogger(ctx, entry), runID
}

func (a *app) close() {
	if a.closed || a.cfg == nil {
		return
	}
	a.closed = true
	a.cfg.Unload()
}
