package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
	"github.com/iota-uz/org-hierarchy/modules/org/infrastructure/persistence"
	"github.com/iota-uz/org-hierarchy/modules/org/infrastructure/sink"
	"github.com/iota-uz/org-hierarchy/modules/org/services"
	"github.com/iota-uz/org-hierarchy/pkg/composables"
	"github.com/iota-uz/org-hierarchy/pkg/logging"
	"github.com/iota-uz/org-hierarchy/pkg/metrics"
)

const stdoutPath = "-"

type exportOptions struct {
	format    string
	output    string
	verify    bool
	nameCache bool
}

type exportSummary struct {
	Status              string   `json:"status"`
	RunID               string   `json:"run_id"`
	RootID              string   `json:"root_id"`
	Format              string   `json:"format"`
	Output              string   `json:"output"`
	Rows                int      `json:"rows"`
	Accounts            int      `json:"accounts"`
	OrganizationalUnits int      `json:"organizational_units"`
	DurationMS          int64    `json:"duration_ms"`
	Violations          []string `json:"violations,omitempty"`
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Walk the organization and export the flattened hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stringsTrim(opts.format) == "" {
				opts.format = a.cfg.DefaultFormat
			}
			if !cmd.Flags().Changed("name-cache") {
				opts.nameCache = a.cfg.NameCache
			}
			return runExport(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "", "Output format: csv|jsonl|yaml|xlsx|postgres (default from ORG_EXPORT_FORMAT)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", stdoutPath, "Output file, - for stdout; ignored for postgres")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Check relation invariants and fail when any is violated")
	cmd.Flags().BoolVar(&opts.nameCache, "name-cache", false, "Memoize name lookups within the run")
	return cmd
}

func runExport(ctx context.Context, a *app, opts exportOptions) error {
	format, err := sink.ParseFormat(opts.format)
	if err != nil {
		return withCode(exitUsage, err)
	}
	output := stringsTrim(opts.output)
	if output == "" {
		output = stdoutPath
	}
	if format.Binary() && output == stdoutPath {
		return withCode(exitUsage, errors.Errorf("--format %s needs --output <file>", format))
	}

	if a.cfg.ExportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ExportTimeout)
		defer cancel()
	}
	ctx, runID := a.runContext(ctx)
	if a.cfg.OpenTelemetry.Enabled {
		shutdown := logging.SetupTracing(ctx, a.cfg.OpenTelemetry.ServiceName, a.cfg.OpenTelemetry.TempoURL)
		defer shutdown()
	}

	start := time.Now()
	dir, err := a.newDirectory(ctx, a.cfg.AWS)
	if err != nil {
		return withCode(exitDirectory, err)
	}
	var names services.NameResolver = services.NewNodeResolver(dir)
	if opts.nameCache {
		names = services.NewCachingResolver(names)
	}

	rel, err := services.NewRelationBuilder(dir, names).BuildRelation(ctx)
	if err != nil {
		return withCode(exitDirectory, err)
	}

	violations := rel.Validate()
	entry, _ := composables.UseLogger(ctx)
	for _, v := range violations {
		entry.WithFields(logrus.Fields{"rule": v.Rule, "node_id": v.NodeID}).Warn(v.Message)
	}

	summary := exportSummary{
		Status: "exported",
		RunID:  runID.String(),
		Format: string(format),
		Output: output,
		Rows:   rel.Len(),
	}
	if root, ok := rel.Root(); ok {
		summary.RootID = root.ID
	}
	counts := rel.Counts()
	summary.Accounts = counts[hierarchy.KindAccount]
	summary.OrganizationalUnits = counts[hierarchy.KindOrganizationalUnit]

	if format == sink.FormatPostgres {
		summary.Output = a.cfg.SnapshotsTable
		if err := saveSnapshot(ctx, a, runID, rel); err != nil {
			return err
		}
	} else if err := writeRelation(a, format, output, rel); err != nil {
		return err
	}

	if err := metrics.WriteTextfile(a.cfg.Prometheus.TextfilePath, nil); err != nil {
		entry.WithError(err).Warn("metrics textfile not written")
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	if opts.verify && len(violations) > 0 {
		summary.Status = "invalid"
		for _, v := range violations {
			summary.Violations = append(summary.Violations, v.String())
		}
	}

	summaryOut := a.stdout
	if output == stdoutPath && format != sink.FormatPostgres {
		summaryOut = a.stderr
	}
	if err := writeJSONLine(summaryOut, summary); err != nil {
		return err
	}
	if summary.Status == "invalid" {
		return withCode(exitVerify, errors.Errorf("relation has %d invariant violation(s)", len(violations)))
	}
	return nil
}

func writeRelation(a *app, format sink.Format, output string, rel *hierarchy.Relation) (err error) {
	w, err := sink.New(format)
	if err != nil {
		return withCode(exitUsage, err)
	}

	var out io.Writer = a.stdout
	if output != stdoutPath {
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return withCode(exitSink, errors.Wrapf(err, "mkdir %s", filepath.Dir(output)))
		}
		f, err := os.Create(output)
		if err != nil {
			return withCode(exitSink, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = withCode(exitSink, errors.Wrapf(cerr, "close %s", output))
			}
		}()
		out = f
	}

	if err := w.Write(out, rel); err != nil {
		return withCode(exitSink, err)
	}
	return nil
}

func saveSnapshot(ctx context.Context, a *app, runID uuid.UUID, rel *hierarchy.Relation) error {
	repo, err := persistence.NewSnapshotRepository(a.cfg.SnapshotsTable)
	if err != nil {
		return withCode(exitUsage, err)
	}
	pool, err := a.connectDB(ctx, a.cfg.Database.Opts)
	if err != nil {
		return withCode(exitSink, err)
	}
	defer pool.Close()

	ctx = composables.WithPool(ctx, pool)
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		if err := repo.EnsureSchema(txCtx); err != nil {
			return err
		}
		_, err := repo.Save(txCtx, runID, rel)
		return err
	})
	if err != nil {
		return withCode(exitSink, err)
	}
	return nil
}

func stringsTrim(v string) string { return strings.TrimSpace(v) }
