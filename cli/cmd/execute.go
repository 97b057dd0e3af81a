package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/batch"
	"github.com/justapithecus/strata/cli/config"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/fetch"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// FailureRow is one failed request in the result output.
type FailureRow struct {
	Param    string `json:"param"`
	Level    string `json:"level"`
	Year     string `json:"year"`
	Step     string `json:"step"`
	Area     string `json:"area"`
	Kind     string `json:"error_kind"`
	FailedIn string `json:"failed_in"`
	Error    string `json:"error"`
}

// BatchResponse is the output of fetch and run.
type BatchResponse struct {
	Summary  batch.Summary `json:"summary"`
	Failures []FailureRow  `json:"failures"`
}

// execute runs descs as one batch and maps the report to an exit code.
// Journal, mirror and adapter are wired from the config when present.
func execute(c *cli.Context, cfg *config.Config, descs []types.Descriptor) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalid)
	}

	meta := types.BatchMeta{
		BatchID: c.String("batch-id"),
		Archive: cfg.Archive.Client,
		Root:    cfg.Root,
	}
	if meta.BatchID == "" {
		meta.BatchID = batch.NewBatchID()
	}
	logger := newLogger(c, &meta)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	journalOff := c.Bool("no-journal")
	collector := metrics.NewCollector(meta.Archive, storageBackend(cfg, journalOff), meta.BatchID)

	client, closeClient, err := buildClient(ctx, cfg, meta, logger)
	if err != nil {
		return invalid("archive client", err)
	}
	defer func() { _ = closeClient() }()

	resolver := newResolver(cfg)
	unit := fetch.NewUnit(resolver, client, fetch.WithLogger(logger), fetch.WithMetrics(collector))

	opts := []batch.Option{batch.WithLogger(logger), batch.WithMetrics(collector)}
	if !journalOff {
		j, err := buildJournal(ctx, cfg, meta, collector)
		if err != nil {
			return invalid("journal", err)
		}
		if j != nil {
			defer func() { _ = j.Close() }()
			opts = append(opts, batch.WithJournal(j))
		}
	}
	mirror, err := buildMirror(ctx, cfg, collector)
	if err != nil {
		return invalid("mirror", err)
	}
	if mirror != nil {
		opts = append(opts, batch.WithMirror(mirror))
	}
	a, err := buildAdapter(cfg)
	if err != nil {
		return invalid("adapter", err)
	}
	if a != nil {
		defer func() { _ = a.Close() }()
		opts = append(opts, batch.WithAdapter(a))
	}
	if isStderrTTY() && len(descs) > 1 {
		opts = append(opts, batch.WithProgress(printProgress))
	}

	rep := batch.NewDriver(unit, resolver, meta, opts...).Run(ctx, descs)

	if !c.Bool("quiet") {
		if err := renderReport(r, rep); err != nil {
			return err
		}
	}
	return cli.Exit("", exitCode(rep))
}

func renderReport(r *render.Renderer, rep *batch.Report) error {
	failures := []FailureRow{}
	for _, res := range rep.Failed() {
		d := res.Descriptor
		failures = append(failures, FailureRow{
			Param:    d.Param,
			Level:    d.Level.String(),
			Year:     d.Year,
			Step:     d.Step,
			Area:     d.Area.String(),
			Kind:     string(res.Kind()),
			FailedIn: string(res.FailedIn),
			Error:    res.Err.Error(),
		})
	}

	if r.Format() != render.FormatTable {
		return r.Render(BatchResponse{Summary: rep.Summary(), Failures: failures})
	}
	if err := r.Render(rep.Summary()); err != nil {
		return err
	}
	if len(failures) == 0 {
		return nil
	}
	fmt.Fprintln(r.Out())
	return r.Render(failures)
}

func printProgress(i, total int, res fetch.Result) {
	fmt.Fprintf(os.Stderr, "[%d/%d] %-14s %s\n", i, total, res.Status, res.Descriptor)
}

// exitCode maps a report to the process exit code.
func exitCode(rep *batch.Report) int {
	switch {
	case rep.Interrupted:
		return exitInterrupted
	case len(rep.Failed()) > 0:
		return exitFailed
	default:
		return exitOK
	}
}

