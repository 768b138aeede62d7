package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bov-engine/internal/config"
	"github.com/sells-group/bov-engine/internal/document"
	"github.com/sells-group/bov-engine/internal/enrich"
	"github.com/sells-group/bov-engine/internal/export"
	"github.com/sells-group/bov-engine/internal/model"
	"github.com/sells-group/bov-engine/internal/resilience"
	"github.com/sells-group/bov-engine/internal/store"
	"github.com/sells-group/bov-engine/pkg/geocode"
)

// newResolver builds the provider cascade from config. Tests replace it
// with a stub.
var newResolver = func(c config.GeocodeConfig) (enrich.Resolver, []string, error) {
	client, err := geocode.NewClient(
		geocode.WithProviders(c.Providers...),
		geocode.WithTimeout(c.Timeout),
		geocode.WithRateLimit(c.RateLimit),
		geocode.WithRetry(resilience.DefaultPolicy().WithAttempts(c.RetryAttempts)),
		geocode.WithGoogleAPIKey(c.GoogleAPIKey),
		geocode.WithArcGISToken(c.ArcGISToken),
		geocode.WithUserAgent(c.UserAgent),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Providers(), nil
}

// sleep is the pause between resolver calls. Tests replace it.
var sleep = time.Sleep

type geocodeOptions struct {
	update    bool
	export    string
	noHistory bool
}

var geocodeOpts geocodeOptions

var geocodeCmd = &cobra.Command{
	Use:   "geocode <data.json>",
	Short: "Geocode every address in a BOV data file",
	Long: "Resolves the subject and every comparable address to coordinates, one request at a time. " +
		"Without --update the results are only printed; with --update they are written back into the data file.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}
		return runGeocode(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], geocodeOpts)
	},
}

func init() {
	geocodeCmd.Flags().BoolVar(&geocodeOpts.update, "update", false, "write coordinates back to the data file")
	geocodeCmd.Flags().StringVar(&geocodeOpts.export, "export", "", "also write outcomes to a .geojson, .xlsx or .yaml file")
	geocodeCmd.Flags().BoolVar(&geocodeOpts.noHistory, "no-history", false, "do not record this run in run history")
	rootCmd.AddCommand(geocodeCmd)
}

func runGeocode(ctx context.Context, out, errOut io.Writer, path string, opts geocodeOptions) error {
	log := zap.L().With(zap.String("command", "geocode"), zap.String("document", path))

	if opts.export != "" && sameFile(opts.export, path) {
		return eris.Errorf("geocode: export path %s is the data file", opts.export)
	}

	doc, err := document.Load(path)
	if err != nil {
		return err
	}

	if missing := doc.MissingSections(enrich.Sections); len(missing) > 0 {
		log.Warn("data file is missing sections", zap.Strings("missing", missing))
		_, _ = fmt.Fprintf(errOut, "WARNING: Missing keys in data file: %s\n", strings.Join(missing, ", "))
	}

	resolver, providers, err := newResolver(cfg.Geocode)
	if err != nil {
		return err
	}

	rec := newRunRecorder(ctx, path, opts, providers)
	defer rec.close()

	entries := enrich.Extract(doc)
	orch := enrich.NewOrchestrator(resolver,
		enrich.WithDelay(cfg.Geocode.Delay),
		enrich.WithProgress(out),
		enrich.WithSleep(sleep),
	)
	outcomes, summary := orch.ResolveAll(ctx, entries)
	rec.outcomes(outcomes)

	if opts.export != "" {
		if err := export.WriteFile(opts.export, outcomes); err != nil {
			rec.finish(summary, false, err)
			return err
		}
		_, _ = fmt.Fprintf(out, "\nExported: %s\n", opts.export)
	}

	if !opts.update {
		rec.finish(summary, false, nil)
		_, _ = fmt.Fprintf(out, "\nDry run complete. Use --update to write coordinates to %s\n", path)
		return nil
	}

	for _, o := range enrich.Unwritten(outcomes) {
		_, _ = fmt.Fprintf(errOut, "WARNING: %s not written: %s\n", o.Entry.Label, o.Entry.Unwritable)
	}
	merged, err := enrich.Merge(doc, outcomes)
	if err == nil {
		err = document.WriteFile(path, merged)
	}
	if err != nil {
		rec.finish(summary, false, err)
		return eris.Wrapf(err, "geocode: update %s", path)
	}

	rec.finish(summary, true, nil)
	log.Info("coordinates written", zap.Int("resolved", summary.Resolved))
	_, _ = fmt.Fprintf(out, "\nUpdated: %s\n", path)
	return nil
}

// runRecorder writes a run to history. History is best effort: a store
// failure is logged and the geocode run carries on without it.
type runRecorder struct {
	ctx context.Context
	st  store.Store
	run *model.Run
}

// openStore is replaced in tests.
var openStore = store.Open

func newRunRecorder(ctx context.Context, path string, opts geocodeOptions, providers []string) *runRecorder {
	rec := &runRecorder{ctx: ctx}
	if opts.noHistory || !store.Enabled(cfg.Store) {
		return rec
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		zap.L().Warn("run history unavailable", zap.Error(err))
		return rec
	}

	mode := model.RunModeDryRun
	if opts.update {
		mode = model.RunModeUpdate
	}
	run, err := st.CreateRun(ctx, path, mode, providers)
	if err != nil {
		zap.L().Warn("run history: create run failed", zap.Error(err))
		_ = st.Close()
		return rec
	}

	rec.st = st
	rec.run = run
	return rec
}

func (r *runRecorder) outcomes(outcomes []enrich.Outcome) {
	if r.run == nil {
		return
	}
	if err := r.st.SaveOutcomes(r.ctx, r.run.ID, outcomeRecords(outcomes)); err != nil {
		zap.L().Warn("run history: save outcomes failed", zap.String("run_id", r.run.ID), zap.Error(err))
	}
}

func (r *runRecorder) finish(s enrich.Summary, written bool, runErr error) {
	if r.run == nil {
		return
	}
	status := model.RunStatusComplete
	result := &model.RunResult{
		Total:    s.Total,
		Resolved: s.Resolved,
		NotFound: s.NotFound,
		Failed:   s.Failed,
		Written:  written,
	}
	if runErr != nil {
		status = model.RunStatusFailed
		result.Error = runErr.Error()
	}
	if err := r.st.FinishRun(r.ctx, r.run.ID, status, result); err != nil {
		zap.L().Warn("run history: finish run failed", zap.String("run_id", r.run.ID), zap.Error(err))
	}
}

func (r *runRecorder) close() {
	if r.st != nil {
		_ = r.st.Close()
	}
}

func outcomeRecords(outcomes []enrich.Outcome) []model.OutcomeRecord {
	records := make([]model.OutcomeRecord, 0, len(outcomes))
	for i, o := range outcomes {
		rec := model.OutcomeRecord{
			Seq:     i + 1,
			Label:   o.Entry.Label,
			Address: o.Entry.Address,
			Path:    o.Entry.Path.String(),
			Status:  string(o.Status),
			Source:  o.Source,
			Quality: o.Quality,
			Error:   o.Error,
		}
		if o.Resolved() {
			lat, lon := o.Coordinates.Latitude, o.Coordinates.Longitude
			rec.Latitude = &lat
			rec.Longitude = &lon
		}
		records = append(records, rec)
	}
	return records
}

// sameFile reports whether a and b name the same file, by path or, when
// both exist, by identity.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
