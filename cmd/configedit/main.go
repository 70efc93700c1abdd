// Command configedit edits an airborne data acquisition configuration from
// the command line: it opens a document from the configured asset store,
// applies one edit through the validating mutation engine, and saves it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"configedit/internal/assets"
	"configedit/internal/config"
	"configedit/internal/core"
	"configedit/internal/logging"
	"configedit/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitRejected = 2
)

func cli(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "configedit: %v\n", err); writeErr != nil {
			return exitFailure
		}
		return exitCode(err)
	}
	return exitOK
}

// exitCode separates edits the engine refused from everything else.
func exitCode(err error) int {
	for _, target := range []error{
		domain.ErrMalformedInput,
		domain.ErrDuplicateIdentifier,
		domain.ErrValidationFailed,
		domain.ErrContextMismatch,
		domain.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return exitRejected
		}
	}
	return exitFailure
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	stdout, stderr io.Writer

	configPath string
	docKey     string
	siteName   string

	cfg      config.Config
	logger   *logging.Logger
	store    assets.Store
	caps     core.CapabilityStore
	registry *prometheus.Registry
	audit    *core.MemoryAuditRecorder
	doc      *core.Document
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "configedit",
		Short: "Edit data acquisition configuration documents",
		Long: `configedit opens a configuration document, applies one edit and saves it.
Every edit is validated against the whole site and rolled back when it
would leave the configuration inconsistent.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd.Context()) },
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultPath, "path to the configuration file")
	pf.StringVar(&a.docKey, "doc", "", "asset key of the configuration document")
	pf.StringVar(&a.siteName, "site", "", "site to edit (defaults to the first site)")

	root.AddCommand(
		newShowCmd(a),
		newNextIDsCmd(a),
		newAddDSMCmd(a),
		newAddSensorCmd(a),
		newAddVariableCmd(a),
		newSetSampleRateCmd(a),
		newSetProjectNameCmd(a),
		newDeleteCmd(a),
		newDevicesCmd(a),
		newCalFilesCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	b, err := logging.New().ToWriter(a.stderr).ToPath(cfg.Log.Path).LevelName(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if a.logger, err = b.Make(); err != nil {
		return fmt.Errorf("open log: %w", err)
	}

	a.store, err = assets.Open(ctx, assets.Config{
		Driver: assets.Driver(cfg.Assets.Driver),
		FSRoot: cfg.Assets.FSRoot,
		S3: assets.S3Config{
			Bucket:    cfg.Assets.S3.Bucket,
			Prefix:    cfg.Assets.S3.Prefix,
			Region:    cfg.Assets.S3.Region,
			Endpoint:  cfg.Assets.S3.Endpoint,
			PathStyle: cfg.Assets.S3.PathStyle,
		},
	})
	if err != nil {
		return fmt.Errorf("open assets: %w", err)
	}

	a.caps, err = core.OpenCapabilityStore(ctx, cfg.Storage, a.logger.Logger)
	if err != nil {
		return fmt.Errorf("open device table: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.audit = &core.MemoryAuditRecorder{}
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if err := a.caps.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device table: %w", err))
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log: %w", err))
		}
	}
	return errors.Join(errs...)
}

// open reads the document named by --doc.
func (a *app) open(ctx context.Context) (*core.Document, error) {
	if a.doc != nil {
		return a.doc, nil
	}
	if a.docKey == "" {
		return nil, errors.New("no document given, use --doc")
	}
	metrics, err := core.NewPrometheusMetricsRecorder(a.registry, a.cfg.Metrics.Namespace)
	if err != nil {
		return nil, err
	}
	d, err := core.Open(ctx, a.store, a.docKey,
		core.WithLogger(a.logger.Logger),
		core.WithSettings(core.SettingsFromConfig(a.cfg)),
		core.WithDeviceCatalog(a.caps),
		core.WithCalibrationStore(a.store),
		core.WithMetrics(metrics),
		core.WithAudit(a.audit),
	)
	if err != nil {
		return nil, err
	}
	a.doc = d
	return d, nil
}

// save writes the document back and reports what the edit left behind.
func (a *app) save(ctx context.Context, res domain.Result) error {
	for _, v := range res.Violations {
		if _, err := fmt.Fprintf(a.stderr, "warning: %s: %s\n", v.Rule, v.Message); err != nil {
			return err
		}
	}
	missing, err := a.doc.Save(ctx, a.store, a.docKey)
	if err != nil {
		return err
	}
	for _, name := range missing {
		if _, err := fmt.Fprintf(a.stderr, "missing calibration file for %s\n", name); err != nil {
			return err
		}
	}
	return nil
}

// site resolves --site, falling back to the first site of the document.
func (a *app) site(d *core.Document) (*domain.Site, error) {
	if a.siteName != "" {
		return d.Site(a.siteName)
	}
	names := d.SiteNames()
	if len(names) == 0 {
		return nil, domain.ErrNoSiteSelected
	}
	return d.Site(names[0])
}
