// Package core is the mutation engine of the configuration editor. A
// Document owns the XML tree of one configuration, the domain tree derived
// from it, and the presentation model over the domain tree. Every edit is
// applied to the XML first, re-derived into the domain tree, validated per
// site, and either committed or rolled back so that both trees agree.
package core

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"configedit/internal/assets"
	"configedit/internal/calibration"
	"configedit/internal/catalog"
	"configedit/internal/presentation"
	"configedit/internal/xmldom"
	"configedit/pkg/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContentType is stored alongside saved documents.
const ContentType = "application/xml"

// Document is one open configuration.
type Document struct {
	dom     *xmldom.Document
	project *domain.Project
	model   *presentation.Model

	settings    Settings
	rules       *domain.RulesEngine
	customRules bool
	devices     catalog.Store
	calStore    assets.Store
	resolver    *calibration.Resolver
	missing     calibration.Ledger

	session uuid.UUID
	logger  zerolog.Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
}

// Option customizes a Document.
type Option func(*Document)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(d *Document) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(d *Document) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithAudit sets the audit recorder.
func WithAudit(a AuditRecorder) Option {
	return func(d *Document) {
		if a != nil {
			d.audit = a
		}
	}
}

// WithClock overrides the clock used for timing.
func WithClock(c Clock) Option {
	return func(d *Document) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithSettings overrides the allocation and A2D conventions.
func WithSettings(s Settings) Option {
	return func(d *Document) { d.settings = s }
}

// WithRules replaces the rules evaluated after every edit. A nil engine
// disables structural validation.
func WithRules(e *domain.RulesEngine) Option {
	return func(d *Document) {
		d.rules = e
		d.customRules = true
	}
}

// WithDeviceCatalog enables device-name validation against store.
func WithDeviceCatalog(store catalog.Store) Option {
	return func(d *Document) { d.devices = store }
}

// WithCalibrationStore looks up engineering calibration files in store.
func WithCalibrationStore(store assets.Store) Option {
	return func(d *Document) { d.calStore = store }
}

// Parse reads a document and derives its domain and presentation trees.
func Parse(ctx context.Context, r io.Reader, opts ...Option) (*Document, error) {
	dom, err := xmldom.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &Document{
		dom:      dom,
		settings: DefaultSettings(),
		session:  uuid.New(),
		logger:   zerolog.Nop(),
		metrics:  noopMetrics{},
		tracer:   noopTracer{},
		audit:    noopAudit{},
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if !d.customRules {
		d.rules = NewDefaultRulesEngine(d.settings)
	}
	d.logger = d.logger.With().Str("session", d.session.String()).Logger()
	d.resolver = calibration.NewResolver(d.calStore, d.settings.EngCalDirRoot, d.logger)

	project, err := dom.DeriveProject()
	if err != nil {
		return nil, err
	}
	d.project = project
	d.model = presentation.NewModel(project)

	if names := project.SiteNames(); len(names) > 0 {
		if err := d.resolver.Load(ctx, names[0]); err != nil {
			return nil, fmt.Errorf("load calibration files: %w", err)
		}
	}
	d.logger.Info().
		Str("project", project.Name).
		Int("sites", len(project.Sites)).
		Msg("document opened")
	return d, nil
}

// Open reads the document stored under key.
func Open(ctx context.Context, store assets.Store, key string, opts ...Option) (*Document, error) {
	b, err := assets.ReadAll(ctx, store, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return ParseBytes(ctx, b, opts...)
}

// ParseBytes reads a document held in memory.
func ParseBytes(ctx context.Context, b []byte, opts ...Option) (*Document, error) {
	return Parse(ctx, bytes.NewReader(b), opts...)
}

// Save renders the document in its saved layout, overwrites key, and
// returns the variables whose calibration files still have to be written.
func (d *Document) Save(ctx context.Context, store assets.Store, key string) ([]string, error) {
	b, err := d.dom.Render()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if _, err := assets.WriteAll(ctx, store, key, b, ContentType); err != nil {
		return nil, fmt.Errorf("save %s: %w", key, err)
	}
	missing := d.missing.Names()
	ev := d.logger.Info()
	if len(missing) > 0 {
		ev = d.logger.Warn().Strs("missing_cal_files", missing)
	}
	ev.Str("key", key).Int("bytes", len(b)).Msg("document saved")
	return missing, nil
}

// Bytes serializes the tree as it is, without the save layout.
func (d *Document) Bytes() ([]byte, error) { return d.dom.Serialize() }

// Session identifies this open document in logs and audit entries.
func (d *Document) Session() string { return d.session.String() }

// Project is the derived domain tree.
func (d *Document) Project() *domain.Project { return d.project }

// Model is the presentation tree.
func (d *Document) Model() *presentation.Model { return d.model }

// Settings are the conventions in effect.
func (d *Document) Settings() Settings { return d.settings }

// MissingCalFiles lists the variables referencing a calibration file that
// was not found, in the order they were added.
func (d *Document) MissingCalFiles() []string { return d.missing.Names() }

// CalibrationFiles lists the engineering calibration files of the first site.
func (d *Document) CalibrationFiles() []string { return d.resolver.Files() }

// SiteNames lists sites in document order.
func (d *Document) SiteNames() []string { return d.project.SiteNames() }

// Site returns the named site.
func (d *Document) Site(name string) (*domain.Site, error) {
	s, ok := d.project.FindSite(name)
	if !ok {
		return nil, domain.NotFoundError{Entity: domain.EntitySite, Key: name}
	}
	return s, nil
}

// SetProjectName renames the project.
func (d *Document) SetProjectName(ctx context.Context, name string) error {
	if name == "" {
		return domain.MalformedInputError{Field: "project name", Value: name, Reason: "empty"}
	}
	_, err := d.run(ctx, "set_project_name", func(t *tx) error {
		root := d.dom.Root()
		t.captureAttrs(root, func() { d.project.Name = xmldom.Attr(root, "name") })
		xmldom.SetAttr(root, "name", name)
		d.project.Name = xmldom.Attr(root, "name")
		t.record(domain.EntityProject, domain.ActionUpdate, name)
		return nil
	})
	return err
}
