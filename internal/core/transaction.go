package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"configedit/internal/xmldom"
	"configedit/pkg/domain"

	"github.com/beevik/etree"
)

// tx collects what a tentative edit did so it can be undone, and what has
// to happen once it is committed.
type tx struct {
	op      string
	site    *domain.Site
	undo    []func() error
	commit  []func()
	changes []domain.Change
}

func (t *tx) onUndo(fn func() error) { t.undo = append(t.undo, fn) }

func (t *tx) onCommit(fn func()) { t.commit = append(t.commit, fn) }

func (t *tx) record(entity domain.EntityType, action domain.Action, key string) {
	t.changes = append(t.changes, domain.Change{Entity: entity, Action: action, Key: key})
}

// capture snapshots el before it is edited. On rollback the saved copy
// replaces el and rederive rebuilds the domain state from it.
func (t *tx) capture(el *etree.Element, rederive func(restored *etree.Element) error) {
	snap := xmldom.Capture(el)
	t.onUndo(func() error {
		restored, err := snap.Restore()
		if err != nil {
			return err
		}
		if rederive == nil {
			return nil
		}
		return rederive(restored)
	})
}

// added marks el as newly inserted; rollback removes it.
func (t *tx) added(el *etree.Element) {
	snap := xmldom.Added(el)
	t.onUndo(func() error {
		_, err := snap.Restore()
		return err
	})
}

// captureAttrs snapshots only the attributes of el.
func (t *tx) captureAttrs(el *etree.Element, after func()) {
	saved := slices.Clone(el.Attr)
	t.onUndo(func() error {
		el.Attr = saved
		after()
		return nil
	})
}

func (t *tx) rollback() error {
	var errs []error
	for i := len(t.undo) - 1; i >= 0; i-- {
		if err := t.undo[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type siteView struct{ site *domain.Site }

func (v siteView) Site() *domain.Site { return v.site }

// run applies fn as one edit. After fn succeeds the rules are evaluated on
// the site fn set; blocking violations, errors and panics all roll the edit
// back before the error is returned.
func (d *Document) run(ctx context.Context, op string, fn func(*tx) error) (domain.Result, error) {
	start := d.clock.Now()
	ctx, span := d.tracer.Start(ctx, op)
	log := d.logger.With().Str("op", op).Logger()
	log.Debug().Msg("applying edit")

	t := &tx{op: op}
	res, err := d.apply(ctx, t, fn)
	status := AuditCommitted
	if err != nil {
		status = AuditRolledBack
		if rbErr := t.rollback(); rbErr != nil {
			err = domain.InternalFaultError{Op: op, Detail: "rollback failed", Err: errors.Join(err, rbErr)}
			log.Error().Err(err).Msg("rollback failed")
		}
		d.dom.Invalidate()
		log.Warn().Err(err).Int("violations", len(res.Violations)).Msg("edit rolled back")
	} else {
		for _, fn := range t.commit {
			fn()
		}
		for _, v := range res.Violations {
			log.Warn().Str("rule", v.Rule).Str("severity", string(v.Severity)).Msg(v.Message)
		}
		log.Info().Int("changes", len(t.changes)).Msg("edit committed")
	}

	elapsed := d.clock.Now().Sub(start)
	span.End(err)
	d.metrics.Observe(ctx, op, err == nil, elapsed)
	entry := AuditEntry{
		Session:   d.session.String(),
		Operation: op,
		Status:    status,
		Duration:  elapsed,
		At:        start,
	}
	for _, c := range t.changes {
		entry.Changes = append(entry.Changes, ChangeRecord{Entity: string(c.Entity), Action: string(c.Action), Key: c.Key})
	}
	if err != nil {
		entry.Error = err.Error()
	}
	d.audit.Record(ctx, entry)
	return res, err
}

func (d *Document) apply(ctx context.Context, t *tx, fn func(*tx) error) (res domain.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.UnspecifiedError{Op: t.op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(t); err != nil {
		return domain.Result{}, classify(t.op, err)
	}
	if t.site == nil || d.rules == nil {
		return domain.Result{}, nil
	}
	res, err = d.rules.Evaluate(ctx, siteView{site: t.site}, t.changes)
	if err != nil {
		return res, domain.UnspecifiedError{Op: t.op, Err: err}
	}
	if res.HasBlocking() {
		return res, domain.ValidationError{Result: res}
	}
	return res, nil
}

// classify keeps errors of the editor's taxonomy and wraps anything else as
// an unspecified failure.
func classify(op string, err error) error {
	for _, known := range []error{
		domain.ErrMalformedInput,
		domain.ErrDuplicateIdentifier,
		domain.ErrValidationFailed,
		domain.ErrInternalFault,
		domain.ErrUnspecified,
		domain.ErrContextMismatch,
		domain.ErrNotFound,
		domain.ErrNoSiteSelected,
		domain.ErrNoDSMSelected,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return domain.UnspecifiedError{Op: op, Err: err}
}
