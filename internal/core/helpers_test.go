package core

import (
	"bytes"
	"context"
	"testing"

	"configedit/pkg/domain"
	"configedit/testutil"
)

func openFixture(t *testing.T, opts ...Option) *Document {
	t.Helper()
	d, err := ParseBytes(context.Background(), testutil.AircraftXML(), opts...)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return d
}

func fixtureSite(t *testing.T, d *Document) *domain.Site {
	t.Helper()
	site, err := d.Site("GV_N677F")
	if err != nil {
		t.Fatalf("site: %v", err)
	}
	return site
}

func fixtureDSM(t *testing.T, d *Document, id uint32) *domain.DSM {
	t.Helper()
	dsm, ok := fixtureSite(t, d).FindDSM(id)
	if !ok {
		t.Fatalf("dsm %d missing", id)
	}
	return dsm
}

func fixtureSensor(t *testing.T, d *Document, dsmID, sensorID uint32) *domain.Sensor {
	t.Helper()
	s, ok := fixtureDSM(t, d, dsmID).FindSensor(sensorID)
	if !ok {
		t.Fatalf("sensor (%d,%d) missing", dsmID, sensorID)
	}
	return s
}

func serialized(t *testing.T, d *Document) []byte {
	t.Helper()
	b, err := d.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return b
}

// assertUnchanged fails when the document no longer serializes to before.
func assertUnchanged(t *testing.T, d *Document, before []byte) {
	t.Helper()
	if after := serialized(t, d); !bytes.Equal(before, after) {
		t.Fatalf("document changed after rollback:\n--- before\n%s\n--- after\n%s", before, after)
	}
}

func variableNames(s *domain.Sensor) []string {
	var out []string
	for _, v := range s.Variables() {
		out = append(out, v.Name)
	}
	return out
}

// blockingRule rejects every edit.
type blockingRule struct{}

func (blockingRule) Name() string { return "always_block" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "always_block",
		Severity: domain.SeverityBlock,
		Message:  "blocked",
	}}}, nil
}

type panicRule struct{}

func (panicRule) Name() string { return "panics" }

func (panicRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	panic("rule exploded")
}

func rulesWith(rules ...domain.Rule) *domain.RulesEngine {
	e := NewRulesEngine()
	for _, r := range rules {
		e.Register(r)
	}
	return e
}
