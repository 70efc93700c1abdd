package core

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"configedit/internal/presentation"
	"configedit/pkg/domain"
)

func TestDeleteVariableDropsEmptySample(t *testing.T) {
	d := openFixture(t)
	sensor := fixtureSensor(t, d, 1, 200)
	if _, err := d.Delete(context.Background(), findVariable(sensor, "VOLT3")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := variableNames(sensor); !slices.Equal(got, []string{"A2DTEMP_FWD", "PSFD"}) {
		t.Fatalf("variables %v", got)
	}
	if _, ok := sensor.FindSample(2); ok {
		t.Fatalf("empty sample kept")
	}
	if !slices.Contains(d.AvailableA2DChannels(On(sensor)), 3) {
		t.Fatalf("channel 3 not released")
	}
	if bytes.Contains(serialized(t, d), []byte("VOLT3")) {
		t.Fatalf("variable still in the document")
	}
}

func TestDeleteVariableOfSerialSensor(t *testing.T) {
	d := openFixture(t)
	v := fixtureSensor(t, d, 2, 200).Variables()[0]
	if _, err := d.Delete(context.Background(), v); !errors.Is(err, domain.ErrContextMismatch) {
		t.Fatalf("expected context mismatch, got %v", err)
	}
}

func TestDeleteSensor(t *testing.T) {
	d := openFixture(t)
	dsm := fixtureDSM(t, d, 2)
	if _, err := d.Delete(context.Background(), fixtureSensor(t, d, 2, 200)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(dsm.Sensors) != 1 {
		t.Fatalf("expected only the IRIG card, got %d sensors", len(dsm.Sensors))
	}
	if bytes.Contains(serialized(t, d), []byte("/dev/ttyS3")) {
		t.Fatalf("sensor still in the document")
	}
}

func TestDeleteDSM(t *testing.T) {
	d := openFixture(t)
	site := fixtureSite(t, d)
	if _, err := d.Delete(context.Background(), fixtureDSM(t, d, 5)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(site.DSMs) != 2 {
		t.Fatalf("expected 2 dsms, got %d", len(site.DSMs))
	}
	if id, _ := d.NextDSMID(On(site)); id != 3 {
		t.Fatalf("expected next id 3, got %d", id)
	}
}

func TestDeleteAt(t *testing.T) {
	ctx := context.Background()
	d := openFixture(t)
	m := d.Model()
	siteIdx := m.Index(0, 0, presentation.Index{})
	dsmIdx := m.Index(1, 0, siteIdx)
	if m.Data(dsmIdx) != "aft [dsm302]" {
		t.Fatalf("row 1 is %q", m.Data(dsmIdx))
	}
	if _, err := d.DeleteAt(ctx, dsmIdx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if m.RowCount(siteIdx) != 2 || m.Data(m.Index(1, 0, siteIdx)) != "nose [dsm305]" {
		t.Fatalf("model not updated")
	}
	if _, err := d.DeleteAt(ctx, presentation.Index{}); !errors.Is(err, domain.ErrContextMismatch) {
		t.Fatalf("expected context mismatch, got %v", err)
	}
}

func TestDeleteSite(t *testing.T) {
	d := openFixture(t)
	if _, err := d.Delete(context.Background(), fixtureSite(t, d)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(d.SiteNames()) != 0 {
		t.Fatalf("sites left: %v", d.SiteNames())
	}
	if bytes.Contains(serialized(t, d), []byte("<aircraft")) {
		t.Fatalf("site still in the document")
	}
	if _, err := d.Delete(context.Background(), d.Project()); !errors.Is(err, domain.ErrContextMismatch) {
		t.Fatalf("expected context mismatch, got %v", err)
	}
}

func TestDeleteRollsBack(t *testing.T) {
	d := openFixture(t, WithRules(rulesWith(blockingRule{})))
	site := fixtureSite(t, d)
	dsms := slices.Clone(site.DSMs)
	before := serialized(t, d)

	if _, err := d.Delete(context.Background(), dsms[1]); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if !slices.Equal(site.DSMs, dsms) || dsms[1].Site() != site {
		t.Fatalf("dsm list not restored")
	}
	assertUnchanged(t, d, before)

	// The restored DSM can still be edited.
	d.rules = NewDefaultRulesEngine(d.settings)
	if _, err := d.Delete(context.Background(), dsms[1]); err != nil {
		t.Fatalf("delete after rollback: %v", err)
	}
}

func TestRulePanicRollsBack(t *testing.T) {
	d := openFixture(t, WithRules(rulesWith(panicRule{})))
	sensor := fixtureSensor(t, d, 1, 200)
	before := serialized(t, d)
	_, err := d.Delete(context.Background(), findVariable(sensor, "PSFD"))
	if !errors.Is(err, domain.ErrUnspecified) {
		t.Fatalf("expected unspecified failure, got %v", err)
	}
	if findVariable(sensor, "PSFD") == nil {
		t.Fatalf("variable not restored")
	}
	assertUnchanged(t, d, before)
}
