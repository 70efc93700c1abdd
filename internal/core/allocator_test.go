package core

import (
	"context"
	"errors"
	"slices"
	"testing"

	"configedit/pkg/domain"
)

func TestNextDSMIDAndAddDSM(t *testing.T) {
	d := openFixture(t)
	site := fixtureSite(t, d)

	id, err := d.NextDSMID(On(site))
	if err != nil {
		t.Fatalf("next dsm id: %v", err)
	}
	if id != 6 {
		t.Fatalf("expected 6, got %d", id)
	}
	dsm, _, err := d.AddDSM(context.Background(), On(site), DSMSpec{Name: "dsm6", ID: "6", Location: "tail"})
	if err != nil {
		t.Fatalf("add dsm: %v", err)
	}
	if len(site.DSMs) != 4 || dsm.Site() != site {
		t.Fatalf("expected 4 attached dsms, got %d", len(site.DSMs))
	}
	seen := map[uint32]bool{}
	for _, x := range site.DSMs {
		if seen[x.ID] {
			t.Fatalf("duplicate dsm id %d", x.ID)
		}
		seen[x.ID] = true
	}
	// Any entity below the site resolves to it.
	if id, _ := d.NextDSMID(On(dsm)); id != 7 {
		t.Fatalf("expected 7 after adding 6, got %d", id)
	}
}

func TestNextDSMIDNearWingThreshold(t *testing.T) {
	s := DefaultSettings()
	s.WingDSMThreshold = 6
	d := openFixture(t, WithSettings(s))
	site := fixtureSite(t, d)
	if id, _ := d.NextDSMID(On(site)); id != 3 {
		t.Fatalf("expected lowest free id 3, got %d", id)
	}

	s.WingDSMThreshold = 3
	d = openFixture(t, WithSettings(s))
	site = fixtureSite(t, d)
	id, err := d.NextDSMID(On(site))
	if err != nil {
		t.Fatalf("next dsm id: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected first wing id 3, got %d", id)
	}
	if _, ok := site.FindDSM(id); ok {
		t.Fatalf("proposed id %d is in use", id)
	}
}

func TestNextDSMIDWithoutSite(t *testing.T) {
	d := openFixture(t)
	if _, err := d.NextDSMID(Selection{}); !errors.Is(err, domain.ErrNoSiteSelected) {
		t.Fatalf("expected no site selected, got %v", err)
	}
}

func TestNextSensorID(t *testing.T) {
	d := openFixture(t)
	cases := []struct {
		dsm  uint32
		want uint32
	}{
		{1, 400},
		{2, 400},
		{5, 600},
	}
	for _, tc := range cases {
		got, err := d.NextSensorID(On(fixtureDSM(t, d, tc.dsm)))
		if err != nil {
			t.Fatalf("dsm %d: %v", tc.dsm, err)
		}
		if got != tc.want {
			t.Fatalf("dsm %d: expected %d, got %d", tc.dsm, tc.want, got)
		}
	}
	if _, err := d.NextSensorID(On(fixtureSite(t, d))); !errors.Is(err, domain.ErrNoDSMSelected) {
		t.Fatalf("expected no dsm selected, got %v", err)
	}

	s := DefaultSettings()
	s.SensorIDSpacing = 10
	d = openFixture(t, WithSettings(s))
	if got, _ := d.NextSensorID(On(fixtureSensor(t, d, 1, 200))); got != 210 {
		t.Fatalf("expected spacing override, got %d", got)
	}
}

func TestAvailableA2DChannels(t *testing.T) {
	d := openFixture(t)
	sensor := fixtureSensor(t, d, 1, 200)
	want := []int{0, 2, 4, 5, 6, 7}

	if got := d.AvailableA2DChannels(On(sensor)); !slices.Equal(got, want) {
		t.Fatalf("sensor handle: %v", got)
	}
	dsm := fixtureDSM(t, d, 1)
	if got := d.AvailableA2DChannels(Selection{Handle: dsm, Focus: sensor}); !slices.Equal(got, want) {
		t.Fatalf("focused sensor: %v", got)
	}
	if got := d.AvailableA2DChannels(On(dsm)); len(got) != 8 {
		t.Fatalf("dsm without focus should report every channel, got %v", got)
	}
}
