package core

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"configedit/internal/assets"
	"configedit/internal/xmldom"
	"configedit/pkg/domain"
	"configedit/testutil"
)

func sampleIDs(s *domain.Sensor) []uint32 {
	var out []uint32
	for _, smp := range s.Samples {
		out = append(out, smp.ID)
	}
	return out
}

func TestAddA2DVariableRegroupsSamplesByRate(t *testing.T) {
	d := openFixture(t)
	sensor := fixtureSensor(t, d, 1, 200)

	v, _, err := d.AddA2DVariable(context.Background(), On(sensor), A2DVariableSpec{
		Prefix:   "TTX",
		LongName: "Total temperature",
		Volts:    domain.VoltsUnipolar5,
		Channel:  4,
		Rate:     50,
		Units:    "degC",
		Cals:     []string{"XML:1.5", "0.25"},
	})
	if err != nil {
		t.Fatalf("add variable: %v", err)
	}
	want := []string{"A2DTEMP_FWD", "PSFD", "TTX", "VOLT3"}
	if got := variableNames(sensor); !slices.Equal(got, want) {
		t.Fatalf("variables %v, want %v", got, want)
	}
	if got := sampleIDs(sensor); !slices.Equal(got, []uint32{1, 2, 3}) {
		t.Fatalf("sample ids %v", got)
	}
	s2, _ := sensor.FindSample(2)
	s3, _ := sensor.FindSample(3)
	if s2.Rate != 50 || s2.NumPoints != 10 || len(s2.Variables) != 2 {
		t.Fatalf("sample 2: %+v", s2)
	}
	if s3.Rate != 100 || s3.NumPoints != 5 || s3.Variables[0].Name != "VOLT3" {
		t.Fatalf("sample 3: %+v", s3)
	}

	if v.A2D == nil || v.A2D.Channel != 4 || v.A2D.Gain != 4 || v.A2D.Bipolar {
		t.Fatalf("a2d settings %+v", v.A2D)
	}
	c := v.Calibration
	if c.Kind != domain.CalLinear || c.Intercept != 1.5 || c.Slope != 0.25 || c.Units != "degC" {
		t.Fatalf("calibration %+v", c)
	}
	if got := d.AvailableA2DChannels(On(sensor)); slices.Contains(got, 4) {
		t.Fatalf("channel 4 still offered: %v", got)
	}
	if len(d.MissingCalFiles()) != 0 {
		t.Fatalf("inline calibration is never missing")
	}
}

func TestAddA2DVariableRecordsMissingCalFile(t *testing.T) {
	d := openFixture(t)
	sensor := fixtureSensor(t, d, 1, 200)
	v, _, err := d.AddA2DVariable(context.Background(), On(sensor), A2DVariableSpec{
		Prefix:  "TEMP1",
		Volts:   domain.VoltsBipolar10,
		Channel: 5,
		Rate:    10,
		Units:   "degC",
	})
	if err != nil {
		t.Fatalf("add variable: %v", err)
	}
	if v.Calibration.Kind != domain.CalFile || v.Calibration.File.File != "TEMP1.dat" {
		t.Fatalf("calibration %+v", v.Calibration)
	}
	if v.Calibration.File.Path != xmldom.EngCalFilePath("GV_N677F") {
		t.Fatalf("calfile path %q", v.Calibration.File.Path)
	}
	if got := d.MissingCalFiles(); !slices.Equal(got, []string{"TEMP1"}) {
		t.Fatalf("missing %v", got)
	}
	smp := v.Sample()
	if smp.Rate != 10 || smp.NumPoints != 50 {
		t.Fatalf("new sample %+v", smp)
	}
}

func TestAddA2DVariableResolvesPrefixCalFile(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemory()
	key := DefaultSettings().EngCalDirRoot + "GV_N677F/TEMP.dat"
	if _, err := assets.WriteAll(ctx, store, key, []byte("2024 0 1\n"), "text/plain"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	d := openFixture(t, WithCalibrationStore(store))
	if files := d.CalibrationFiles(); !slices.Equal(files, []string{"TEMP.dat"}) {
		t.Fatalf("calibration files %v", files)
	}
	sensor := fixtureSensor(t, d, 1, 200)
	v, _, err := d.AddA2DVariable(ctx, On(sensor), A2DVariableSpec{
		Prefix:  "TEMP",
		Suffix:  "1",
		Volts:   domain.VoltsBipolar5,
		Channel: 6,
		Rate:    100,
	})
	if err != nil {
		t.Fatalf("add variable: %v", err)
	}
	if v.Name != "TEMP_1" || v.Calibration.File.File != "TEMP.dat" {
		t.Fatalf("variable %s calfile %s", v.Name, v.Calibration.File.File)
	}
	if len(d.MissingCalFiles()) != 0 {
		t.Fatalf("resolved file reported missing: %v", d.MissingCalFiles())
	}
	// Joins the existing 100 Hz sample.
	if v.Sample().ID != 3 || len(v.Sample().Variables) != 2 {
		t.Fatalf("expected to share sample 3 with VOLT3, got %+v", v.Sample())
	}
}

func TestAddA2DVariableInlinePolynomial(t *testing.T) {
	d := openFixture(t)
	sensor := fixtureSensor(t, d, 1, 200)
	v, _, err := d.AddA2DVariable(context.Background(), On(sensor), A2DVariableSpec{
		Prefix:  "PSX",
		Volts:   domain.VoltsUnipolar10,
		Channel: 0,
		Rate:    50,
		Cals:    []string{"XML:0.1", "2", "0.003", "hPa"},
	})
	if err != nil {
		t.Fatalf("add variable: %v", err)
	}
	c := v.Calibration
	if c.Kind != domain.CalPoly || !slices.Equal(c.Coefs, []float64{0.1, 2, 0.003}) || c.Units != "hPa" {
		t.Fatalf("calibration %+v", c)
	}
}

func TestAddA2DVariableRejectsInput(t *testing.T) {
	ctx := context.Background()
	valid := A2DVariableSpec{Prefix: "NEW", Volts: domain.VoltsBipolar10, Channel: 5, Rate: 10, Cals: []string{"XML:0", "1"}}

	cases := []struct {
		name   string
		mutate func(*A2DVariableSpec)
		want   error
	}{
		{"empty prefix", func(s *A2DVariableSpec) { s.Prefix = "" }, domain.ErrMalformedInput},
		{"zero rate", func(s *A2DVariableSpec) { s.Rate = 0 }, domain.ErrMalformedInput},
		{"channel too high", func(s *A2DVariableSpec) { s.Channel = 8 }, domain.ErrMalformedInput},
		{"channel taken", func(s *A2DVariableSpec) { s.Channel = 3 }, domain.ErrDuplicateIdentifier},
		{"unknown range", func(s *A2DVariableSpec) { s.Volts = "0 to 3 Volts" }, domain.ErrInternalFault},
		{"bad coefficient", func(s *A2DVariableSpec) { s.Cals = []string{"XML:zero", "1"} }, domain.ErrMalformedInput},
		{"single coefficient", func(s *A2DVariableSpec) { s.Cals = []string{"XML:1"} }, domain.ErrMalformedInput},
		{"single coefficient with units", func(s *A2DVariableSpec) { s.Cals = []string{"XML:1", "hPa"} }, domain.ErrMalformedInput},
		{"marker only", func(s *A2DVariableSpec) { s.Cals = []string{"XML:"} }, domain.ErrMalformedInput},
		{"name in use", func(s *A2DVariableSpec) { s.Prefix = "VOLT3" }, domain.ErrValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := openFixture(t)
			sensor := fixtureSensor(t, d, 1, 200)
			before := serialized(t, d)
			spec := valid
			tc.mutate(&spec)
			if _, _, err := d.AddA2DVariable(ctx, On(sensor), spec); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			assertUnchanged(t, d, before)
			if got := variableNames(sensor); !slices.Equal(got, []string{"A2DTEMP_FWD", "VOLT3", "PSFD"}) {
				t.Fatalf("variables changed: %v", got)
			}
		})
	}

	gps := fixtureSensor(t, openFixture(t), 5, 400)
	if _, _, err := d.AddA2DVariable(ctx, On(gps), valid); !errors.Is(err, domain.ErrContextMismatch) {
		t.Fatalf("expected context mismatch, got %v", err)
	}
}

func TestAddA2DVariableInlineMarkerNeedsNoUnits(t *testing.T) {
	d := openFixture(t)
	sensor := fixtureSensor(t, d, 1, 200)
	v, _, err := d.AddA2DVariable(context.Background(), On(sensor), A2DVariableSpec{
		Prefix:  "NEW",
		Volts:   domain.VoltsBipolar10,
		Channel: 5,
		Rate:    10,
		Cals:    []string{"XML:", "0.5", "2"},
	})
	if err != nil {
		t.Fatalf("add variable: %v", err)
	}
	c := v.Calibration
	if c.Kind != domain.CalLinear || c.Intercept != 0.5 || c.Slope != 2 || c.Units != "" {
		t.Fatalf("calibration %+v", c)
	}
	if len(d.MissingCalFiles()) != 0 {
		t.Fatalf("inline calibration reported missing: %v", d.MissingCalFiles())
	}
}

// suffixedFixture gives the NCAR board of dsm301 a variable suffix.
func suffixedFixture(t *testing.T, opts ...Option) *Document {
	t.Helper()
	src := testutil.AircraftXML()
	from := []byte(`devicename="/dev/ncar_a2d0" id="200"`)
	if !bytes.Contains(src, from) {
		t.Fatalf("fixture lost the NCAR board")
	}
	b := bytes.Replace(src, from, []byte(`devicename="/dev/ncar_a2d0" id="200" suffix="_X"`), 1)
	d, err := ParseBytes(context.Background(), b, opts...)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestAddA2DVariableCalFileIgnoresSensorSuffix(t *testing.T) {
	ctx := context.Background()
	temp1 := A2DVariableSpec{Prefix: "TEMP1", Volts: domain.VoltsBipolar10, Channel: 5, Rate: 10, Units: "degC"}

	d := suffixedFixture(t)
	sensor := fixtureSensor(t, d, 1, 200)
	v, _, err := d.AddA2DVariable(ctx, On(sensor), temp1)
	if err != nil {
		t.Fatalf("add variable: %v", err)
	}
	if v.FullName() != "TEMP1_X" {
		t.Fatalf("full name %s", v.FullName())
	}
	if v.Calibration.File.File != "TEMP1.dat" {
		t.Fatalf("calfile %s", v.Calibration.File.File)
	}
	if got := d.MissingCalFiles(); !slices.Equal(got, []string{"TEMP1"}) {
		t.Fatalf("missing %v", got)
	}

	store := assets.NewMemory()
	key := DefaultSettings().EngCalDirRoot + "GV_N677F/TEMP1.dat"
	if _, err := assets.WriteAll(ctx, store, key, []byte("2024 0 1\n"), "text/plain"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	d = suffixedFixture(t, WithCalibrationStore(store))
	sensor = fixtureSensor(t, d, 1, 200)
	v, _, err = d.AddA2DVariable(ctx, On(sensor), temp1)
	if err != nil {
		t.Fatalf("add variable: %v", err)
	}
	if v.Calibration.File.File != "TEMP1.dat" || len(d.MissingCalFiles()) != 0 {
		t.Fatalf("calfile %s missing %v", v.Calibration.File.File, d.MissingCalFiles())
	}

	updated, _, err := d.UpdateVariable(ctx, On(v), VariableSpec{Name: "TEMP2", Cals: []string{"degC"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Calibration.File.File != "TEMP2.dat" {
		t.Fatalf("calfile %s", updated.Calibration.File.File)
	}
	if got := d.MissingCalFiles(); !slices.Equal(got, []string{"TEMP2"}) {
		t.Fatalf("missing %v", got)
	}
}

func TestAddA2DVariableRollsBackWhenSampleIDsRunOut(t *testing.T) {
	s := DefaultSettings()
	s.MaxSampleID = 3
	d := openFixture(t, WithSettings(s))
	sensor := fixtureSensor(t, d, 1, 200)
	before := serialized(t, d)
	names := variableNames(sensor)

	// A new rate needs a fourth sample. Placement goes by rate, so the new
	// variable and PSFD take ids 2 and 3 and VOLT3 is the one left over.
	_, _, err := d.AddA2DVariable(context.Background(), On(sensor), A2DVariableSpec{
		Prefix:  "SLOW",
		Volts:   domain.VoltsBipolar10,
		Channel: 5,
		Rate:    10,
		Cals:    []string{"XML:0", "1"},
	})
	if !errors.Is(err, domain.ErrInternalFault) {
		t.Fatalf("expected internal fault, got %v", err)
	}
	var fault domain.InternalFaultError
	if !errors.As(err, &fault) || !strings.Contains(fault.Detail, "VOLT3") {
		t.Fatalf("expected the last placement to fail, got %v", err)
	}
	assertUnchanged(t, d, before)
	if got := variableNames(sensor); !slices.Equal(got, names) {
		t.Fatalf("variables %v, want %v", got, names)
	}
	if got := sampleIDs(sensor); !slices.Equal(got, []uint32{1, 2, 3}) {
		t.Fatalf("sample ids %v", got)
	}
}

func TestUpdateInheritedVariable(t *testing.T) {
	d := openFixture(t)
	sensor := fixtureSensor(t, d, 2, 200)
	v := sensor.Variables()[0]

	updated, _, err := d.UpdateVariable(context.Background(), On(v), VariableSpec{
		Name:     "ACDP",
		LongName: "CDP counts",
		Units:    "#",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LongName != "CDP counts" || updated.Units != "#" || updated.FullName() != "ACDP_LWOI" {
		t.Fatalf("unexpected variable %+v", updated)
	}
	tmpl, _ := d.dom.CatalogElement("CDP")
	tv := variableElement(sampleElement(tmpl, 1), "ACDP")
	if xmldom.Attr(tv, "longname") != "CDP total counts" {
		t.Fatalf("catalog template modified")
	}
}

func TestUpdateAnalogVariable(t *testing.T) {
	d := openFixture(t)
	sensor := fixtureSensor(t, d, 1, 200)
	v := findVariable(sensor, "VOLT3")

	updated, _, err := d.UpdateVariable(context.Background(), On(v), VariableSpec{
		Name:  "VOLT4",
		Rate:  250,
		Units: "V",
		Cals:  []string{"XML:0", "1"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Calibration.Kind != domain.CalLinear || updated.Calibration.Slope != 1 {
		t.Fatalf("calibration %+v", updated.Calibration)
	}
	smp := updated.Sample()
	if smp.Rate != 250 || smp.NumPoints != 2 {
		t.Fatalf("sample %+v", smp)
	}
	if updated.A2D == nil || updated.A2D.Channel != 3 {
		t.Fatalf("channel settings lost")
	}

	before := serialized(t, d)
	if _, _, err := d.UpdateVariable(context.Background(), On(updated), VariableSpec{Name: "PSFD"}); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	assertUnchanged(t, d, before)
	if findVariable(sensor, "VOLT4") == nil {
		t.Fatalf("variable not restored: %v", variableNames(sensor))
	}

	if _, _, err := d.UpdateVariable(context.Background(), On(sensor), VariableSpec{Name: "X"}); !errors.Is(err, domain.ErrContextMismatch) {
		t.Fatalf("expected context mismatch, got %v", err)
	}
}
