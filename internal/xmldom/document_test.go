package xmldom

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"configedit/pkg/domain"
	"configedit/testutil"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFixture(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseBytes(testutil.AircraftXML())
	require.NoError(t, err)
	return doc
}

func TestDeriveProjectFromFixture(t *testing.T) {
	doc := parseFixture(t)
	p, err := doc.DeriveProject()
	require.NoError(t, err)

	assert.Equal(t, "TEST", p.Name)
	assert.Len(t, p.Catalog, 3)
	require.Len(t, p.Sites, 1)
	site := p.Sites[0]
	assert.Equal(t, "GV_N677F", site.Name)
	assert.Equal(t, 1, site.Number)
	require.Len(t, site.DSMs, 3)
	assert.Equal(t, []uint32{1, 2, 5}, []uint32{site.DSMs[0].ID, site.DSMs[1].ID, site.DSMs[2].ID})

	dsm := site.DSMs[0]
	require.Len(t, dsm.Sensors, 2)
	irig := dsm.Sensors[0]
	assert.Equal(t, "IRIG_301", irig.Name())
	require.Len(t, irig.Variables(), 1)
	assert.Equal(t, "IRIG_Tdiff_301", irig.Variables()[0].FullName())

	a2d := dsm.Sensors[1]
	assert.Equal(t, domain.KindAnalogNCAR, a2d.Kind())
	ncar := a2d.Variant.(domain.AnalogNCAR)
	assert.Equal(t, "_FWD", ncar.TempSuffix)
	assert.Equal(t, "A2D01.dat", ncar.CalFile.File)
	assert.Equal(t, "A2D01", a2d.SerialNumber())

	vars := a2d.Variables()
	require.Len(t, vars, 3)
	volt3 := vars[1]
	assert.Equal(t, "VOLT3", volt3.Name)
	require.NotNil(t, volt3.A2D)
	assert.Equal(t, domain.A2DSettings{Channel: 3, Gain: 2, Bipolar: true}, *volt3.A2D)
	assert.Equal(t, domain.CalLinear, volt3.Calibration.Kind)
	assert.Equal(t, "0.5 2", volt3.Calibration.Coefficients())
	assert.InDelta(t, 100, volt3.Sample().Rate, 0)

	psfd := vars[2]
	assert.Equal(t, domain.CalFile, psfd.Calibration.Kind)
	assert.Equal(t, "PSFD.dat", psfd.Calibration.File.File)
	assert.Equal(t, "hPa", psfd.Calibration.Units)
	assert.Equal(t, 10, psfd.Sample().NumPoints)

	cdp := site.DSMs[1].Sensors[1]
	assert.Equal(t, domain.KindPMS, cdp.Kind())
	assert.Equal(t, "CDP016", cdp.SerialNumber())
	_, ok := cdp.Parameter("NCHANNELS")
	assert.True(t, ok, "catalog parameters are merged")

	gps := site.DSMs[2].Sensors[1]
	require.Len(t, gps.Samples, 1)
	assert.InDelta(t, 5, gps.Samples[0].Rate, 0, "sensor sample overrides the catalog sample")
}

func TestSerializeIsIdempotent(t *testing.T) {
	doc := parseFixture(t)
	first, err := doc.Serialize()
	require.NoError(t, err)

	again, err := ParseBytes(first)
	require.NoError(t, err)
	second, err := again.Serialize()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.True(t, bytes.HasPrefix(first, []byte(`<?xml version="1.0" encoding="ISO-8859-1"?>`)))
}

func TestLatin1RoundTrip(t *testing.T) {
	src := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<project name=\"T\xb0C\"><aircraft name=\"A\"/></project>\n")
	doc, err := ParseBytes(src)
	require.NoError(t, err)
	assert.Equal(t, "T°C", Attr(doc.Root(), "name"))
	out, err := doc.Serialize()
	require.NoError(t, err)
	assert.Equal(t, string(src), string(out))
}

func TestParseRejectsForeignRoot(t *testing.T) {
	_, err := ParseBytes([]byte(`<config/>`))
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
	_, err = ParseBytes([]byte(`<project`))
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
}

func TestRenderAppliesSaveLayout(t *testing.T) {
	doc := parseFixture(t)
	out, err := doc.Render()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "\n\n<!-- Gulfstream V, tail N677F -->\n")
	assert.NotContains(t, text, "    <!--")
	assert.Contains(t, text, "\n    <aircraft name=\"GV_N677F\"")
	assert.NotRegexp(t, `\n +\n`, text)
	assert.Equal(t, 1, strings.Count(text, "\n\n"), "only the comment gets a blank line")
}

func TestCleanupForSave(t *testing.T) {
	in := []byte("<a>\n\n    <!-- c -->\n   \n  <b/>\r\n</a>\n")
	got := CleanupForSave(in)
	assert.Equal(t, "<a>\n\n<!-- c -->\n  <b/>\r\n</a>\n", string(got))
	assert.Equal(t, "x", string(CleanupForSave([]byte("x"))))
}

func TestNodeForFollowsTree(t *testing.T) {
	doc := parseFixture(t)
	p, err := doc.DeriveProject()
	require.NoError(t, err)
	site := p.Sites[0]
	dsm := site.DSMs[1]

	el, err := doc.NodeFor(dsm)
	require.NoError(t, err)
	assert.Equal(t, "dsm302", Attr(el, "name"))

	v := site.DSMs[0].Sensors[1].Variables()[1]
	vel, err := doc.NodeFor(v)
	require.NoError(t, err)
	assert.Equal(t, "VOLT3", Attr(vel, "name"))

	doc.Invalidate()
	again, err := doc.NodeFor(dsm)
	require.NoError(t, err)
	assert.Same(t, el, again)

	el.Parent().RemoveChild(el)
	_, err = doc.NodeFor(dsm)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = doc.NodeFor(&domain.DSM{Name: "orphan", ID: 9})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNodeForRelocatesAfterIdentityChange(t *testing.T) {
	doc := parseFixture(t)
	p, err := doc.DeriveProject()
	require.NoError(t, err)
	dsm := p.Sites[0].DSMs[0]
	el, err := doc.NodeFor(dsm)
	require.NoError(t, err)

	SetAttr(el, "id", "7")
	_, err = doc.NodeFor(dsm)
	assert.Error(t, err, "cached element no longer carries the DSM id")

	dsm.ID = 7
	found, err := doc.NodeFor(dsm)
	require.NoError(t, err)
	assert.Same(t, el, found)
}

func TestSnapshotRestoresBytes(t *testing.T) {
	doc := parseFixture(t)
	before, err := doc.Serialize()
	require.NoError(t, err)

	site := doc.SiteElements()[0]
	dsm := site.SelectElements(TagDSM)[1]
	snap := Capture(dsm)
	SetAttr(dsm, "name", "dsm399")
	dsm.AddChild(NewParameter("x", "int", "1"))

	restored, err := snap.Restore()
	require.NoError(t, err)
	require.NotNil(t, restored)
	after, err := doc.Serialize()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	// Restoring twice leaves the tree unchanged.
	_, err = snap.Restore()
	require.NoError(t, err)
	again, _ := doc.Serialize()
	assert.Equal(t, string(before), string(again))

	added := NewDSMElement("dsm306", 6, "tail")
	site.AddChild(added)
	addSnap := Added(added)
	assert.True(t, addSnap.IsAdd())
	gone, err := addSnap.Restore()
	require.NoError(t, err)
	assert.Nil(t, gone)
	final, _ := doc.Serialize()
	assert.Equal(t, string(before), string(final))

	var detached Snapshot
	_, err = detached.Restore()
	assert.Error(t, err)
}

func TestSnapshotRestoresRemovedElement(t *testing.T) {
	doc := parseFixture(t)
	before, _ := doc.Serialize()
	dsm := doc.SiteElements()[0].SelectElements(TagDSM)[0]
	snap := Capture(dsm)
	dsm.Parent().RemoveChild(dsm)
	_, err := snap.Restore()
	require.NoError(t, err)
	after, _ := doc.Serialize()
	assert.Equal(t, string(before), string(after))
}

func TestElementBuilders(t *testing.T) {
	dsm := NewDSMElement("dsm306", 6, "tail")
	assert.Equal(t, "6", Attr(dsm, "id"))
	assert.Equal(t, "tail", Attr(dsm, "location"))
	irig := dsm.SelectElement(TagSensor)
	require.NotNil(t, irig)
	assert.Equal(t, "_306", Attr(irig, "suffix"))
	assert.Equal(t, "IRIG", Attr(irig, "IDREF"))
	require.NotNil(t, dsm.FindElement("output/socket[@type='mcrequest']"))
	assert.Empty(t, Attr(NewDSMElement("wing", 81, ""), "location"))

	smp := NewSampleElement(4, 50, 500)
	assert.Equal(t, "50", Attr(smp, "rate"))
	require.NotNil(t, FindParameter(smp, "numpoints"))
	assert.Equal(t, "10", Attr(FindParameter(smp, "numpoints"), "value"))
	assert.Nil(t, FindParameter(NewSampleElement(5, 500, 500), "filter"))

	SetSampleRate(smp, 500, 500)
	assert.Equal(t, "500", Attr(smp, "rate"))
	assert.Nil(t, FindParameter(smp, "filter"))

	ncar := NewSensorElement(domain.CatalogEntry{ID: domain.CatalogAnalogNCAR}, "/dev/ncar_a2d1", 400, "")
	assert.Equal(t, ClassAnalogNCAR, Attr(ncar, "class"))
	assert.Empty(t, Attr(ncar, "IDREF"))
	cdp := NewSensorElement(domain.CatalogEntry{ID: "CDP", Tag: "serialSensor"}, "/dev/ttyS4", 600, "_RWOI")
	assert.Equal(t, "serialSensor", cdp.Tag)
	assert.Equal(t, "_RWOI", Attr(cdp, "suffix"))

	v := NewA2DVariableElement("TEMP1", "Temperature", domain.A2DSettings{Channel: 2, Gain: 4})
	v.AddChild(NewVarCalFileElement("degC", "GV_N677F", "TEMP1.dat"))
	cf := v.FindElement("poly/calfile")
	require.NotNil(t, cf)
	assert.Equal(t, EngCalFilePath("GV_N677F"), Attr(cf, "path"))
	RemoveCalibration(v)
	assert.Nil(t, CalibrationElement(v))

	derived, err := DeriveVariable(v)
	require.NoError(t, err)
	assert.Equal(t, domain.A2DSettings{Channel: 2, Gain: 4}, *derived.A2D)
}

func TestDeriveRejectsMalformedAttributes(t *testing.T) {
	el := etree.NewElement(TagSample)
	el.CreateAttr("id", "x")
	_, err := DeriveSample(el)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))

	_, err = ParseID("dsm id", "")
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
	_, err = ParseID("dsm id", "-1")
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
	n, err := ParseID("dsm id", " 12 ")
	require.NoError(t, err)
	assert.Equal(t, uint32(12), n)
}
