package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"configedit/internal/xmldom"
	"configedit/pkg/domain"

	"github.com/beevik/etree"
)

// InlineCalMarker prefixes the first calibration entry when the
// coefficients are given inline rather than looked up in a file.
const InlineCalMarker = "XML:"

// A2DVariableSpec is the operator input for an analog variable. Volts is
// one of domain.VoltageRanges. Cals holds inline coefficients, constant
// term first, behind InlineCalMarker; an empty list looks the calibration
// up in the site's engineering calibration files.
type A2DVariableSpec struct {
	Prefix   string
	Suffix   string
	LongName string
	Volts    string
	Channel  int
	Rate     float64
	Units    string
	Cals     []string
}

// Name is the variable name built from prefix and suffix.
func (s A2DVariableSpec) Name() string {
	if s.Suffix == "" {
		return s.Prefix
	}
	return s.Prefix + "_" + s.Suffix
}

// VariableSpec is the operator input for editing a variable. A zero Rate
// keeps the sample rate; nil Cals keeps the calibration.
type VariableSpec struct {
	Name     string
	LongName string
	Units    string
	Rate     float64
	Cals     []string
}

// a2dEntry is one variable waiting to be placed into a sample.
type a2dEntry struct {
	el      *etree.Element
	name    string
	channel int
	rate    float64
}

// AddA2DVariable adds an analog channel to the selected A2D sensor. The
// sensor's variables are regrouped so that samples stay keyed by rate:
// every variable is taken out, ordered by rate and then channel, and put
// back into the sample of its rate, creating samples as needed.
func (d *Document) AddA2DVariable(ctx context.Context, sel Selection, spec A2DVariableSpec) (*domain.Variable, domain.Result, error) {
	sensor, err := sel.sensor()
	if err != nil {
		return nil, domain.Result{}, err
	}
	if !sensor.Kind().IsAnalog() {
		return nil, domain.Result{}, domain.ContextMismatchError{Want: "analog sensor", Got: sensor.Kind().String() + " sensor"}
	}
	site := sensor.Site()
	if site == nil {
		return nil, domain.Result{}, domain.ErrNoSiteSelected
	}
	if spec.Prefix == "" {
		return nil, domain.Result{}, domain.MalformedInputError{Field: "variable name", Value: "", Reason: "empty"}
	}
	if spec.Rate <= 0 {
		return nil, domain.Result{}, domain.MalformedInputError{Field: "rate", Value: xmldom.FormatRate(spec.Rate), Reason: "must be positive"}
	}
	if spec.Channel < 0 || spec.Channel >= d.settings.A2DChannels {
		return nil, domain.Result{}, domain.MalformedInputError{
			Field:  "channel",
			Value:  strconv.Itoa(spec.Channel),
			Reason: fmt.Sprintf("outside 0..%d", d.settings.A2DChannels-1),
		}
	}
	if !slices.Contains(d.AvailableA2DChannels(On(sensor)), spec.Channel) {
		return nil, domain.Result{}, domain.DuplicateIdentifierError{Scope: "sensor " + sensor.Name(), Field: "channel", Value: strconv.Itoa(spec.Channel)}
	}
	gain, bipolar, err := domain.ParseVoltageRange(spec.Volts)
	if err != nil {
		return nil, domain.Result{}, err
	}

	name := spec.Name()
	var created *domain.Variable
	res, err := d.run(ctx, "add_a2d_variable", func(t *tx) error {
		t.site = site
		sensorEl, err := d.captureSensor(t, sensor)
		if err != nil {
			return err
		}

		varEl := xmldom.NewA2DVariableElement(name, spec.LongName, domain.A2DSettings{Channel: spec.Channel, Gain: gain, Bipolar: bipolar})
		cal, missing, err := d.calibrationElement(site, name, spec.Prefix, spec.Units, spec.Cals)
		if err != nil {
			return err
		}
		varEl.AddChild(cal)

		entries := takeA2DVariables(sensorEl)
		entries = append(entries, a2dEntry{el: varEl, name: name, channel: spec.Channel, rate: spec.Rate})
		slices.SortStableFunc(entries, func(a, b a2dEntry) int { return cmp.Compare(a.channel, b.channel) })
		slices.SortStableFunc(entries, func(a, b a2dEntry) int { return cmp.Compare(a.rate, b.rate) })

		var errs []error
		for _, e := range entries {
			if err := d.placeA2DVariable(sensorEl, e); err != nil {
				errs = append(errs, err)
			}
		}
		if err := domain.FirstByPriority(errs); err != nil {
			return err
		}

		if err := d.rederiveSensor(sensor, sensorEl); err != nil {
			return err
		}
		created = findVariable(sensor, name)
		if created == nil {
			return domain.InternalFaultError{Op: "add a2d variable", Detail: "variable " + name + " missing after insert"}
		}
		if missing {
			t.onCommit(func() { d.recordMissingCal(name) })
		}
		t.onCommit(func() { d.model.Refresh(sensor) })
		t.record(domain.EntityVariable, domain.ActionCreate, name)
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}

// takeA2DVariables detaches every channel variable from the non-temperature
// samples of sensorEl, dropping samples left empty.
func takeA2DVariables(sensorEl *etree.Element) []a2dEntry {
	var out []a2dEntry
	for _, smp := range sensorEl.SelectElements(xmldom.TagSample) {
		if isTemperatureSample(smp) {
			continue
		}
		rate, _ := strconv.ParseFloat(strings.TrimSpace(xmldom.Attr(smp, "rate")), 64)
		for _, v := range smp.SelectElements(xmldom.TagVariable) {
			ch := xmldom.FindParameter(v, "channel")
			if ch == nil {
				continue
			}
			n, _ := strconv.Atoi(strings.TrimSpace(xmldom.Attr(ch, "value")))
			smp.RemoveChild(v)
			out = append(out, a2dEntry{el: v, name: xmldom.Attr(v, "name"), channel: n, rate: rate})
		}
		if len(smp.SelectElements(xmldom.TagVariable)) == 0 {
			sensorEl.RemoveChild(smp)
		}
	}
	return out
}

// placeA2DVariable appends e to the sample of its rate, creating the sample
// with the lowest free id when there is none.
func (d *Document) placeA2DVariable(sensorEl *etree.Element, e a2dEntry) error {
	used := make(map[uint32]bool)
	for _, smp := range sensorEl.SelectElements(xmldom.TagSample) {
		id, err := xmldom.ParseID("sample id", xmldom.Attr(smp, "id"))
		if err != nil {
			return err
		}
		used[id] = true
		if isTemperatureSample(smp) {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(xmldom.Attr(smp, "rate")), 64)
		if err == nil && rate == e.rate {
			smp.AddChild(e.el)
			return nil
		}
	}
	for id := uint32(1); id <= d.settings.MaxSampleID; id++ {
		if used[id] {
			continue
		}
		smp := xmldom.NewSampleElement(id, e.rate, d.settings.A2DBaseRate)
		smp.AddChild(e.el)
		insertAfterLast(sensorEl, smp, xmldom.TagSample)
		return nil
	}
	return domain.InternalFaultError{
		Op:     "add a2d variable",
		Detail: fmt.Sprintf("no sample id left for %s at rate %s", e.name, xmldom.FormatRate(e.rate)),
	}
}

func isTemperatureSample(smp *etree.Element) bool {
	p := xmldom.FindParameter(smp, "temperature")
	return p != nil && xmldom.Attr(p, "value") == "true"
}

// UpdateVariable renames the selected variable and rewrites its long name,
// units, sample rate and calibration.
func (d *Document) UpdateVariable(ctx context.Context, sel Selection, spec VariableSpec) (*domain.Variable, domain.Result, error) {
	v, ok := sel.Handle.(*domain.Variable)
	if !ok {
		return nil, domain.Result{}, mismatch("variable", sel.Handle)
	}
	smp := v.Sample()
	if smp == nil || smp.Sensor() == nil {
		return nil, domain.Result{}, domain.NotFoundError{Entity: domain.EntityVariable, Key: v.Name}
	}
	sensor := smp.Sensor()
	site := sensor.Site()
	if site == nil {
		return nil, domain.Result{}, domain.ErrNoSiteSelected
	}
	if spec.Name == "" {
		return nil, domain.Result{}, domain.MalformedInputError{Field: "variable name", Value: "", Reason: "empty"}
	}
	if spec.Rate < 0 {
		return nil, domain.Result{}, domain.MalformedInputError{Field: "rate", Value: xmldom.FormatRate(spec.Rate), Reason: "negative"}
	}
	oldName, sampleID := v.Name, smp.ID
	baseRate := d.a2dBaseRate(sensor)

	var updated *domain.Variable
	res, err := d.run(ctx, "update_variable", func(t *tx) error {
		t.site = site
		sensorEl, err := d.captureSensor(t, sensor)
		if err != nil {
			return err
		}
		smpEl, err := d.ownSample(sensorEl, sensor, sampleID)
		if err != nil {
			return err
		}
		varEl := variableElement(smpEl, oldName)
		if varEl == nil {
			return domain.NotFoundError{Entity: domain.EntityVariable, Key: oldName}
		}
		xmldom.SetAttr(varEl, "name", spec.Name)
		xmldom.SetOptionalAttr(varEl, "longname", spec.LongName)
		xmldom.SetOptionalAttr(varEl, "units", spec.Units)
		if spec.Rate > 0 && xmldom.Attr(smpEl, "rate") != xmldom.FormatRate(spec.Rate) {
			xmldom.SetSampleRate(smpEl, spec.Rate, baseRate)
		}
		missing := false
		if spec.Cals != nil {
			prefix, _, _ := strings.Cut(spec.Name, "_")
			cal, miss, err := d.calibrationElement(site, spec.Name, prefix, "", spec.Cals)
			if err != nil {
				return err
			}
			xmldom.RemoveCalibration(varEl)
			varEl.AddChild(cal)
			missing = miss
		}
		if err := d.rederiveSensor(sensor, sensorEl); err != nil {
			return err
		}
		updated = findVariable(sensor, spec.Name)
		if updated == nil {
			return domain.InternalFaultError{Op: "update variable", Detail: "variable " + spec.Name + " missing after update"}
		}
		if missing {
			t.onCommit(func() { d.recordMissingCal(spec.Name) })
		}
		t.onCommit(func() { d.model.Refresh(sensor) })
		t.record(domain.EntityVariable, domain.ActionUpdate, spec.Name)
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return updated, res, nil
}

func variableElement(smp *etree.Element, name string) *etree.Element {
	for _, v := range smp.SelectElements(xmldom.TagVariable) {
		if xmldom.Attr(v, "name") == name {
			return v
		}
	}
	return nil
}

func findVariable(sensor *domain.Sensor, name string) *domain.Variable {
	for _, v := range sensor.Variables() {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// calibrationElement builds the calibration of a variable. Inline
// coefficients behind InlineCalMarker become a linear element for two
// values and a polynomial for three or more. Otherwise the site's
// engineering calibration files are searched for the variable name and
// then its prefix; the sensor and site suffixes take no part. When neither
// file exists the element still references the name's file and missing is
// set.
func (d *Document) calibrationElement(site *domain.Site, name, prefix, units string, cals []string) (el *etree.Element, missing bool, err error) {
	cals = slices.Clone(cals)
	inline := len(cals) > 0 && strings.HasPrefix(strings.TrimSpace(cals[0]), InlineCalMarker)
	if inline {
		cals[0] = strings.TrimPrefix(strings.TrimSpace(cals[0]), InlineCalMarker)
		if strings.TrimSpace(cals[0]) == "" {
			cals = cals[1:]
		}
	}
	if units == "" && len(cals) > 0 {
		last := strings.TrimSpace(cals[len(cals)-1])
		if _, err := strconv.ParseFloat(last, 64); err != nil && last != "" {
			units = last
			cals = cals[:len(cals)-1]
		}
	}
	if inline {
		el, err := inlineCalibration(units, cals)
		return el, false, err
	}
	file, found := d.resolver.Resolve(name, prefix)
	return xmldom.NewVarCalFileElement(units, site.Name, file), !found, nil
}

func inlineCalibration(units string, cals []string) (*etree.Element, error) {
	var coefs []string
	for _, c := range cals {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return nil, domain.MalformedInputError{Field: "calibration coefficient", Value: c, Reason: "not a number"}
		}
		coefs = append(coefs, c)
	}
	switch {
	case len(cals) > 2 && strings.TrimSpace(cals[2]) != "":
		return xmldom.NewPolyElement(units, coefs), nil
	case len(coefs) == 2:
		return xmldom.NewLinearElement(units, strings.TrimSpace(cals[0]), strings.TrimSpace(cals[1])), nil
	}
	return nil, domain.MalformedInputError{Field: "calibration", Value: strings.Join(cals, " "), Reason: "need an intercept and a slope"}
}

func (d *Document) recordMissingCal(name string) {
	if d.missing.Add(name) {
		d.logger.Warn().Str("variable", name).Str("dir", d.resolver.Dir()).Msg("calibration file not found")
	}
}
