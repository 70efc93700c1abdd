package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"configedit/internal/catalog"
	"configedit/internal/xmldom"
	"configedit/pkg/domain"

	"github.com/beevik/etree"
)

// SensorSpec is the operator input for a sensor. TempSuffix and A2DCalFile
// apply to the A2D boards, PMSSerial and PMSResolution to particle probes.
type SensorSpec struct {
	CatalogID     string
	Device        string
	ID            string
	Suffix        string
	TempSuffix    string
	A2DCalFile    string
	PMSSerial     string
	PMSResolution string
}

// SampleSpec is the operator input for a sample.
type SampleSpec struct {
	ID   string
	Rate float64
}

// AddSensor creates a sensor of a catalog type in the selected DSM.
func (d *Document) AddSensor(ctx context.Context, sel Selection, spec SensorSpec) (*domain.Sensor, domain.Result, error) {
	dsm, err := sel.dsm()
	if err != nil {
		return nil, domain.Result{}, err
	}
	site := dsm.Site()
	if site == nil {
		return nil, domain.Result{}, domain.ErrNoSiteSelected
	}
	entry, err := d.catalogEntry(spec.CatalogID)
	if err != nil {
		return nil, domain.Result{}, err
	}
	id, err := d.checkSensorSpec(ctx, entry.ID, spec)
	if err != nil {
		return nil, domain.Result{}, err
	}

	var created *domain.Sensor
	res, err := d.run(ctx, "add_sensor", func(t *tx) error {
		t.site = site
		dsmEl, err := d.dom.NodeFor(dsm)
		if err != nil {
			return domain.InternalFaultError{Op: "add sensor", Detail: "dsm element", Err: err}
		}
		el := xmldom.NewSensorElement(entry, spec.Device, id, spec.Suffix)
		switch entry.ID {
		case domain.CatalogAnalogNCAR:
			el.AddChild(xmldom.NewCalFileElement(xmldom.A2DCalPathNCAR, calFileName(spec.A2DCalFile)))
			xmldom.SetParameter(el, "rate", "int", strconv.Itoa(d.settings.A2DBaseRate))
			el.AddChild(xmldom.NewTemperatureSample(spec.TempSuffix))
		case domain.CatalogAnalogDMMAT:
			el.AddChild(xmldom.NewCalFileElement(xmldom.A2DCalPathDMMAT, calFileName(spec.A2DCalFile)))
			xmldom.SetParameter(el, "rate", "int", strconv.Itoa(d.settings.A2DBaseRate))
		default:
			if domain.IsPMSCatalogID(entry.ID) {
				setPMSParameters(el, spec)
			}
		}
		insertBefore(dsmEl, el, xmldom.TagOutput)
		t.added(el)

		sensor, err := d.dom.DeriveSensor(el)
		if err != nil {
			return err
		}
		dsm.AddSensor(sensor)
		t.onUndo(func() error {
			dsm.RemoveSensor(sensor)
			d.dom.Forget(sensor)
			return nil
		})
		t.onCommit(func() { d.model.AppendRow(dsm, sensor) })
		t.record(domain.EntitySensor, domain.ActionCreate, sensor.Name())
		created = sensor
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}

// UpdateSensor rewrites the device, id and suffix of the selected sensor,
// and the fields specific to its kind.
func (d *Document) UpdateSensor(ctx context.Context, sel Selection, spec SensorSpec) (domain.Result, error) {
	sensor, err := sel.sensor()
	if err != nil {
		return domain.Result{}, err
	}
	site := sensor.Site()
	if site == nil {
		return domain.Result{}, domain.ErrNoSiteSelected
	}
	catalogID := sensor.CatalogName
	switch sensor.Kind() {
	case domain.KindAnalogNCAR:
		catalogID = domain.CatalogAnalogNCAR
	case domain.KindAnalogDMMAT:
		catalogID = domain.CatalogAnalogDMMAT
	}
	id, err := d.checkSensorSpec(ctx, catalogID, spec)
	if err != nil {
		return domain.Result{}, err
	}

	return d.run(ctx, "update_sensor", func(t *tx) error {
		t.site = site
		el, err := d.dom.NodeFor(sensor)
		if err != nil {
			return domain.InternalFaultError{Op: "update sensor", Detail: "sensor element", Err: err}
		}
		t.capture(el, func(restored *etree.Element) error {
			return d.rederiveSensor(sensor, restored)
		})
		xmldom.SetAttr(el, "devicename", spec.Device)
		xmldom.SetAttr(el, "id", strconv.FormatUint(uint64(id), 10))
		xmldom.SetOptionalAttr(el, "suffix", spec.Suffix)
		switch sensor.Kind() {
		case domain.KindAnalogNCAR:
			setTemperatureSuffix(el, spec.TempSuffix)
			setBoardCalFile(el, xmldom.A2DCalPathNCAR, spec.A2DCalFile)
		case domain.KindAnalogDMMAT:
			setBoardCalFile(el, xmldom.A2DCalPathDMMAT, spec.A2DCalFile)
		case domain.KindPMS:
			setPMSParameters(el, spec)
		}
		if err := d.rederiveSensor(sensor, el); err != nil {
			return err
		}
		t.onCommit(func() { d.model.Refresh(sensor) })
		t.record(domain.EntitySensor, domain.ActionUpdate, sensor.Name())
		return nil
	})
}

// AddSample creates an empty sample in the selected sensor.
func (d *Document) AddSample(ctx context.Context, sel Selection, spec SampleSpec) (*domain.Sample, domain.Result, error) {
	sensor, err := sel.sensor()
	if err != nil {
		return nil, domain.Result{}, err
	}
	id, err := ValidateSampleInfo(sensor, spec.ID)
	if err != nil {
		return nil, domain.Result{}, err
	}
	if spec.Rate <= 0 {
		return nil, domain.Result{}, domain.MalformedInputError{Field: "sample rate", Value: xmldom.FormatRate(spec.Rate), Reason: "must be positive"}
	}
	var created *domain.Sample
	res, err := d.run(ctx, "add_sample", func(t *tx) error {
		t.site = sensor.Site()
		el, err := d.captureSensor(t, sensor)
		if err != nil {
			return err
		}
		el.AddChild(xmldom.NewSampleElement(id, spec.Rate, d.a2dBaseRate(sensor)))
		if err := d.rederiveSensor(sensor, el); err != nil {
			return err
		}
		created, _ = sensor.FindSample(id)
		t.onCommit(func() { d.model.Refresh(sensor) })
		t.record(domain.EntitySample, domain.ActionCreate, spec.ID)
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}

// UpdateSampleRate changes the rate of one sample of the selected sensor. A
// sample the sensor inherits from its catalog entry is copied into the
// sensor first.
func (d *Document) UpdateSampleRate(ctx context.Context, sel Selection, sampleID uint32, rate float64) (domain.Result, error) {
	sensor, err := sel.sensor()
	if err != nil {
		return domain.Result{}, err
	}
	smp, ok := sensor.FindSample(sampleID)
	if !ok {
		return domain.Result{}, domain.NotFoundError{Entity: domain.EntitySample, Key: strconv.FormatUint(uint64(sampleID), 10)}
	}
	if rate <= 0 {
		return domain.Result{}, domain.MalformedInputError{Field: "sample rate", Value: xmldom.FormatRate(rate), Reason: "must be positive"}
	}
	baseRate := 0
	if !smp.IsTemperature() {
		baseRate = d.a2dBaseRate(sensor)
	}
	return d.run(ctx, "update_sample_rate", func(t *tx) error {
		t.site = sensor.Site()
		el, err := d.captureSensor(t, sensor)
		if err != nil {
			return err
		}
		smpEl, err := d.ownSample(el, sensor, sampleID)
		if err != nil {
			return err
		}
		xmldom.SetSampleRate(smpEl, rate, baseRate)
		if err := d.rederiveSensor(sensor, el); err != nil {
			return err
		}
		t.onCommit(func() { d.model.Refresh(sensor) })
		t.record(domain.EntitySample, domain.ActionUpdate, strconv.FormatUint(uint64(sampleID), 10))
		return nil
	})
}

func (d *Document) catalogEntry(id string) (domain.CatalogEntry, error) {
	switch id {
	case domain.CatalogAnalogNCAR:
		return domain.CatalogEntry{ID: id, Tag: xmldom.TagSensor, Class: xmldom.ClassAnalogNCAR}, nil
	case domain.CatalogAnalogDMMAT:
		return domain.CatalogEntry{ID: id, Tag: xmldom.TagSensor, Class: xmldom.ClassAnalogDMMAT}, nil
	}
	entry, ok := d.project.FindCatalogEntry(id)
	if !ok {
		return domain.CatalogEntry{}, domain.MalformedInputError{Field: "sensor type", Value: id, Reason: "not in the sensor catalog"}
	}
	return entry, nil
}

// checkSensorSpec validates the fields common to adding and updating a
// sensor and returns the parsed sensor id.
func (d *Document) checkSensorSpec(ctx context.Context, catalogID string, spec SensorSpec) (uint32, error) {
	if spec.Device == "" {
		return 0, domain.MalformedInputError{Field: "device", Value: spec.Device, Reason: "empty"}
	}
	id, err := parseID("sensor id", spec.ID)
	if err != nil {
		return 0, err
	}
	if d.devices != nil {
		if err := catalog.ValidateDevice(ctx, d.devices, catalogID, spec.Device); err != nil {
			return 0, err
		}
	}
	if domain.IsPMSCatalogID(catalogID) {
		if spec.PMSSerial == "" {
			return 0, domain.MalformedInputError{Field: "serial number", Value: "", Reason: "required for " + catalogID}
		}
		if spec.PMSResolution != "" {
			if _, err := strconv.Atoi(spec.PMSResolution); err != nil {
				return 0, domain.MalformedInputError{Field: "resolution", Value: spec.PMSResolution, Reason: "not an integer"}
			}
		}
	}
	return id, nil
}

func (d *Document) a2dBaseRate(sensor *domain.Sensor) int {
	if sensor.Kind().IsAnalog() {
		return d.settings.A2DBaseRate
	}
	return 0
}

// captureSensor snapshots the sensor's element so that rollback rebuilds the
// sensor from the saved copy.
func (d *Document) captureSensor(t *tx, sensor *domain.Sensor) (*etree.Element, error) {
	el, err := d.dom.NodeFor(sensor)
	if err != nil {
		return nil, domain.InternalFaultError{Op: t.op, Detail: "sensor element", Err: err}
	}
	t.capture(el, func(restored *etree.Element) error {
		return d.rederiveSensor(sensor, restored)
	})
	return el, nil
}

// rederiveSensor rebuilds the sensor's state from el, keeping the sensor
// itself so handles to it stay valid.
func (d *Document) rederiveSensor(sensor *domain.Sensor, el *etree.Element) error {
	derived, err := d.dom.DeriveSensor(el)
	if err != nil {
		return err
	}
	for _, smp := range sensor.Samples {
		for _, v := range smp.Variables {
			d.dom.Forget(v)
		}
		d.dom.Forget(smp)
	}
	sensor.Assign(derived)
	return nil
}

// ownSample returns the sample element with the given id inside the
// sensor's element, copying it from the catalog entry when the sensor only
// inherits it.
func (d *Document) ownSample(sensorEl *etree.Element, sensor *domain.Sensor, id uint32) (*etree.Element, error) {
	if el := sampleElement(sensorEl, id); el != nil {
		return el, nil
	}
	if sensor.CatalogName != "" {
		if tmpl, ok := d.dom.CatalogElement(sensor.CatalogName); ok {
			if src := sampleElement(tmpl, id); src != nil {
				cp := src.Copy()
				insertAfterLast(sensorEl, cp, xmldom.TagSample)
				return cp, nil
			}
		}
	}
	return nil, domain.NotFoundError{Entity: domain.EntitySample, Key: fmt.Sprintf("%s#%d", sensor.Name(), id)}
}

func sampleElement(parent *etree.Element, id uint32) *etree.Element {
	for _, el := range parent.SelectElements(xmldom.TagSample) {
		if n, err := xmldom.ParseID("sample id", xmldom.Attr(el, "id")); err == nil && n == id {
			return el
		}
	}
	return nil
}

func calFileName(name string) string {
	if name == "" || strings.HasSuffix(name, ".dat") {
		return name
	}
	return name + ".dat"
}

func setPMSParameters(el *etree.Element, spec SensorSpec) {
	if spec.PMSSerial != "" {
		xmldom.SetParameter(el, "SerialNumber", "string", spec.PMSSerial)
	}
	if spec.PMSResolution != "" {
		xmldom.SetParameter(el, "RESOLUTION", "int", spec.PMSResolution)
	}
}

func setBoardCalFile(el *etree.Element, path, file string) {
	if file == "" {
		return
	}
	cf := el.SelectElement(xmldom.TagCalFile)
	if cf == nil {
		el.InsertChildAt(0, xmldom.NewCalFileElement(path, calFileName(file)))
		return
	}
	xmldom.SetAttr(cf, "file", calFileName(file))
}

func setTemperatureSuffix(el *etree.Element, suffix string) {
	for _, smp := range el.SelectElements(xmldom.TagSample) {
		p := xmldom.FindParameter(smp, "temperature")
		if p == nil || xmldom.Attr(p, "value") != "true" {
			continue
		}
		if v := smp.SelectElement(xmldom.TagVariable); v != nil {
			xmldom.SetAttr(v, "name", xmldom.A2DTempPrefix+suffix)
		}
		return
	}
	el.AddChild(xmldom.NewTemperatureSample(suffix))
}
