// Package domain defines the typed configuration tree (project, sites, DSMs,
// sensors, samples, variables), the error taxonomy shared by the editor, and
// the rule evaluation primitives used to validate a site.
package domain

import "fmt"

// EntityType identifies a level of the configuration tree.
type EntityType string

// Tree levels, outermost first.
const (
	EntityProject  EntityType = "project"
	EntitySite     EntityType = "site"
	EntityDSM      EntityType = "dsm"
	EntitySensor   EntityType = "sensor"
	EntitySample   EntityType = "sample"
	EntityVariable EntityType = "variable"
)

// CatalogEntry names a sensor template declared in the project's sensor catalog.
type CatalogEntry struct {
	ID    string
	Tag   string
	Class string
}

// Project is the root of the configuration tree.
type Project struct {
	Name    string
	Sites   []*Site
	Catalog []CatalogEntry
}

// AddSite appends a site and adopts it.
func (p *Project) AddSite(site *Site) {
	site.project = p
	p.Sites = append(p.Sites, site)
}

// RemoveSite detaches the site, reporting whether it was present.
func (p *Project) RemoveSite(site *Site) bool {
	for i, s := range p.Sites {
		if s == site {
			p.Sites = append(p.Sites[:i:i], p.Sites[i+1:]...)
			site.project = nil
			return true
		}
	}
	return false
}

// FindSite returns the site with the given name.
func (p *Project) FindSite(name string) (*Site, bool) {
	for _, s := range p.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// FindCatalogEntry returns the catalog template with the given ID.
func (p *Project) FindCatalogEntry(id string) (CatalogEntry, bool) {
	for _, e := range p.Catalog {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// SiteNames lists site names in document order.
func (p *Project) SiteNames() []string {
	names := make([]string, 0, len(p.Sites))
	for _, s := range p.Sites {
		names = append(names, s.Name)
	}
	return names
}

// Site groups the DSMs deployed on one platform.
type Site struct {
	Name   string
	Number int
	Suffix string
	DSMs   []*DSM

	project *Project
}

// Project returns the owning project, nil when detached.
func (s *Site) Project() *Project { return s.project }

// AddDSM appends a DSM and adopts it.
func (s *Site) AddDSM(dsm *DSM) {
	dsm.site = s
	s.DSMs = append(s.DSMs, dsm)
}

// RemoveDSM detaches the DSM, reporting whether it was present.
func (s *Site) RemoveDSM(dsm *DSM) bool {
	for i, d := range s.DSMs {
		if d == dsm {
			s.DSMs = append(s.DSMs[:i:i], s.DSMs[i+1:]...)
			dsm.site = nil
			return true
		}
	}
	return false
}

// FindDSM returns the DSM with the given id.
func (s *Site) FindDSM(id uint32) (*DSM, bool) {
	for _, d := range s.DSMs {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// FindDSMByName returns the DSM with the given name.
func (s *Site) FindDSMByName(name string) (*DSM, bool) {
	for _, d := range s.DSMs {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// DSM is a data system module hosting sensors.
type DSM struct {
	Name     string
	ID       uint32
	Location string
	Sensors  []*Sensor

	site *Site
}

// Site returns the owning site, nil when detached.
func (d *DSM) Site() *Site { return d.site }

// Label renders the DSM the way operators refer to it.
func (d *DSM) Label() string {
	return fmt.Sprintf("%s [%s]", d.Location, d.Name)
}

// AddSensor appends a sensor and adopts it.
func (d *DSM) AddSensor(sensor *Sensor) {
	sensor.dsm = d
	d.Sensors = append(d.Sensors, sensor)
}

// RemoveSensor detaches the sensor, reporting whether it was present.
func (d *DSM) RemoveSensor(sensor *Sensor) bool {
	for i, s := range d.Sensors {
		if s == sensor {
			d.Sensors = append(d.Sensors[:i:i], d.Sensors[i+1:]...)
			sensor.dsm = nil
			return true
		}
	}
	return false
}

// FindSensor returns the sensor with the given sensor id.
func (d *DSM) FindSensor(id uint32) (*Sensor, bool) {
	for _, s := range d.Sensors {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Assign copies the identifying fields of a freshly derived DSM into d.
// d keeps its parent and its sensors, so handles on either stay valid.
func (d *DSM) Assign(from *DSM) {
	d.Name = from.Name
	d.ID = from.ID
	d.Location = from.Location
}

// Parameter is a typed name/value pair attached to a sensor or sample.
type Parameter struct {
	Name  string
	Type  string
	Value string
}

func findParameter(params []Parameter, name string) (Parameter, bool) {
	for _, p := range params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Sensor is a configured instrument attached to a DSM.
type Sensor struct {
	Tag         string
	CatalogName string
	Class       string
	DeviceName  string
	ID          uint32
	Suffix      string
	Parameters  []Parameter
	Samples     []*Sample
	Variant     SensorVariant

	dsm *DSM
}

// DSM returns the owning DSM, nil when detached.
func (s *Sensor) DSM() *DSM { return s.dsm }

// Site returns the owning site through the DSM.
func (s *Sensor) Site() *Site {
	if s.dsm == nil {
		return nil
	}
	return s.dsm.site
}

// Kind reports the sensor variant; sensors without a variant are generic.
func (s *Sensor) Kind() SensorKind {
	if s.Variant == nil {
		return KindGeneric
	}
	return s.Variant.Kind()
}

// Name is the catalog (or class) name followed by the suffix.
func (s *Sensor) Name() string {
	if s.CatalogName != "" {
		return s.CatalogName + s.Suffix
	}
	return s.Class + s.Suffix
}

// Parameter returns the named sensor parameter.
func (s *Sensor) Parameter(name string) (Parameter, bool) {
	return findParameter(s.Parameters, name)
}

// AddSample appends a sample and adopts it.
func (s *Sensor) AddSample(sample *Sample) {
	sample.sensor = s
	s.Samples = append(s.Samples, sample)
}

// FindSample returns the sample with the given id.
func (s *Sensor) FindSample(id uint32) (*Sample, bool) {
	for _, smp := range s.Samples {
		if smp.ID == id {
			return smp, true
		}
	}
	return nil, false
}

// Variables lists every variable of every sample in order.
func (s *Sensor) Variables() []*Variable {
	var out []*Variable
	for _, smp := range s.Samples {
		out = append(out, smp.Variables...)
	}
	return out
}

// Assign copies the state of a freshly derived sensor into s, keeping s's
// identity and owning DSM.
func (s *Sensor) Assign(from *Sensor) {
	s.Tag = from.Tag
	s.CatalogName = from.CatalogName
	s.Class = from.Class
	s.DeviceName = from.DeviceName
	s.ID = from.ID
	s.Suffix = from.Suffix
	s.Parameters = append([]Parameter(nil), from.Parameters...)
	s.Variant = from.Variant
	s.Samples = nil
	for _, smp := range from.Samples {
		s.AddSample(smp)
	}
}

// Sample is a group of variables emitted together at one rate.
type Sample struct {
	ID         uint32
	Rate       float64
	Filter     string
	NumPoints  int
	Parameters []Parameter
	Variables  []*Variable

	sensor *Sensor
}

// Sensor returns the owning sensor, nil when detached.
func (s *Sample) Sensor() *Sensor { return s.sensor }

// IsTemperature reports whether this is an A2D board temperature sample.
func (s *Sample) IsTemperature() bool {
	p, ok := findParameter(s.Parameters, "temperature")
	return ok && p.Value == "true"
}

// AddVariable appends a variable and adopts it.
func (s *Sample) AddVariable(v *Variable) {
	v.sample = s
	s.Variables = append(s.Variables, v)
}

// FindVariable returns the variable with the given name.
func (s *Sample) FindVariable(name string) (*Variable, bool) {
	for _, v := range s.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Variable is a single measurement channel.
type Variable struct {
	Name        string
	LongName    string
	Units       string
	A2D         *A2DSettings
	Calibration Calibration

	sample *Sample
}

// Sample returns the owning sample, nil when detached.
func (v *Variable) Sample() *Sample { return v.sample }

// FullName is the variable name with the sensor and site suffixes appended.
func (v *Variable) FullName() string {
	name := v.Name
	if v.sample == nil || v.sample.sensor == nil {
		return name
	}
	name += v.sample.sensor.Suffix
	if site := v.sample.sensor.Site(); site != nil {
		name += site.Suffix
	}
	return name
}

// A2DSettings holds the analog front-end settings of an A2D channel.
type A2DSettings struct {
	Channel int
	Gain    float64
	Bipolar bool
}
