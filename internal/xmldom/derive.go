package xmldom

import (
	"strconv"
	"strings"

	"configedit/pkg/domain"

	"github.com/beevik/etree"
)

// DeriveProject builds the whole domain tree from the document.
func (d *Document) DeriveProject() (*domain.Project, error) {
	root := d.doc.Root()
	p := &domain.Project{Name: Attr(root, "name")}
	for _, cat := range root.SelectElements(TagSensorCatalog) {
		for _, el := range cat.ChildElements() {
			if !IsSensorTag(el.Tag) {
				continue
			}
			p.Catalog = append(p.Catalog, domain.CatalogEntry{
				ID:    Attr(el, "ID"),
				Tag:   el.Tag,
				Class: Attr(el, "class"),
			})
		}
	}
	for _, el := range d.SiteElements() {
		site, err := d.DeriveSite(el)
		if err != nil {
			return nil, err
		}
		p.AddSite(site)
	}
	return p, nil
}

// DeriveSite builds a site and everything below it.
func (d *Document) DeriveSite(el *etree.Element) (*domain.Site, error) {
	site := &domain.Site{
		Name:   Attr(el, "name"),
		Suffix: Attr(el, "suffix"),
	}
	if v := Attr(el, "number"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, domain.MalformedInputError{Field: "site number", Value: v, Reason: "not an integer"}
		}
		site.Number = n
	}
	for _, child := range el.SelectElements(TagDSM) {
		dsm, err := d.DeriveDSM(child)
		if err != nil {
			return nil, err
		}
		site.AddDSM(dsm)
	}
	return site, nil
}

// DeriveDSM builds a DSM and its sensors.
func (d *Document) DeriveDSM(el *etree.Element) (*domain.DSM, error) {
	id, err := ParseID("dsm id", Attr(el, "id"))
	if err != nil {
		return nil, err
	}
	dsm := &domain.DSM{
		Name:     Attr(el, "name"),
		ID:       id,
		Location: Attr(el, "location"),
	}
	for _, child := range el.ChildElements() {
		if !IsSensorTag(child.Tag) {
			continue
		}
		sensor, err := d.DeriveSensor(child)
		if err != nil {
			return nil, err
		}
		dsm.AddSensor(sensor)
	}
	return dsm, nil
}

// DeriveSensor builds a sensor, merging the samples and parameters of its
// catalog template with its own. A sensor sample replaces the template
// sample of equal id.
func (d *Document) DeriveSensor(el *etree.Element) (*domain.Sensor, error) {
	s := &domain.Sensor{
		Tag:         el.Tag,
		CatalogName: Attr(el, "IDREF"),
		Class:       Attr(el, "class"),
		DeviceName:  Attr(el, "devicename"),
		Suffix:      Attr(el, "suffix"),
	}
	id, err := ParseID("sensor id", Attr(el, "id"))
	if err != nil {
		return nil, err
	}
	s.ID = id

	var sources []*etree.Element
	if s.CatalogName != "" {
		tmpl, ok := d.CatalogElement(s.CatalogName)
		if !ok {
			return nil, domain.MalformedInputError{Field: "IDREF", Value: s.CatalogName, Reason: "no such catalog entry"}
		}
		if s.Class == "" {
			s.Class = Attr(tmpl, "class")
		}
		sources = append(sources, tmpl)
	}
	sources = append(sources, el)

	var sampleEls []*etree.Element
	var calfile *etree.Element
	for _, src := range sources {
		for _, p := range src.SelectElements(TagParameter) {
			s.Parameters = mergeParameter(s.Parameters, parameterOf(p))
		}
		if cf := src.SelectElement(TagCalFile); cf != nil {
			calfile = cf
		}
		for _, smp := range src.SelectElements(TagSample) {
			sampleEls = mergeSample(sampleEls, smp)
		}
	}

	for _, smpEl := range sampleEls {
		smp, err := DeriveSample(smpEl)
		if err != nil {
			return nil, err
		}
		s.AddSample(smp)
	}

	switch classifySensor(s) {
	case domain.KindAnalogNCAR:
		v := domain.AnalogNCAR{}
		if calfile != nil {
			v.CalFile = domain.CalFileRef{Path: Attr(calfile, "path"), File: Attr(calfile, "file")}
		}
		for _, smp := range s.Samples {
			if smp.IsTemperature() && len(smp.Variables) > 0 {
				v.TempSuffix = strings.TrimPrefix(smp.Variables[0].Name, A2DTempPrefix)
				break
			}
		}
		s.Variant = v
	case domain.KindAnalogDMMAT:
		v := domain.AnalogDMMAT{}
		if calfile != nil {
			v.CalFile = domain.CalFileRef{Path: Attr(calfile, "path"), File: Attr(calfile, "file")}
		}
		s.Variant = v
	case domain.KindPMS:
		v := domain.PMSSensor{}
		if p, ok := s.Parameter("SerialNumber"); ok {
			v.SerialNumber = p.Value
		}
		if p, ok := s.Parameter("RESOLUTION"); ok {
			v.Resolution = p.Value
		}
		s.Variant = v
	default:
		s.Variant = domain.GenericSensor{}
	}
	return s, nil
}

func classifySensor(s *domain.Sensor) domain.SensorKind {
	switch {
	case s.Class == ClassAnalogNCAR || s.CatalogName == domain.CatalogAnalogNCAR || IsNCARDevice(s.DeviceName):
		return domain.KindAnalogNCAR
	case s.Class == ClassAnalogDMMAT || s.CatalogName == domain.CatalogAnalogDMMAT || IsDMMATDevice(s.DeviceName):
		return domain.KindAnalogDMMAT
	case domain.IsPMSCatalogID(s.CatalogName):
		return domain.KindPMS
	}
	return domain.KindGeneric
}

func parameterOf(el *etree.Element) domain.Parameter {
	return domain.Parameter{Name: Attr(el, "name"), Type: Attr(el, "type"), Value: Attr(el, "value")}
}

func mergeParameter(params []domain.Parameter, p domain.Parameter) []domain.Parameter {
	for i := range params {
		if params[i].Name == p.Name {
			params[i] = p
			return params
		}
	}
	return append(params, p)
}

func mergeSample(samples []*etree.Element, smp *etree.Element) []*etree.Element {
	id := Attr(smp, "id")
	for i, existing := range samples {
		if Attr(existing, "id") == id {
			samples[i] = smp
			return samples
		}
	}
	return append(samples, smp)
}

// DeriveSample builds a sample and its variables.
func DeriveSample(el *etree.Element) (*domain.Sample, error) {
	smp := &domain.Sample{}
	if v := Attr(el, "id"); v != "" {
		id, err := ParseID("sample id", v)
		if err != nil {
			return nil, err
		}
		smp.ID = id
	}
	if v := Attr(el, "rate"); v != "" {
		rate, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, domain.MalformedInputError{Field: "sample rate", Value: v, Reason: "not a number"}
		}
		smp.Rate = rate
	}
	for _, p := range el.SelectElements(TagParameter) {
		param := parameterOf(p)
		smp.Parameters = append(smp.Parameters, param)
		switch param.Name {
		case "filter":
			smp.Filter = param.Value
		case "numpoints":
			n, err := strconv.Atoi(strings.TrimSpace(param.Value))
			if err != nil {
				return nil, domain.MalformedInputError{Field: "numpoints", Value: param.Value, Reason: "not an integer"}
			}
			smp.NumPoints = n
		}
	}
	for _, vel := range el.SelectElements(TagVariable) {
		v, err := DeriveVariable(vel)
		if err != nil {
			return nil, err
		}
		smp.AddVariable(v)
	}
	return smp, nil
}

// DeriveVariable builds a variable with its A2D settings and calibration.
func DeriveVariable(el *etree.Element) (*domain.Variable, error) {
	v := &domain.Variable{
		Name:     Attr(el, "name"),
		LongName: Attr(el, "longname"),
		Units:    Attr(el, "units"),
	}
	if v.Name == "" {
		return nil, domain.MalformedInputError{Field: "variable name", Value: "", Reason: "empty"}
	}
	if ch := FindParameter(el, "channel"); ch != nil {
		a2d := &domain.A2DSettings{Gain: 1}
		n, err := strconv.Atoi(strings.TrimSpace(Attr(ch, "value")))
		if err != nil {
			return nil, domain.MalformedInputError{Field: "channel", Value: Attr(ch, "value"), Reason: "not an integer"}
		}
		a2d.Channel = n
		if g := FindParameter(el, "gain"); g != nil {
			gain, err := strconv.ParseFloat(strings.TrimSpace(Attr(g, "value")), 64)
			if err != nil {
				return nil, domain.MalformedInputError{Field: "gain", Value: Attr(g, "value"), Reason: "not a number"}
			}
			a2d.Gain = gain
		}
		if b := FindParameter(el, "bipolar"); b != nil {
			bip, err := strconv.ParseBool(strings.TrimSpace(Attr(b, "value")))
			if err != nil {
				return nil, domain.MalformedInputError{Field: "bipolar", Value: Attr(b, "value"), Reason: "not a boolean"}
			}
			a2d.Bipolar = bip
		}
		v.A2D = a2d
	}
	if cal := CalibrationElement(el); cal != nil {
		c, err := deriveCalibration(cal)
		if err != nil {
			return nil, err
		}
		v.Calibration = c
	}
	return v, nil
}

func deriveCalibration(el *etree.Element) (domain.Calibration, error) {
	c := domain.Calibration{Units: Attr(el, "units")}
	switch el.Tag {
	case TagLinear:
		c.Kind = domain.CalLinear
		c.Slope = 1
		if v := Attr(el, "intercept"); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return c, domain.MalformedInputError{Field: "intercept", Value: v, Reason: "not a number"}
			}
			c.Intercept = f
		}
		if v := Attr(el, "slope"); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return c, domain.MalformedInputError{Field: "slope", Value: v, Reason: "not a number"}
			}
			c.Slope = f
		}
	case TagPoly:
		if cf := el.SelectElement(TagCalFile); cf != nil {
			c.Kind = domain.CalFile
			c.File = domain.CalFileRef{Path: Attr(cf, "path"), File: Attr(cf, "file")}
			return c, nil
		}
		c.Kind = domain.CalPoly
		for _, f := range strings.Fields(Attr(el, "coefs")) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return c, domain.MalformedInputError{Field: "coefs", Value: f, Reason: "not a number"}
			}
			c.Coefs = append(c.Coefs, v)
		}
	}
	return c, nil
}

// ParseID parses an unsigned identifier attribute.
func ParseID(field, value string) (uint32, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, domain.MalformedInputError{Field: field, Value: value, Reason: "empty"}
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, domain.MalformedInputError{Field: field, Value: value, Reason: "not an unsigned integer"}
	}
	return uint32(n), nil
}
