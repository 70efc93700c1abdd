package xmldom

import (
	"fmt"
	"strconv"
	"strings"

	"configedit/pkg/domain"

	"github.com/beevik/etree"
)

// SetAttr removes key and then sets it, so a stale value can never survive.
func SetAttr(el *etree.Element, key, value string) {
	el.RemoveAttr(key)
	el.CreateAttr(key, value)
}

// SetOptionalAttr removes key and sets it again only when value is non-empty.
func SetOptionalAttr(el *etree.Element, key, value string) {
	el.RemoveAttr(key)
	if value != "" {
		el.CreateAttr(key, value)
	}
}

// Attr returns the attribute value or the empty string.
func Attr(el *etree.Element, key string) string {
	return el.SelectAttrValue(key, "")
}

// NewParameter builds a typed parameter element.
func NewParameter(name, typ, value string) *etree.Element {
	el := etree.NewElement(TagParameter)
	el.CreateAttr("name", name)
	el.CreateAttr("value", value)
	el.CreateAttr("type", typ)
	return el
}

// FindParameter returns the direct parameter child with the given name.
func FindParameter(parent *etree.Element, name string) *etree.Element {
	for _, el := range parent.SelectElements(TagParameter) {
		if Attr(el, "name") == name {
			return el
		}
	}
	return nil
}

// SetParameter rewrites an existing parameter or appends a new one.
func SetParameter(parent *etree.Element, name, typ, value string) {
	if el := FindParameter(parent, name); el != nil {
		SetAttr(el, "value", value)
		SetAttr(el, "type", typ)
		return
	}
	parent.AddChild(NewParameter(name, typ, value))
}

// RemoveParameter deletes every parameter child with the given name.
func RemoveParameter(parent *etree.Element, name string) {
	for _, el := range parent.SelectElements(TagParameter) {
		if Attr(el, "name") == name {
			parent.RemoveChild(el)
		}
	}
}

// IRIGSuffix derives the IRIG sensor suffix of a DSM: an underscore followed
// by the DSM name with its first "dsm" removed.
func IRIGSuffix(dsmName string) string {
	return "_" + strings.Replace(dsmName, "dsm", "", 1)
}

// NewDSMElement builds a DSM with its IRIG card and multicast output.
func NewDSMElement(name string, id uint32, location string) *etree.Element {
	dsm := etree.NewElement(TagDSM)
	dsm.CreateAttr("name", name)
	dsm.CreateAttr("id", strconv.FormatUint(uint64(id), 10))
	if location != "" {
		dsm.CreateAttr("location", location)
	}
	dsm.CreateAttr("rserialPort", "30002")
	dsm.CreateAttr("statusAddr", "sock::30001")
	dsm.CreateAttr("derivedData", "sock::7071")

	irig := dsm.CreateElement(TagSensor)
	irig.CreateAttr("IDREF", domain.CatalogIRIG)
	irig.CreateAttr("devicename", "/dev/irig0")
	irig.CreateAttr("id", "100")
	irig.CreateAttr("suffix", IRIGSuffix(name))

	out := dsm.CreateElement(TagOutput)
	out.CreateAttr("class", "RawSampleOutputStream")
	sock := out.CreateElement(TagSocket)
	sock.CreateAttr("type", "mcrequest")
	return dsm
}

// NewSensorElement builds a sensor element for a catalog entry. The analog
// boards are written by class; everything else references the catalog.
func NewSensorElement(entry domain.CatalogEntry, device string, id uint32, suffix string) *etree.Element {
	var el *etree.Element
	switch entry.ID {
	case domain.CatalogAnalogNCAR:
		el = etree.NewElement(TagSensor)
		el.CreateAttr("class", ClassAnalogNCAR)
	case domain.CatalogAnalogDMMAT:
		el = etree.NewElement(TagSensor)
		el.CreateAttr("class", ClassAnalogDMMAT)
	default:
		tag := entry.Tag
		if tag == "" {
			tag = TagSensor
		}
		el = etree.NewElement(tag)
		el.CreateAttr("IDREF", entry.ID)
	}
	el.CreateAttr("devicename", device)
	el.CreateAttr("id", strconv.FormatUint(uint64(id), 10))
	if suffix != "" {
		el.CreateAttr("suffix", suffix)
	}
	return el
}

// NewCalFileElement builds a calibration file reference.
func NewCalFileElement(path, file string) *etree.Element {
	el := etree.NewElement(TagCalFile)
	el.CreateAttr("path", path)
	el.CreateAttr("file", file)
	return el
}

// NewTemperatureSample builds the NCAR board temperature sample.
func NewTemperatureSample(tempSuffix string) *etree.Element {
	smp := etree.NewElement(TagSample)
	smp.CreateAttr("id", "1")
	smp.CreateAttr("rate", "1")
	smp.AddChild(NewParameter("temperature", "bool", "true"))
	v := smp.CreateElement(TagVariable)
	v.CreateAttr("longname", A2DTempLongName)
	v.CreateAttr("name", A2DTempPrefix+tempSuffix)
	v.CreateAttr("units", A2DTempUnits)
	return smp
}

// FormatRate renders a sample rate without trailing zeros.
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// NewSampleElement builds a sample. For A2D samples (baseRate > 0) rates
// below the board rate get a boxcar filter averaging baseRate/rate points.
func NewSampleElement(id uint32, rate float64, baseRate int) *etree.Element {
	smp := etree.NewElement(TagSample)
	smp.CreateAttr("id", strconv.FormatUint(uint64(id), 10))
	smp.CreateAttr("rate", FormatRate(rate))
	if n := boxcarPoints(rate, baseRate); n > 1 {
		smp.AddChild(NewParameter("filter", "string", "boxcar"))
		smp.AddChild(NewParameter("numpoints", "int", strconv.Itoa(n)))
	}
	return smp
}

// SetSampleRate rewrites the rate of a sample and, for A2D samples, its
// filter parameters.
func SetSampleRate(smp *etree.Element, rate float64, baseRate int) {
	SetAttr(smp, "rate", FormatRate(rate))
	if baseRate <= 0 {
		return
	}
	RemoveParameter(smp, "filter")
	RemoveParameter(smp, "numpoints")
	if n := boxcarPoints(rate, baseRate); n > 1 {
		smp.AddChild(NewParameter("filter", "string", "boxcar"))
		smp.AddChild(NewParameter("numpoints", "int", strconv.Itoa(n)))
	}
}

func boxcarPoints(rate float64, baseRate int) int {
	r := int(rate)
	if r <= 0 || baseRate <= 0 {
		return 0
	}
	return baseRate / r
}

// NewA2DVariableElement builds an analog variable with its channel settings.
func NewA2DVariableElement(name, longName string, a2d domain.A2DSettings) *etree.Element {
	v := etree.NewElement(TagVariable)
	v.CreateAttr("longname", longName)
	v.CreateAttr("name", name)
	v.CreateAttr("units", A2DVoltUnits)
	v.AddChild(NewParameter("gain", "float", strconv.FormatFloat(a2d.Gain, 'g', -1, 64)))
	v.AddChild(NewParameter("bipolar", "bool", strconv.FormatBool(a2d.Bipolar)))
	v.AddChild(NewParameter("channel", "int", strconv.Itoa(a2d.Channel)))
	return v
}

// NewLinearElement builds an inline slope/intercept calibration.
func NewLinearElement(units, intercept, slope string) *etree.Element {
	el := etree.NewElement(TagLinear)
	el.CreateAttr("units", units)
	el.CreateAttr("intercept", intercept)
	el.CreateAttr("slope", slope)
	return el
}

// NewPolyElement builds an inline polynomial calibration, constant term first.
func NewPolyElement(units string, coefs []string) *etree.Element {
	el := etree.NewElement(TagPoly)
	el.CreateAttr("units", units)
	el.CreateAttr("coefs", strings.Join(coefs, " "))
	return el
}

// EngCalFilePath is the search path for a site's engineering calibration files.
func EngCalFilePath(siteName string) string {
	return fmt.Sprintf(engCalPathFmt, siteName, siteName)
}

// NewVarCalFileElement builds a polynomial calibration read from a file in
// the site's engineering calibration directory.
func NewVarCalFileElement(units, siteName, file string) *etree.Element {
	el := etree.NewElement(TagPoly)
	el.CreateAttr("units", units)
	el.AddChild(NewCalFileElement(EngCalFilePath(siteName), file))
	return el
}

// RemoveCalibration drops every inline or file calibration of a variable.
func RemoveCalibration(v *etree.Element) {
	for _, el := range v.ChildElements() {
		if el.Tag == TagPoly || el.Tag == TagLinear {
			v.RemoveChild(el)
		}
	}
}

// CalibrationElement returns the current calibration element of a variable.
func CalibrationElement(v *etree.Element) *etree.Element {
	for _, el := range v.ChildElements() {
		if el.Tag == TagPoly || el.Tag == TagLinear {
			return el
		}
	}
	return nil
}
