package domain

// SensorKind enumerates the sensor variants the editor treats specially.
type SensorKind int

// Supported sensor variants.
const (
	KindGeneric SensorKind = iota
	KindAnalogNCAR
	KindAnalogDMMAT
	KindPMS
)

func (k SensorKind) String() string {
	switch k {
	case KindAnalogNCAR:
		return "analog_ncar"
	case KindAnalogDMMAT:
		return "analog_dmmat"
	case KindPMS:
		return "pms"
	default:
		return "generic"
	}
}

// IsAnalog reports whether sensors of this kind carry A2D channels.
func (k SensorKind) IsAnalog() bool {
	return k == KindAnalogNCAR || k == KindAnalogDMMAT
}

// SensorVariant carries the fields specific to one sensor kind. The set of
// implementations is closed to this package.
type SensorVariant interface {
	Kind() SensorKind
	sensorVariant()
}

// GenericSensor has no variant-specific state.
type GenericSensor struct{}

// AnalogNCAR is the NCAR A2D board: a board calibration file and the suffix
// of its board temperature variable.
type AnalogNCAR struct {
	CalFile    CalFileRef
	TempSuffix string
}

// AnalogDMMAT is the Diamond MM A2D board.
type AnalogDMMAT struct {
	CalFile CalFileRef
}

// PMSSensor is a particle probe identified by serial number.
type PMSSensor struct {
	SerialNumber string
	Resolution   string
}

func (GenericSensor) Kind() SensorKind { return KindGeneric }
func (AnalogNCAR) Kind() SensorKind    { return KindAnalogNCAR }
func (AnalogDMMAT) Kind() SensorKind   { return KindAnalogDMMAT }
func (PMSSensor) Kind() SensorKind     { return KindPMS }

func (GenericSensor) sensorVariant() {}
func (AnalogNCAR) sensorVariant()    {}
func (AnalogDMMAT) sensorVariant()   {}
func (PMSSensor) sensorVariant()     {}

// Catalog IDs that denote the variants with dedicated handling.
const (
	CatalogAnalogNCAR  = "ANALOG_NCAR"
	CatalogAnalogDMMAT = "ANALOG_DMMAT"
	CatalogIRIG        = "IRIG"
)

var pmsCatalogIDs = map[string]struct{}{
	"CDP":     {},
	"Fast2DC": {},
	"S100":    {},
	"S200":    {},
	"S300":    {},
	"TwoDP":   {},
	"UHSAS":   {},
}

// IsPMSCatalogID reports whether the catalog entry is a PMS probe.
func IsPMSCatalogID(id string) bool {
	_, ok := pmsCatalogIDs[id]
	return ok
}

// SerialNumber returns the identifying serial for the sensor: the PMS serial
// number or the A2D board calibration file without its extension.
func (s *Sensor) SerialNumber() string {
	switch v := s.Variant.(type) {
	case PMSSensor:
		return v.SerialNumber
	case AnalogNCAR:
		return v.CalFile.Base()
	case AnalogDMMAT:
		return v.CalFile.Base()
	}
	if p, ok := s.Parameter("SerialNumber"); ok {
		return p.Value
	}
	return ""
}
