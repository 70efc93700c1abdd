// Package xmldom is the authoritative XML representation of a configuration
// document. It parses and serializes documents, locates the element that
// defines a domain entity, builds new elements, derives domain objects from
// elements, and snapshots elements so tentative edits can be undone.
package xmldom

import "strings"

// Element names used by the configuration schema.
const (
	TagProject       = "project"
	TagSite          = "site"
	TagAircraft      = "aircraft"
	TagDSM           = "dsm"
	TagSensor        = "sensor"
	TagSample        = "sample"
	TagVariable      = "variable"
	TagParameter     = "parameter"
	TagCalFile       = "calfile"
	TagPoly          = "poly"
	TagLinear        = "linear"
	TagOutput        = "output"
	TagSocket        = "socket"
	TagSensorCatalog = "sensorcatalog"
)

// Sensor classes and device prefixes of the A2D boards.
const (
	ClassAnalogNCAR  = "raf.DSMAnalogSensor"
	ClassAnalogDMMAT = "DSC_A2DSensor"
	DeviceNCARA2D    = "/dev/ncar_a2d"
	DeviceDMMATA2D   = "/dev/dmmat_a2d"
)

// Fixed values written into new elements.
const (
	A2DTempPrefix   = "A2DTEMP"
	A2DTempLongName = "A2DTemperature"
	A2DTempUnits    = "deg_C"
	A2DVoltUnits    = "V"
	A2DCalPathNCAR  = "${PROJ_DIR}/Configuration/cal_files/A2D/"
	A2DCalPathDMMAT = "${PROJ_DIR}/Configuration/cal_files/A2D/DMMAT"
	engCalPathFmt   = "${TMP_PROJ_DIR}/Configuration/cal_files/Engineering/%s:${PROJ_DIR}/Configuration/cal_files/Engineering/%s"
)

var sensorTags = map[string]struct{}{
	"sensor":       {},
	"serialSensor": {},
	"arincSensor":  {},
	"irigSensor":   {},
	"lamsSensor":   {},
	"socketSensor": {},
}

// IsSensorTag reports whether the element name declares a sensor. The schema
// allows several sensor element names with identical structure.
func IsSensorTag(tag string) bool {
	_, ok := sensorTags[tag]
	return ok
}

// IsSiteTag reports whether the element name declares a site.
func IsSiteTag(tag string) bool {
	return tag == TagSite || tag == TagAircraft
}

// IsNCARDevice reports whether the device name addresses an NCAR A2D board.
func IsNCARDevice(device string) bool {
	return strings.HasPrefix(device, DeviceNCARA2D)
}

// IsDMMATDevice reports whether the device name addresses a DMMAT A2D board.
func IsDMMATDevice(device string) bool {
	return strings.HasPrefix(device, DeviceDMMATA2D)
}
