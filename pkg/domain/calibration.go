package domain

import (
	"strconv"
	"strings"
)

// CalibrationKind selects the form of a variable's calibration.
type CalibrationKind int

// Calibration forms; exactly one applies at a time.
const (
	CalNone CalibrationKind = iota
	CalLinear
	CalPoly
	CalFile
)

func (k CalibrationKind) String() string {
	switch k {
	case CalLinear:
		return "linear"
	case CalPoly:
		return "poly"
	case CalFile:
		return "calfile"
	default:
		return "none"
	}
}

// CalFileRef names an external calibration file and its search path.
type CalFileRef struct {
	Path string
	File string
}

// Base is the file name without the .dat extension.
func (r CalFileRef) Base() string {
	return strings.TrimSuffix(r.File, ".dat")
}

// Calibration converts raw counts or volts to engineering units.
type Calibration struct {
	Kind      CalibrationKind
	Units     string
	Intercept float64
	Slope     float64
	Coefs     []float64
	File      CalFileRef
}

// Coefficients renders the inline coefficients, intercept first.
func (c Calibration) Coefficients() string {
	switch c.Kind {
	case CalLinear:
		return formatFloat(c.Intercept) + " " + formatFloat(c.Slope)
	case CalPoly:
		parts := make([]string, len(c.Coefs))
		for i, v := range c.Coefs {
			parts[i] = formatFloat(v)
		}
		return strings.Join(parts, " ")
	case CalFile:
		return c.File.File
	}
	return ""
}

// Source describes where the coefficients come from.
func (c Calibration) Source() string {
	switch c.Kind {
	case CalLinear, CalPoly:
		return "XML"
	case CalFile:
		return "CalFile"
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
