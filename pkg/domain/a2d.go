package domain

import (
	"fmt"
	"strings"
)

// Voltage ranges offered for A2D channels.
const (
	VoltsBipolar10  = "-10 to 10 Volts"
	VoltsUnipolar10 = "0 to 10 Volts"
	VoltsBipolar5   = "-5 to 5 Volts"
	VoltsUnipolar5  = "0 to 5 Volts"
)

var voltageRanges = []struct {
	label   string
	gain    float64
	bipolar bool
}{
	{VoltsBipolar10, 1, true},
	{VoltsUnipolar10, 2, false},
	{VoltsBipolar5, 2, true},
	{VoltsUnipolar5, 4, false},
}

// VoltageRanges lists the supported range labels.
func VoltageRanges() []string {
	out := make([]string, len(voltageRanges))
	for i, r := range voltageRanges {
		out[i] = r.label
	}
	return out
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// ParseVoltageRange maps a range label to gain and polarity. Whitespace in
// the label is ignored.
func ParseVoltageRange(label string) (gain float64, bipolar bool, err error) {
	want := squash(label)
	for _, r := range voltageRanges {
		if squash(r.label) == want {
			return r.gain, r.bipolar, nil
		}
	}
	return 0, false, InternalFaultError{Op: "voltage range", Detail: fmt.Sprintf("unsupported range %q", label)}
}

// VoltageRange renders gain and polarity as a range label.
func (a A2DSettings) VoltageRange() (string, error) {
	for _, r := range voltageRanges {
		if r.gain == a.Gain && r.bipolar == a.Bipolar {
			return r.label, nil
		}
	}
	return "", InternalFaultError{Op: "voltage range", Detail: fmt.Sprintf("unsupported gain %g bipolar %t", a.Gain, a.Bipolar)}
}
