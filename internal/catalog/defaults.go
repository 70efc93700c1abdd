package catalog

var defaultRows = []struct {
	name   string
	prefix string
}{
	{"Analog", "/dev/ncar_a2d"},
	{"ADC-GV", "/dev/arinc"},
	{"Butanol_CN_Counter", "/dev/ttyS"},
	{"CCN", "/dev/ttyS"},
	{"CDP", "/dev/ttyS"},
	{"CFDC", "/dev/ttyS"},
	{"CMIGITS3", "/dev/ttyS"},
	{"COMR", "/dev/ttyS"},
	{"CORAW", "/dev/ttyS"},
	{"D_GPS", "/dev/ttyS"},
	{"DewPointer", "/dev/ttyS"},
	{"Fast2DC", "/dev/usbtwod"},
	{"GPS-GV", "/dev/arinc"},
	{"Garmin_GPS", "/dev/ttyS"},
	{"HoneywellPPT", "/dev/ttyS"},
	{"IRIG", "/dev/irig"},
	{"IRS-C130", "/dev/arinc"},
	{"IRS-GV", "/dev/arinc"},
	{"LAMS", "/dev/lams"},
	{"Mensor_6100", "/dev/ttyS"},
	{"NOAA_CSD_O3", "/dev/ttyS"},
	{"Novatel_GPS", "/dev/ttyS"},
	{"OphirIII", "/dev/ttyS"},
	{"Paro_DigiQuartz_1000", "/dev/ttyS"},
	{"QCLS", "/dev/ttyS"},
	{"S100", "/dev/ttyS"},
	{"S200", "/dev/ttyS"},
	{"S300", "/dev/ttyS"},
	{"SP2", "/dev/ttyS"},
	{"TDLH2O", "/dev/ttyS"},
	{"TwoDP", "/dev/usbtwod_32_"},
	{"TwoD_House", "/dev/ttyS"},
	{"UHSAS", "/dev/ttyS"},
	{"UHSAS_CU", "/dev/ttyS"},
	{"VCSEL", "/dev/ttyS"},
	{"Water_CN_Counter", "/dev/ttyS"},
}

// Defaults returns the built-in table. Every device type accepts unit
// numbers 0 through 9.
func Defaults() []Capability {
	out := make([]Capability, 0, len(defaultRows))
	for _, r := range defaultRows {
		out = append(out, Capability{
			Name:   r.name,
			Prefix: r.prefix,
			Min:    0,
			Max:    9,
			Kind:   KindForPrefix(r.prefix),
		})
	}
	return out
}
