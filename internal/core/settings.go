package core

import "configedit/internal/config"

// Settings are the numeric conventions the editor allocates and validates
// against.
type Settings struct {
	// WingDSMThreshold separates automatically allocated DSM ids from the
	// manually assigned wing DSMs at or above it.
	WingDSMThreshold uint32
	// SensorIDSpacing is added to the largest sensor id of a DSM to get the
	// next one.
	SensorIDSpacing uint32
	A2DChannels     int
	A2DBaseRate     int
	MaxSampleID     uint32
	// EngCalDirRoot holds one engineering calibration directory per site.
	EngCalDirRoot string
}

// DefaultSettings returns the conventions used by the airborne projects.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// SettingsFromConfig copies the editor conventions out of a loaded config.
func SettingsFromConfig(c config.Config) Settings {
	return Settings{
		WingDSMThreshold: c.WingDSMThreshold,
		SensorIDSpacing:  c.SensorIDSpacing,
		A2DChannels:      c.A2DChannels,
		A2DBaseRate:      c.A2DBaseRate,
		MaxSampleID:      c.MaxSampleID,
		EngCalDirRoot:    c.EngCalDirRoot,
	}
}
