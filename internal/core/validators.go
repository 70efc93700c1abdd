package core

import (
	"strconv"

	"configedit/pkg/domain"
)

// ValidateDSMInfo checks a proposed DSM name and id against the site and
// returns the parsed id.
func ValidateDSMInfo(site *domain.Site, name, id string) (uint32, error) {
	return validateDSMInfo(site, name, id, nil)
}

// validateDSMInfo skips self, the DSM being updated.
func validateDSMInfo(site *domain.Site, name, id string, self *domain.DSM) (uint32, error) {
	if name == "" {
		return 0, domain.MalformedInputError{Field: "dsm name", Value: name, Reason: "empty"}
	}
	n, err := parseID("dsm id", id)
	if err != nil {
		return 0, err
	}
	ids := make(map[uint32]bool, len(site.DSMs))
	names := make(map[string]bool, len(site.DSMs))
	for _, dsm := range site.DSMs {
		if dsm == self {
			continue
		}
		if ids[dsm.ID] || names[dsm.Name] {
			return 0, domain.InternalFaultError{
				Op:     "validate dsm",
				Detail: "site " + site.Name + " already holds duplicate DSMs " + dsm.Name,
			}
		}
		ids[dsm.ID] = true
		names[dsm.Name] = true
	}
	if ids[n] {
		return 0, domain.DuplicateIdentifierError{Scope: "site " + site.Name, Field: "dsm id", Value: id}
	}
	if names[name] {
		return 0, domain.DuplicateIdentifierError{Scope: "site " + site.Name, Field: "dsm name", Value: name}
	}
	return n, nil
}

// ValidateSampleInfo checks a proposed sample id against the sensor and
// returns the parsed id.
func ValidateSampleInfo(sensor *domain.Sensor, id string) (uint32, error) {
	n, err := parseID("sample id", id)
	if err != nil {
		return 0, err
	}
	seen := make(map[uint32]bool, len(sensor.Samples))
	for _, smp := range sensor.Samples {
		if seen[smp.ID] {
			return 0, domain.InternalFaultError{
				Op:     "validate sample",
				Detail: "sensor " + sensor.Name() + " already holds duplicate sample " + strconv.FormatUint(uint64(smp.ID), 10),
			}
		}
		seen[smp.ID] = true
	}
	if seen[n] {
		return 0, domain.DuplicateIdentifierError{Scope: "sensor " + sensor.Name(), Field: "sample id", Value: id}
	}
	return n, nil
}

func parseID(field, value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, domain.MalformedInputError{Field: field, Value: value, Reason: "not an unsigned integer"}
	}
	return uint32(n), nil
}
