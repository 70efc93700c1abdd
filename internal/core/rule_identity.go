package core

import (
	"context"
	"fmt"
	"strconv"

	"configedit/pkg/domain"
)

// NewDSMIdentityRule blocks sites holding two DSMs with the same id or name.
func NewDSMIdentityRule() domain.Rule {
	return dsmIdentityRule{}
}

type dsmIdentityRule struct{}

func (dsmIdentityRule) Name() string { return "dsm_identity" }

func (r dsmIdentityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	site := view.Site()
	res := domain.Result{}
	ids := make(map[uint32]string)
	names := make(map[string]bool)
	for _, dsm := range site.DSMs {
		if other, ok := ids[dsm.ID]; ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("site %s: dsm %s and %s share id %d", site.Name, other, dsm.Name, dsm.ID),
				Entity:   domain.EntityDSM,
				EntityID: strconv.FormatUint(uint64(dsm.ID), 10),
			})
		}
		if names[dsm.Name] {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("site %s: dsm name %s used twice", site.Name, dsm.Name),
				Entity:   domain.EntityDSM,
				EntityID: dsm.Name,
			})
		}
		ids[dsm.ID] = dsm.Name
		names[dsm.Name] = true
	}
	return res, nil
}

// NewSensorIdentityRule blocks DSMs holding two sensors with the same id and
// warns about two sensors sharing a device.
func NewSensorIdentityRule() domain.Rule {
	return sensorIdentityRule{}
}

type sensorIdentityRule struct{}

func (sensorIdentityRule) Name() string { return "sensor_identity" }

func (r sensorIdentityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, dsm := range view.Site().DSMs {
		ids := make(map[uint32]bool)
		devices := make(map[string]bool)
		for _, s := range dsm.Sensors {
			key := fmt.Sprintf("(%d,%d)", dsm.ID, s.ID)
			if ids[s.ID] {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("dsm %s: sensor id %d used twice", dsm.Name, s.ID),
					Entity:   domain.EntitySensor,
					EntityID: key,
				})
			}
			if devices[s.DeviceName] {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("dsm %s: device %s shared by several sensors", dsm.Name, s.DeviceName),
					Entity:   domain.EntitySensor,
					EntityID: key,
				})
			}
			ids[s.ID] = true
			devices[s.DeviceName] = true
		}
	}
	return res, nil
}

// NewSampleIdentityRule blocks sensors holding two samples with the same id.
func NewSampleIdentityRule() domain.Rule {
	return sampleIdentityRule{}
}

type sampleIdentityRule struct{}

func (sampleIdentityRule) Name() string { return "sample_identity" }

func (r sampleIdentityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, dsm := range view.Site().DSMs {
		for _, s := range dsm.Sensors {
			seen := make(map[uint32]bool)
			for _, smp := range s.Samples {
				if seen[smp.ID] {
					res.Violations = append(res.Violations, domain.Violation{
						Rule:     r.Name(),
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("sensor %s in %s: sample id %d used twice", s.Name(), dsm.Name, smp.ID),
						Entity:   domain.EntitySample,
						EntityID: strconv.FormatUint(uint64(smp.ID), 10),
					})
				}
				seen[smp.ID] = true
			}
		}
	}
	return res, nil
}
