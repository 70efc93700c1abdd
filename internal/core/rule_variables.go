package core

import (
	"context"
	"fmt"
	"strconv"

	"configedit/pkg/domain"
)

// NewVariableNamesRule blocks sites in which two variables share a full
// name, suffixes included.
func NewVariableNamesRule() domain.Rule {
	return variableNamesRule{}
}

type variableNamesRule struct{}

func (variableNamesRule) Name() string { return "variable_names" }

func (r variableNamesRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	owner := make(map[string]string)
	for _, dsm := range view.Site().DSMs {
		for _, s := range dsm.Sensors {
			for _, v := range s.Variables() {
				full := v.FullName()
				where := s.Name() + " on " + dsm.Name
				if prev, ok := owner[full]; ok {
					res.Violations = append(res.Violations, domain.Violation{
						Rule:     r.Name(),
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("variable %s defined by %s and %s", full, prev, where),
						Entity:   domain.EntityVariable,
						EntityID: full,
					})
					continue
				}
				owner[full] = where
			}
		}
	}
	return res, nil
}

// NewA2DChannelsRule blocks analog sensors using a channel twice or a
// channel outside [0, channels).
func NewA2DChannelsRule(channels int) domain.Rule {
	return a2dChannelsRule{channels: channels}
}

type a2dChannelsRule struct{ channels int }

func (a2dChannelsRule) Name() string { return "a2d_channels" }

func (r a2dChannelsRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, dsm := range view.Site().DSMs {
		for _, s := range dsm.Sensors {
			if !s.Kind().IsAnalog() {
				continue
			}
			claimed := make(map[int]string)
			for _, v := range s.Variables() {
				if v.A2D == nil {
					continue
				}
				ch := v.A2D.Channel
				switch prev, dup := claimed[ch]; {
				case ch < 0 || ch >= r.channels:
					res.Violations = append(res.Violations, r.violation(v, fmt.Sprintf("%s: channel %d outside 0..%d", v.FullName(), ch, r.channels-1)))
				case dup:
					res.Violations = append(res.Violations, r.violation(v, fmt.Sprintf("%s and %s both use channel %d of %s", prev, v.FullName(), ch, s.DeviceName)))
				default:
					claimed[ch] = v.FullName()
				}
			}
		}
	}
	return res, nil
}

func (r a2dChannelsRule) violation(v *domain.Variable, msg string) domain.Violation {
	return domain.Violation{
		Rule:     r.Name(),
		Severity: domain.SeverityBlock,
		Message:  msg,
		Entity:   domain.EntityVariable,
		EntityID: v.FullName(),
	}
}

// NewCalibrationRule blocks incomplete calibrations and negative sample
// rates.
func NewCalibrationRule() domain.Rule {
	return calibrationRule{}
}

type calibrationRule struct{}

func (calibrationRule) Name() string { return "calibration" }

func (r calibrationRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(entity domain.EntityType, id, msg string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   entity,
			EntityID: id,
		})
	}
	for _, dsm := range view.Site().DSMs {
		for _, s := range dsm.Sensors {
			for _, smp := range s.Samples {
				if smp.Rate < 0 {
					block(domain.EntitySample, strconv.FormatUint(uint64(smp.ID), 10),
						fmt.Sprintf("sensor %s sample %d has negative rate %g", s.Name(), smp.ID, smp.Rate))
				}
				for _, v := range smp.Variables {
					c := v.Calibration
					switch {
					case c.Kind == domain.CalPoly && len(c.Coefs) < 2:
						block(domain.EntityVariable, v.FullName(), fmt.Sprintf("%s: polynomial needs at least two coefficients", v.FullName()))
					case c.Kind == domain.CalFile && c.File.File == "":
						block(domain.EntityVariable, v.FullName(), fmt.Sprintf("%s: calibration file name is empty", v.FullName()))
					}
				}
			}
		}
	}
	return res, nil
}
