package core

import "configedit/pkg/domain"

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *domain.RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds an engine with the built-in site checks.
func NewDefaultRulesEngine(s Settings) *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewDSMIdentityRule())
	engine.Register(NewSensorIdentityRule())
	engine.Register(NewSampleIdentityRule())
	engine.Register(NewVariableNamesRule())
	engine.Register(NewA2DChannelsRule(s.A2DChannels))
	engine.Register(NewCalibrationRule())
	return engine
}
