package core

import (
	"fmt"

	"configedit/pkg/domain"
)

// Selection is the context an edit is applied in. Handle is the container
// the operation works on: a site to add a DSM, a DSM to add a sensor, a
// sensor to add a variable. Focus is the item currently selected in the
// view, which may be a child of Handle.
type Selection struct {
	Handle any
	Focus  any
}

// On selects a container with no separate focus.
func On(handle any) Selection { return Selection{Handle: handle, Focus: handle} }

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case *domain.Project:
		return "project"
	case *domain.Site:
		return "site"
	case *domain.DSM:
		return "dsm"
	case *domain.Sensor:
		return "sensor"
	case *domain.Sample:
		return "sample"
	case *domain.Variable:
		return "variable"
	}
	return fmt.Sprintf("%T", v)
}

func mismatch(want string, got any) error {
	return domain.ContextMismatchError{Want: want, Got: kindOf(got)}
}

func (s Selection) site() (*domain.Site, error) {
	site, ok := s.Handle.(*domain.Site)
	if !ok {
		return nil, mismatch("site", s.Handle)
	}
	return site, nil
}

func (s Selection) dsm() (*domain.DSM, error) {
	dsm, ok := s.Handle.(*domain.DSM)
	if !ok {
		return nil, mismatch("dsm", s.Handle)
	}
	return dsm, nil
}

func (s Selection) sensor() (*domain.Sensor, error) {
	sensor, ok := s.Handle.(*domain.Sensor)
	if !ok {
		return nil, mismatch("sensor", s.Handle)
	}
	return sensor, nil
}

// enclosingSite walks up from any tree entity to its site.
func enclosingSite(v any) *domain.Site {
	switch e := v.(type) {
	case *domain.Site:
		return e
	case *domain.DSM:
		return e.Site()
	case *domain.Sensor:
		return e.Site()
	case *domain.Sample:
		if e.Sensor() != nil {
			return e.Sensor().Site()
		}
	case *domain.Variable:
		if e.Sample() != nil && e.Sample().Sensor() != nil {
			return e.Sample().Sensor().Site()
		}
	}
	return nil
}

// enclosingDSM walks up from a DSM or anything below it.
func enclosingDSM(v any) *domain.DSM {
	switch e := v.(type) {
	case *domain.DSM:
		return e
	case *domain.Sensor:
		return e.DSM()
	case *domain.Sample:
		if e.Sensor() != nil {
			return e.Sensor().DSM()
		}
	case *domain.Variable:
		if e.Sample() != nil && e.Sample().Sensor() != nil {
			return e.Sample().Sensor().DSM()
		}
	}
	return nil
}
