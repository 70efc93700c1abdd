package presentation

import (
	"fmt"
	"strconv"

	"configedit/pkg/domain"
)

var (
	projectColumns = []string{"Site"}
	siteColumns    = []string{"DSM"}
	dsmColumns     = []string{"Sensor", "Device", "S/N", "ID"}
	sensorColumns  = []string{"Variable", "Rate", "CalCoef", "CalSrc", "Sample"}
	analogColumns  = []string{"Variable", "Channel", "Rate", "Volts", "CalCoef", "CalSrc", "Sample"}
)

func childHeaders(entity any) []string {
	switch e := entity.(type) {
	case *domain.Project:
		return projectColumns
	case *domain.Site:
		return siteColumns
	case *domain.DSM:
		return dsmColumns
	case *domain.Sensor:
		if e.Kind().IsAnalog() {
			return analogColumns
		}
		return sensorColumns
	}
	return nil
}

func cellText(entity any, column int) string {
	switch e := entity.(type) {
	case *domain.Site:
		if column == 0 {
			return e.Name
		}
	case *domain.DSM:
		if column == 0 {
			return e.Label()
		}
	case *domain.Sensor:
		return sensorCell(e, column)
	case *domain.Variable:
		return variableCell(e, column)
	}
	return ""
}

func sensorCell(s *domain.Sensor, column int) string {
	if column < 0 || column >= len(dsmColumns) {
		return ""
	}
	switch dsmColumns[column] {
	case "Sensor":
		return s.Name()
	case "Device":
		return s.DeviceName
	case "S/N":
		return s.SerialNumber()
	case "ID":
		var dsmID uint32
		if d := s.DSM(); d != nil {
			dsmID = d.ID
		}
		return fmt.Sprintf("(%d,%d)", dsmID, s.ID)
	}
	return ""
}

func variableCell(v *domain.Variable, column int) string {
	columns := sensorColumns
	smp := v.Sample()
	if smp != nil && smp.Sensor() != nil && smp.Sensor().Kind().IsAnalog() {
		columns = analogColumns
	}
	if column < 0 || column >= len(columns) {
		return ""
	}
	switch columns[column] {
	case "Variable":
		return v.Name
	case "Channel":
		if v.A2D == nil {
			return ""
		}
		return strconv.Itoa(v.A2D.Channel)
	case "Rate":
		if smp == nil {
			return ""
		}
		return strconv.FormatFloat(smp.Rate, 'f', -1, 64)
	case "Volts":
		if v.A2D == nil {
			return ""
		}
		label, err := v.A2D.VoltageRange()
		if err != nil {
			return "?"
		}
		return label
	case "CalCoef":
		return v.Calibration.Coefficients()
	case "CalSrc":
		return v.Calibration.Source()
	case "Sample":
		if smp == nil {
			return ""
		}
		return strconv.FormatUint(uint64(smp.ID), 10)
	}
	return ""
}
