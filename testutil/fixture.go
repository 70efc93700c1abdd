// Package testutil holds fixtures and guards shared by package tests.
package testutil

import (
	_ "embed"
)

//go:embed testdata/aircraft.xml
var aircraftXML []byte

// AircraftXML returns a fresh copy of the reference aircraft configuration:
// a catalog with IRIG, CDP and GPS templates and one site with DSMs 1, 2 and
// 5. DSM 1 carries an NCAR analog board with VOLT3 on channel 3 at 100 sps
// and PSFD on channel 1 at 50 sps.
func AircraftXML() []byte {
	return append([]byte(nil), aircraftXML...)
}
