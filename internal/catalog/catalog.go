// Package catalog holds the device capability table: for each instrument
// type, the device-name prefix it is addressed by, the numeric range of the
// unit number that follows the prefix, and the transport kind.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"configedit/pkg/domain"

	"github.com/go-playground/validator/v10"
)

// Kind is the transport a device is reached through.
type Kind string

// Transport kinds.
const (
	KindSerial Kind = "serial"
	KindARINC  Kind = "arinc"
	KindA2D    Kind = "a2d"
	KindUSB    Kind = "usb"
	KindIRIG   Kind = "irig"
	KindLAMS   Kind = "lams"
	KindOther  Kind = "other"
)

// Capability is one row of the table.
type Capability struct {
	Name   string `validate:"required"`
	Prefix string `validate:"required,startswith=/"`
	Min    int    `validate:"gte=0"`
	Max    int    `validate:"gtefield=Min"`
	Kind   Kind   `validate:"required,oneof=serial arinc a2d usb irig lams other"`
}

// ErrUnknownDevice is returned by Lookup for names without a row.
var ErrUnknownDevice = errors.New("unknown device type")

// Store reads and writes capability rows keyed by name.
type Store interface {
	Lookup(ctx context.Context, name string) (Capability, error)
	List(ctx context.Context) ([]Capability, error)
	Upsert(ctx context.Context, c Capability) error
}

var validate = validator.New()

// Check validates a row before it is stored.
func Check(c Capability) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("capability %s: %w", c.Name, err)
	}
	return nil
}

// KindForPrefix infers the transport from a device prefix.
func KindForPrefix(prefix string) Kind {
	switch {
	case strings.HasPrefix(prefix, "/dev/ttyS"):
		return KindSerial
	case strings.HasPrefix(prefix, "/dev/arinc"):
		return KindARINC
	case strings.HasPrefix(prefix, "/dev/ncar_a2d"), strings.HasPrefix(prefix, "/dev/dmmat_a2d"):
		return KindA2D
	case strings.HasPrefix(prefix, "/dev/usbtwod"):
		return KindUSB
	case strings.HasPrefix(prefix, "/dev/irig"):
		return KindIRIG
	case strings.HasPrefix(prefix, "/dev/lams"):
		return KindLAMS
	}
	return KindOther
}

// CapabilityName maps a sensor catalog ID to its row name. The analog boards
// share the "Analog" row; other IDs map to themselves.
func CapabilityName(catalogID string) string {
	if catalogID == domain.CatalogAnalogNCAR {
		return "Analog"
	}
	return catalogID
}

// Validate checks device against the row: it must start with the prefix and
// the remainder must be a unit number within [Min, Max].
func (c Capability) Validate(device string) error {
	rest, ok := strings.CutPrefix(device, c.Prefix)
	if !ok {
		return domain.MalformedInputError{Field: "device", Value: device, Reason: fmt.Sprintf("%s devices start with %s", c.Name, c.Prefix)}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return domain.MalformedInputError{Field: "device", Value: device, Reason: "unit number is not an integer"}
	}
	if n < c.Min || n > c.Max {
		return domain.MalformedInputError{Field: "device", Value: device, Reason: fmt.Sprintf("unit number outside %d..%d", c.Min, c.Max)}
	}
	return nil
}

// ValidateDevice checks a device name for a sensor catalog ID. Catalog IDs
// without a row are accepted as-is.
func ValidateDevice(ctx context.Context, store Store, catalogID, device string) error {
	c, err := store.Lookup(ctx, CapabilityName(catalogID))
	if errors.Is(err, ErrUnknownDevice) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup %s: %w", catalogID, err)
	}
	return c.Validate(device)
}

// Seed upserts every row of caps.
func Seed(ctx context.Context, store Store, caps []Capability) error {
	for _, c := range caps {
		if err := store.Upsert(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
