package nodeconfig

import "errors"

// Domain errors for the nodeconfig package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, nodeconfig.ErrInstanceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrInstanceNotFound is returned when an instance ID is not in the current snapshot.
	ErrInstanceNotFound = errors.New("nodeconfig: instance not found")

	// ErrInvalidID is returned when a string is not a well-formed instance ID.
	ErrInvalidID = errors.New("nodeconfig: invalid instance id")

	// ErrInvalidCategory is returned for categories other than device and sensor.
	ErrInvalidCategory = errors.New("nodeconfig: invalid category")

	// ErrCategoryMismatch is returned when a category argument disagrees with the ID.
	ErrCategoryMismatch = errors.New("nodeconfig: category does not match instance id")

	// ErrUnknownType is returned when a type is missing from the metadata catalog.
	ErrUnknownType = errors.New("nodeconfig: unknown instance type")

	// ErrReservedParam is returned when a field edit targets the type discriminator.
	ErrReservedParam = errors.New("nodeconfig: reserved parameter")

	// ErrNotSensor is returned when a sensor-only operation is given another category.
	ErrNotSensor = errors.New("nodeconfig: instance is not a sensor")

	// ErrNotDevice is returned when a sensor target is not a device.
	ErrNotDevice = errors.New("nodeconfig: instance is not a device")

	// ErrNotThermostat is returned when unit conversion is requested for a
	// sensor without a units field.
	ErrNotThermostat = errors.New("nodeconfig: instance has no temperature units")

	// ErrInvalidUnits is returned for temperature units other than celsius,
	// fahrenheit and kelvin.
	ErrInvalidUnits = errors.New("nodeconfig: invalid temperature units")

	// ErrNoIRBlaster is returned when an IR operation runs without a configured blaster.
	ErrNoIRBlaster = errors.New("nodeconfig: no ir blaster configured")

	// ErrUnknownTarget is returned when an API target address is neither this
	// node nor a known remote node.
	ErrUnknownTarget = errors.New("nodeconfig: unknown api target")

	// ErrInvalidConfig is returned when a snapshot breaks a structural invariant.
	ErrInvalidConfig = errors.New("nodeconfig: invalid config")

	// ErrInvalidCatalog is returned when the metadata catalog is malformed.
	ErrInvalidCatalog = errors.New("nodeconfig: invalid catalog")

	// ErrRevisionNotFound is returned when a saved revision does not exist.
	ErrRevisionNotFound = errors.New("nodeconfig: revision not found")
)
