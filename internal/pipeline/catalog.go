// Package pipeline implements the retrieval-and-extraction pipeline: the
// ordered iteration over (forecast date, model cycle, lead hour), the per-unit
// download with failure isolation, the concurrent per-variable
// decode/crop/persist fan-out, and the transient grid file lifecycle.
package pipeline

import (
	"fmt"

	"github.com/rhellums/gfs-pull/internal/grib"
	"github.com/rhellums/gfs-pull/internal/types"
)

// VariableSlot indexes the fixed catalog of extracted variables.
type VariableSlot int

// The reference catalog: five slots, identical for every run.
const (
	SlotTemperature2m VariableSlot = iota
	SlotSurfacePressure
	SlotGeopotential200
	SlotGeopotential500
	SlotGeopotential700

	NumVariableSlots = 5
)

// VariableDescriptor pairs a variable's artifact output name with the
// predicate that selects its field in a grid file.
type VariableDescriptor struct {
	OutputName string
	Predicate  grib.Predicate
}

// Describe resolves a slot to its descriptor. The catalog is total and
// immutable; the switch is exhaustive over the defined slots and anything
// outside the fixed range is an invalid-slot error.
func Describe(slot VariableSlot) (VariableDescriptor, error) {
	switch slot {
	case SlotTemperature2m:
		return VariableDescriptor{
			OutputName: "2_metre_temperature",
			Predicate:  grib.Predicate{Name: "2 metre temperature"},
		}, nil
	case SlotSurfacePressure:
		return VariableDescriptor{
			OutputName: "surface_pressure",
			Predicate:  grib.Predicate{Name: "Surface pressure"},
		}, nil
	case SlotGeopotential200:
		return VariableDescriptor{
			OutputName: "geopotential_height_200",
			Predicate:  grib.Predicate{Name: "Geopotential height", Level: 200},
		}, nil
	case SlotGeopotential500:
		return VariableDescriptor{
			OutputName: "geopotential_height_500",
			Predicate:  grib.Predicate{Name: "Geopotential height", Level: 500},
		}, nil
	case SlotGeopotential700:
		return VariableDescriptor{
			OutputName: "geopotential_height_700",
			Predicate:  grib.Predicate{Name: "Geopotential height", Level: 700},
		}, nil
	default:
		return VariableDescriptor{}, types.NewAppError(types.ErrCodeInvalidSlot,
			fmt.Sprintf("variable slot %d outside catalog range [0,%d)", slot, NumVariableSlots), nil)
	}
}
