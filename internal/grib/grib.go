// Package grib defines the decoded-grid collaborator contract for the
// retrieval pipeline and provides a wgrib2-backed implementation.
//
// The pipeline itself never parses GRIB2 binary data. It opens a downloaded
// grid file through an Opener, selects fields by predicate, and reads dense
// value and coordinate grids. Implementations must support concurrent Select
// calls against one GridSource: distinct variable extractions run in parallel
// within a retrieval unit.
package grib

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Predicate selects a field within a grid file by its canonical name and an
// optional pressure level in hPa (0 means the name alone identifies the field,
// e.g. surface or near-ground quantities).
type Predicate struct {
	Name  string
	Level int
}

// Field is one decoded meteorological field: a 2-D value grid plus its
// latitude/longitude coordinate grids. All three matrices share the same
// shape. For the regular lat/lon grids GFS produces, latitude varies only
// along rows and longitude only along columns.
type Field interface {
	// Values returns the field's value grid, rows ordered north to south.
	Values() *mat.Dense
	// LatLons returns the latitude and longitude coordinate grids.
	LatLons() (lats, lons *mat.Dense)
}

// GridSource is an open decoded grid file. Select returns every field
// matching the predicate, or an empty slice if none matches. Select must be
// safe for concurrent use by multiple goroutines.
type GridSource interface {
	Select(ctx context.Context, pred Predicate) ([]Field, error)
	Close() error
}

// Opener opens a local grid file as a decoded source.
type Opener interface {
	Open(ctx context.Context, path string) (GridSource, error)
}
