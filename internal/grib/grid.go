package grib

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// GridSpec describes a regular latitude/longitude grid as reported by
// "wgrib2 -grid": point counts along each axis and the coordinate ranges.
type GridSpec struct {
	Nx, Ny                  int
	LatFirst, LatLast, DLat float64
	LonFirst, LonLast, DLon float64
}

var (
	gridShapePattern = regexp.MustCompile(`lat-lon grid:\((\d+) x (\d+)\)`)
	gridLatPattern   = regexp.MustCompile(`lat (-?\d+(?:\.\d+)?) to (-?\d+(?:\.\d+)?) by (\d+(?:\.\d+)?)`)
	gridLonPattern   = regexp.MustCompile(`lon (-?\d+(?:\.\d+)?) to (-?\d+(?:\.\d+)?) by (\d+(?:\.\d+)?)`)
)

// ParseGridSpec extracts a GridSpec from wgrib2 -grid output. Only regular
// lat-lon grids are supported; anything else (gaussian, lambert) is rejected.
func ParseGridSpec(output string) (GridSpec, error) {
	shape := gridShapePattern.FindStringSubmatch(output)
	if shape == nil {
		return GridSpec{}, fmt.Errorf("no lat-lon grid description in wgrib2 output")
	}
	lat := gridLatPattern.FindStringSubmatch(output)
	if lat == nil {
		return GridSpec{}, fmt.Errorf("no latitude range in wgrib2 grid description")
	}
	lon := gridLonPattern.FindStringSubmatch(output)
	if lon == nil {
		return GridSpec{}, fmt.Errorf("no longitude range in wgrib2 grid description")
	}

	spec := GridSpec{}
	var err error
	if spec.Nx, err = strconv.Atoi(shape[1]); err != nil {
		return GridSpec{}, err
	}
	if spec.Ny, err = strconv.Atoi(shape[2]); err != nil {
		return GridSpec{}, err
	}
	floats := []*float64{&spec.LatFirst, &spec.LatLast, &spec.DLat, &spec.LonFirst, &spec.LonLast, &spec.DLon}
	for i, raw := range []string{lat[1], lat[2], lat[3], lon[1], lon[2], lon[3]} {
		if *floats[i], err = strconv.ParseFloat(raw, 64); err != nil {
			return GridSpec{}, err
		}
	}
	if spec.Nx <= 0 || spec.Ny <= 0 {
		return GridSpec{}, fmt.Errorf("degenerate grid shape %dx%d", spec.Nx, spec.Ny)
	}
	return spec, nil
}

// LatLonGrids materializes the coordinate grids for this spec, matching the
// north-to-south row ordering the decoder requests from wgrib2 (-order we:ns):
// row 0 holds the northernmost latitude, column 0 the westernmost longitude.
func (s GridSpec) LatLonGrids() (lats, lons *mat.Dense) {
	latTop := math.Max(s.LatFirst, s.LatLast)
	lonLeft := math.Min(s.LonFirst, s.LonLast)

	lats = mat.NewDense(s.Ny, s.Nx, nil)
	lons = mat.NewDense(s.Ny, s.Nx, nil)
	for i := 0; i < s.Ny; i++ {
		lat := latTop - float64(i)*s.DLat
		for j := 0; j < s.Nx; j++ {
			lats.Set(i, j, lat)
			lons.Set(i, j, lonLeft+float64(j)*s.DLon)
		}
	}
	return lats, lons
}
