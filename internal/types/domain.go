// Package types defines the shared domain model for the GFS retrieval pipeline:
// forecast cycles, lead hours, retrieval keys, geographic bounds, and the
// error and telemetry vocabulary used by every component.
package types

import (
	"fmt"
	"time"
)

// DateLayout is the compact calendar date format used in GFS object keys,
// artifact directories, and the configuration surface.
const DateLayout = "20060102"

// LeadHourStep is the spacing in hours between consecutive forecast lead hours.
const LeadHourStep = 3

// ForecastCycle identifies one model initialization: a UTC calendar date plus
// a zero-padded cycle hour ("00", "06", "12" or "18").
type ForecastCycle struct {
	Date  time.Time
	Cycle string
}

// LeadHour is the offset in hours from the cycle time to the forecast's valid
// time. GFS publishes lead hours in steps of 3 from 0 to 384.
type LeadHour int

// String formats the lead hour zero-padded to three digits, as it appears in
// GFS object keys ("f000", "f006", ...).
func (l LeadHour) String() string {
	return fmt.Sprintf("%03d", int(l))
}

// LeadHours returns the ascending lead hour sequence 0, 3, ... up to and
// including max.
func LeadHours(max int) []LeadHour {
	var hours []LeadHour
	for h := 0; h <= max; h += LeadHourStep {
		hours = append(hours, LeadHour(h))
	}
	return hours
}

// RetrievalKey uniquely identifies one remote grid file and one local working
// file: a forecast cycle plus a lead hour. Keys are processed strictly one at
// a time, in (date, cycle, lead hour) ascending order.
type RetrievalKey struct {
	ForecastCycle
	Lead LeadHour
}

// FileName returns the base name of the grid file for this key at the given
// resolution, e.g. "gfs.t06z.pgrb2.1p00.f012". It is shared by the remote
// object key, the transient local file, and the artifact name prefix.
func (k RetrievalKey) FileName(resolution string) string {
	return fmt.Sprintf("gfs.t%sz.pgrb2.%s.f%s", k.Cycle, resolution, k.Lead)
}

// ObjectKey returns the remote object key for this retrieval key:
// gfs.<YYYYMMDD>/<cycle>/atmos/gfs.t<cycle>z.pgrb2.<resolution>.f<lead>.
func (k RetrievalKey) ObjectKey(resolution string) string {
	return fmt.Sprintf("gfs.%s/%s/atmos/%s", k.Date.Format(DateLayout), k.Cycle, k.FileName(resolution))
}

// DateString returns the key's calendar date in YYYYMMDD form.
func (k RetrievalKey) DateString() string {
	return k.Date.Format(DateLayout)
}

// LogArgs returns the identifying context for this key as alternating slog
// key-value pairs, so failures can always be located by (date, cycle, lead hour).
func (k RetrievalKey) LogArgs() []any {
	return []any{
		"date", k.DateString(),
		"cycle", k.Cycle,
		"lead_hour", k.Lead.String(),
	}
}

// GeoBounds is a geographic bounding box in the source grid's coordinate
// convention: latitudes in degrees north, longitudes 0-360 eastward. Bounds
// are inclusive on all edges.
type GeoBounds struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// NorthAmericaBounds returns the fixed North-American cropping window: from
// southern Mexico to northern Canada, Pacific to Atlantic.
func NorthAmericaBounds() GeoBounds {
	return GeoBounds{
		LatMin: 15.0,
		LatMax: 60.0,
		LonMin: 220.0,
		LonMax: 305.0,
	}
}
