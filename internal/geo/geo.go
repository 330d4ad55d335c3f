// Package geo converts embedded GPS rationals into signed decimal degrees.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rational is a numerator/denominator pair as stored by embedded tag formats.
type Rational struct {
	Num int64
	Den int64
}

// Float returns the decimal value. ok is false for a zero denominator.
func (r Rational) Float() (float64, bool) {
	if r.Den == 0 {
		return 0, false
	}
	return float64(r.Num) / float64(r.Den), true
}

// String renders the pair as "num/den", or "num" when den is 1.
func (r Rational) String() string {
	if r.Den == 1 {
		return strconv.FormatInt(r.Num, 10)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ToDegrees combines degree, minute and second rationals into decimal degrees.
// ok is false when a component is missing or has a zero denominator.
func ToDegrees(dms []Rational) (float64, bool) {
	if len(dms) < 3 {
		return 0, false
	}
	deg, ok := dms[0].Float()
	if !ok {
		return 0, false
	}
	min, ok := dms[1].Float()
	if !ok {
		return 0, false
	}
	sec, ok := dms[2].Float()
	if !ok {
		return 0, false
	}
	return deg + min/60.0 + sec/3600.0, true
}

// ApplyRef signs v by a hemisphere reference. "S" and "W" give a negative
// magnitude; "N", "E" and "" leave v unchanged.
func ApplyRef(v float64, ref string) float64 {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return v
	}
	switch ref[0] {
	case 'S', 'W':
		return -math.Abs(v)
	}
	return v
}

// Coordinate is a latitude/longitude pair in signed decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Valid reports whether both components are finite and in range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// String formats the pair to six decimal places.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lon)
}

const mapsBaseURL = "https://www.google.com/maps?q="

// MapLink returns a maps URL for the pair.
func (c Coordinate) MapLink() string {
	return mapsBaseURL + strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
