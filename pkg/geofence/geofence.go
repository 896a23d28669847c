// Package geofence decides whether a reported position lies within a circular
// boundary around a mission location.
package geofence

import (
	"math"
	"strconv"
	"strings"

	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
	EarthRadiusMeters = 6371e3
	// DefaultRadiusMeters applies when the caller passes a non-positive radius.
	DefaultRadiusMeters = 100.0
)

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Result is the outcome of a range check.
type Result struct {
	InRange        bool `json:"isInRange"`
	DistanceMeters int  `json:"distance"`
}

// Parse reads a "lat,lng" string. Both parts must be finite numbers.
func Parse(raw string) (Point, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 2 {
		return Point{}, appErrors.Clone(appErrors.ErrInvalidCoordinates, "coordinates must be formatted as lat,lng")
	}
	lat, err := parseFinite(parts[0])
	if err != nil {
		return Point{}, err
	}
	lng, err := parseFinite(parts[1])
	if err != nil {
		return Point{}, err
	}
	return Point{Lat: lat, Lng: lng}, nil
}

func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, appErrors.Clone(appErrors.ErrInvalidCoordinates, "coordinates must be finite numbers")
	}
	return v, nil
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Check compares two parsed points against radius meters.
func Check(user, mission Point, radius float64) Result {
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}
	d := Distance(user, mission)
	return Result{InRange: d <= radius, DistanceMeters: int(math.Round(d))}
}

// Validate parses both coordinate strings and checks the distance.
func Validate(userGPS, missionGPS string, radius float64) (Result, error) {
	user, err := Parse(userGPS)
	if err != nil {
		return Result{}, err
	}
	mission, err := Parse(missionGPS)
	if err != nil {
		return Result{}, err
	}
	return Check(user, mission, radius), nil
}
