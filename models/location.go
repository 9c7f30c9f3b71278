package models

import (
	"fmt"
	"math"
)

type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location_Input is the wire shape clients send; coordinates are pointers so a
// missing value can be told apart from zero.
type Location_Input struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LocationName string   `json:"locationName"`
}

// ValidCoordinates reports whether lat/lon are finite and inside the WGS84 range.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (l Location) Validate() error {
	if !ValidCoordinates(l.Latitude, l.Longitude) {
		return fmt.Errorf("coordinates out of range: (%v, %v)", l.Latitude, l.Longitude)
	}
	if l.Name == "" {
		return fmt.Errorf("location name is empty")
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%s (%v, %v)", l.Name, l.Latitude, l.Longitude)
}

// ToLocation converts client input into a Location. ok is false when either
// coordinate is missing or invalid. An empty name is replaced by the coordinates.
func (in *Location_Input) ToLocation() (Location, bool) {
	if in == nil || in.Latitude == nil || in.Longitude == nil {
		return Location{}, false
	}
	lat, lon := *in.Latitude, *in.Longitude
	if !ValidCoordinates(lat, lon) {
		return Location{}, false
	}
	name := in.LocationName
	if name == "" {
		name = fmt.Sprintf("%v, %v", lat, lon)
	}
	return Location{Name: name, Latitude: lat, Longitude: lon}, true
}
