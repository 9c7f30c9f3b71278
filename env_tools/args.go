package env_tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Desarso/terrachat/models"
)

// args wraps the model-supplied arguments with strict, typed accessors.
// A key that is absent or null counts as omitted.
type args map[string]interface{}

func (a args) present(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// number returns (value, true, nil) when the argument is a finite number or a
// numeric string.
func (a args) number(name string) (float64, bool, error) {
	if !a.present(name) {
		return 0, false, nil
	}
	var v float64
	switch n := a[name].(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a number, got %q", name, n.String())
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a number, got %q", name, n)
		}
		v = f
	default:
		return 0, false, fmt.Errorf("%s must be a number, got %T", name, n)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%s must be a finite number", name)
	}
	return v, true, nil
}

// coordinates takes latitude/longitude from the arguments when given and from
// the resolved location otherwise.
func (a args) coordinates(loc models.Location) (float64, float64, error) {
	lat, ok, err := a.number("latitude")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		lat = loc.Latitude
	}
	lon, ok, err := a.number("longitude")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		lon = loc.Longitude
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude must be between -90 and 90, got %v", lat)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude must be between -180 and 180, got %v", lon)
	}
	return lat, lon, nil
}

// integer returns def when the argument is omitted.
func (a args) integer(name string, def, min, max int) (int, error) {
	v, ok, err := a.number(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%s must be a whole number, got %v", name, v)
	}
	if v < float64(min) || v > float64(max) {
		return 0, fmt.Errorf("%s must be between %d and %d, got %v", name, min, max, v)
	}
	return int(v), nil
}

// bounded returns def when the argument is omitted.
func (a args) bounded(name string, def, min, max float64) (float64, error) {
	v, ok, err := a.number(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be between %v and %v, got %v", name, min, max, v)
	}
	return v, nil
}

func (a args) str(name string) (string, bool, error) {
	if !a.present(name) {
		return "", false, nil
	}
	s, ok := a[name].(string)
	if !ok {
		return "", false, fmt.Errorf("%s must be a string, got %T", name, a[name])
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

func (a args) requiredString(name string) (string, error) {
	s, ok, err := a.str(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", name)
	}
	return s, nil
}

func numberProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func integerProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func stringProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func coordinateProperties() map[string]interface{} {
	return map[string]interface{}{
		"latitude":  numberProperty("Latitude in decimal degrees. Defaults to the user's location."),
		"longitude": numberProperty("Longitude in decimal degrees. Defaults to the user's location."),
	}
}
