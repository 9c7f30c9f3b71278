package env_tools

import (
	"fmt"

	"github.com/Desarso/terrachat/models"
)

var comprehensiveSections = []string{"weather", "precipitation", "groundwater", "soil_moisture"}

func comprehensiveSpec() toolSpec {
	return toolSpec{
		name:        "get_comprehensive_environmental_data",
		description: "Get weather, rainfall, groundwater and soil moisture for a location in a single call.",
		guidance:    "a general overview of environmental or farming conditions",
		upstream:    "ComprehensiveEnvironmentalAPI",
		properties:  coordinateProperties(),
		subject:     "environmental data",
		prepare: func(loc models.Location, a args) (call, error) {
			lat, lon, err := a.coordinates(loc)
			if err != nil {
				return call{}, err
			}
			return call{loc: loc, lat: lat, lon: lon, params: map[string]interface{}{
				"latitude":  lat,
				"longitude": lon,
				"include":   "weather,precipitation,groundwater,soil_moisture",
			}}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			s := newSummary(fmt.Sprintf("🌍 **Environmental Overview for %s:**", c.loc.Name))
			for _, name := range comprehensiveSections {
				renderSection(s, name, doc[name])
			}
			if s.fields == 0 {
				return "", fmt.Errorf("%w: no environmental sections", errNoData)
			}
			return s.finish(c), nil
		},
	}
}

// renderSection handles a section given either as an object or as a single
// headline number. Absent sections write nothing.
func renderSection(s *summary, name string, v interface{}) {
	if v == nil {
		return
	}
	m, isObject := object(v)
	switch name {
	case "weather":
		if !isObject {
			s.number("🌡️", "Temperature", v, "°C")
			return
		}
		if current, ok := object(m["current"]); ok {
			m = current
		}
		s.section("Weather", func(sub *summary) { weatherLines(sub, m) })
	case "precipitation":
		if !isObject {
			s.number("🌧️", "Precipitation", v, " mm")
			return
		}
		s.section("Precipitation", func(sub *summary) { precipitationLines(sub, m) })
	case "groundwater":
		if !isObject {
			s.number("💧", "Groundwater Anomaly", v, " cm")
			return
		}
		s.section("Groundwater", func(sub *summary) { groundwaterLines(sub, m) })
	case "soil_moisture":
		if !isObject {
			s.number("🌱", "Soil Moisture", v, " m³/m³")
			return
		}
		s.section("Soil Moisture", func(sub *summary) { soilMoistureLines(sub, m) })
	}
}
