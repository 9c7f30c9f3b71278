package env_tools

import (
	"fmt"

	"github.com/Desarso/terrachat/models"
)

const weatherCurrentFields = "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,weather_code"

func weatherSpec() toolSpec {
	return toolSpec{
		name:        "get_weather_data",
		description: "Get current weather conditions (temperature, humidity, precipitation, wind) for a location.",
		guidance:    "current conditions, temperature, humidity, rain right now or wind",
		upstream:    "OpenMeteoAPI",
		properties:  coordinateProperties(),
		subject:     "weather data",
		prepare: func(loc models.Location, a args) (call, error) {
			lat, lon, err := a.coordinates(loc)
			if err != nil {
				return call{}, err
			}
			return call{loc: loc, lat: lat, lon: lon, params: map[string]interface{}{
				"latitude":  lat,
				"longitude": lon,
				"current":   weatherCurrentFields,
			}}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			current, ok := object(doc["current"])
			if !ok {
				return "", fmt.Errorf("%w: no current conditions", errNoData)
			}
			s := newSummary(fmt.Sprintf("🌤️ **Current Weather for %s:**", c.loc.Name))
			weatherLines(s, current)
			return s.finish(c), nil
		},
	}
}

func weatherLines(s *summary, current map[string]interface{}) {
	s.number("🌡️", "Temperature", current["temperature_2m"], "°C")
	s.number("💧", "Humidity", current["relative_humidity_2m"], "%")
	s.number("🌧️", "Precipitation", current["precipitation"], " mm")
	s.number("💨", "Wind Speed", current["wind_speed_10m"], " km/h")
	if code, ok := current["weather_code"].(float64); ok {
		s.line("☁️", "Conditions", describeWeatherCode(int(code)))
	}
}

// describeWeatherCode maps WMO weather interpretation codes.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code >= 1 && code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95:
		return "Thunderstorm"
	}
	return fmt.Sprintf("Code %d", code)
}
