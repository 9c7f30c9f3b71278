package env_tools

import (
	"fmt"
	"time"

	"github.com/Desarso/terrachat/models"
)

const defaultSeismicRadiusKm = 100

func earthquakeSpec() toolSpec {
	props := coordinateProperties()
	props["radius_km"] = numberProperty("Search radius in kilometres (1-2000). Default: 100")
	props["days"] = integerProperty("Number of past days to search (1-365). Default: 30")
	props["min_magnitude"] = numberProperty("Minimum magnitude (0-10). Default: 2.5")
	return toolSpec{
		name:        "search_earthquakes",
		description: "Search recent earthquakes (USGS) around a location.",
		guidance:    "earthquakes, tremors or seismic risk",
		upstream:    "USGSEarthquakeAPI",
		properties:  props,
		subject:     "earthquake data",
		prepare: func(loc models.Location, a args) (call, error) {
			lat, lon, err := a.coordinates(loc)
			if err != nil {
				return call{}, err
			}
			radius, err := a.bounded("radius_km", defaultSeismicRadiusKm, 1, 2000)
			if err != nil {
				return call{}, err
			}
			days, err := a.integer("days", 30, 1, 365)
			if err != nil {
				return call{}, err
			}
			minMag, err := a.bounded("min_magnitude", 2.5, 0, 10)
			if err != nil {
				return call{}, err
			}
			end := now().UTC()
			return call{loc: loc, lat: lat, lon: lon, params: map[string]interface{}{
				"latitude":     lat,
				"longitude":    lon,
				"maxradiuskm":  radius,
				"starttime":    end.AddDate(0, 0, -days).Format("2006-01-02"),
				"endtime":      end.Format("2006-01-02"),
				"minmagnitude": minMag,
				"days":         days,
			}}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			s := newSummary(fmt.Sprintf("🌋 **Seismic Activity within %s km of %s (last %v days):**",
				formatFloat(c.params["maxradiuskm"].(float64)), c.loc.Name, c.params["days"]))
			quakes := list(doc["earthquakes"])
			if quakes == nil {
				quakes = list(doc["features"])
			}
			count := doc["count"]
			if count == nil && quakes != nil {
				count = float64(len(quakes))
			}
			s.number("📊", "Earthquakes Recorded", count, "")
			s.number("📈", "Strongest Magnitude", doc["max_magnitude"], "")
			s.section("Most recent", func(sub *summary) {
				for i, q := range quakes {
					if i == 5 {
						break
					}
					if line, ok := quakeLine(q); ok {
						sub.bullet(line)
					}
				}
			})
			return s.finish(c), nil
		},
	}
}

// quakeLine accepts both flat records and GeoJSON features.
func quakeLine(v interface{}) (string, bool) {
	q, ok := object(v)
	if !ok {
		return "", false
	}
	if props, ok := object(q["properties"]); ok {
		q = props
	}
	mag, ok := formatNumber(firstPresent(q, "magnitude", "mag"))
	if !ok {
		return "", false
	}
	line := "M" + mag
	if place, ok := formatScalar(q["place"]); ok {
		line += " · " + place
	}
	switch t := q["time"].(type) {
	case string:
		line += " · " + t
	case float64:
		line += " · " + time.UnixMilli(int64(t)).UTC().Format("2006-01-02 15:04 MST")
	}
	return line, true
}

func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
