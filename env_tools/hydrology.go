package env_tools

import (
	"fmt"

	"github.com/Desarso/terrachat/models"
)

func precipitationSpec() toolSpec {
	props := coordinateProperties()
	props["days"] = integerProperty("Number of past days to summarise (1-365). Default: 30")
	return toolSpec{
		name:        "get_precipitation_history",
		description: "Get satellite-derived rainfall history (CHIRPS) for a location over recent days.",
		guidance:    "past rainfall, drought or how wet recent weeks were",
		upstream:    "CHIRPSAPI",
		properties:  props,
		subject:     "precipitation data",
		prepare: func(loc models.Location, a args) (call, error) {
			lat, lon, err := a.coordinates(loc)
			if err != nil {
				return call{}, err
			}
			days, err := a.integer("days", 30, 1, 365)
			if err != nil {
				return call{}, err
			}
			end := now().UTC()
			return call{loc: loc, lat: lat, lon: lon, params: map[string]interface{}{
				"latitude":   lat,
				"longitude":  lon,
				"days":       days,
				"start_date": end.AddDate(0, 0, -days).Format("2006-01-02"),
				"end_date":   end.Format("2006-01-02"),
			}}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			s := newSummary(fmt.Sprintf("🌧️ **Precipitation History for %s (last %v days):**", c.loc.Name, c.params["days"]))
			precipitationLines(s, doc)
			return s.finish(c), nil
		},
	}
}

func precipitationLines(s *summary, m map[string]interface{}) {
	s.number("🌧️", "Total Precipitation", m["total_precipitation_mm"], " mm")
	s.number("📊", "Daily Average", m["average_daily_mm"], " mm")
	s.number("⛈️", "Wettest Day", m["max_daily_mm"], " mm")
	s.number("☔", "Rainy Days", m["rainy_days"], "")
	s.number("📉", "Anomaly vs. Normal", m["anomaly_percent"], "%")
}

func groundwaterSpec() toolSpec {
	props := coordinateProperties()
	props["months"] = integerProperty("Number of past months to analyse (1-240). Default: 12")
	return toolSpec{
		name:        "get_groundwater_storage",
		description: "Get groundwater storage anomaly and trend (GRACE satellites) for a location.",
		guidance:    "groundwater, aquifers, wells or long-term water storage",
		upstream:    "GRACEAPI",
		properties:  props,
		subject:     "groundwater data",
		prepare: func(loc models.Location, a args) (call, error) {
			lat, lon, err := a.coordinates(loc)
			if err != nil {
				return call{}, err
			}
			months, err := a.integer("months", 12, 1, 240)
			if err != nil {
				return call{}, err
			}
			return call{loc: loc, lat: lat, lon: lon, params: map[string]interface{}{
				"latitude":  lat,
				"longitude": lon,
				"months":    months,
			}}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			s := newSummary(fmt.Sprintf("💧 **Groundwater Storage for %s:**", c.loc.Name))
			groundwaterLines(s, doc)
			return s.finish(c), nil
		},
	}
}

func groundwaterLines(s *summary, m map[string]interface{}) {
	s.number("💧", "Groundwater Anomaly", m["groundwater_anomaly_cm"], " cm")
	s.number("📈", "Trend", m["trend_cm_per_year"], " cm/year")
	s.text("🧭", "Direction", m["trend_direction"])
	s.text("📅", "Latest Observation", m["latest_month"])
}

func soilMoistureSpec() toolSpec {
	props := coordinateProperties()
	props["days"] = integerProperty("Number of past days to average (1-90). Default: 7")
	return toolSpec{
		name:        "get_soil_moisture",
		description: "Get surface and root-zone soil moisture (NASA SMAP) for a location.",
		guidance:    "soil moisture, irrigation need or field dryness",
		upstream:    "SMAPAPI",
		properties:  props,
		subject:     "soil moisture data",
		prepare: func(loc models.Location, a args) (call, error) {
			lat, lon, err := a.coordinates(loc)
			if err != nil {
				return call{}, err
			}
			days, err := a.integer("days", 7, 1, 90)
			if err != nil {
				return call{}, err
			}
			return call{loc: loc, lat: lat, lon: lon, params: map[string]interface{}{
				"latitude":  lat,
				"longitude": lon,
				"days":      days,
			}}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			s := newSummary(fmt.Sprintf("🌱 **Soil Moisture for %s:**", c.loc.Name))
			soilMoistureLines(s, doc)
			return s.finish(c), nil
		},
	}
}

func soilMoistureLines(s *summary, m map[string]interface{}) {
	s.number("🌱", "Surface Soil Moisture", m["surface_soil_moisture"], " m³/m³")
	s.number("🌿", "Root Zone Soil Moisture", m["root_zone_soil_moisture"], " m³/m³")
	s.text("🚦", "Status", m["moisture_status"])
	s.text("📅", "Observation Date", m["observation_date"])
}
