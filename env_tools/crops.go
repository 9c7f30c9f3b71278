package env_tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Desarso/terrachat/models"
)

// Region is a lat/lon bounding box.
type Region struct {
	Name           string
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// CropIdentificationRegions are the areas the crop classifier is trained on.
var CropIdentificationRegions = []Region{
	{Name: "India", MinLat: 6.5, MaxLat: 35.7, MinLon: 68.1, MaxLon: 97.4},
}

var errOutsideRegion = errors.New("only available for locations in")

func cropPriceSpec() toolSpec {
	return toolSpec{
		name:        "get_crop_prices",
		description: "Get producer prices for an agricultural commodity in a country (FAOSTAT).",
		guidance:    "crop or commodity prices and market value; needs country and commodity",
		upstream:    "FAOSTATAPI",
		properties: map[string]interface{}{
			"country":   stringProperty("Country name, e.g. 'India'"),
			"commodity": stringProperty("Commodity name, e.g. 'Rice' or 'Wheat'"),
			"year":      integerProperty("Year of the price observation. Defaults to the latest available."),
		},
		required: []string{"country", "commodity"},
		subject:  "crop price data",
		prepare: func(loc models.Location, a args) (call, error) {
			country, err := a.requiredString("country")
			if err != nil {
				return call{}, err
			}
			commodity, err := a.requiredString("commodity")
			if err != nil {
				return call{}, err
			}
			params := map[string]interface{}{
				"country":   country,
				"commodity": commodity,
			}
			if a.present("year") {
				year, err := a.integer("year", 0, 1960, now().Year())
				if err != nil {
					return call{}, err
				}
				params["year"] = year
			}
			return call{loc: loc, lat: loc.Latitude, lon: loc.Longitude, params: params}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			s := newSummary(fmt.Sprintf("💰 **%s Prices in %s:**", c.params["commodity"], c.params["country"]))
			if price, ok := formatNumber(doc["price"]); ok {
				unit := strings.TrimSpace(strings.Join(nonEmpty(doc["currency"], doc["unit"]), "/"))
				if unit != "" {
					price += " " + unit
				}
				s.line("💵", "Price", price)
			}
			s.text("📅", "Year", doc["year"])
			s.text("🏪", "Market", doc["market"])
			s.text("📚", "Source", doc["source"])
			history := list(doc["history"])
			if len(history) > 5 {
				history = history[len(history)-5:]
			}
			var points []string
			for _, h := range history {
				entry, ok := object(h)
				if !ok {
					continue
				}
				year, yok := formatScalar(entry["year"])
				price, pok := formatNumber(entry["price"])
				if yok && pok {
					points = append(points, year+": "+price)
				}
			}
			if len(points) > 0 {
				s.line("📈", "Recent Prices", strings.Join(points, ", "))
			}
			return s.finish(c), nil
		},
	}
}

func nonEmpty(values ...interface{}) []string {
	var out []string
	for _, v := range values {
		if s, ok := formatScalar(v); ok {
			out = append(out, s)
		}
	}
	return out
}

func cropIdentificationSpec() toolSpec {
	return toolSpec{
		name:        "identify_crops",
		description: "Identify the crops growing around a location from satellite imagery. Only available in supported regions (India).",
		guidance:    "which crops are grown or planted in an area",
		upstream:    "CropIdentificationAPI",
		properties:  coordinateProperties(),
		subject:     "crop identification",
		prepare: func(loc models.Location, a args) (call, error) {
			lat, lon, err := a.coordinates(loc)
			if err != nil {
				return call{}, err
			}
			if !inRegions(lat, lon, CropIdentificationRegions) {
				return call{}, fmt.Errorf("%w %s", errOutsideRegion, regionNames(CropIdentificationRegions))
			}
			return call{loc: loc, lat: lat, lon: lon, params: map[string]interface{}{
				"latitude":  lat,
				"longitude": lon,
			}}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			s := newSummary(fmt.Sprintf("🌾 **Crops Identified near %s:**", c.loc.Name))
			s.text("🌾", "Dominant Crop", doc["dominant_crop"])
			if conf, ok := fractionPercent(doc["confidence"]); ok {
				s.line("🎯", "Confidence", conf)
			}
			s.text("🗓️", "Season", doc["season"])
			s.number("🛰️", "NDVI", doc["ndvi"], "")
			s.section("Detected crops", func(sub *summary) {
				for i, item := range list(doc["crops"]) {
					if i == 5 {
						break
					}
					crop, ok := object(item)
					if !ok {
						continue
					}
					name, ok := formatScalar(crop["name"])
					if !ok {
						continue
					}
					if conf, ok := fractionPercent(crop["confidence"]); ok {
						name += " (" + conf + ")"
					}
					sub.bullet(name)
				}
			})
			return s.finish(c), nil
		},
	}
}

func inRegions(lat, lon float64, regions []Region) bool {
	for _, r := range regions {
		if r.Contains(lat, lon) {
			return true
		}
	}
	return false
}

func regionNames(regions []Region) string {
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}
