package env_tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Desarso/terrachat/models"
)

var (
	soilProperties = []string{"sand", "clay", "silt", "soc", "phh2o"}
	soilDepths     = []string{"0-5cm", "5-15cm", "15-30cm"}
	soilLabels     = map[string]string{
		"sand":  "Sand",
		"clay":  "Clay",
		"silt":  "Silt",
		"soc":   "Soil Organic Carbon",
		"phh2o": "pH (H₂O)",
	}
)

func soilPropertiesSpec() toolSpec {
	return toolSpec{
		name:        "get_soil_properties",
		description: "Get soil texture and chemistry (sand, clay, silt, organic carbon, pH) by depth from SoilGrids.",
		guidance:    "soil type, texture, fertility or pH",
		upstream:    "SoilGridsAPI",
		properties:  coordinateProperties(),
		subject:     "soil data",
		prepare: func(loc models.Location, a args) (call, error) {
			lat, lon, err := a.coordinates(loc)
			if err != nil {
				return call{}, err
			}
			return call{loc: loc, lat: lat, lon: lon, params: map[string]interface{}{
				"lat":      lat,
				"lon":      lon,
				"property": strings.Join(soilProperties, ","),
				"depth":    strings.Join(soilDepths, ","),
			}}, nil
		},
		render: func(doc map[string]interface{}, c call) (string, error) {
			props, ok := object(doc["properties"])
			names := soilProperties
			if ok {
				names = orderedKeys(props, soilProperties)
			} else {
				props = doc
			}
			s := newSummary(fmt.Sprintf("🌱 **Soil Properties for %s:**", c.loc.Name))
			for _, name := range names {
				values := renderDepths(props[name])
				if values == "" {
					continue
				}
				label := soilLabels[name]
				if label == "" {
					label = name
				}
				s.line("🧪", label, values)
			}
			if s.fields == 0 {
				return "", fmt.Errorf("%w: no soil properties", errNoData)
			}
			return s.finish(c), nil
		},
	}
}

// renderDepths lists "depth: value" pairs for one property, unwrapping a
// nested "depths" object. Null and non-numeric depths are left out.
func renderDepths(v interface{}) string {
	prop, ok := object(v)
	if !ok {
		return ""
	}
	depths := prop
	if nested, ok := object(prop["depths"]); ok {
		depths = nested
	}
	parts := make([]string, 0, len(depths))
	for _, depth := range orderedKeys(depths, soilDepths) {
		value, ok := formatNumber(depths[depth])
		if !ok {
			continue
		}
		parts = append(parts, depth+": "+value)
	}
	return strings.Join(parts, ", ")
}

// orderedKeys returns the keys of m present in preferred, in that order,
// followed by the remaining keys sorted.
func orderedKeys(m map[string]interface{}, preferred []string) []string {
	seen := map[string]bool{}
	keys := make([]string, 0, len(m))
	for _, k := range preferred {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
