package env_tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrecipitationDefaultsAndRender(t *testing.T) {
	freezeClock(t)
	caller := &fakeCaller{payload: `{"total_precipitation_mm":42.5,"rainy_days":6}`}
	res := run(t, caller, "get_precipitation_history", bengaluru, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "last 30 days")
	assert.Contains(t, res.Formatted_Text, "42.5 mm")
	assert.Contains(t, res.Formatted_Text, "☔ **Rainy Days:** 6")
	assert.NotContains(t, res.Formatted_Text, "Daily Average")

	params := caller.last(t).params
	assert.Equal(t, "CHIRPSAPI", caller.last(t).tool)
	assert.Equal(t, 30, params["days"])
	assert.Equal(t, "2026-09-15", params["start_date"])
	assert.Equal(t, "2026-10-15", params["end_date"])
}

func TestGroundwaterRender(t *testing.T) {
	caller := &fakeCaller{payload: `{"groundwater_anomaly_cm":-4.2,"trend_direction":"declining"}`}
	res := run(t, caller, "get_groundwater_storage", bengaluru, map[string]interface{}{"months": 24.0})

	require.False(t, res.Failed())
	assert.Contains(t, res.Formatted_Text, "-4.2 cm")
	assert.Contains(t, res.Formatted_Text, "declining")
	assert.NotContains(t, res.Formatted_Text, "cm/year")
	assert.Equal(t, 24, caller.last(t).params["months"])
}

func TestSoilMoistureRender(t *testing.T) {
	caller := &fakeCaller{payload: `{"surface_soil_moisture":0.23,"observation_date":"2026-10-14"}`}
	res := run(t, caller, "get_soil_moisture", bengaluru, nil)

	require.False(t, res.Failed())
	assert.Contains(t, res.Formatted_Text, "0.23 m³/m³")
	assert.Contains(t, res.Formatted_Text, "2026-10-14")
	assert.Equal(t, 7, caller.last(t).params["days"])
	assert.Equal(t, "SMAPAPI", caller.last(t).tool)
}

func TestSoilPropertiesRenderDepthsInOrder(t *testing.T) {
	caller := &fakeCaller{payload: `{"properties":{"clay":{"15-30cm":310,"0-5cm":280,"5-15cm":null},"sand":{"0-5cm":450}}}`}
	res := run(t, caller, "get_soil_properties", bengaluru, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "🧪 **Clay:** 0-5cm: 280, 15-30cm: 310")
	assert.NotContains(t, res.Formatted_Text, "No data")
	assert.Less(t, strings.Index(res.Formatted_Text, "Sand"), strings.Index(res.Formatted_Text, "Clay"))
	assert.NotContains(t, res.Formatted_Text, "Silt")

	params := caller.last(t).params
	assert.Equal(t, "sand,clay,silt,soc,phh2o", params["property"])
	assert.Equal(t, "0-5cm,5-15cm,15-30cm", params["depth"])
}

func TestSoilPropertiesUnwrapsDepths(t *testing.T) {
	caller := &fakeCaller{payload: `{"properties":{"sand":{"depths":{"0-5cm":450,"5-15cm":null}},"clay":{"depths":{"0-5cm":280}}}}`}
	res := run(t, caller, "get_soil_properties", bengaluru, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "🧪 **Sand:** 0-5cm: 450\n")
	assert.Contains(t, res.Formatted_Text, "🧪 **Clay:** 0-5cm: 280\n")
	assert.NotContains(t, res.Formatted_Text, "depths")
	assert.NotContains(t, res.Formatted_Text, "No data")
}

func TestSoilPropertiesTopLevelIgnoresUnknownKeys(t *testing.T) {
	caller := &fakeCaller{payload: `{"metadata":{"source":"SoilGrids"},"sand":{"0-5cm":450}}`}
	res := run(t, caller, "get_soil_properties", bengaluru, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "🧪 **Sand:** 0-5cm: 450")
	assert.NotContains(t, res.Formatted_Text, "metadata")
	assert.NotContains(t, res.Formatted_Text, "source")
}

func TestSoilPropertiesAllNullFails(t *testing.T) {
	caller := &fakeCaller{payload: `{"properties":{"sand":{"depths":{"0-5cm":null}},"clay":{"depths":{}}}}`}
	res := run(t, caller, "get_soil_properties", bengaluru, nil)

	assert.True(t, res.Failed())
	assert.Contains(t, res.Formatted_Text, "❌ Error getting soil data:")
}

func TestSoilPropertiesEmptyFails(t *testing.T) {
	res := run(t, &fakeCaller{payload: `{"properties":{}}`}, "get_soil_properties", bengaluru, nil)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Formatted_Text, "❌ Error getting soil data:")
}

func TestCropPrices(t *testing.T) {
	caller := &fakeCaller{payload: `{"price":420,"currency":"USD","unit":"tonne","year":2024,"history":[{"year":2023,"price":400},{"year":2024,"price":420}]}`}
	res := run(t, caller, "get_crop_prices", paris, map[string]interface{}{"country": "India", "commodity": "Rice", "year": 2024.0})

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "💰 **Rice Prices in India:**")
	assert.Contains(t, res.Formatted_Text, "💵 **Price:** 420 USD/tonne")
	assert.Contains(t, res.Formatted_Text, "2023: 400, 2024: 420")
	assert.NotContains(t, res.Formatted_Text, "Market")

	call := caller.last(t)
	assert.Equal(t, "FAOSTATAPI", call.tool)
	assert.Equal(t, map[string]interface{}{"country": "India", "commodity": "Rice", "year": 2024}, call.params)
}

func TestCropIdentificationRegionRestricted(t *testing.T) {
	caller := &fakeCaller{payload: `{}`}
	res := run(t, caller, "identify_crops", paris, nil)

	assert.True(t, res.Failed())
	assert.Equal(t, "❌ Error getting crop identification: only available for locations in India", res.Formatted_Text)
	assert.Empty(t, caller.calls)
}

func TestCropIdentificationRender(t *testing.T) {
	caller := &fakeCaller{payload: `{"dominant_crop":"Rice","confidence":0.82,"crops":[{"name":"Rice","confidence":0.82},{"name":"Ragi"}]}`}
	res := run(t, caller, "identify_crops", bengaluru, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "🎯 **Confidence:** 82%")
	assert.Contains(t, res.Formatted_Text, "**Detected crops**")
	assert.Contains(t, res.Formatted_Text, "• Rice (82%)")
	assert.Contains(t, res.Formatted_Text, "• Ragi\n")
	assert.NotContains(t, res.Formatted_Text, "NDVI")
}

func TestCropConfidenceIsAFraction(t *testing.T) {
	caller := &fakeCaller{payload: `{"dominant_crop":"Rice","confidence":1,"crops":[{"name":"Rice","confidence":0.01},{"name":"Ragi","confidence":42}]}`}
	res := run(t, caller, "identify_crops", bengaluru, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "🎯 **Confidence:** 100%")
	assert.Contains(t, res.Formatted_Text, "• Rice (1%)")
	assert.Contains(t, res.Formatted_Text, "• Ragi\n")
	assert.NotContains(t, res.Formatted_Text, "Ragi (")
}

func TestEarthquakesDefaultRadius(t *testing.T) {
	freezeClock(t)
	caller := &fakeCaller{payload: `{"count":2,"earthquakes":[{"magnitude":3.1,"place":"10km N of Town","time":"2026-10-01"},{"magnitude":2.7}]}`}
	res := run(t, caller, "search_earthquakes", bengaluru, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	params := caller.last(t).params
	assert.Equal(t, 100.0, params["maxradiuskm"])
	assert.Equal(t, 2.5, params["minmagnitude"])
	assert.Equal(t, "2026-09-15", params["starttime"])
	assert.Contains(t, res.Formatted_Text, "within 100 km of Bengaluru, India")
	assert.Contains(t, res.Formatted_Text, "📊 **Earthquakes Recorded:** 2")
	assert.Contains(t, res.Formatted_Text, "• M3.1 · 10km N of Town · 2026-10-01")
	assert.NotContains(t, res.Formatted_Text, "Strongest Magnitude")
}

func TestEarthquakesGeoJSONAndZeroCount(t *testing.T) {
	caller := &fakeCaller{payload: `{"features":[{"properties":{"mag":4.5,"place":"Offshore","time":1760000000000}}]}`}
	res := run(t, caller, "search_earthquakes", bengaluru, map[string]interface{}{"radius_km": 250.0})
	assert.Contains(t, res.Formatted_Text, "within 250 km")
	assert.Contains(t, res.Formatted_Text, "**Earthquakes Recorded:** 1")
	assert.Contains(t, res.Formatted_Text, "• M4.5 · Offshore · ")

	res = run(t, &fakeCaller{payload: `{"count":0,"earthquakes":[]}`}, "search_earthquakes", bengaluru, nil)
	assert.Contains(t, res.Formatted_Text, "**Earthquakes Recorded:** 0")
	assert.NotContains(t, res.Formatted_Text, "Most recent")
}

func TestComprehensiveMergesOnlyPresentSections(t *testing.T) {
	caller := &fakeCaller{payload: `{"precipitation":{"total_precipitation_mm":12.5},"groundwater":-3.1}`}
	res := run(t, caller, "get_comprehensive_environmental_data", bengaluru, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "**Precipitation**")
	assert.Contains(t, res.Formatted_Text, "12.5 mm")
	assert.Contains(t, res.Formatted_Text, "💧 **Groundwater Anomaly:** -3.1 cm")
	assert.NotContains(t, res.Formatted_Text, "Weather")
	assert.NotContains(t, res.Formatted_Text, "Temperature")
	assert.NotContains(t, res.Formatted_Text, "Soil Moisture")
	assert.NotContains(t, res.Formatted_Text, "null")
}

func TestComprehensiveEmptySectionHasNoHeading(t *testing.T) {
	caller := &fakeCaller{payload: `{"weather":{"current":{}},"soil_moisture":{"surface_soil_moisture":0.3}}`}
	res := run(t, caller, "get_comprehensive_environmental_data", bengaluru, nil)

	require.False(t, res.Failed())
	assert.NotContains(t, res.Formatted_Text, "**Weather**")
	assert.Contains(t, res.Formatted_Text, "**Soil Moisture**")
}

func TestComprehensiveNothingPresentFails(t *testing.T) {
	res := run(t, &fakeCaller{payload: `{"unrelated":1}`}, "get_comprehensive_environmental_data", bengaluru, nil)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Formatted_Text, "❌ Error getting environmental data:")
}
