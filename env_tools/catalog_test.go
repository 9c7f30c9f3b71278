package env_tools

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Desarso/terrachat/models"
	"github.com/Desarso/terrachat/relay"
)

var (
	paris     = models.Location{Name: "Paris, France", Latitude: 48.8566, Longitude: 2.3522}
	bengaluru = models.Location{Name: "Bengaluru, India", Latitude: 12.9716, Longitude: 77.5946}
)

type fakeCaller struct {
	mu      sync.Mutex
	payload string
	err     error
	calls   []fakeCall
}

type fakeCall struct {
	tool   string
	params map[string]interface{}
}

func (f *fakeCaller) Call(ctx context.Context, tool string, params map[string]interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{tool: tool, params: params})
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.payload), nil
}

func (f *fakeCaller) last(t *testing.T) fakeCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func freezeClock(t *testing.T) {
	t.Helper()
	orig := now
	now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = orig })
}

func run(t *testing.T, caller *fakeCaller, tool string, loc models.Location, a map[string]interface{}) models.Tool_Invocation_Result {
	t.Helper()
	return NewCatalog(caller).Execute(context.Background(), tool, loc, a)
}

func TestCatalogNamesUniqueAndDeclared(t *testing.T) {
	c := NewCatalog(&fakeCaller{})
	seen := map[string]bool{}
	for _, decl := range c.Declarations() {
		assert.False(t, seen[decl.Name], "duplicate tool %s", decl.Name)
		seen[decl.Name] = true
		assert.NotEmpty(t, decl.Description)
		assert.NotEmpty(t, decl.Guidance)
		assert.Equal(t, "object", decl.Parameters.Type)
		assert.NotNil(t, decl.Callable)
	}
	assert.Len(t, seen, 9)
	assert.Equal(t, "get_weather_data", c.Names()[0])
}

func TestDeclarationsIsACopy(t *testing.T) {
	c := NewCatalog(&fakeCaller{})
	decls := c.Declarations()
	decls[0].Name = "mutated"
	got, ok := c.Lookup("get_weather_data")
	require.True(t, ok)
	assert.Equal(t, "get_weather_data", got.Name)
}

func TestWeatherRendersPresentFieldsOnly(t *testing.T) {
	freezeClock(t)
	caller := &fakeCaller{payload: `{"current":{"temperature_2m":18.2,"relative_humidity_2m":65}}`}
	res := run(t, caller, "get_weather_data", paris, nil)

	require.False(t, res.Failed(), res.Formatted_Text)
	assert.Contains(t, res.Formatted_Text, "18.2°C")
	assert.Contains(t, res.Formatted_Text, "Paris, France")
	assert.Contains(t, res.Formatted_Text, "💧 **Humidity:** 65%")
	assert.NotContains(t, res.Formatted_Text, "Wind Speed")
	assert.NotContains(t, res.Formatted_Text, " mm")
	assert.Contains(t, res.Formatted_Text, "📍 **Location:** Paris, France (48.8566, 2.3522)")
	assert.Contains(t, res.Formatted_Text, "🕐 **Retrieved at:** 2026-10-15 12:00:00 UTC")
	assert.JSONEq(t, caller.payload, string(res.Raw_Payload))

	call := caller.last(t)
	assert.Equal(t, "OpenMeteoAPI", call.tool)
	assert.Equal(t, 48.8566, call.params["latitude"])
	assert.Equal(t, 2.3522, call.params["longitude"])
	assert.Equal(t, weatherCurrentFields, call.params["current"])
}

func TestWeatherFieldOrderIsFixed(t *testing.T) {
	caller := &fakeCaller{payload: `{"current":{"wind_speed_10m":12,"precipitation":0,"temperature_2m":20,"weather_code":61}}`}
	text := run(t, caller, "get_weather_data", paris, nil).Formatted_Text

	temp := strings.Index(text, "Temperature")
	precip := strings.Index(text, "Precipitation")
	wind := strings.Index(text, "Wind Speed")
	require.True(t, temp >= 0 && precip >= 0 && wind >= 0)
	assert.Less(t, temp, precip)
	assert.Less(t, precip, wind)
	assert.Contains(t, text, "0 mm")
	assert.Contains(t, text, "Rain")
}

func TestWeatherWithoutCurrentFails(t *testing.T) {
	res := run(t, &fakeCaller{payload: `{"hourly":{}}`}, "get_weather_data", paris, nil)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Formatted_Text, "❌ Error getting weather data:")
}

func TestEveryToolDefaultsCoordinatesFromLocation(t *testing.T) {
	for _, name := range NewCatalog(&fakeCaller{}).Names() {
		if name == "get_crop_prices" {
			continue
		}
		caller := &fakeCaller{payload: `{}`}
		run(t, caller, name, bengaluru, map[string]interface{}{})

		call := caller.last(t)
		lat, lon := call.params["latitude"], call.params["longitude"]
		if name == "get_soil_properties" {
			lat, lon = call.params["lat"], call.params["lon"]
		}
		assert.Equal(t, 12.9716, lat, name)
		assert.Equal(t, 77.5946, lon, name)
	}
}

func TestArgumentsOverrideLocation(t *testing.T) {
	caller := &fakeCaller{payload: `{"current":{"temperature_2m":1}}`}
	res := run(t, caller, "get_weather_data", paris, map[string]interface{}{"latitude": "35.6762", "longitude": 139.6503})

	require.False(t, res.Failed())
	assert.Equal(t, 35.6762, caller.last(t).params["latitude"])
	assert.Contains(t, res.Formatted_Text, "(35.6762, 139.6503)")
}

func TestInvalidArgumentsFailWithoutCalling(t *testing.T) {
	cases := []struct {
		tool string
		args map[string]interface{}
		want string
	}{
		{"get_weather_data", map[string]interface{}{"latitude": 120.0}, "latitude must be between -90 and 90"},
		{"get_weather_data", map[string]interface{}{"longitude": "east"}, "longitude must be a number"},
		{"get_weather_data", map[string]interface{}{"latitude": true}, "latitude must be a number"},
		{"get_precipitation_history", map[string]interface{}{"days": 0.0}, "days must be between 1 and 365"},
		{"get_soil_moisture", map[string]interface{}{"days": 2.5}, "days must be a whole number"},
		{"search_earthquakes", map[string]interface{}{"radius_km": -5.0}, "radius_km must be between"},
		{"get_crop_prices", map[string]interface{}{"commodity": "Rice"}, `missing required parameter "country"`},
		{"get_crop_prices", map[string]interface{}{"country": "India", "commodity": 7.0}, "commodity must be a string"},
	}
	for _, tc := range cases {
		caller := &fakeCaller{payload: `{}`}
		res := run(t, caller, tc.tool, bengaluru, tc.args)
		assert.True(t, res.Failed(), tc.tool)
		assert.Contains(t, res.Formatted_Text, tc.want, tc.tool)
		assert.Empty(t, caller.calls, tc.tool)
	}
}

func TestRelayFailureBecomesOneLineResult(t *testing.T) {
	caller := &fakeCaller{err: &relay.Error{Kind: relay.KindUpstream, Status: 500, Message: "boom"}}
	res := run(t, caller, "get_weather_data", paris, nil)

	assert.True(t, res.Failed())
	assert.Equal(t, "❌ Error getting weather data: boom", res.Formatted_Text)
	assert.Equal(t, "boom", res.Error_Message)
	assert.Equal(t, "get_weather_data", res.Tool_Name)
}

func TestNonObjectPayloadFails(t *testing.T) {
	res := run(t, &fakeCaller{payload: `[1,2]`}, "get_groundwater_storage", paris, nil)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Formatted_Text, "GRACEAPI")
}

func TestUnknownToolFails(t *testing.T) {
	res := run(t, &fakeCaller{}, "launch_rocket", paris, nil)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Formatted_Text, "unknown or unavailable tool: launch_rocket")
}
