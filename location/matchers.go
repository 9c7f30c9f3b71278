package location

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Desarso/terrachat/models"
)

// Matcher extracts a location from one message's text.
type Matcher func(text string) (models.Location, bool)

// Annotation formats a location the way clients append it to outgoing messages.
func Annotation(loc models.Location) string {
	return "Location: " + loc.Name + " (" + formatCoord(loc.Latitude) + ", " + formatCoord(loc.Longitude) + ")"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Coordinates are captured loosely and validated in build.
var (
	labeledSimple   = regexp.MustCompile(`Location:\s*([^,\n(]+?)\s*\(\s*([^,()\s][^,()\n]*?)\s*, ?([^,()\s][^,()\n]*?)\s*\)`)
	pinnedSimple    = regexp.MustCompile(`📍\s*([^,\n(]+?)\s*\(\s*([^,()\s][^,()\n]*?)\s*, ?([^,()\s][^,()\n]*?)\s*\)`)
	labeledWithList = regexp.MustCompile(`Location:\s*([^(\n]+?)\s*\(\s*([^,()\s][^,()\n]*?)\s*, ?([^,()\s][^,()\n]*?)\s*\)`)
	pinnedWithList  = regexp.MustCompile(`📍\s*([^(\n]+?)\s*\(\s*([^,()\s][^,()\n]*?)\s*, ?([^,()\s][^,()\n]*?)\s*\)`)
)

// DefaultMatchers is tried in order; the first that yields a valid location wins.
// Names without commas are tried before names like "Paris, France".
var DefaultMatchers = []Matcher{
	regexMatcher(labeledSimple),
	regexMatcher(pinnedSimple),
	regexMatcher(labeledWithList),
	regexMatcher(pinnedWithList),
}

func regexMatcher(re *regexp.Regexp) Matcher {
	return func(text string) (models.Location, bool) {
		// Earlier occurrences with bad coordinates do not hide later ones.
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if loc, ok := build(m[1], m[2], m[3]); ok {
				return loc, true
			}
		}
		return models.Location{}, false
	}
}

func build(name, latText, lonText string) (models.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Location{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return models.Location{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil {
		return models.Location{}, false
	}
	if !models.ValidCoordinates(lat, lon) {
		return models.Location{}, false
	}
	return models.Location{Name: name, Latitude: lat, Longitude: lon}, true
}
