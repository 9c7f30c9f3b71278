package env_tools

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// now is swapped in tests.
var now = time.Now

const timestampLayout = "2006-01-02 15:04:05 MST"

// summary renders fields in the order they are added, skipping any that are
// absent or null in the payload.
type summary struct {
	b      strings.Builder
	fields int
}

func newSummary(title string) *summary {
	s := &summary{}
	s.b.WriteString(title)
	s.b.WriteString("\n\n")
	return s
}

func (s *summary) line(icon, label, value string) {
	fmt.Fprintf(&s.b, "%s **%s:** %s\n", icon, label, value)
	s.fields++
}

// number writes v with suffix appended; non-numeric values are ignored.
func (s *summary) number(icon, label string, v interface{}, suffix string) {
	if text, ok := formatNumber(v); ok {
		s.line(icon, label, text+suffix)
	}
}

// text writes strings as-is and numbers in their shortest form.
func (s *summary) text(icon, label string, v interface{}) {
	if text, ok := formatScalar(v); ok {
		s.line(icon, label, text)
	}
}

func (s *summary) heading(text string) {
	if s.b.Len() > 0 && !strings.HasSuffix(s.b.String(), "\n\n") {
		s.b.WriteString("\n")
	}
	s.b.WriteString("**" + text + "**\n")
}

// section writes title only when fill produced at least one field.
func (s *summary) section(title string, fill func(*summary)) {
	sub := &summary{}
	fill(sub)
	if sub.fields == 0 {
		return
	}
	s.heading(title)
	s.b.WriteString(sub.b.String())
	s.fields += sub.fields
}

func (s *summary) bullet(text string) {
	s.b.WriteString("• " + text + "\n")
	s.fields++
}

// finish appends the location and retrieval footer.
func (s *summary) finish(c call) string {
	if s.fields == 0 {
		s.b.WriteString("No values were reported for this location.\n")
	}
	fmt.Fprintf(&s.b, "\n📍 **Location:** %s (%s, %s)\n", c.loc.Name, formatFloat(c.lat), formatFloat(c.lon))
	fmt.Fprintf(&s.b, "🕐 **Retrieved at:** %s", now().UTC().Format(timestampLayout))
	return s.b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNumber(v interface{}) (string, bool) {
	switch n := v.(type) {
	case float64:
		return formatFloat(n), true
	case int:
		return strconv.Itoa(n), true
	case string:
		if _, err := strconv.ParseFloat(n, 64); err == nil {
			return n, true
		}
	}
	return "", false
}

func formatScalar(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	case bool:
		return strconv.FormatBool(x), true
	}
	return formatNumber(v)
}

// lookup walks nested objects; it returns nil when any step is missing.
func lookup(doc map[string]interface{}, path ...string) interface{} {
	var cur interface{} = doc
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func object(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func list(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}

// fractionPercent renders a fraction in [0, 1] as "NN%". Anything else is
// not a fraction and is left out.
func fractionPercent(v interface{}) (string, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || f > 1 {
		return "", false
	}
	return strconv.FormatFloat(f*100, 'f', 0, 64) + "%", true
}
