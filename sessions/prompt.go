package sessions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Desarso/terrachat/models"
)

// BuildSystemPrompt grounds the model in the resolved location and tells it
// when each tool applies.
func BuildSystemPrompt(loc models.Location, tools []models.FunctionDeclaration) string {
	lat := strconv.FormatFloat(loc.Latitude, 'f', -1, 64)
	lon := strconv.FormatFloat(loc.Longitude, 'f', -1, 64)

	var b strings.Builder
	b.WriteString("You are an environmental data assistant with access to real environmental data tools.\n\n")
	fmt.Fprintf(&b, "IMPORTANT: The user's location is %s (Latitude: %s, Longitude: %s)\n\n", loc.Name, lat, lon)
	b.WriteString("When users ask about weather, rainfall, water, soil, crops or earthquakes, AUTOMATICALLY call the appropriate tool using these coordinates:\n")
	fmt.Fprintf(&b, "- Latitude: %s\n- Longitude: %s\n", lat, lon)
	b.WriteString("Tools fill in these coordinates when you leave latitude and longitude out.\n")

	if len(tools) > 0 {
		b.WriteString("\nAvailable tools:\n")
		for _, tool := range tools {
			fmt.Fprintf(&b, "- %s: %s", tool.Name, tool.Description)
			if tool.Guidance != "" {
				fmt.Fprintf(&b, " Use for %s.", tool.Guidance)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nYou may call several tools in one turn when a question spans more than one topic. ")
	b.WriteString("If a tool reports an error, say what failed instead of inventing values. ")
	b.WriteString("Don't ask for the location - you already have it!")
	return b.String()
}
