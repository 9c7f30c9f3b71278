// Package location picks the single location a chat turn is grounded on.
package location

import (
	"log"

	"github.com/Desarso/terrachat/models"
)

// Source names where a resolved location came from.
type Source string

const (
	SourceExplicit   Source = "explicit"
	SourceMessage    Source = "message"
	SourceAnnotation Source = "annotation"
	SourceDefault    Source = "default"
)

// Bengaluru is the fallback location when nothing else resolves.
var Bengaluru = models.Location{Name: "Bengaluru, India", Latitude: 12.9716, Longitude: 77.5946}

type Resolution struct {
	Location models.Location `json:"location"`
	Source   Source          `json:"source"`
}

// Resolver is safe for concurrent use; nothing in it changes after construction.
type Resolver struct {
	fallback models.Location
	matchers []Matcher
}

// NewResolver returns a resolver with DefaultMatchers. An invalid fallback is
// replaced by Bengaluru.
func NewResolver(fallback models.Location) *Resolver {
	if err := fallback.Validate(); err != nil {
		log.Printf("Invalid default location %v (%v), using %s", fallback, err, Bengaluru.Name)
		fallback = Bengaluru
	}
	matchers := make([]Matcher, len(DefaultMatchers))
	copy(matchers, DefaultMatchers)
	return &Resolver{fallback: fallback, matchers: matchers}
}

// WithMatchers returns a copy of the resolver using the given matchers.
func (r *Resolver) WithMatchers(matchers ...Matcher) *Resolver {
	return &Resolver{fallback: r.fallback, matchers: append([]Matcher(nil), matchers...)}
}

// Default returns the fallback location by value.
func (r *Resolver) Default() models.Location {
	return r.fallback
}

// Resolve never fails. Priority: explicit location, then each message from
// newest to oldest (structured field first, then text annotations), then the
// fallback.
func (r *Resolver) Resolve(explicit *models.Location_Input, messages []models.Chat_Message) Resolution {
	if loc, ok := explicit.ToLocation(); ok {
		return Resolution{Location: loc, Source: SourceExplicit}
	}

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if loc, ok := msg.Location.ToLocation(); ok {
			return Resolution{Location: loc, Source: SourceMessage}
		}
		if loc, ok := r.FromText(msg.Content); ok {
			return Resolution{Location: loc, Source: SourceAnnotation}
		}
	}

	return Resolution{Location: r.fallback, Source: SourceDefault}
}

// FromText runs the matchers over a single text.
func (r *Resolver) FromText(text string) (models.Location, bool) {
	if text == "" {
		return models.Location{}, false
	}
	for _, match := range r.matchers {
		if loc, ok := match(text); ok {
			return loc, true
		}
	}
	return models.Location{}, false
}
