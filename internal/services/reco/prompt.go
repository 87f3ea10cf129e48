package reco

import (
	"fmt"
	"strings"
)

// PromptPair is the (system, user) prompt pair sent to the provider. It is
// fully determined by the descriptor: identical descriptors always produce
// byte-identical pairs. Caching and the prompt tests depend on this.
type PromptPair struct {
	System string
	User   string
	Limit  int
}

const recommendationSystemTemplate = "You are a local recommendation assistant for travelers. " +
	"Suggest at most %d places that match the request. " +
	"Respond with a short introduction followed by a bulleted list, one place per bullet, " +
	"each with a one-sentence reason why it fits."

const interestSystemTemplate = "You are a recommendation assistant that expands a traveler's interests into related interests. " +
	"Return ONLY a JSON array of at most %d strings. No prose, no explanations, no code fences."

// ComposeRecommendationPrompt builds the prompt for the place-recommendation
// variant. Clause order is fixed: subject, location, type filter.
func ComposeRecommendationPrompt(d QueryDescriptor) PromptPair {
	var b strings.Builder

	if d.Query != "" {
		fmt.Fprintf(&b, "Find places matching %q.", d.Query)
	} else {
		fmt.Fprintf(&b, "Find places for a traveler interested in: %s.", strings.Join(d.Interests, ", "))
	}

	if d.Location != nil {
		fmt.Fprintf(&b, " The traveler is near latitude %.6f, longitude %.6f", d.Location.Latitude, d.Location.Longitude)
		if d.RadiusKm != nil {
			fmt.Fprintf(&b, ", within %.1f km", *d.RadiusKm)
		}
		b.WriteString(".")
	}

	if d.PlaceType != "" {
		fmt.Fprintf(&b, " Only include places of type %q.", d.PlaceType)
	}

	return PromptPair{
		System: fmt.Sprintf(recommendationSystemTemplate, d.Limit),
		User:   b.String(),
		Limit:  d.Limit,
	}
}

// ComposeInterestPrompt builds the prompt for the interest-expansion variant.
func ComposeInterestPrompt(d QueryDescriptor) PromptPair {
	var b strings.Builder

	fmt.Fprintf(&b, "Expand these interests into closely related interests: %s.", strings.Join(d.Interests, ", "))

	if d.LocationName != "" {
		fmt.Fprintf(&b, " The traveler is located in %s.", d.LocationName)
	}

	return PromptPair{
		System: fmt.Sprintf(interestSystemTemplate, d.Limit),
		User:   b.String(),
		Limit:  d.Limit,
	}
}
