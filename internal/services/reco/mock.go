package reco

import (
	"fmt"
	"strings"
)

// The degraded-mode generators below are deterministic functions of the
// descriptor so that CI and credential-less environments exercise the exact
// response contract live traffic sees.

var interestTemplates = []string{
	"%s trails",
	"%s tours",
	"%s meetups",
	"local %s spots",
	"%s workshops",
}

var placeTemplates = []struct {
	name        string
	description string
}{
	{"The %s Quarter", "A walkable quarter known for its %s scene."},
	{"%s Commons", "A relaxed gathering spot favored by %s enthusiasts."},
	{"Old Town %s House", "A long-running local institution for %s."},
	{"%s Harbor Walk", "A scenic stretch with plenty of %s along the way."},
	{"%s Corner", "A small neighborhood favorite for %s."},
}

// MockInterestList expands the supplied interests without any network call.
// The originals come first, followed by derived adjacent interests, truncated
// to the descriptor's limit.
func MockInterestList(d QueryDescriptor) []string {
	out := make([]string, 0, d.Limit)
	out = append(out, d.Interests...)

	for _, template := range interestTemplates {
		for _, interest := range d.Interests {
			out = append(out, fmt.Sprintf(template, interest))
		}
	}

	if len(out) > d.Limit {
		out = out[:d.Limit]
	}
	return out
}

// MockRecommendations synthesizes structured place suggestions from the
// descriptor, echoing the first supplied interest back as a tag.
func MockRecommendations(d QueryDescriptor) []PlaceSuggestion {
	seed := mockSeed(d)
	title := titleCase(seed)

	places := make([]PlaceSuggestion, 0, d.Limit)
	for i := 0; i < d.Limit; i++ {
		template := placeTemplates[i%len(placeTemplates)]
		rating := 4.0 + float64(i%10)/10
		address := fmt.Sprintf("%d Wander Street", 12+7*i)

		tags := []string{seed}
		if d.PlaceType != "" {
			tags = append(tags, d.PlaceType)
		}

		places = append(places, PlaceSuggestion{
			Name:        fmt.Sprintf(template.name, title),
			Description: fmt.Sprintf(template.description, seed),
			Tags:        tags,
			Rating:      &rating,
			Address:     &address,
		})
	}
	return places
}

// mockNarrative renders the structured mock as prose plus a bulleted list,
// matching the text the live streaming path would deliver.
func mockNarrative(d QueryDescriptor) string {
	places := MockRecommendations(d)

	var b strings.Builder
	fmt.Fprintf(&b, "Here are %d places worth a look:\n", len(places))
	for _, place := range places {
		fmt.Fprintf(&b, "- %s: %s\n", place.Name, place.Description)
	}
	return b.String()
}

func mockSeed(d QueryDescriptor) string {
	if len(d.Interests) > 0 {
		return d.Interests[0]
	}
	if d.PlaceType != "" {
		return d.PlaceType
	}
	if fields := strings.Fields(d.Query); len(fields) > 0 {
		return fields[0]
	}
	return "local"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
