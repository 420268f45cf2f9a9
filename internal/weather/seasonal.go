package weather

import (
	"strings"
	"time"
)

// Seasonal tones.
const (
	ToneCozy      = "cozy"
	ToneGentle    = "gentle"
	ToneUplifting = "uplifting"
)

// Seasonal is the weather-aware framing for suggestions.
type Seasonal struct {
	Tone            string   `json:"tone"`
	Tags            []string `json:"tags"`
	Suggestions     []string `json:"suggestions"`
	SunsetAlert     bool     `json:"sunset_alert"`
	IsRainy         bool     `json:"is_rainy"`
	IsClear         bool     `json:"is_clear"`
	TemperatureC    *float64 `json:"temperature_c"`
	MinutesToSunset *int     `json:"minutes_to_sunset"`
}

type conditionRule struct {
	key  string
	tone string
	tags []string
}

// conditionRules is matched in order against the lowercased condition; first hit wins.
var conditionRules = []conditionRule{
	{"rain", ToneCozy, []string{"rainy_day", "indoor"}},
	{"drizzle", ToneCozy, []string{"rainy_day", "indoor"}},
	{"thunderstorm", ToneCozy, []string{"rainy_day", "indoor"}},
	{"snow", ToneCozy, []string{"snowy_day", "indoor", "cozy"}},
	{"clouds", ToneGentle, []string{"overcast", "flexible"}},
	{"clear", ToneUplifting, []string{"sunny", "outdoor"}},
	{"sun", ToneUplifting, []string{"sunny", "outdoor"}},
	{"fog", ToneCozy, []string{"misty", "indoor", "cozy"}},
	{"wind", ToneGentle, []string{"windy", "flexible"}},
}

var (
	indoorSuggestions = []string{
		"Find a cozy study spot in the library",
		"Try a warm drink at a campus café",
	}
	outdoorSuggestions = []string{
		"Quick walk around the ring road",
		"Study break at Mystic Vale",
	}
	rainySuggestions = []string{
		"Perfect day for a cozy study session",
		"Hot chocolate at the SUB",
	}
)

const sunsetSuggestion = "Quick outdoor loop before it gets dark!"

// SeasonalContext derives tone, tags and suggestions from the local time and optional
// current conditions. Nov through Feb after 15:00 raises the sunset alert.
func SeasonalContext(now time.Time, current *Conditions) Seasonal {
	if current == nil {
		return Derive(now, "", nil, time.Time{})
	}
	temp := current.TemperatureC
	return Derive(now, string(current.Condition), &temp, current.Sunset)
}

// Derive is SeasonalContext for partial observations: condition may be empty,
// temperatureC nil and sunset zero when unknown.
func Derive(now time.Time, condition string, temperatureC *float64, sunset time.Time) Seasonal {
	out := Seasonal{Tone: ToneGentle}

	condition = strings.ToLower(strings.TrimSpace(condition))
	if temperatureC != nil {
		temp := *temperatureC
		out.TemperatureC = &temp
	}
	for _, rule := range conditionRules {
		if condition != "" && strings.Contains(condition, rule.key) {
			out.Tone = rule.tone
			out.Tags = append([]string(nil), rule.tags...)
			break
		}
	}
	if out.TemperatureC != nil && *out.TemperatureC < 5 {
		out.Tone = ToneCozy
	}
	if len(out.Tags) == 0 {
		out.Tags = []string{"flexible"}
	}
	out.IsRainy = strings.Contains(condition, "rain") || strings.Contains(condition, "drizzle") ||
		strings.Contains(condition, "thunderstorm")
	out.IsClear = strings.Contains(condition, "clear") || strings.Contains(condition, "sun")

	switch now.Month() {
	case time.November, time.December, time.January, time.February:
		out.SunsetAlert = now.Hour() >= 15
	}

	indoor := false
	for _, tag := range out.Tags {
		if tag == "indoor" {
			indoor = true
		}
	}
	switch {
	case indoor && out.IsRainy:
		out.Suggestions = append([]string(nil), rainySuggestions...)
	case indoor || (out.TemperatureC != nil && *out.TemperatureC < 8):
		out.Suggestions = append([]string(nil), indoorSuggestions...)
	default:
		out.Suggestions = append([]string(nil), outdoorSuggestions...)
	}
	if out.SunsetAlert {
		out.Suggestions = append([]string{sunsetSuggestion}, out.Suggestions...)
	}

	if !sunset.IsZero() && now.Before(sunset) {
		mins := int(sunset.Sub(now).Minutes())
		out.MinutesToSunset = &mins
	}
	return out
}
