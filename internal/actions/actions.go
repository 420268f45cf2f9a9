// Package actions renders ready-to-send scripts (emails, texts, talking points) for
// common student situations.
package actions

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTone is used when a request names an unknown tone.
const DefaultTone = "gentle"

// NotFoundTitle is the title of the script returned for unknown scenarios.
const NotFoundTitle = "Script Not Found"

//go:embed scripts.yaml
var defaultScriptsYAML []byte

// Script is a rendered template.
type Script struct {
	Title              string   `json:"title"`
	Script             string   `json:"script"`
	Checklist          []string `json:"checklist"`
	SuggestedNextSteps []string `json:"suggested_next_steps"`
}

type template struct {
	Title     string   `yaml:"title"`
	Script    string   `yaml:"script"`
	Checklist []string `yaml:"checklist"`
}

type scenario struct {
	ID        string              `yaml:"id"`
	NextSteps []string            `yaml:"next_steps"`
	Tones     map[string]template `yaml:"tones"`
}

// Library holds the script templates.
type Library struct {
	Tones     []string   `yaml:"tones"`
	Scenarios []scenario `yaml:"scenarios"`
}

var defaultLibrary = mustParse(defaultScriptsYAML)

func mustParse(raw []byte) *Library {
	lib, err := ParseLibrary(raw)
	if err != nil {
		panic(fmt.Sprintf("actions: embedded scripts are invalid: %v", err))
	}
	return lib
}

// ParseLibrary decodes a YAML template library. Every scenario must provide the
// default tone.
func ParseLibrary(raw []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(raw, &lib); err != nil {
		return nil, fmt.Errorf("failed to parse script library: %w", err)
	}
	for _, s := range lib.Scenarios {
		if _, ok := s.Tones[DefaultTone]; !ok {
			return nil, fmt.Errorf("scenario %q has no %s tone", s.ID, DefaultTone)
		}
	}
	return &lib, nil
}

// DefaultLibrary returns the built-in templates.
func DefaultLibrary() *Library {
	return defaultLibrary
}

// Generate renders scenario in tone from the built-in library.
func Generate(scenarioID, tone string, vars map[string]string) Script {
	return defaultLibrary.Generate(scenarioID, tone, vars)
}

// Generate renders a template, replacing each {key} in the script with vars[key].
// Unknown tones fall back to gentle; unknown scenarios yield a "Script Not Found" script.
func (l *Library) Generate(scenarioID, tone string, vars map[string]string) Script {
	idx := slices.IndexFunc(l.Scenarios, func(s scenario) bool { return s.ID == scenarioID })
	if idx < 0 {
		return Script{
			Title:              NotFoundTitle,
			Script:             "Sorry, we don't have a template for that scenario yet.",
			Checklist:          []string{},
			SuggestedNextSteps: []string{},
		}
	}
	s := l.Scenarios[idx]
	tpl, ok := s.Tones[tone]
	if !ok {
		tpl = s.Tones[DefaultTone]
	}

	text := tpl.Script
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return Script{
		Title:              tpl.Title,
		Script:             text,
		Checklist:          append([]string{}, tpl.Checklist...),
		SuggestedNextSteps: append([]string{}, s.NextSteps...),
	}
}

// ScenarioIDs lists the available scenarios in declaration order.
func (l *Library) ScenarioIDs() []string {
	ids := make([]string, len(l.Scenarios))
	for i, s := range l.Scenarios {
		ids[i] = s.ID
	}
	return ids
}
