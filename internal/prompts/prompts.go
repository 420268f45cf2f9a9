// Package prompts provides the system prompts sent to the text-generation service.
//
// The defaults are embedded; deployments may override them with files.
package prompts

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BTreeMap/Lantern/internal/safety"
)

//go:embed companion.txt
var companionTemplate string

//go:embed casual.txt
var casualTemplate string

//go:embed crisis_block.txt
var crisisBlockTemplate string

const (
	crisisBlockPlaceholder = "{{CRISIS_BLOCK}}"
	resourcesPlaceholder   = "{{RESOURCES}}"
)

// CrisisBlock is the safety section shared by every system prompt.
func CrisisBlock() string {
	block := strings.ReplaceAll(crisisBlockTemplate, resourcesPlaceholder, safety.ResourcesBlock(true))
	return strings.TrimSpace(block)
}

// Render fills the crisis block placeholder of a prompt template.
func Render(template string) string {
	return strings.TrimSpace(strings.ReplaceAll(template, crisisBlockPlaceholder, CrisisBlock()))
}

// Companion returns the persona prompt for freeform chat.
func Companion() string {
	return Render(companionTemplate)
}

// Casual returns the prompt used for small talk and off-playbook turns.
func Casual() string {
	return Render(casualTemplate)
}

// LoadFile reads a prompt template from path and renders it. A template without the
// crisis placeholder gets the crisis block appended, so no prompt ships without it.
func LoadFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("prompt file not configured")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Error("prompts.LoadFile: failed to read prompt file", "file", path, "error", err)
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	template := strings.TrimSpace(string(content))
	if !strings.Contains(template, crisisBlockPlaceholder) {
		template += "\n\n" + crisisBlockPlaceholder
	}
	prompt := Render(template)
	slog.Info("prompts.LoadFile: prompt loaded", "file", path, "length", len(prompt))
	return prompt, nil
}

// LoadOrDefault returns the rendered prompt at path, or fallback when path is empty
// or unreadable.
func LoadOrDefault(path, fallback string) string {
	if path == "" {
		return fallback
	}
	prompt, err := LoadFile(path)
	if err != nil {
		slog.Warn("prompts.LoadOrDefault: using built-in prompt", "file", path, "error", err)
		return fallback
	}
	return prompt
}
