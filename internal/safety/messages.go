package safety

import "strings"

var crisisResourceLines = []string{
	"Call or text 988 (Suicide Crisis Helpline, Canada, 24/7)",
	"BC Crisis Line: 1-800-784-2433 (24/7)",
	"If you're outside Canada: findahelpline.com",
}

var crisisActionSteps = []string{
	"If you can, move to a safer place or be with someone you trust.",
}

const emergencyLine = "If you're in immediate danger, call 911."

// ResourceLines returns the crisis resource lines, led by the emergency line when requested.
func ResourceLines(includeEmergency bool) []string {
	lines := make([]string, 0, len(crisisResourceLines)+1)
	if includeEmergency {
		lines = append(lines, emergencyLine)
	}
	return append(lines, crisisResourceLines...)
}

// ActionSteps returns the immediate safety steps shown before the resource lines.
func ActionSteps() []string {
	return append([]string(nil), crisisActionSteps...)
}

// ResourcesBlock renders the resource lines as a bulleted block.
func ResourcesBlock(includeEmergency bool) string {
	lines := ResourceLines(includeEmergency)
	bullets := make([]string, len(lines))
	for i, line := range lines {
		bullets[i] = "• " + line
	}
	return strings.Join(bullets, "\n")
}

// CrisisMessage builds the full crisis response, addressing the user by name when known.
func CrisisMessage(preferredName string) string {
	prefix := ""
	if name := strings.TrimSpace(preferredName); name != "" {
		prefix = name + ", "
	}
	return prefix + "I can hear how much pain you're in, and I want to make sure you're safe. " +
		"I'm an AI, and I can't provide the level of care you deserve right now.\n\n" +
		ResourcesBlock(true) + "\n\n" +
		"I'm still here with you. Would you like to stay here while you reach out?"
}

// FollowUpQuestion is asked after a crisis response.
func FollowUpQuestion() string {
	return "Would you like me to stay here while you reach out?"
}

// CheckinMessage is sent when re-engaging after a crisis turn.
func CheckinMessage() string {
	return "I'm still here with you. If things feel unsafe right now, please reach out for support.\n\n" +
		ResourcesBlock(true)
}

// FallbackMessage is shown when the text-generation service cannot answer.
// It always carries the crisis resources.
func FallbackMessage() string {
	return "I'm here for you 💚 I'm experiencing a brief connection issue, " +
		"but I want you to know that your feelings matter and you're not alone. " +
		"If you're in crisis, please reach out:\n" +
		ResourcesBlock(true) + "\n\n" +
		"Let's try again in a moment."
}
