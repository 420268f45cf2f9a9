// Package safety detects crisis language and builds the fixed crisis responses.
//
// Detection favors narrow phrases ("kill myself") over broad keywords ("kill")
// so that ordinary venting is not routed into crisis handling.
package safety

import (
	"regexp"
	"strings"
)

// crisisPatterns is evaluated in order against lowercased text.
var crisisPatterns = compilePatterns([]string{
	`\bsuicide\b`,
	`\bsuicidal\b`,
	`\bkill myself\b`,
	`\bend my life\b`,
	`\bwant to die\b`,
	`\bdon't want to live\b`,
	`\bdo not want to live\b`,
	`\bdont want to live\b`,
	`\bself[- ]?harm\b`,
	`\bhurt myself\b`,
	`\bcut myself\b`,
	`\boverdose\b`,
	`\bend it all\b`,
	`\bending it all\b`,
	`\btake my life\b`,
	`\bwish i was dead\b`,
	`\bcan't go on\b`,
	`\bcant go on\b`,
	`\bno reason to live\b`,
})

func compilePatterns(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

// Detect reports whether text contains a crisis indicator. Empty text is never a crisis.
func Detect(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := normalizeApostrophes(strings.ToLower(text))
	for _, pattern := range crisisPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// normalizeApostrophes maps typographic apostrophes to ASCII so "can’t go on"
// matches the same pattern as "can't go on".
func normalizeApostrophes(s string) string {
	return strings.NewReplacer("’", "'", "‘", "'").Replace(s)
}
