package playbook

import (
	"regexp"
	"strings"
)

var casualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(hi|hello|hey|heyy|yo|sup|hiya|howdy|morning|afternoon|evening|night)\b`),
	regexp.MustCompile(`^(thanks|thank you|thx|ty)\b`),
	regexp.MustCompile(`^(ok|okay|k|cool|nice|lol|lmao|haha|hmm|hm|yep|yeah|nah|nope)\b`),
}

var casualWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "heyy": {}, "yo": {}, "sup": {}, "hiya": {}, "howdy": {},
	"morning": {}, "afternoon": {}, "evening": {}, "night": {},
	"thanks": {}, "thank": {}, "you": {}, "thx": {}, "ty": {},
	"ok": {}, "okay": {}, "k": {}, "cool": {}, "nice": {}, "lol": {}, "lmao": {}, "haha": {},
	"hmm": {}, "hm": {}, "yep": {}, "yeah": {}, "nah": {}, "nope": {},
}

var wordRE = regexp.MustCompile(`[a-z]+`)

// IsCasual reports whether text is small talk that should not enter a playbook:
// very short, punctuation only, opening with a greeting or acknowledgement, or made
// entirely of casual words.
func IsCasual(text string) bool {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if len(normalized) <= 3 {
		return true
	}
	if strings.Trim(normalized, ".!?") == "" {
		return true
	}
	for _, p := range casualPatterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	tokens := wordRE.FindAllString(normalized, -1)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if _, ok := casualWords[tok]; !ok {
			return false
		}
	}
	return true
}
