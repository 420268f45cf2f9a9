package intent

// Default boost floors. A keyword hit raises a pattern score to the floor of
// its tag but never lowers a higher score.
const (
	DefaultCrisisFloor    = 0.95
	DefaultEmotionalFloor = 0.92
)

// DefaultCrisisTags are the tags boosted to the crisis floor.
var DefaultCrisisTags = []string{"suicide", "self-harm", "panic-attack"}

// DefaultBoostKeywords maps intent tags to their high-signal keywords.
// Keywords match whole words (or whole word sequences) of the normalized input.
var DefaultBoostKeywords = map[string][]string{
	// Crisis & safety
	"suicide":   {"kill", "suicide", "die", "death", "end my life", "want to die", "better off dead"},
	"self-harm": {"hurt myself", "self harm", "cut myself", "cutting", "harming myself"},

	// Core mental health
	"depressed":    {"depressed", "depression", "no interest", "feel dead inside"},
	"sad":          {"sad", "lonely", "empty", "down", "crying", "hopeless", "broken", "forgotten"},
	"anxious":      {"anxious", "anxiety", "worried", "panic", "nervous", "racing", "on edge"},
	"stressed":     {"stressed", "stress", "burned", "burnout", "overwhelmed", "pressure", "drowning"},
	"worthless":    {"worthless", "useless", "nothing", "failure", "not good enough", "pathetic", "loser"},
	"scared":       {"scared", "afraid", "fear", "terrified", "frightened", "unsafe"},
	"anger":        {"angry", "furious", "rage", "pissed", "mad", "irritated", "frustrated", "hate everything"},
	"overwhelmed":  {"overwhelmed", "too much", "can't handle", "drowning", "breaking", "falling apart"},
	"panic-attack": {"panic attack", "can't breathe", "heart racing", "panicking", "freaking out"},

	// Life challenges
	"relationship-issues": {"relationship", "partner", "boyfriend", "girlfriend", "spouse", "fighting"},
	"breakup":             {"breakup", "broke up", "ex", "dumped", "heartbroken", "ended"},
	"family-issues":       {"family", "parents", "toxic", "controlling", "don't understand"},
	"work-stress":         {"job", "work", "boss", "coworkers", "overworked", "quit", "career"},
	"school-stress":       {"school", "exams", "grades", "failing", "academic", "college", "university"},

	// Self-image & behaviour
	"body-image":    {"body", "ugly", "fat", "skinny", "appearance", "looks", "attractive"},
	"eating-issues": {"eating", "food", "binge", "restrict", "eating disorder", "skip meals"},
	"confidence":    {"confidence", "insecure", "self esteem", "inferior", "doubt myself"},
	"motivation":    {"motivation", "unmotivated", "no energy", "can't start", "pointless"},

	// Trauma & addiction
	"trauma":    {"trauma", "ptsd", "abused", "flashbacks", "haunted", "assaulted"},
	"addiction": {"addiction", "addicted", "can't stop", "alcohol", "drugs", "relapsing"},

	// Support seeking
	"coping-strategies": {"cope", "coping", "strategies", "manage", "deal with"},
	"grounding":         {"grounding", "disconnected", "dissociating", "not real", "floaty"},
	"breathing":         {"breathing", "breathe", "calm down"},
	"affirmation":       {"encouragement", "positive", "affirmation", "validation", "hope"},
	"self-care":         {"self care", "selfcare", "take care", "relax", "destress"},

	"sleep": {"sleep", "insomnia", "can't sleep", "nightmares", "exhausted"},

	// Positive states
	"happy":       {"happy", "great", "good", "wonderful", "amazing", "joyful", "grateful"},
	"achievement": {"accomplished", "proud", "achieved", "succeeded", "did it", "finished"},

	// Social
	"friends":        {"friends", "friendless", "no friends", "lonely"},
	"helping-others": {"help someone", "friend is struggling", "worried about"},
}
