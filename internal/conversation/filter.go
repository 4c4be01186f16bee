package conversation

import "strings"

// DefaultExclusions are phrases that disqualify a conversation when they
// appear in any gpt turn: disclaimers about lacking feelings, and stock
// metaphors the model overuses.
var DefaultExclusions = []string{
	"incapable of experiencing",
	"incapable of human",
	"lacking human",
	"lacking emotion",
	"I do not possess the capacity",
	"programming does not include",
	"not capable of feeling",
	"not equipped with the capability",
	"do not have the capacity",
	"symphony",
	"tapestry",
	"treasure trove",
	"beyond my capabilities",
}

// Filter rejects conversations whose gpt turns contain an excluded phrase.
// Matching is a case-sensitive substring test.
type Filter struct {
	Phrases []string
}

// NewFilter returns a Filter over phrases, skipping empty entries.
func NewFilter(phrases []string) Filter {
	kept := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return Filter{Phrases: kept}
}

// Match returns the first excluded phrase found in a gpt turn.
func (f Filter) Match(c Conversation) (string, bool) {
	for _, turn := range c.Conversations {
		if turn.From != GPT {
			continue
		}
		for _, phrase := range f.Phrases {
			if phrase != "" && strings.Contains(turn.Value, phrase) {
				return phrase, true
			}
		}
	}
	return "", false
}

// Allows reports whether c contains no excluded phrase.
func (f Filter) Allows(c Conversation) bool {
	_, found := f.Match(c)
	return !found
}
