package conversation

import "fmt"

// FirstSpeakerMode selects how the Validator establishes who opens the
// conversation.
type FirstSpeakerMode string

const (
	// FirstSpeakerFixed requires the first turn to come from the configured speaker.
	FirstSpeakerFixed FirstSpeakerMode = "fixed"

	// FirstSpeakerInfer accepts either speaker first: a leading "human" turn
	// expects human/gpt alternation, anything else expects gpt/human.
	FirstSpeakerInfer FirstSpeakerMode = "infer"
)

// MinTurns is the shortest conversation the schema accepts.
const MinTurns = 2

// Validator checks candidate values against the alternating-speaker schema.
// The zero value validates in fixed mode with human first.
type Validator struct {
	Mode         FirstSpeakerMode
	FirstSpeaker Speaker
}

// Validate reports whether v conforms to the schema.
func (val Validator) Validate(v any) bool {
	return val.Check(v) == nil
}

// Check is Validate with the reason for rejection. Returned errors wrap
// ErrInvalidSchema.
func (val Validator) Check(v any) error {
	top, ok := v.(map[string]any)
	if !ok {
		return invalid("top-level value is not an object")
	}
	rawTurns, ok := top["conversations"]
	if !ok {
		return invalid(`missing "conversations" key`)
	}
	turns, ok := rawTurns.([]any)
	if !ok {
		return invalid(`"conversations" is not an array`)
	}
	if len(turns) < MinTurns {
		return invalid(fmt.Sprintf("need at least %d turns, got %d", MinTurns, len(turns)))
	}

	var expected Speaker
	for i, raw := range turns {
		turn, ok := raw.(map[string]any)
		if !ok {
			return invalid(fmt.Sprintf("turn %d is not an object", i))
		}
		from, hasFrom := turn["from"]
		value, hasValue := turn["value"]
		if !hasFrom || !hasValue {
			return invalid(fmt.Sprintf(`turn %d lacks "from" or "value"`, i))
		}
		if _, ok := value.(string); !ok {
			return invalid(fmt.Sprintf(`turn %d "value" is not a string`, i))
		}
		speaker, _ := from.(string)
		if i == 0 {
			expected = val.opener(Speaker(speaker))
		}
		if Speaker(speaker) != expected {
			return invalid(fmt.Sprintf("turn %d: expected %q, got %v", i, expected, from))
		}
		expected = expected.Other()
	}
	return nil
}

// Decode validates v and converts it into a typed Conversation.
func (val Validator) Decode(v any) (Conversation, error) {
	if err := val.Check(v); err != nil {
		return Conversation{}, err
	}
	turns := v.(map[string]any)["conversations"].([]any)
	out := Conversation{Conversations: make([]Turn, len(turns))}
	for i, raw := range turns {
		t := raw.(map[string]any)
		out.Conversations[i] = Turn{
			From:  Speaker(t["from"].(string)),
			Value: t["value"].(string),
		}
	}
	return out, nil
}

// opener returns the speaker the first turn must come from.
func (val Validator) opener(first Speaker) Speaker {
	if val.Mode == FirstSpeakerInfer {
		if first == Human {
			return Human
		}
		return GPT
	}
	if val.FirstSpeaker == "" {
		return Human
	}
	return val.FirstSpeaker
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSchema, reason)
}

// ParseFirstSpeakerMode maps a settings value onto a FirstSpeakerMode. Empty
// selects FirstSpeakerFixed.
func ParseFirstSpeakerMode(s string) (FirstSpeakerMode, error) {
	switch FirstSpeakerMode(s) {
	case "", FirstSpeakerFixed:
		return FirstSpeakerFixed, nil
	case FirstSpeakerInfer:
		return FirstSpeakerInfer, nil
	default:
		return "", fmt.Errorf("conversation: unknown first speaker mode %q (want %q or %q)", s, FirstSpeakerFixed, FirstSpeakerInfer)
	}
}
