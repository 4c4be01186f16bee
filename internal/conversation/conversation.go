// Package conversation holds the ShareGPT-style conversation schema and the
// pure functions that guard it: parsing untrusted model text, validating the
// alternating-speaker shape, normalizing, and screening for excluded phrases.
package conversation

import (
	"bytes"
	"encoding/json"
)

// Speaker is the value of a turn's "from" key.
type Speaker string

const (
	Human Speaker = "human"
	GPT   Speaker = "gpt"
)

// Other returns the speaker expected to answer s.
func (s Speaker) Other() Speaker {
	if s == Human {
		return GPT
	}
	return Human
}

// Turn is one message in a conversation.
type Turn struct {
	From  Speaker `json:"from"`
	Value string  `json:"value"`
}

// Conversation is the record persisted to the dataset, one per line.
type Conversation struct {
	Conversations []Turn `json:"conversations"`
}

// Len returns the number of turns.
func (c Conversation) Len() int {
	return len(c.Conversations)
}

// Last returns the final turn and false when the conversation is empty.
func (c Conversation) Last() (Turn, bool) {
	if len(c.Conversations) == 0 {
		return Turn{}, false
	}
	return c.Conversations[len(c.Conversations)-1], true
}

// MarshalLine encodes c as a single compact JSON line without a trailing
// newline. HTML characters are left unescaped so dialogue text survives
// verbatim.
func (c Conversation) MarshalLine() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
