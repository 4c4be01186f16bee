package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EndMarker must terminate every candidate after trailing whitespace is
// trimmed.
const EndMarker = "]}"

var (
	// ErrMissingEndMarker is returned by Parse when the text does not end with EndMarker.
	ErrMissingEndMarker = errors.New("conversation: output does not end with " + EndMarker)

	// ErrInvalidSchema wraps every structural rejection from the Validator.
	ErrInvalidSchema = errors.New("conversation: invalid schema")
)

// Parse turns raw model output into an untyped JSON value. The result is
// untrusted until a Validator accepts it.
func Parse(raw string) (any, error) {
	text := strings.TrimSpace(raw)
	if !strings.HasSuffix(text, EndMarker) {
		return nil, ErrMissingEndMarker
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("conversation: decode: %w", err)
	}
	return v, nil
}
