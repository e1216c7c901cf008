package relay

import (
	"encoding/json"
	"regexp"
)

// embeddedJSON matches from the first brace (or bracket) to the last closing
// one. Best effort only.
var embeddedJSON = regexp.MustCompile(`(?s)\{.*\}|\[.*\]`)

// ExtractJSON returns the JSON value embedded in free-form model text, if the
// located substring parses.
func ExtractJSON(text string) (json.RawMessage, bool) {
	m := embeddedJSON.FindString(text)
	if m == "" || !json.Valid([]byte(m)) {
		return nil, false
	}
	return json.RawMessage(m), true
}
