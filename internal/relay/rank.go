package relay

import (
	"encoding/json"
)

const MaxRankedIDs = 30

const (
	WarningNoJSON   = "No JSON found in model response"
	WarningBadShape = "Invalid JSON structure from model"
)

type Ranking struct {
	IDs []string `json:"ids"`
}

// FilterRanking parses a ranking reply and keeps only identifiers the caller
// supplied. Unknown identifiers are dropped without a warning. Unusable
// replies give an empty ranking and a warning, never an error.
func FilterRanking(text string, provided []string) (Ranking, string) {
	out := Ranking{IDs: []string{}}

	raw, ok := ExtractJSON(text)
	if !ok {
		return out, WarningNoJSON
	}

	// keys match exactly, so {"IDS": ...} is not a ranking
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, WarningBadShape
	}
	var ids []string
	if err := json.Unmarshal(fields["ids"], &ids); err != nil || ids == nil || len(ids) > MaxRankedIDs {
		return out, WarningBadShape
	}

	known := make(map[string]struct{}, len(provided))
	for _, id := range provided {
		known[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; ok {
			out.IDs = append(out.IDs, id)
		}
	}
	return out, ""
}
