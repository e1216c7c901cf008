package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akio-byte/navaltutka/internal/snapshot"
)

const horizonTask = `Based on the current naval and air force posture data provided as context, generate a 3-point "Strategic Horizon" assessment.
Focus on:
1. Immediate tension points.
2. Likely movements in the next 48h.
3. Diplomatic openings.

Output format: Markdown with a short section "Sources" listing numbered links.`

const reportTask = `Generate a polished, professional Daily Intelligence Brief based on the snapshot data provided as context and any external evidence.
Output format: Markdown with a short section "Sources" listing numbered links.

Format:
# Daily Intelligence Brief - [Date]

## Executive Summary
[2-3 sentences]

## Key Developments
- **[Category]**: [Detail]
- ...

## Strategic Assessment
[1 paragraph]

Tone: calm, objective, professional. Language: %s.`

const rankTask = `User Query: %q

Task: Rank the items provided as context by relevance to the user query.
Return ONLY minified JSON with the following structure: {"ids": ["item-id-1", "item-id-2"]}
Only include IDs that are actually relevant. Max 30 IDs.`

func briefTask(item *snapshot.Item) string {
	location := item.LocationName()
	names := make([]string, 0, len(item.Sources))
	for _, src := range item.Sources {
		names = append(names, src.Name)
	}

	var b strings.Builder
	b.WriteString("Provide a deep-dive tactical briefing on the following event.\n")
	b.WriteString("Explain the strategic significance, potential escalatory risks, and historical context if applicable.\n\n")
	fmt.Fprintf(&b, "Event: %s\n", item.Title)
	fmt.Fprintf(&b, "Summary: %s\n", item.Summary)
	fmt.Fprintf(&b, "Category: %s\n", item.Category)
	fmt.Fprintf(&b, "Location: %s\n", location)
	fmt.Fprintf(&b, "Sources: %s", strings.Join(names, ", "))
	return b.String()
}

func chatTask(message string) string {
	return "User Message: " + message
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
