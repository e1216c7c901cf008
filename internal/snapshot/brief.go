package snapshot

import (
	"fmt"
	"strings"
	"time"
)

// BriefMarkdown renders the daily digest: items grouped by category in order
// of first appearance.
func BriefMarkdown(data *Data, now time.Time) string {
	var b strings.Builder

	b.WriteString("# MENA Force Posture Daily Brief\n")
	fmt.Fprintf(&b, "**Date:** %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Generated:** %s\n\n", data.GeneratedAtUTC)

	b.WriteString("## Executive Summary\n")
	fmt.Fprintf(&b, "Monitoring %d active developments across the region.\n\n", len(data.Items))

	order := make([]Category, 0)
	grouped := make(map[Category][]Item)
	for _, item := range data.Items {
		if _, seen := grouped[item.Category]; !seen {
			order = append(order, item.Category)
		}
		grouped[item.Category] = append(grouped[item.Category], item)
	}

	for _, cat := range order {
		fmt.Fprintf(&b, "### %s\n", strings.Replace(string(cat), "_", " ", 1))
		for _, item := range grouped[cat] {
			location := item.LocationName()
			if location == "" {
				location = "Unknown Location"
			}
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", item.Title, location, item.Summary)
		}
		b.WriteString("\n")
	}

	return b.String()
}
