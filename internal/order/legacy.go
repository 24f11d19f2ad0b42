package order

import (
	"regexp"
	"strconv"
)

// The previous system embedded machine-readable counters in free-text
// internal notes ("[RESUBMISSIONS: 2]", "[SUGGESTION_ROUND: 3]"). Counters
// now live in dedicated columns; Create converts markers still arriving on
// imported orders into those columns and strips them from the notes, so the
// markers never become a steady-state mechanism.

var (
	legacyResubmissionsRe   = regexp.MustCompile(`\[RESUBMISSIONS:\s*(\d+)\]`)
	legacySuggestionRoundRe = regexp.MustCompile(`\[SUGGESTION_ROUND:\s*(\d+)\]`)
)

// parseLegacyCounters extracts the embedded counters from internal notes.
// Missing markers yield zero values.
func parseLegacyCounters(notes string) (resubmissions, suggestionRound int) {
	if m := legacyResubmissionsRe.FindStringSubmatch(notes); m != nil {
		resubmissions, _ = strconv.Atoi(m[1])
	}
	if m := legacySuggestionRoundRe.FindStringSubmatch(notes); m != nil {
		suggestionRound, _ = strconv.Atoi(m[1])
	}
	return resubmissions, suggestionRound
}

// stripLegacyCounters removes counter markers from notes once migrated.
func stripLegacyCounters(notes string) string {
	notes = legacyResubmissionsRe.ReplaceAllString(notes, "")
	notes = legacySuggestionRoundRe.ReplaceAllString(notes, "")
	return notes
}
