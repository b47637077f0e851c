// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"strings"
	"unicode"
)

// labelStartWords are the first words of known exception-type labels. The
// scraper's raw extraction path concatenates labels with single spaces, so
// a lowercase-to-uppercase scan alone cannot find every boundary; these
// words mark the remaining ones.
var labelStartWords = map[string]bool{
	"Late":      true,
	"Early":     true,
	"No":        true,
	"Call":      true,
	"Overtime":  true,
	"Under":     true,
	"Schedule":  true,
	"Emergency": true,
}

// SplitLabels breaks a concatenated label string into discrete labels.
//
// Two input shapes reach this function: the pre-formatted form with one
// label per line (written for local files), and the raw concatenated form
// straight from extraction. Newlines take priority so a pre-formatted
// input is never split a second time by the word heuristic.
//
// The word heuristic splits before an uppercase rune that follows a
// lowercase rune, and before any known label-start word. It will misread
// compound words with internal capitals ("McDonald" becomes two parts);
// that behavior is pinned by tests rather than fixed, since the upstream
// label set does not currently contain such words.
func SplitLabels(raw string) []string {
	if raw == "" {
		return nil
	}

	var parts []string
	if strings.Contains(raw, "\n") {
		parts = strings.Split(raw, "\n")
	} else {
		parts = splitConcatenated(raw)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinLabels renders labels in the comma-separated form the store's bulk
// label API expects.
func JoinLabels(labels []string) string {
	return strings.Join(labels, ",")
}

// splitConcatenated breaks a single-line label run on case transitions and
// known label-start words.
func splitConcatenated(s string) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var labels []string
	var current []string
	for _, word := range words {
		startsNew := len(current) > 0 && labelStartWords[word]
		if startsNew {
			labels = append(labels, strings.Join(current, " "))
			current = current[:0]
		}
		// A lowercase-to-uppercase seam inside one word means two labels
		// were glued together without a space ("ArrivalNo" -> "Arrival", "No").
		for {
			seam := caseSeam(word)
			if seam < 0 {
				break
			}
			current = append(current, word[:seam])
			labels = append(labels, strings.Join(current, " "))
			current = current[:0]
			word = word[seam:]
		}
		current = append(current, word)
	}
	if len(current) > 0 {
		labels = append(labels, strings.Join(current, " "))
	}
	return labels
}

// caseSeam returns the byte index of the first uppercase rune that
// directly follows a lowercase rune, or -1.
func caseSeam(word string) int {
	prevLower := false
	for i, r := range word {
		if prevLower && unicode.IsUpper(r) {
			return i
		}
		prevLower = unicode.IsLower(r)
	}
	return -1
}
