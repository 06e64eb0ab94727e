// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package recommend

import "strings"

// FeatureDocument produces the text document the vectorizer consumes for a
// single movie: the genre names joined by spaces, a space, then the overview
// truncated to overviewLimit characters (counted in runes, so multi-byte
// text is never split mid-character).
//
// Missing genres or an empty overview contribute nothing; a movie with
// neither yields a document that tokenizes to zero terms, which is valid
// input and simply matches nothing.
func FeatureDocument(item *Item, overviewLimit int) string {
	overview := item.Overview
	if overviewLimit > 0 {
		if r := []rune(overview); len(r) > overviewLimit {
			overview = string(r[:overviewLimit])
		}
	}

	var b strings.Builder
	for i, g := range item.Genres {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(g)
	}
	if overview != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(overview)
	}
	return b.String()
}
