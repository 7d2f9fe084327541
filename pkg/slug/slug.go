// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug turns story titles into ASCII URL slugs such as
// "the-glass-orchard". Titles with no usable characters become [Fallback].
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is returned when a title produces no usable characters.
const Fallback = "story"

// MaxLength caps slug length; longer slugs are cut at a hyphen where possible.
const MaxLength = 80

// Letters that carry no combining mark under NFD and so survive accent folding.
var transliterate = strings.NewReplacer("đ", "d", "Đ", "d", "ß", "ss", "ø", "o", "Ø", "o", "ł", "l", "Ł", "l")

// From folds s to lowercase ASCII, joining runs of letters and digits with
// single hyphens.
func From(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), transliterate.Replace(s))
	if err != nil {
		folded = s
	}

	var builder strings.Builder
	builder.Grow(min(len(folded), MaxLength))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			pendingHyphen = builder.Len() > 0
			continue
		}
		if pendingHyphen {
			builder.WriteByte('-')
			pendingHyphen = false
		}
		builder.WriteRune(r)
	}

	result := builder.String()
	if len(result) > MaxLength {
		result = result[:MaxLength]
		if cut := strings.LastIndexByte(result, '-'); cut > MaxLength/2 {
			result = result[:cut]
		}
		result = strings.TrimRight(result, "-")
	}

	if result == "" {
		return Fallback
	}
	return result
}
