/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package score extracts a bounded integer score from free-text model output.
//
// Scoring models are asked to begin their answer with a marker such as
// "Score: 7" (or the Thai "คะแนน: 7"), but they do not always comply. Extract
// therefore tries the marker first, falls back to the first standalone one or
// two digit number, and otherwise returns Min. It never fails: malformed or
// adversarial text degrades to a score of Min.
package score

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	// Min is the lowest score, also used when no score can be found.
	Min = 0
	// Max is the highest score.
	Max = 10
)

// Markers are the words recognised in front of a score, matched case-insensitively.
var Markers = []string{"Score", "คะแนน"}

var (
	// markerRE tolerates markdown emphasis and a full-width colon around the
	// marker, e.g. "**Score:** 8" or "คะแนน： 8".
	// Digits may come from any script, e.g. Thai "๗".
	markerRE = regexp.MustCompile(`(?i)(?:score|คะแนน)\s*\**\s*[:：]\s*\**\s*(\p{Nd}+(?:\.\p{Nd}+)?)`)

	// A standalone number of one or two digits. Go's \b only knows ASCII
	// word characters, so the boundaries are spelled out.
	fallbackRE = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(\p{Nd}{1,2})(?:[^\p{L}\p{N}_]|$)`)
)

// Extract returns the score found in text, always within [Min, Max].
func Extract(text string) int {
	if m := markerRE.FindStringSubmatch(text); m != nil {
		f, err := strconv.ParseFloat(asciiDigits(m[1]), 64)
		if err != nil || math.IsInf(f, 0) {
			return Min
		}
		return clamp(int(math.Trunc(f)))
	}

	if m := fallbackRE.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(asciiDigits(m[1]))
		if err != nil {
			return Min
		}
		return clamp(n)
	}

	return Min
}

// clamp maps out-of-range scores to Min rather than the nearest bound, so an
// implausible answer never earns points.
func clamp(n int) int {
	if n < Min || n > Max {
		return Min
	}
	return n
}

// asciiDigits rewrites decimal digits of any script as ASCII. Every Unicode
// Nd range is a run of complete 0-9 sequences, so a digit's value is its
// offset within the range modulo ten.
func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || !unicode.IsDigit(r) {
			return r
		}
		return '0' + digitValue(r)
	}, s)
}

func digitValue(r rune) rune {
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return (r - lo) % 10
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return (r - lo) % 10
		}
	}
	return 0
}
