// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discourse finds connective phrases ("however", "therefore", ...)
// in paragraph text and tags each with a transition hint.
package discourse

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/argmap/pkg/types"
)

// markerTables holds the connective phrases for each hint. A phrase may
// appear in more than one table ("notwithstanding").
var markerTables = map[types.TransitionHint][]string{
	types.HintContrast: {
		"however", "but", "nevertheless", "yet", "still", "conversely",
		"on the other hand", "in contrast", "rather", "instead",
		"on the contrary", "by contrast", "notwithstanding",
	},
	types.HintInference: {
		"therefore", "thus", "hence", "consequently", "accordingly",
		"as a result", "for this reason", "it follows that", "so",
		"then", "in consequence", "whence", "wherefore",
	},
	types.HintConcession: {
		"although", "though", "even though", "while", "granted that",
		"admittedly", "it is true that", "even if", "notwithstanding",
	},
	types.HintContinuation: {
		"moreover", "furthermore", "additionally", "also", "besides",
		"what is more", "in addition", "likewise", "similarly",
		"in the same way", "further", "again",
	},
}

type table struct {
	hint types.TransitionHint

	// any finds candidate starts; markers are anchored per phrase and tried
	// in table order at each candidate.
	any     *regexp.Regexp
	markers []*regexp.Regexp
}

// Detector matches text against the four marker tables. A Detector holds
// only compiled patterns and is safe for concurrent use.
type Detector struct {
	tables []table
}

// NewDetector compiles the case-insensitive patterns for every table.
func NewDetector() *Detector {
	d := &Detector{}
	for _, hint := range types.TransitionHints {
		markers := markerTables[hint]
		t := table{hint: hint, markers: make([]*regexp.Regexp, len(markers))}
		quoted := make([]string, len(markers))
		for i, m := range markers {
			quoted[i] = regexp.QuoteMeta(m)
			t.markers[i] = regexp.MustCompile(`^(?i:` + quoted[i] + `)`)
		}
		t.any = regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
		d.tables = append(d.tables, t)
	}
	return d
}

// isWordRune mirrors a Unicode \w: letters, numbers and underscore.
// regexp's \b only knows ASCII word characters.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// wordStart reports whether byte offset i in text is not preceded by a word
// rune.
func wordStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

// wordEnd reports whether byte offset i in text is not followed by a word
// rune.
func wordEnd(text string, i int) bool {
	if i == len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

// scan returns the byte spans of whole-word, non-overlapping matches of t
// in text, scanning left to right.
func (t table) scan(text string) [][2]int {
	var spans [][2]int
	for pos := 0; pos < len(text); {
		loc := t.any.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		end := -1
		if wordStart(text, start) {
			for _, m := range t.markers {
				if l := m.FindStringIndex(text[start:]); l != nil && wordEnd(text, start+l[1]) {
					end = start + l[1]
					break
				}
			}
		}
		if end < 0 {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + size
			continue
		}
		spans = append(spans, [2]int{start, end})
		pos = end
	}
	return spans
}

var defaultDetector = NewDetector()

// Detect runs the default detector over text.
func Detect(text string) []types.Transition {
	return defaultDetector.Detect(text)
}

// Detect returns every marker occurrence in text, sorted by ascending
// character (rune) offset. Each table is matched independently, so a phrase
// listed under two hints is reported twice at the same position, contrast
// before inference before concession before continuation. ParagraphIndex is left at zero.
func (d *Detector) Detect(text string) []types.Transition {
	var found []types.Transition
	for _, t := range d.tables {
		for _, sp := range t.scan(text) {
			found = append(found, types.Transition{
				Marker:   text[sp[0]:sp[1]],
				Hint:     t.hint,
				Position: utf8.RuneCountInString(text[:sp[0]]),
			})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Position < found[j].Position
	})
	return found
}

// HintFor returns the hint of a known marker, matching case-insensitively.
// Markers listed under several hints report the first in table order.
func HintFor(marker string) (types.TransitionHint, bool) {
	m := strings.ToLower(strings.TrimSpace(marker))
	for _, hint := range types.TransitionHints {
		for _, candidate := range markerTables[hint] {
			if candidate == m {
				return hint, true
			}
		}
	}
	return "", false
}

// Markers returns every marker phrase grouped by hint, in table order.
func Markers() map[types.TransitionHint][]string {
	out := make(map[types.TransitionHint][]string, len(markerTables))
	for hint, markers := range markerTables {
		out[hint] = append([]string(nil), markers...)
	}
	return out
}
