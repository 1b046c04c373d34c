package tokenizer

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// AddedToken is an atomic string registered outside the merge pipeline and
// matched verbatim during encode and decode. The flags mirror the common
// tokenizer file format: Special marks control tokens such as end-of-text,
// Normalized selects whether the token is matched against NFC-normalized
// text, LStrip/RStrip swallow adjacent whitespace, and SingleWord rejects
// matches glued to word characters.
type AddedToken struct {
	Content    string `json:"content"`
	Special    bool   `json:"special"`
	Normalized bool   `json:"normalized"`
	LStrip     bool   `json:"lstrip"`
	RStrip     bool   `json:"rstrip"`
	SingleWord bool   `json:"single_word"`
}

type addedEntry struct {
	AddedToken
	id int32
}

// addedVocabulary is an immutable snapshot of the registered added tokens.
// AddTokens publishes a fresh snapshot so in-flight encode/decode calls
// keep reading a consistent set.
type addedVocabulary struct {
	entries   []addedEntry // registration order
	byContent map[string]addedEntry
	byID      map[int32]string

	// longest content first so overlapping tokens resolve to the longest
	ordered []addedEntry
}

func newAddedVocabulary(entries []addedEntry) *addedVocabulary {
	av := &addedVocabulary{
		entries:   entries,
		byContent: make(map[string]addedEntry, len(entries)),
		byID:      make(map[int32]string, len(entries)),
		ordered:   slices.Clone(entries),
	}

	for _, e := range entries {
		av.byContent[e.Content] = e
		av.byID[e.id] = e.Content
	}

	slices.SortStableFunc(av.ordered, func(a, b addedEntry) int {
		return len(b.Content) - len(a.Content)
	})

	return av
}

func (av *addedVocabulary) lookup(content string) (addedEntry, bool) {
	e, ok := av.byContent[content]
	return e, ok
}

func (av *addedVocabulary) decode(id int32) (string, bool) {
	s, ok := av.byID[id]
	return s, ok
}

// fragment is a run of text and, for matched added tokens, its ids.
type fragment struct {
	value string
	ids   []int32
}

// extract splits the pending fragments around occurrences of the added
// tokens. normalized selects which half of the set participates: tokens
// with Normalized unset match raw input, the rest match after NFC.
func (av *addedVocabulary) extract(fragments []fragment, normalized bool) []fragment {
	for _, e := range av.ordered {
		if e.Normalized != normalized {
			continue
		}

		for i := 0; i < len(fragments); i++ {
			frag := fragments[i]
			if len(frag.ids) > 0 {
				continue
			}

			middle := e.splitValue(frag.value)
			if middle == nil {
				continue
			}

			fragments = append(fragments[:i], append(middle, fragments[i+1:]...)...)
			i += len(middle) - 1
		}
	}

	return fragments
}

// splitValue splits s around occurrences of the entry, honoring the
// SingleWord boundary check and the LStrip/RStrip whitespace trims. A nil
// return means no occurrence matched.
func (e addedEntry) splitValue(s string) []fragment {
	var middle []fragment
	var matched bool

	rest := s
	for rest != "" {
		i := strings.Index(rest, e.Content)
		if i < 0 {
			break
		}

		start, end := i, i+len(e.Content)

		if e.SingleWord && (wordRuneBefore(rest, start) || wordRuneAt(rest, end)) {
			// glued to a word, not a match; resume after this occurrence
			if end >= len(rest) {
				break
			}
			middle = append(middle, fragment{value: rest[:end]})
			rest = rest[end:]
			continue
		}

		if e.LStrip {
			for start > 0 {
				r, size := utf8.DecodeLastRuneInString(rest[:start])
				if !unicode.IsSpace(r) {
					break
				}
				start -= size
			}
		}

		if e.RStrip {
			for end < len(rest) {
				r, size := utf8.DecodeRuneInString(rest[end:])
				if !unicode.IsSpace(r) {
					break
				}
				end += size
			}
		}

		if start > 0 {
			middle = append(middle, fragment{value: rest[:start]})
		}
		middle = append(middle, fragment{value: e.Content, ids: []int32{e.id}})
		matched = true
		rest = rest[end:]
	}

	if !matched {
		return nil
	}

	if rest != "" {
		middle = append(middle, fragment{value: rest})
	}

	return middle
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
