package tokenizer

import (
	"iter"
	"slices"

	"github.com/dlclark/regexp2"
)

// DefaultPretokenizer is the Qwen2-family split pattern: contractions,
// words with an optional leading non-letter, single digits, punctuation
// clusters that swallow trailing newlines, and whitespace. Digits splitting
// one at a time is what makes a merge such as "0 1" unreachable: no chunk
// ever contains the pair.
const DefaultPretokenizer = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

type pretokenizer struct {
	regexps []*regexp2.Regexp
}

func newPretokenizer(patterns ...string) (*pretokenizer, error) {
	p := &pretokenizer{}
	for _, pattern := range patterns {
		re, err := regexp2.Compile(pattern, regexp2.RE2)
		if err != nil {
			return nil, err
		}
		p.regexps = append(p.regexps, re)
	}
	return p, nil
}

// split yields the chunks of s in order. Text between matches is yielded
// too so no input byte is ever dropped.
func (p *pretokenizer) split(s string) iter.Seq[string] {
	parts := []string{s}
	for _, re := range p.regexps {
		parts = slices.Collect(func(yield func(string) bool) {
			for _, part := range parts {
				r := []rune(part)
				var offset int
				for m, _ := re.FindRunesMatch(r); m != nil; m, _ = re.FindNextMatch(m) {
					if offset-m.Index != 0 {
						if !yield(string(r[offset:m.Index])) {
							return
						}
					}

					if !yield(m.String()) {
						return
					}

					offset = m.Index + m.Length
				}

				if offset < len(r) {
					if !yield(string(r[offset:])) {
						return
					}
				}
			}
		})
	}

	return slices.Values(parts)
}
