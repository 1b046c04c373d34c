package tokenizer

import (
	"fmt"
	"strings"
)

// Precomputed GPT-2 byte-level encoding table. Every byte maps to a
// printable rune so arbitrary byte sequences survive as vocabulary keys.
var byteToRune [256]rune

func init() {
	for b := 0; b < 256; b++ {
		r := rune(b)
		switch {
		case r == 0x00ad:
			r = 0x0143
		case r <= 0x0020:
			r = r + 0x0100
		case r >= 0x007f && r <= 0x00a0:
			r = r + 0x00a2
		}
		byteToRune[b] = r
	}
}

// encodeBytes remaps each byte of s to its byte-level rune.
func encodeBytes(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		sb.WriteRune(byteToRune[s[i]])
	}
	return sb.String()
}

// decodeBytes reverses the byte-level mapping of a token. Runes outside the
// mapped ranges are an error since a well-formed byte-level token can only
// contain mapped runes.
func decodeBytes(token string, sb *strings.Builder) error {
	for _, r := range token {
		switch {
		case r == 0x0100:
			// 0x00 aka NULL
			sb.WriteByte(0)
			continue
		case r == 0x0143:
			r = 0x00ad
		case r > 0x0100 && r <= 0x0120:
			r = r - 0x0100
		case r > 0x0120 && r <= 0x0142:
			r = r - 0x00a2
		}

		if r > 0xff {
			return fmt.Errorf("token %q contains rune %q outside the byte-level range", token, r)
		}

		// NOTE: not using WriteRune here because it writes the UTF-8
		// encoding of the rune which is _not_ what we want
		sb.WriteByte(byte(r))
	}

	return nil
}

// ByteLevelVocab returns the 256 byte-level tokens in GPT-2 order: printable
// bytes first, keeping their own rune, then the remapped bytes. Building a
// vocabulary on top of this prefix guarantees every byte has a single-symbol
// fallback token.
func ByteLevelVocab() []string {
	printable := func(r rune) bool {
		return (r >= '!' && r <= '~') || (r >= 0x00a1 && r <= 0x00ac) || (r >= 0x00ae && r <= 0x00ff)
	}

	values := make([]string, 0, 256)
	for b := 0; b < 256; b++ {
		if printable(rune(b)) {
			values = append(values, string(rune(b)))
		}
	}
	for b := 0; b < 256; b++ {
		if !printable(rune(b)) {
			values = append(values, string(byteToRune[b]))
		}
	}
	return values
}
