package tokenizer

import "golang.org/x/text/unicode/norm"

// normalize applies Unicode NFC. This is the only normalization step in the
// pipeline: no lowercasing, no accent stripping. NFC is idempotent and a
// no-op for text that is already composed.
func normalize(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
