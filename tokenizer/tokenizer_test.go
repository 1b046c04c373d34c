package tokenizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fixtureValues is the byte-level base vocabulary plus a handful of word
// tokens. "Ġn", "Ġlowest", "Ġnewer", and "Ġwider" are
// ineffective because they are not in the merges; "01" is ineffective
// because digit splitting makes its merge unreachable.
func fixtureValues() []string {
	return append(ByteLevelVocab(),
		"Ġl",
		"Ġn",
		"Ġlo",
		"Ġlow",
		"er",
		"Ġlowest",
		"Ġnewer",
		"Ġwider",
		"01",
		";}",
		";}Ċ",
		"Ïĵ",
		"Ġ#",
		"##",
	)
}

func fixtureMerges() []string {
	return []string{
		"#version: 0.2",
		"Ġ l",
		"Ġl o",
		"Ġlo w",
		"e r",
		"0 1",
		"; }",
		";} Ċ",
		"Ï ĵ",
		"Ġ #",
		"# #",
	}
}

func writeFixture(t *testing.T) (vocabFile, mergesFile string) {
	t.Helper()

	values := fixtureValues()
	vocab := make(map[string]int, len(values))
	for i, v := range values {
		vocab[v] = i
	}

	data, err := json.Marshal(vocab)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	vocabFile = filepath.Join(dir, "vocab.json")
	mergesFile = filepath.Join(dir, "merges.txt")

	if err := os.WriteFile(vocabFile, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mergesFile, []byte(strings.Join(fixtureMerges(), "\n")), 0o644); err != nil {
		t.Fatal(err)
	}

	return vocabFile, mergesFile
}

func newTestTokenizer(t *testing.T, opts ...Option) *Tokenizer {
	t.Helper()

	vocabFile, mergesFile := writeFixture(t)
	tok, err := New(vocabFile, mergesFile, append([]Option{WithEOS("<|endoftext|>")}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}

	return tok
}

func TestTokenize(t *testing.T) {
	tok := newTestTokenizer(t)

	// covers NFC normalization (U+03D2 U+0301 composes to U+03D3), digit
	// splitting, the ;}\n punctuation cluster, and the atomic eos token
	sequence := "lower lower newer 010;}\n<|endoftext|>ϓ"

	wantTokens := []string{
		"l", "o", "w", "er",
		"Ġlow", "er",
		"Ġ", "n", "e", "w", "er",
		"Ġ", "0", "1", "0",
		";}Ċ",
		"<|endoftext|>",
		"Ïĵ",
	}

	tokens := tok.Tokenize(sequence)
	if diff := cmp.Diff(wantTokens, tokens); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}

	wantIDs := []int32{75, 78, 86, 260, 259, 260, 220, 77, 68, 86, 260, 220, 15, 16, 15, 266, 270, 267}
	ids, err := tok.ConvertTokensToIDs(tokens)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantIDs, ids); diff != "" {
		t.Errorf("id mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeWords(t *testing.T) {
	tok := newTestTokenizer(t)

	cases := []struct {
		input string
		want  []string
	}{
		{"lower", []string{"l", "o", "w", "er"}},
		{" lower", []string{"Ġlow", "er"}},
		// "Ġnewer" is in the vocabulary but has no merge path, so the
		// chunk must stay apart
		{" newer", []string{"Ġ", "n", "e", "w", "er"}},
		{"010", []string{"0", "1", "0"}},
		// "0 1" is in the merges but digit splitting never produces the
		// pair inside one chunk
		{"01", []string{"0", "1"}},
		{";}\n", []string{";}Ċ"}},
	}

	for _, tt := range cases {
		t.Run(tt.input, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tok.Tokenize(tt.input)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenizeNumberSign(t *testing.T) {
	tok := newTestTokenizer(t)

	ids, err := tok.ConvertTokensToIDs(tok.Tokenize(" ###"))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int32{268, 269}, ids); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSpacesBetweenSpecialTokens(t *testing.T) {
	tok := newTestTokenizer(t)

	// a later registration, so not one of the named specials
	tok.AddTokens(AddedToken{Content: "<|im_start|>", Special: true})

	ids := []int32{259, 260, 270, 271, 26}

	got, err := tok.Decode(ids)
	if err != nil {
		t.Fatal(err)
	}
	if want := " lower<|endoftext|><|im_start|>;"; got != want {
		t.Errorf("Decode() = %q, want %q", got, want)
	}

	got, err = tok.Decode(ids, WithSpacesBetweenSpecialTokens())
	if err != nil {
		t.Fatal(err)
	}
	if want := " lower<|endoftext|> <|im_start|> ;"; got != want {
		t.Errorf("Decode(spaces) = %q, want %q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	tok := newTestTokenizer(t)

	// the round trip holds up to normalization: the NFD suffix comes back
	// composed
	input := "lower lower newer 010;}\n<|endoftext|>ϓ"
	want := "lower lower newer 010;}\n<|endoftext|>ϓ"

	ids, err := tok.Encode(input)
	if err != nil {
		t.Fatal(err)
	}

	got, err := tok.Decode(ids)
	if err != nil {
		t.Fatal(err)
	}

	if got != want {
		t.Errorf("Decode(Encode(%q)) = %q, want %q", input, got, want)
	}

	// a second pass is a strict identity
	ids2, err := tok.Encode(got)
	if err != nil {
		t.Fatal(err)
	}
	got2, err := tok.Decode(ids2)
	if err != nil {
		t.Fatal(err)
	}
	if got2 != got {
		t.Errorf("second round trip diverged: %q != %q", got2, got)
	}
}

func TestDecodeUnknownID(t *testing.T) {
	tok := newTestTokenizer(t)

	if _, err := tok.Decode([]int32{9999}); err == nil {
		t.Error("expected an error decoding an unknown id")
	}

	if _, err := tok.ConvertIDsToTokens([]int32{-1}); err == nil {
		t.Error("expected an error for a negative id")
	}
}

func TestConvertTokensToIDsUnknownToken(t *testing.T) {
	tok := newTestTokenizer(t)

	if _, err := tok.ConvertTokensToIDs([]string{"no-such-token"}); err == nil {
		t.Error("expected an error for an unknown token")
	}
}

func TestPrepareForTokenization(t *testing.T) {
	tok := newTestTokenizer(t)

	// three characters whose NFC, NFD, NFKC, and NFKD forms all differ, so
	// only NFC can produce this output
	input := "ϓϔẛ"
	want := "ϓϔẛ"

	if got := tok.PrepareForTokenization(input); got != want {
		t.Errorf("PrepareForTokenization(%q) = %q, want %q", input, got, want)
	}

	// idempotent
	if got := tok.PrepareForTokenization(want); got != want {
		t.Errorf("normalization is not idempotent: %q", got)
	}
}

func TestEOS(t *testing.T) {
	tok := newTestTokenizer(t)

	if got := tok.EOS(); got != 270 {
		t.Errorf("EOS() = %d, want 270", got)
	}

	if got := tok.VocabSize(); got != 270 {
		t.Errorf("VocabSize() = %d, want 270", got)
	}
}
