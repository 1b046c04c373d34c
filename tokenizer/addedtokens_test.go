package tokenizer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAddTokens(t *testing.T) {
	tok := newTestTokenizer(t)

	added := tok.AddTokens(AddedToken{Content: "<|im_start|>", Special: true})
	if added != 1 {
		t.Fatalf("AddTokens() = %d, want 1", added)
	}

	// atomic in subsequent tokenize calls
	tokens := tok.Tokenize("lower<|im_start|>lower")
	want := []string{"l", "o", "w", "er", "<|im_start|>", "l", "o", "w", "er"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	ids, err := tok.ConvertTokensToIDs([]string{"<|im_start|>"})
	if err != nil {
		t.Fatal(err)
	}
	if ids[0] != 271 {
		t.Errorf("id = %d, want 271", ids[0])
	}

	// results for other tokens are unaffected
	if diff := cmp.Diff([]string{"l", "o", "w", "er"}, tok.Tokenize("lower")); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// re-registration is a no-op
	if added := tok.AddTokens(AddedToken{Content: "<|im_start|>"}); added != 0 {
		t.Errorf("duplicate AddTokens() = %d, want 0", added)
	}
}

func TestAddTokenReusesVocabularyID(t *testing.T) {
	tok := newTestTokenizer(t)

	// ";}" is already in the base vocabulary at 265
	tok.AddTokens(AddedToken{Content: ";}"})

	ids, err := tok.ConvertTokensToIDs(tok.Tokenize("a;}b"))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int32{64, 265, 65}, ids); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAddedTokenStrip(t *testing.T) {
	tok := newTestTokenizer(t)
	tok.AddTokens(AddedToken{Content: "<|pad|>", Special: true, LStrip: true, RStrip: true})

	// surrounding whitespace is swallowed by the match
	tokens := tok.Tokenize("lower <|pad|> lower")
	want := []string{"l", "o", "w", "er", "<|pad|>", "l", "o", "w", "er"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAddedTokenSingleWord(t *testing.T) {
	tok := newTestTokenizer(t)
	tok.AddTokens(AddedToken{Content: "low", SingleWord: true})

	// glued to word characters, the added token must not match
	tokens := tok.Tokenize("lower")
	want := []string{"l", "o", "w", "er"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("glued match (-want +got):\n%s", diff)
	}

	// standalone, it matches atomically
	tokens = tok.Tokenize(";low;")
	want = []string{";", "low", ";"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("standalone match (-want +got):\n%s", diff)
	}
}

func TestAddedTokenNormalized(t *testing.T) {
	tok := newTestTokenizer(t)

	// content only exists after NFC composes the input
	tok.AddTokens(AddedToken{Content: "ϓ", Normalized: true})

	tokens := tok.Tokenize("ϓ")
	want := []string{"ϓ"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAddTokensConcurrentReaders(t *testing.T) {
	tok := newTestTokenizer(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				tok.Tokenize("lower lower newer")
			}
		}()

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 10 {
				tok.AddTokens(AddedToken{Content: fmt.Sprintf("<|tool_%d_%d|>", i, j), Special: true})
			}
		}(i)
	}
	wg.Wait()

	if got := len(tok.AddedTokens()); got != 81 {
		t.Errorf("added tokens = %d, want 81", got)
	}
}
