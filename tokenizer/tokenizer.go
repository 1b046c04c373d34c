// Package tokenizer implements a byte-level byte pair encoding tokenizer
// compatible with the Yuan2/Qwen2 family of vocab.json + merges.txt
// artifacts: GPT-2 byte-to-unicode remapping, NFC normalization, regex
// pretokenization, rank-ordered merging, and atomic added tokens.
package tokenizer

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wafers3/transformers/logutil"
)

type Tokenizer struct {
	vocab *Vocabulary
	pre   *pretokenizer

	// contents of the named special tokens (end-of-text and friends).
	// These decode inline; added tokens outside this set are the "legacy"
	// ones that spaces_between_special_tokens separates.
	specials map[string]struct{}
	eos      string

	mu    sync.Mutex // serializes AddTokens
	added atomic.Pointer[addedVocabulary]
}

type Option func(*config)

type config struct {
	eos           string
	specials      []string
	pretokenizers []string
	added         []AddedToken
}

// WithEOS names the end-of-text token. It is registered as a special added
// token if the base vocabulary does not contain it.
func WithEOS(content string) Option {
	return func(c *config) {
		c.eos = content
	}
}

// WithSpecialTokens names additional special tokens to register at
// construction.
func WithSpecialTokens(contents ...string) Option {
	return func(c *config) {
		c.specials = append(c.specials, contents...)
	}
}

// WithPretokenizer overrides the default split patterns.
func WithPretokenizer(patterns ...string) Option {
	return func(c *config) {
		c.pretokenizers = append(c.pretokenizers, patterns...)
	}
}

// WithAddedTokens registers added tokens at construction.
func WithAddedTokens(tokens ...AddedToken) Option {
	return func(c *config) {
		c.added = append(c.added, tokens...)
	}
}

// New loads the two artifacts and builds an immutable tokenizer around
// them. Malformed artifacts fail here; no partial tokenizer is returned.
func New(vocabFile, mergesFile string, opts ...Option) (*Tokenizer, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	vocab, err := loadVocabulary(vocabFile, mergesFile)
	if err != nil {
		return nil, err
	}

	return newTokenizer(vocab, c)
}

// NewFromVocabulary builds a tokenizer over an already constructed
// vocabulary, e.g. one assembled in tests.
func NewFromVocabulary(vocab *Vocabulary, opts ...Option) (*Tokenizer, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	if err := checkByteCoverage(vocab); err != nil {
		return nil, err
	}

	return newTokenizer(vocab, c)
}

func newTokenizer(vocab *Vocabulary, c config) (*Tokenizer, error) {
	if len(c.pretokenizers) == 0 {
		c.pretokenizers = []string{DefaultPretokenizer}
	}

	pre, err := newPretokenizer(c.pretokenizers...)
	if err != nil {
		return nil, fmt.Errorf("invalid pretokenizer: %w", err)
	}

	t := &Tokenizer{
		vocab:    vocab,
		pre:      pre,
		specials: make(map[string]struct{}),
		eos:      c.eos,
	}
	t.added.Store(newAddedVocabulary(nil))

	named := c.specials
	if c.eos != "" {
		named = append([]string{c.eos}, named...)
	}
	for _, content := range named {
		t.specials[content] = struct{}{}
		t.AddTokens(AddedToken{Content: content, Special: true})
	}
	t.AddTokens(c.added...)

	return t, nil
}

// PrepareForTokenization applies NFC normalization, the only transformation
// performed before splitting.
func (t *Tokenizer) PrepareForTokenization(s string) string {
	return normalize(s)
}

// Tokenize maps text to its token strings: added tokens are matched
// atomically, everything between them is normalized, pretokenized, byte
// remapped, and merged.
func (t *Tokenizer) Tokenize(s string) []string {
	added := t.added.Load()

	fragments := []fragment{{value: s}}
	fragments = added.extract(fragments, false)

	for i := range fragments {
		if len(fragments[i].ids) == 0 {
			fragments[i].value = normalize(fragments[i].value)
		}
	}
	fragments = added.extract(fragments, true)

	var tokens []string
	for _, frag := range fragments {
		if len(frag.ids) > 0 {
			tokens = append(tokens, frag.value)
			continue
		}

		for split := range t.pre.split(frag.value) {
			tokens = append(tokens, mergeChunk(t.vocab, encodeBytes(split))...)
		}
	}

	return tokens
}

// ConvertTokensToIDs maps token strings to ids, added tokens included. A
// token outside both sets is an error.
func (t *Tokenizer) ConvertTokensToIDs(tokens []string) ([]int32, error) {
	added := t.added.Load()

	ids := make([]int32, 0, len(tokens))
	for _, token := range tokens {
		if e, ok := added.lookup(token); ok {
			ids = append(ids, e.id)
			continue
		}

		id := t.vocab.Encode(token)
		if id < 0 {
			return nil, fmt.Errorf("token %q is not in the vocabulary", token)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// ConvertIDsToTokens maps ids back to token strings. An id outside the
// vocabulary and the added tokens is an error.
func (t *Tokenizer) ConvertIDsToTokens(ids []int32) ([]string, error) {
	added := t.added.Load()

	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if content, ok := added.decode(id); ok {
			tokens = append(tokens, content)
			continue
		}

		token, err := t.vocab.Decode(id)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

// Encode maps text to ids.
func (t *Tokenizer) Encode(s string) ([]int32, error) {
	ids, err := t.ConvertTokensToIDs(t.Tokenize(s))
	if err != nil {
		return nil, err
	}

	logutil.Trace("encoded", "string", s, "ids", ids)
	return ids, nil
}

type decodeOptions struct {
	spacesBetweenSpecialTokens bool
}

type DecodeOption func(*decodeOptions)

// WithSpacesBetweenSpecialTokens inserts a literal space around added
// tokens that are not named specials during decode. The default for this
// tokenizer family is off.
func WithSpacesBetweenSpecialTokens() DecodeOption {
	return func(o *decodeOptions) {
		o.spacesBetweenSpecialTokens = true
	}
}

// Decode maps ids back to text, reversing the byte-level mapping. Added and
// special tokens are emitted literally. An unknown id is an error, never
// placeholder text.
func (t *Tokenizer) Decode(ids []int32, opts ...DecodeOption) (string, error) {
	var options decodeOptions
	for _, opt := range opts {
		opt(&options)
	}

	added := t.added.Load()

	var subTexts []string
	var group []string
	flush := func() error {
		if len(group) == 0 {
			return nil
		}

		var sb strings.Builder
		if err := decodeBytes(strings.Join(group, ""), &sb); err != nil {
			return err
		}
		subTexts = append(subTexts, sb.String())
		group = group[:0]
		return nil
	}

	for _, id := range ids {
		if content, ok := added.decode(id); ok {
			if _, named := t.specials[content]; !named {
				if err := flush(); err != nil {
					return "", err
				}
				subTexts = append(subTexts, content)
				continue
			}

			// named specials ride along in the current group and are
			// emitted without separators either way
			group = append(group, content)
			continue
		}

		token, err := t.vocab.Decode(id)
		if err != nil {
			return "", err
		}
		group = append(group, token)
	}

	if err := flush(); err != nil {
		return "", err
	}

	var sep string
	if options.spacesBetweenSpecialTokens {
		sep = " "
	}

	s := strings.Join(subTexts, sep)
	logutil.Trace("decoded", "string", s, "from", fmt.Sprint(ids))
	return s, nil
}

// AddTokens registers added tokens and returns how many were new. Tokens
// whose content is already registered keep their flags and id. The set is
// republished as a fresh snapshot so concurrent encode/decode calls are
// never invalidated.
func (t *Tokenizer) AddTokens(tokens ...AddedToken) int {
	if len(tokens) == 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.added.Load()
	entries := slices.Clone(cur.entries)

	next := int32(t.vocab.Size())
	for _, e := range entries {
		if e.id >= next {
			next = e.id + 1
		}
	}

	exists := func(content string) bool {
		return slices.ContainsFunc(entries, func(e addedEntry) bool {
			return e.Content == content
		})
	}

	var added int
	for _, tok := range tokens {
		if tok.Content == "" || exists(tok.Content) {
			continue
		}

		id := t.vocab.Encode(tok.Content)
		if id < 0 {
			id = next
			next++
		}

		entries = append(entries, addedEntry{AddedToken: tok, id: id})
		added++
	}

	if added > 0 {
		t.added.Store(newAddedVocabulary(entries))
	}

	return added
}

// EOS returns the id of the end-of-text token, or -1 if none is configured.
func (t *Tokenizer) EOS() int32 {
	if t.eos == "" {
		return -1
	}

	if e, ok := t.added.Load().lookup(t.eos); ok {
		return e.id
	}

	return t.vocab.Encode(t.eos)
}

// VocabSize returns the base vocabulary size, added tokens excluded.
func (t *Tokenizer) VocabSize() int {
	return t.vocab.Size()
}

// AddedTokens returns a snapshot of the registered added tokens.
func (t *Tokenizer) AddedTokens() []AddedToken {
	entries := t.added.Load().entries
	tokens := make([]AddedToken, len(entries))
	for i, e := range entries {
		tokens[i] = e.AddedToken
	}
	return tokens
}
