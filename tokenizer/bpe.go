package tokenizer

import (
	"cmp"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"
)

// pair is a candidate merge between two adjacent symbols and its rank.
type pair struct {
	a, b  int
	rank  int
	value string
}

// symbol is a node in the doubly linked symbol list. Merging folds the
// right symbol into the left one and empties the right.
type symbol struct {
	p, n  int
	runes []rune
}

// mergeChunk runs the merge loop over one byte-level chunk and returns the
// final token strings. The chunk always starts as single runes: a vocabulary
// entry that happens to equal the whole chunk is not a shortcut, only the
// merge table decides what fuses. Rules whose pair never shows up are
// simply inert.
func mergeChunk(vocab *Vocabulary, chunk string) []string {
	runes := []rune(chunk)
	symbols := make([]symbol, len(runes))
	for r := range runes {
		symbols[r] = symbol{
			p:     r - 1,
			n:     r + 1,
			runes: []rune{runes[r]},
		}
	}

	pairwise := func(a, b int) *pair {
		if a < 0 || b >= len(runes) {
			return nil
		}

		left, right := string(symbols[a].runes), string(symbols[b].runes)
		rank := vocab.Merge(left, right)
		if rank < 0 {
			return nil
		}

		return &pair{
			a:     a,
			b:     b,
			rank:  rank,
			value: left + right,
		}
	}

	// ties on rank break leftmost-first so runs of a self-merging symbol
	// fuse left to right
	pairs := heap.NewWith(func(i, j *pair) int {
		return cmp.Or(cmp.Compare(i.rank, j.rank), cmp.Compare(i.a, j.a))
	})

	for i := range len(runes) - 1 {
		if pair := pairwise(i, i+1); pair != nil {
			pairs.Push(pair)
		}
	}

	for !pairs.Empty() {
		pair, _ := pairs.Pop()

		left, right := symbols[pair.a], symbols[pair.b]
		if len(left.runes) == 0 || len(right.runes) == 0 ||
			string(left.runes)+string(right.runes) != pair.value {
			// stale entry, the symbols were already merged away
			continue
		}

		if id := vocab.Encode(pair.value); id < 0 {
			continue
		}

		symbols[pair.a].runes = append(left.runes, right.runes...)
		symbols[pair.b].runes = nil

		symbols[pair.a].n = right.n
		if right.n < len(symbols) {
			symbols[right.n].p = pair.a
		}

		if pair := pairwise(symbols[pair.a].p, pair.a); pair != nil {
			pairs.Push(pair)
		}

		if pair := pairwise(pair.a, symbols[pair.a].n); pair != nil {
			pairs.Push(pair)
		}
	}

	var tokens []string
	for _, sym := range symbols {
		if len(sym.runes) > 0 {
			tokens = append(tokens, string(sym.runes))
		}
	}

	return tokens
}
