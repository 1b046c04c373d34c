package tokenizer

import (
	"fmt"
	"sync"
)

// Vocabulary maps token strings to ids and merge pairs to ranks. It is
// immutable after construction; the reverse maps are built lazily and
// shared by every encode/decode call.
type Vocabulary struct {
	Values []string
	Merges []string

	valuesOnce sync.Once
	values     map[string]int32

	mergeOnce sync.Once
	merge     map[string]int32
}

// Encode returns the id for a token string, or -1 if the token is not in
// the vocabulary.
func (v *Vocabulary) Encode(s string) int32 {
	v.valuesOnce.Do(func() {
		v.values = make(map[string]int32, len(v.Values))
		for i, value := range v.Values {
			v.values[value] = int32(i)
		}
	})

	if id, ok := v.values[s]; ok {
		return id
	}

	return -1
}

// Decode returns the token string for an id.
func (v *Vocabulary) Decode(id int32) (string, error) {
	if id < 0 || int(id) >= len(v.Values) {
		return "", fmt.Errorf("id %d is not in the vocabulary (size %d)", id, len(v.Values))
	}

	return v.Values[id], nil
}

// Merge returns the rank of a merge pair, or -1 if the pair is not a rule.
func (v *Vocabulary) Merge(left, right string) int {
	v.mergeOnce.Do(func() {
		v.merge = make(map[string]int32, len(v.Merges))
		for i, merge := range v.Merges {
			v.merge[merge] = int32(i)
		}
	})

	if rank, ok := v.merge[left+" "+right]; ok {
		return int(rank)
	}

	return -1
}

// Size returns the number of tokens in the base vocabulary.
func (v *Vocabulary) Size() int {
	return len(v.Values)
}
