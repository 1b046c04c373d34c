package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// loadVocabulary reads the two artifacts. vocab.json is a single JSON
// object of token to id; merges.txt is one rule per line in priority order,
// optionally headed by a "#version:" comment. Any malformed input fails the
// load, no partial vocabulary escapes.
func loadVocabulary(vocabFile, mergesFile string) (*Vocabulary, error) {
	vocabData, err := os.ReadFile(vocabFile)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	vocabMap := make(map[string]int32)
	if err := json.Unmarshal(vocabData, &vocabMap); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", vocabFile, err)
	}

	var maxID int32 = -1
	for _, id := range vocabMap {
		if id < 0 {
			return nil, fmt.Errorf("parse vocabulary %s: negative id %d", vocabFile, id)
		}
		if id > maxID {
			maxID = id
		}
	}

	values := make([]string, maxID+1)
	for token, id := range vocabMap {
		if values[id] != "" {
			return nil, fmt.Errorf("parse vocabulary %s: id %d assigned to both %q and %q", vocabFile, id, values[id], token)
		}
		values[id] = token
	}

	merges, err := loadMerges(mergesFile)
	if err != nil {
		return nil, err
	}

	vocab := &Vocabulary{Values: values, Merges: merges}
	if err := checkByteCoverage(vocab); err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", vocabFile, err)
	}

	return vocab, nil
}

func loadMerges(mergesFile string) ([]string, error) {
	data, err := os.ReadFile(mergesFile)
	if err != nil {
		return nil, fmt.Errorf("read merges: %w", err)
	}

	var merges []string
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		// only the first line may carry a version comment; "#" is a
		// legitimate merge symbol everywhere else
		if n == 0 && strings.HasPrefix(line, "#version:") {
			continue
		}

		if fields := strings.Split(line, " "); len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			return nil, fmt.Errorf("parse merges %s: malformed rule on line %d: %q", mergesFile, n+1, line)
		}

		merges = append(merges, line)
	}

	return merges, nil
}

// checkByteCoverage verifies every byte value has a single-symbol token so
// any input decomposes to vocabulary-present symbols.
func checkByteCoverage(v *Vocabulary) error {
	for b := 0; b < 256; b++ {
		if v.Encode(string(byteToRune[b])) < 0 {
			return fmt.Errorf("missing byte-level token for byte 0x%02x", b)
		}
	}

	return nil
}
