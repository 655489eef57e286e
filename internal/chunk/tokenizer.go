package chunk

import "strings"

// Tokenizer measures and windows text by whitespace-delimited tokens.
// The chunk budget only needs a stable, reproducible token count; it does
// not need to match any model's BPE tokenization.
type Tokenizer struct{}

// NewTokenizer returns a tokenizer instance. Construct it once and share it;
// it is stateless and safe for concurrent use.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Encode splits text into tokens.
func (t *Tokenizer) Encode(text string) []string {
	return strings.Fields(text)
}

// Count returns the token count of text.
func (t *Tokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// Decode joins tokens back into text.
func (t *Tokenizer) Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Windows splits a token stream into consecutive fixed-size windows with
// overlap tokens shared between neighbours. A stream within the size budget
// yields a single window; the final window may be shorter.
func (t *Tokenizer) Windows(tokens []string, size, overlap int) [][]string {
	if len(tokens) <= size {
		return [][]string{tokens}
	}

	var windows [][]string
	start := 0
	for start < len(tokens) {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		windows = append(windows, tokens[start:end])
		if end == len(tokens) {
			break
		}
		start = end - overlap
	}
	return windows
}
