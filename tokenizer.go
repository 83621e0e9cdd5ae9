package invertex

import "strings"

// IndexingMode selects what a Tokenizer emits for a document: whole
// stemmed words (good recall for natural-language queries, poor for
// substring/CJK text), fixed-width n-grams (language-agnostic, larger
// index), or both at once so a single section can answer either kind of
// query.
type IndexingMode int

const (
	WordIndexingOnly IndexingMode = iota
	NgramIndexingOnly
	DualIndexing
)

// Tokenizer generalizes the word-only analyzer pipeline (analyzer.go) to
// also emit n-gram tokens, each carrying a prefix so the two token spaces
// never collide in the same B-tree.
type Tokenizer struct {
	mode       IndexingMode
	ngramSize  int
	wordConfig AnalyzerConfig
}

// NewTokenizer builds a Tokenizer for the given mode. ngramSize is ignored
// outside NgramIndexingOnly/DualIndexing. wordConfig drives the word-mode
// analyzer pipeline (analyzer.go) — callers reach this through
// EngineConfig.analyzerConfig() rather than hardcoding DefaultConfig(), so a
// section's stopword/stemmer behavior is whatever its EngineConfig says.
func NewTokenizer(mode IndexingMode, ngramSize int, wordConfig AnalyzerConfig) *Tokenizer {
	if ngramSize <= 0 {
		ngramSize = 2
	}
	return &Tokenizer{mode: mode, ngramSize: ngramSize, wordConfig: wordConfig}
}

const (
	wordTermPrefix  = "w:"
	ngramTermPrefix = "n:"
)

// Tokenize returns the index terms for document text, prefixed by term
// space (wordTermPrefix / ngramTermPrefix) so WordIndexingOnly and
// NgramIndexingOnly results never alias each other in DualIndexing mode.
func (t *Tokenizer) Tokenize(text string) []string {
	var out []string
	if t.mode == WordIndexingOnly || t.mode == DualIndexing {
		for _, w := range AnalyzeWithConfig(text, t.wordConfig) {
			out = append(out, wordTermPrefix+w)
		}
	}
	if t.mode == NgramIndexingOnly || t.mode == DualIndexing {
		for _, g := range ngrams(strings.ToLower(text), t.ngramSize) {
			out = append(out, ngramTermPrefix+g)
		}
	}
	return out
}

// TokenizePositions returns the document's total token count (its recorded
// length for BM25 normalization) and, for each distinct term, the ascending
// 1-origin positions at which it occurs — the shape InvertedSection.Insert
// needs to build one posting per term in a single pass.
func (t *Tokenizer) TokenizePositions(text string) (int, map[string][]uint32) {
	terms := t.Tokenize(text)
	positions := make(map[string][]uint32, len(terms))
	for i, term := range terms {
		positions[term] = append(positions[term], uint32(i+1))
	}
	return len(terms), positions
}

// ngrams returns every contiguous run of n runes in text, sliding by one
// rune at a time; text shorter than n yields no n-grams.
func ngrams(text string, n int) []string {
	runes := []rune(text)
	if len(runes) < n {
		return nil
	}
	out := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, string(runes[i:i+n]))
	}
	return out
}

// wordBoundaryKey names the reserved empty-string term for word-boundary
// postings. Tokenize never emits it, so no document's postings are stored
// under this key in any indexing mode.
const wordBoundaryKey = ""
