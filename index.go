package invertex

import (
	"context"
	"sort"
)

// BM25Parameters tunes the BM25 ranking function (search.go):
// K1 controls term-frequency saturation, B controls document-length
// normalization strength.
type BM25Parameters struct {
	K1 float64
	B  float64
}

// DefaultBM25Parameters returns the commonly used K1=1.2, B=0.75 tuning.
func DefaultBM25Parameters() BM25Parameters {
	return BM25Parameters{K1: 1.2, B: 0.75}
}

// InvertedIndex is the package's entry point: a single-section, word-mode
// full-text index over documents identified by int doc IDs, fronting an
// InvertedSection with the phrase/proximity/BM25 query layer (search.go,
// query.go) built on top.
type InvertedIndex struct {
	section        *InvertedSection
	bm25           BM25Parameters
	analyzerConfig AnalyzerConfig
}

// NewInvertedIndex builds a ready-to-use index: word-only tokenization,
// delayed-merge inserts, void coding for document-ID gaps and positions
// (no document reordering or bit-packing trade-off needed at this scale).
func NewInvertedIndex() *InvertedIndex {
	return NewInvertedIndexWithConfig(DefaultEngineConfig())
}

// NewInvertedIndexWithConfig builds an index the way NewInvertedIndex does,
// but driven by cfg — in particular cfg.analyzerConfig() decides the
// stopword set and stemmer toggle used for both indexing (via the
// Tokenizer) and querying (via analyze), so the two never drift apart.
func NewInvertedIndexWithConfig(cfg EngineConfig) *InvertedIndex {
	analyzerCfg := cfg.analyzerConfig()
	tok := NewTokenizer(WordIndexingOnly, 0, analyzerCfg)
	section, err := NewInvertedSection(cfg, tok, InsertDelayed, "void", "void")
	if err != nil {
		// NewInvertedSection only fails building its OtherInformationFile's
		// zstd codec, which never fails with nil options.
		panic(err)
	}
	return &InvertedIndex{section: section, bm25: DefaultBM25Parameters(), analyzerConfig: analyzerCfg}
}

// analyze runs text through this index's configured analyzer pipeline. Every
// indexing and query-time call site goes through this method rather than the
// package-level Analyze so a custom EngineConfig's stopword/stemmer choices
// apply consistently on both sides of a search.
func (idx *InvertedIndex) analyze(text string) []string {
	return AnalyzeWithConfig(text, idx.analyzerConfig)
}

// Index tokenizes document and inserts one posting per distinct term,
// recording the document's length for BM25 normalization.
func (idx *InvertedIndex) Index(docID int, document string) error {
	ctx := context.Background()
	needMerge, err := idx.section.Insert(ctx, uint32(docID), document, 0, nil)
	if err != nil {
		return err
	}
	if needMerge {
		return idx.section.SyncMerge(ctx)
	}
	return nil
}

// termPositions materializes every (document, offset) pair recorded for
// term, in ascending document-ID then ascending-offset order — the shape
// First/Last/Next/Previous binary-search over, replacing the skip list's
// in-order node chain with the section's already-ascending posting stream.
func (idx *InvertedIndex) termPositions(term string) ([]Position, error) {
	ctx := context.Background()
	analyzed := idx.analyze(term)
	key := term
	if len(analyzed) > 0 {
		key = analyzed[0]
	}
	it, err := idx.section.SearchIterator(ctx, wordTermPrefix+key)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []Position
	for id, err := it.Find(ctx, 0); id != 0; id, err = it.Next(ctx) {
		if err != nil {
			return nil, err
		}
		locs := it.GetLocationListIterator()
		for {
			p, ok := locs.Next()
			if !ok {
				break
			}
			out = append(out, Position{DocumentID: int64(id), Offset: int64(p)})
		}
	}
	return out, nil
}

// getPostingList returns the full ascending position list recorded for
// token, mirroring the teacher's skip-list accessor of the same name.
func (idx *InvertedIndex) getPostingList(token string) ([]Position, bool) {
	positions, err := idx.termPositions(token)
	if err != nil || len(positions) == 0 {
		return nil, false
	}
	return positions, true
}

// First returns the earliest recorded position of token.
func (idx *InvertedIndex) First(token string) (Position, error) {
	positions, ok := idx.getPostingList(token)
	if !ok {
		return EOFDocument, ErrNoPostingList
	}
	return positions[0], nil
}

// Last returns the latest recorded position of token.
func (idx *InvertedIndex) Last(token string) (Position, error) {
	positions, ok := idx.getPostingList(token)
	if !ok {
		return EOFDocument, ErrNoPostingList
	}
	return positions[len(positions)-1], nil
}

// Next returns the first recorded position of token strictly after
// currentPos, or EOFDocument if none exists.
func (idx *InvertedIndex) Next(token string, currentPos Position) (Position, error) {
	if currentPos.IsBeginning() {
		return idx.First(token)
	}
	if currentPos.IsEnd() {
		return EOFDocument, nil
	}
	positions, ok := idx.getPostingList(token)
	if !ok {
		return EOFDocument, ErrNoPostingList
	}
	i := sort.Search(len(positions), func(i int) bool { return positions[i].IsAfter(currentPos) })
	if i >= len(positions) {
		return EOFDocument, nil
	}
	return positions[i], nil
}

// Previous returns the last recorded position of token strictly before
// currentPos, or BOFDocument if none exists.
func (idx *InvertedIndex) Previous(token string, currentPos Position) (Position, error) {
	if currentPos.IsEnd() {
		return idx.Last(token)
	}
	if currentPos.IsBeginning() {
		return BOFDocument, nil
	}
	positions, ok := idx.getPostingList(token)
	if !ok {
		return BOFDocument, ErrNoPostingList
	}
	i := sort.Search(len(positions), func(i int) bool { return !positions[i].IsBefore(currentPos) })
	if i == 0 {
		return BOFDocument, nil
	}
	return positions[i-1], nil
}
