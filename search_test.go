package invertex

import (
	"strings"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PHRASE SEARCH TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestNextPhrase_SingleMatch(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "the quick brown fox jumps")

	result := idx.NextPhrase("quick brown fox", BOFDocument)

	if len(result) != 2 {
		t.Fatalf("NextPhrase returned %d positions, want 2", len(result))
	}
	if result[0].IsEnd() {
		t.Fatal("NextPhrase did not find the phrase")
	}
	if result[0].GetDocumentID() != 1 {
		t.Errorf("phrase found in Doc%d, want Doc1", result[0].GetDocumentID())
	}
	if result[1].GetOffset()-result[0].GetOffset() != 2 {
		t.Errorf("phrase span = %d, want 2 (three consecutive words)", result[1].GetOffset()-result[0].GetOffset())
	}
}

func TestNextPhrase_NoMatch(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "the quick brown dog ate the brown fox quickly")

	result := idx.NextPhrase("brown fox jumps", BOFDocument)

	if !result[0].IsEnd() {
		t.Error("NextPhrase should not find a non-existent phrase")
	}
}

func TestNextPhrase_SkipsNonConsecutive(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "the quick brown dog ate the brown fox quickly")

	// Stopwords ("the") are dropped before 1-origin positions are assigned:
	// quick(1) brown(2) dog(3) ate(4) brown(5) fox(6) quick(7).
	// Only the second "brown" is immediately followed by "fox".
	result := idx.NextPhrase("brown fox", BOFDocument)

	if result[0].IsEnd() {
		t.Fatal("NextPhrase should find 'brown fox'")
	}
	if result[0].GetOffset() != 5 {
		t.Errorf("phrase start offset = %d, want 5", result[0].GetOffset())
	}
}

func TestFindAllPhrases(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "brown fox jumps over brown fox again")
	idx.Index(2, "no match here")

	matches := idx.FindAllPhrases("brown fox", BOFDocument)

	if len(matches) != 2 {
		t.Fatalf("FindAllPhrases found %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m[0].GetDocumentID() != 1 {
			t.Errorf("match in Doc%d, want Doc1", m[0].GetDocumentID())
		}
	}
}

func TestFindAllPhrases_NoMatches(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "completely unrelated content here")

	matches := idx.FindAllPhrases("brown fox", BOFDocument)

	if len(matches) != 0 {
		t.Errorf("FindAllPhrases found %d matches, want 0", len(matches))
	}
}

func TestIsValidPhrase(t *testing.T) {
	idx := NewInvertedIndex()

	start := Position{DocumentID: 1, Offset: 3}
	end := Position{DocumentID: 1, Offset: 5}
	if !idx.isValidPhrase(start, end, 3) {
		t.Error("isValidPhrase should accept 3 consecutive words spanning offsets 3-5")
	}

	endTooFar := Position{DocumentID: 1, Offset: 7}
	if idx.isValidPhrase(start, endTooFar, 3) {
		t.Error("isValidPhrase should reject a span wider than termCount-1")
	}

	endOtherDoc := Position{DocumentID: 2, Offset: 5}
	if idx.isValidPhrase(start, endOtherDoc, 3) {
		t.Error("isValidPhrase should reject positions from different documents")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROXIMITY / COVER SEARCH TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestNextCover_FindsMinimalRange(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "the quick brown dog jumped over the lazy fox")

	result := idx.NextCover([]string{"quick", "fox"}, BOFDocument)

	if result[0].IsEnd() {
		t.Fatal("NextCover should find a cover containing both terms")
	}
	if result[0].GetDocumentID() != 1 {
		t.Errorf("cover in Doc%d, want Doc1", result[0].GetDocumentID())
	}
}

func TestNextCover_NoCoverWhenTermMissing(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "the quick brown dog")

	result := idx.NextCover([]string{"quick", "elephant"}, BOFDocument)

	if !result[0].IsEnd() {
		t.Error("NextCover should return EOF when a term never occurs")
	}
}

func TestNextCover_SkipsDifferentDocuments(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick fox")
	idx.Index(2, "brown fox")

	result := idx.NextCover([]string{"quick", "fox"}, BOFDocument)

	if result[0].IsEnd() {
		t.Fatal("NextCover should find a cover in Doc1")
	}
	if result[0].GetDocumentID() != 1 {
		t.Errorf("cover found in Doc%d, want Doc1", result[0].GetDocumentID())
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// IDF / BM25 TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestDocumentFrequency(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")
	idx.Index(2, "quick dog")
	idx.Index(3, "lazy cat")

	if got := idx.documentFrequency("quick"); got != 2 {
		t.Errorf("documentFrequency(\"quick\") = %d, want 2", got)
	}
	if got := idx.documentFrequency("elephant"); got != 0 {
		t.Errorf("documentFrequency(\"elephant\") = %d, want 0", got)
	}
}

func TestCalculateIDF_RareVsCommon(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "common word appears everywhere")
	idx.Index(2, "common word shows up again")
	idx.Index(3, "common word repeats once more")
	idx.Index(4, "rare gem hidden here")

	commonIDF := idx.calculateIDF("common")
	rareIDF := idx.calculateIDF("gem")

	if rareIDF <= commonIDF {
		t.Errorf("rare term IDF (%f) should exceed common term IDF (%f)", rareIDF, commonIDF)
	}
}

func TestCalculateIDF_UnknownTerm(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	if idf := idx.calculateIDF("elephant"); idf != 0.0 {
		t.Errorf("calculateIDF for unknown term = %f, want 0", idf)
	}
}

func TestCalculateBM25Score_FavorsMoreOccurrences(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "machine learning machine learning machine")
	idx.Index(2, "machine basics")
	idx.Index(3, "unrelated content entirely")

	scoreHigh := idx.calculateBM25Score(1, []string{"machin"})
	scoreLow := idx.calculateBM25Score(2, []string{"machin"})

	if scoreHigh <= scoreLow {
		t.Errorf("doc with more occurrences scored %f, want > %f", scoreHigh, scoreLow)
	}
}

func TestCalculateBM25Score_UnknownDocument(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	if score := idx.calculateBM25Score(99, []string{"quick"}); score != 0.0 {
		t.Errorf("calculateBM25Score for unknown doc = %f, want 0", score)
	}
}

func TestRankBM25_ReturnsRankedMatches(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "machine learning machine learning")
	idx.Index(2, "machine learning basics")
	idx.Index(3, "completely unrelated content")

	matches := idx.RankBM25("machine learning", 10)

	if len(matches) < 2 {
		t.Fatalf("RankBM25 returned %d matches, want at least 2", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Error("RankBM25 results are not sorted by descending score")
		}
	}
}

func TestRankBM25_EmptyQuery(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	matches := idx.RankBM25("", 10)
	if len(matches) != 0 {
		t.Errorf("RankBM25(\"\") returned %d matches, want 0", len(matches))
	}
}

func TestRankBM25_RespectsMaxResults(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick fox")
	idx.Index(2, "quick dog")
	idx.Index(3, "quick cat")
	idx.Index(4, "quick bird")

	matches := idx.RankBM25("quick", 2)
	if len(matches) != 2 {
		t.Errorf("RankBM25 with maxResults=2 returned %d matches", len(matches))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROXIMITY RANKING TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestRankProximity_FavorsCloserTerms(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "machine learning is great")
	idx.Index(2, "machine science math history learning")

	matches := idx.RankProximity("machine learning", 10)

	if len(matches) < 2 {
		t.Fatalf("RankProximity returned %d matches, want at least 2", len(matches))
	}
	if matches[0].Score < matches[1].Score {
		t.Error("RankProximity should rank the closer-terms document first")
	}
}

func TestRankProximity_EmptyQuery(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	matches := idx.RankProximity("", 10)
	if len(matches) != 0 {
		t.Errorf("RankProximity(\"\") returned %d matches, want 0", len(matches))
	}
}

func TestRankProximity_NoCommonTerms(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "completely different content")

	matches := idx.RankProximity("machine learning", 10)
	if len(matches) != 0 {
		t.Errorf("RankProximity with no matching terms returned %d matches, want 0", len(matches))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// MATCH / HELPER TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestMatch_GetKey(t *testing.T) {
	m := &Match{DocID: 42}

	key, err := m.GetKey()
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if key == "" {
		t.Error("GetKey() returned empty string")
	}

	m2 := &Match{DocID: 42}
	key2, _ := m2.GetKey()
	if key != key2 {
		t.Error("GetKey() should be deterministic for the same DocID")
	}
}

func TestLimitResults(t *testing.T) {
	matches := []Match{{DocID: 1}, {DocID: 2}, {DocID: 3}, {DocID: 4}}

	limited := limitResults(matches, 2)
	if len(limited) != 2 {
		t.Errorf("limitResults returned %d matches, want 2", len(limited))
	}

	all := limitResults(matches, 10)
	if len(all) != 4 {
		t.Errorf("limitResults with maxResults > len returned %d matches, want 4", len(all))
	}
}

func TestFindCandidateDocuments(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")
	idx.Index(2, "quick dog")
	idx.Index(3, "lazy cat")

	candidates := idx.findCandidateDocuments([]string{"quick"})

	if len(candidates) != 2 {
		t.Errorf("findCandidateDocuments found %d docs, want 2", len(candidates))
	}
	if _, ok := candidates[1]; !ok {
		t.Error("expected Doc1 among candidates")
	}
	if _, ok := candidates[2]; !ok {
		t.Error("expected Doc2 among candidates")
	}
}

// sanity check that Analyze tokenization lower-cases and strips punctuation,
// since every search path above depends on it matching indexing.
func TestAnalyzeConsistencyWithIndexing(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "Quick, BROWN Fox!")

	if !strings.Contains(strings.Join(Analyze("quick brown fox"), " "), "quick") {
		t.Fatal("Analyze should normalize case")
	}

	_, exists := idx.getPostingList("quick")
	if !exists {
		t.Error("indexing should have normalized 'Quick,' to 'quick'")
	}
}
