package invertex

import (
	"testing"
)

func buildSampleIndex() *InvertedIndex {
	idx := NewInvertedIndex()
	idx.Index(1, "the quick brown fox jumps over the lazy dog")
	idx.Index(2, "the lazy dog sleeps all day")
	idx.Index(3, "quick brown foxes are clever animals")
	idx.Index(4, "python is a great programming language")
	idx.Index(5, "the snake slithered through the grass")
	return idx
}

func containsDoc(bitmap interface{ ToArray() []uint32 }, docID uint32) bool {
	for _, v := range bitmap.ToArray() {
		if v == docID {
			return true
		}
	}
	return false
}

func TestQueryBuilder_Term(t *testing.T) {
	idx := buildSampleIndex()

	result := NewQueryBuilder(idx).Term("quick").Execute()

	if !containsDoc(result, 1) || !containsDoc(result, 3) {
		t.Errorf("Term(\"quick\") = %v, want docs 1 and 3", result.ToArray())
	}
	if containsDoc(result, 2) {
		t.Errorf("Term(\"quick\") should not include doc 2")
	}
}

func TestQueryBuilder_And(t *testing.T) {
	idx := buildSampleIndex()

	result := NewQueryBuilder(idx).Term("quick").And().Term("brown").Execute()

	if !containsDoc(result, 1) || !containsDoc(result, 3) {
		t.Errorf("And query = %v, want docs 1 and 3", result.ToArray())
	}
	if result.GetCardinality() != 2 {
		t.Errorf("And query cardinality = %d, want 2", result.GetCardinality())
	}
}

func TestQueryBuilder_Or(t *testing.T) {
	idx := buildSampleIndex()

	result := NewQueryBuilder(idx).Term("python").Or().Term("snake").Execute()

	if !containsDoc(result, 4) || !containsDoc(result, 5) {
		t.Errorf("Or query = %v, want docs 4 and 5", result.ToArray())
	}
}

func TestQueryBuilder_Not(t *testing.T) {
	idx := buildSampleIndex()

	result := NewQueryBuilder(idx).Term("dog").And().Not().Term("lazi").Execute()

	if containsDoc(result, 1) || containsDoc(result, 2) {
		t.Errorf("Not query = %v, should exclude docs 1 and 2 (both have 'lazy')", result.ToArray())
	}
}

func TestQueryBuilder_Group(t *testing.T) {
	idx := buildSampleIndex()

	result := NewQueryBuilder(idx).
		Group(func(q *QueryBuilder) {
			q.Term("quick").Or().Term("python")
		}).
		Execute()

	if !containsDoc(result, 1) || !containsDoc(result, 3) || !containsDoc(result, 4) {
		t.Errorf("Group query = %v, want docs 1, 3 and 4", result.ToArray())
	}
}

func TestQueryBuilder_Phrase(t *testing.T) {
	idx := buildSampleIndex()

	result := NewQueryBuilder(idx).Phrase("quick brown").Execute()

	if !containsDoc(result, 1) {
		t.Errorf("Phrase(\"quick brown\") = %v, want doc 1", result.ToArray())
	}
}

func TestQueryBuilder_EmptyTerm(t *testing.T) {
	idx := buildSampleIndex()

	result := NewQueryBuilder(idx).Term("the").Execute()

	if result.GetCardinality() != 0 {
		t.Errorf("Term(\"the\") [stop word] cardinality = %d, want 0", result.GetCardinality())
	}
}

func TestQueryBuilder_ExecuteWithBM25(t *testing.T) {
	idx := buildSampleIndex()

	matches := NewQueryBuilder(idx).Term("quick").And().Term("brown").ExecuteWithBM25(10)

	if len(matches) != 2 {
		t.Fatalf("ExecuteWithBM25 returned %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.Score <= 0 {
			t.Errorf("match for doc %d has non-positive score %f", m.DocID, m.Score)
		}
	}
}

func TestQueryBuilder_NoResults(t *testing.T) {
	idx := buildSampleIndex()

	result := NewQueryBuilder(idx).Term("elephant").Execute()

	if result.GetCardinality() != 0 {
		t.Errorf("Term(\"elephant\") cardinality = %d, want 0", result.GetCardinality())
	}
}

func TestAllOf(t *testing.T) {
	idx := buildSampleIndex()

	result := AllOf(idx, "quick", "brown")

	if result.GetCardinality() != 2 {
		t.Errorf("AllOf cardinality = %d, want 2", result.GetCardinality())
	}
}

func TestAllOf_Empty(t *testing.T) {
	idx := buildSampleIndex()

	result := AllOf(idx)

	if result.GetCardinality() != 0 {
		t.Errorf("AllOf() with no terms cardinality = %d, want 0", result.GetCardinality())
	}
}

func TestAnyOf(t *testing.T) {
	idx := buildSampleIndex()

	result := AnyOf(idx, "python", "snake")

	if !containsDoc(result, 4) || !containsDoc(result, 5) {
		t.Errorf("AnyOf = %v, want docs 4 and 5", result.ToArray())
	}
}

func TestTermExcluding(t *testing.T) {
	idx := buildSampleIndex()

	result := TermExcluding(idx, "dog", "lazi")

	if containsDoc(result, 1) || containsDoc(result, 2) {
		t.Errorf("TermExcluding = %v, should exclude docs 1 and 2", result.ToArray())
	}
}
