package invertex

import (
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INVERTED INDEX CREATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestNewInvertedIndex(t *testing.T) {
	idx := NewInvertedIndex()

	if idx == nil {
		t.Fatal("NewInvertedIndex() returned nil")
	}
	if idx.section == nil {
		t.Fatal("NewInvertedIndex() did not build a section")
	}
	if got := idx.section.OtherInformation().TotalDocuments(); got != 0 {
		t.Errorf("new index has %d documents, want 0", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// INDEXING TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestInvertedIndex_Index_SingleDocument(t *testing.T) {
	idx := NewInvertedIndex()

	if err := idx.Index(1, "quick brown fox"); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	for _, token := range []string{"quick", "brown", "fox"} {
		if _, exists := idx.getPostingList(token); !exists {
			t.Errorf("token %q was not indexed", token)
		}
	}
}

func TestInvertedIndex_Index_MultipleDocuments(t *testing.T) {
	idx := NewInvertedIndex()

	idx.Index(1, "quick brown fox")
	idx.Index(2, "sleepy dog")
	idx.Index(3, "quick brown cats")

	// After stemming: "sleepy" -> "sleepi", "cats" -> "cat"
	for _, token := range []string{"quick", "brown", "fox", "sleepi", "dog", "cat"} {
		if _, exists := idx.getPostingList(token); !exists {
			t.Errorf("token %q was not indexed", token)
		}
	}
}

func TestInvertedIndex_Index_DuplicateWords(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick quick brown")

	positions, exists := idx.getPostingList("quick")
	if !exists {
		t.Fatal("token 'quick' was not indexed")
	}
	if len(positions) != 2 {
		t.Errorf("token 'quick' has %d occurrences, want 2", len(positions))
	}
}

func TestInvertedIndex_Index_EmptyDocument(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "")

	if terms := idx.section.AllTerms(); len(terms) != 0 {
		t.Errorf("empty document created %d terms, want 0", len(terms))
	}
}

func TestInvertedIndex_Index_StopWords(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "the quick brown fox")

	if _, exists := idx.getPostingList("the"); exists {
		t.Error("stop word 'the' should not be indexed")
	}
	if _, exists := idx.getPostingList("quick"); !exists {
		t.Error("token 'quick' should be indexed")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// FIRST OPERATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestInvertedIndex_First_SingleOccurrence(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	pos, err := idx.First("quick")
	if err != nil {
		t.Fatalf("First() error = %v, want nil", err)
	}
	if pos.GetDocumentID() != 1 {
		t.Errorf("First() document = %d, want 1", pos.GetDocumentID())
	}
	if pos.GetOffset() != 1 {
		t.Errorf("First() offset = %d, want 1", pos.GetOffset())
	}
}

func TestInvertedIndex_First_MultipleOccurrences(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "brown fox")
	idx.Index(2, "quick brown")
	idx.Index(3, "brown dog")

	pos, err := idx.First("brown")
	if err != nil {
		t.Fatalf("First() error = %v, want nil", err)
	}
	if pos.GetDocumentID() != 1 || pos.GetOffset() != 1 {
		t.Errorf("First() = Doc%d:Pos%d, want Doc1:Pos1", pos.GetDocumentID(), pos.GetOffset())
	}
}

func TestInvertedIndex_First_NotFound(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	_, err := idx.First("elephant")
	if err != ErrNoPostingList {
		t.Errorf("First() error = %v, want %v", err, ErrNoPostingList)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// LAST OPERATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestInvertedIndex_Last_SingleOccurrence(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	pos, err := idx.Last("fox")
	if err != nil {
		t.Fatalf("Last() error = %v, want nil", err)
	}
	if pos.GetDocumentID() != 1 || pos.GetOffset() != 3 {
		t.Errorf("Last() = Doc%d:Pos%d, want Doc1:Pos3", pos.GetDocumentID(), pos.GetOffset())
	}
}

func TestInvertedIndex_Last_MultipleOccurrences(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "brown fox")
	idx.Index(2, "quick brown")
	idx.Index(3, "brown dog")

	pos, err := idx.Last("brown")
	if err != nil {
		t.Fatalf("Last() error = %v, want nil", err)
	}
	if pos.GetDocumentID() != 3 {
		t.Errorf("Last() document = %d, want 3", pos.GetDocumentID())
	}
}

func TestInvertedIndex_Last_NotFound(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	_, err := idx.Last("elephant")
	if err != ErrNoPostingList {
		t.Errorf("Last() error = %v, want %v", err, ErrNoPostingList)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// NEXT OPERATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestInvertedIndex_Next_FromBeginning(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	pos, err := idx.Next("quick", BOFDocument)
	if err != nil {
		t.Fatalf("Next() error = %v, want nil", err)
	}
	if pos.GetDocumentID() != 1 || pos.GetOffset() != 1 {
		t.Errorf("Next() = Doc%d:Pos%d, want Doc1:Pos1", pos.GetDocumentID(), pos.GetOffset())
	}
}

func TestInvertedIndex_Next_MultipleOccurrences(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")
	idx.Index(2, "quick dog")
	idx.Index(3, "lazy quick")

	pos1, _ := idx.Next("quick", BOFDocument)
	if pos1.GetDocumentID() != 1 {
		t.Errorf("first occurrence in Doc%d, want Doc1", pos1.GetDocumentID())
	}
	pos2, _ := idx.Next("quick", pos1)
	if pos2.GetDocumentID() != 2 {
		t.Errorf("second occurrence in Doc%d, want Doc2", pos2.GetDocumentID())
	}
	pos3, _ := idx.Next("quick", pos2)
	if pos3.GetDocumentID() != 3 {
		t.Errorf("third occurrence in Doc%d, want Doc3", pos3.GetDocumentID())
	}
	pos4, _ := idx.Next("quick", pos3)
	if !pos4.IsEnd() {
		t.Error("Next() should return EOF after last occurrence")
	}
}

func TestInvertedIndex_Next_FromEOF(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	pos, _ := idx.Next("quick", EOFDocument)
	if !pos.IsEnd() {
		t.Error("Next() from EOF should return EOF")
	}
}

func TestInvertedIndex_Next_NotFound(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	_, err := idx.Next("elephant", BOFDocument)
	if err != ErrNoPostingList {
		t.Errorf("Next() error = %v, want %v", err, ErrNoPostingList)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PREVIOUS OPERATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestInvertedIndex_Previous_FromEnd(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	pos, err := idx.Previous("fox", EOFDocument)
	if err != nil {
		t.Fatalf("Previous() error = %v, want nil", err)
	}
	if pos.GetDocumentID() != 1 || pos.GetOffset() != 3 {
		t.Errorf("Previous() = Doc%d:Pos%d, want Doc1:Pos3", pos.GetDocumentID(), pos.GetOffset())
	}
}

func TestInvertedIndex_Previous_MultipleOccurrences(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")
	idx.Index(2, "quick dog")
	idx.Index(3, "lazy quick")

	pos3, _ := idx.Previous("quick", EOFDocument)
	if pos3.GetDocumentID() != 3 {
		t.Errorf("last occurrence in Doc%d, want Doc3", pos3.GetDocumentID())
	}
	pos2, _ := idx.Previous("quick", pos3)
	if pos2.GetDocumentID() != 2 {
		t.Errorf("second-to-last occurrence in Doc%d, want Doc2", pos2.GetDocumentID())
	}
	pos1, _ := idx.Previous("quick", pos2)
	if pos1.GetDocumentID() != 1 {
		t.Errorf("first occurrence in Doc%d, want Doc1", pos1.GetDocumentID())
	}
	pos0, _ := idx.Previous("quick", pos1)
	if !pos0.IsBeginning() {
		t.Error("Previous() should return BOF before first occurrence")
	}
}

func TestInvertedIndex_Previous_FromBOF(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	pos, _ := idx.Previous("quick", BOFDocument)
	if !pos.IsBeginning() {
		t.Error("Previous() from BOF should return BOF")
	}
}

func TestInvertedIndex_Previous_NotFound(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "quick brown fox")

	_, err := idx.Previous("elephant", EOFDocument)
	if err != ErrNoPostingList {
		t.Errorf("Previous() error = %v, want %v", err, ErrNoPostingList)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// INTEGRATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestInvertedIndex_ComplexScenario(t *testing.T) {
	idx := NewInvertedIndex()

	idx.Index(1, "the quick brown fox jumps over the lazy dog")
	idx.Index(2, "the lazy brown dog sleeps")
	idx.Index(3, "quick brown foxes are clever")

	var brownDocs []int
	pos, _ := idx.First("brown")
	brownDocs = append(brownDocs, pos.GetDocumentID())
	for !pos.IsEnd() {
		pos, _ = idx.Next("brown", pos)
		if !pos.IsEnd() {
			brownDocs = append(brownDocs, pos.GetDocumentID())
		}
	}

	expectedDocs := []int{1, 2, 3}
	if len(brownDocs) != len(expectedDocs) {
		t.Errorf("found 'brown' in %d documents, want %d", len(brownDocs), len(expectedDocs))
	}
	for i, docID := range brownDocs {
		if i < len(expectedDocs) && docID != expectedDocs[i] {
			t.Errorf("document %d: got Doc%d, want Doc%d", i, docID, expectedDocs[i])
		}
	}
}

func TestInvertedIndex_PositionOrdering(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(1, "fox fox fox")

	var offsets []int
	pos, _ := idx.First("fox")
	offsets = append(offsets, pos.GetOffset())
	for !pos.IsEnd() {
		pos, _ = idx.Next("fox", pos)
		if !pos.IsEnd() {
			offsets = append(offsets, pos.GetOffset())
		}
	}

	expected := []int{1, 2, 3}
	if len(offsets) != len(expected) {
		t.Fatalf("found %d positions, want %d", len(offsets), len(expected))
	}
	for i, offset := range offsets {
		if offset != expected[i] {
			t.Errorf("position %d: offset = %d, want %d", i, offset, expected[i])
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONCURRENCY TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestInvertedIndex_ConcurrentIndexing(t *testing.T) {
	idx := NewInvertedIndex()

	done := make(chan bool, 3)
	go func() { idx.Index(1, "quick brown fox"); done <- true }()
	go func() { idx.Index(2, "sleepy dog"); done <- true }()
	go func() { idx.Index(3, "quick brown cats"); done <- true }()
	<-done
	<-done
	<-done

	for _, token := range []string{"quick", "brown", "fox", "sleepi", "dog", "cat"} {
		if _, exists := idx.getPostingList(token); !exists {
			t.Errorf("token %q was not indexed (concurrent indexing issue)", token)
		}
	}
}
