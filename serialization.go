package invertex

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION: Saving and Loading the Index
// ═══════════════════════════════════════════════════════════════════════════════
// Why serialize?
// - Save index to disk for persistence
// - Send index over network
// - Create backups
//
// BINARY FORMAT:
// --------------
// We use a custom binary format for efficiency, same as the original design:
// length-prefixed fields, little-endian fixed-width integers, no reflection.
//
// FORMAT STRUCTURE:
// -----------------
// [Header]
//   - TotalDocs: uint32
//   - TotalTerms: uint64
//   - BM25.K1: float64
//   - BM25.B: float64
//   - NumDocStats: uint32
//
// [Document Statistics] (for each recorded document)
//   - DocID: uint32
//   - Length: uint32
//
// [Posting Lists] (for each distinct term, ascending)
//   - TermLength: uint32, Term: bytes
//   - NumPostings: uint32
//   - For each posting: DocID uint32, TF uint32, NumPositions uint32, Positions []uint32
//
// Unlike the original skip-list format, there's no pointer/tower structure
// to reconstruct — InvertedSection.AllTerms lists every term and each
// term's SearchIterator yields its postings in ascending document-ID order,
// so decode only has to replay InsertCurrent calls against a fresh section.
// ═══════════════════════════════════════════════════════════════════════════════

// Encode serializes the inverted index to binary format, including its BM25
// parameters and per-document statistics.
func (idx *InvertedIndex) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := idx.encodeHeader(buf); err != nil {
		return nil, err
	}
	if err := idx.encodeDocStats(buf); err != nil {
		return nil, err
	}
	if err := idx.encodePostingLists(buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// encodeHeader writes the index metadata.
func (idx *InvertedIndex) encodeHeader(buf *bytes.Buffer) error {
	other := idx.section.OtherInformation()
	lengths := other.AllDocumentLengths()
	totalDocs := other.TotalDocuments()
	totalTerms := int64(other.AverageDocumentLength() * float64(totalDocs))

	if err := binary.Write(buf, binary.LittleEndian, uint32(totalDocs)); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint64(totalTerms)); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, idx.bm25.K1); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, idx.bm25.B); err != nil {
		return err
	}
	return binary.Write(buf, binary.LittleEndian, uint32(len(lengths)))
}

// encodeDocStats writes each recorded document's ID and length.
func (idx *InvertedIndex) encodeDocStats(buf *bytes.Buffer) error {
	lengths := idx.section.OtherInformation().AllDocumentLengths()
	for docID, length := range lengths {
		if err := binary.Write(buf, binary.LittleEndian, docID); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(length)); err != nil {
			return err
		}
	}
	return nil
}

// encodePostingLists writes every term's full posting list, draining each
// term's SearchIterator (which already merges any small insert slot over
// the large index) into the wire format.
func (idx *InvertedIndex) encodePostingLists(buf *bytes.Buffer) error {
	ctx := context.Background()
	terms := idx.section.AllTerms()

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(terms))); err != nil {
		return err
	}

	for _, term := range terms {
		if err := writeString(buf, term); err != nil {
			return err
		}

		it, err := idx.section.SearchIterator(ctx, term)
		if err != nil {
			return err
		}
		postings, err := drainPostingsForEncode(ctx, it)
		it.Close()
		if err != nil {
			return err
		}

		if err := binary.Write(buf, binary.LittleEndian, uint32(len(postings))); err != nil {
			return err
		}
		for _, p := range postings {
			if err := binary.Write(buf, binary.LittleEndian, p.DocID); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, p.TF); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, uint32(len(p.Positions))); err != nil {
				return err
			}
			for _, pos := range p.Positions {
				if err := binary.Write(buf, binary.LittleEndian, pos); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// drainPostingsForEncode materializes every posting a ListIterator yields,
// TF and positions included.
func drainPostingsForEncode(ctx context.Context, it ListIterator) ([]Posting, error) {
	var out []Posting
	for id, err := it.Find(ctx, 0); id != 0; id, err = it.Next(ctx) {
		if err != nil {
			return nil, err
		}
		tf := it.GetTermFrequency()
		locs := it.GetLocationListIterator()
		var positions []uint32
		for {
			p, ok := locs.Next()
			if !ok {
				break
			}
			positions = append(positions, p)
		}
		out = append(out, Posting{DocID: id, TF: tf, Positions: positions})
	}
	return out, nil
}

// writeString writes a length-prefixed string.
func writeString(buf *bytes.Buffer, s string) error {
	data := []byte(s)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := buf.Write(data)
	return err
}

// ═══════════════════════════════════════════════════════════════════════════════
// DESERIALIZATION: Loading the Index from Binary Data
// ═══════════════════════════════════════════════════════════════════════════════

// Decode replaces idx's contents with the index encoded in data. idx must be
// a freshly constructed InvertedIndex: Decode bulk-loads postings directly
// into the large-index unit, bypassing tokenization and the delayed-merge
// staging path entirely.
func (idx *InvertedIndex) Decode(data []byte) error {
	d := newIndexDecoder(data)

	totalDocs, _, k1, b, numDocStats, err := d.readHeader()
	if err != nil {
		return err
	}
	idx.bm25 = BM25Parameters{K1: k1, B: b}
	_ = totalDocs

	docLengths, err := d.readDocStats(numDocStats)
	if err != nil {
		return err
	}

	numTerms, err := d.readUint32()
	if err != nil {
		return err
	}

	unit := idx.section.LargeIndex().Unit(0)
	lm := unit.GetUpdateListManager()
	cfg := DefaultEngineConfig()

	for i := uint32(0); i < numTerms; i++ {
		term, err := d.readString()
		if err != nil {
			return err
		}
		numPostings, err := d.readUint32()
		if err != nil {
			return err
		}
		lm.Reset(term, ResetCreate)
		for j := uint32(0); j < numPostings; j++ {
			docID, err := d.readUint32()
			if err != nil {
				return err
			}
			_, err = d.readUint32() // TF is recomputed from len(positions)
			if err != nil {
				return err
			}
			numPositions, err := d.readUint32()
			if err != nil {
				return err
			}
			positions := make([]uint32, numPositions)
			for k := range positions {
				positions[k], err = d.readUint32()
				if err != nil {
					return err
				}
			}
			if err := lm.InsertCurrent(cfg, docID, positions); err != nil {
				return err
			}
		}
	}

	other := idx.section.OtherInformation()
	for docID, length := range docLengths {
		other.RecordDocument(docID, length, 0, 0, nil)
	}

	return nil
}

// indexDecoder tracks our position while reading a byte slice.
type indexDecoder struct {
	data   []byte
	offset int
}

func newIndexDecoder(data []byte) *indexDecoder {
	return &indexDecoder{data: data}
}

func (d *indexDecoder) readUint32() (uint32, error) {
	if d.offset+4 > len(d.data) {
		return 0, ErrBadArgument
	}
	v := binary.LittleEndian.Uint32(d.data[d.offset : d.offset+4])
	d.offset += 4
	return v, nil
}

func (d *indexDecoder) readUint64() (uint64, error) {
	if d.offset+8 > len(d.data) {
		return 0, ErrBadArgument
	}
	v := binary.LittleEndian.Uint64(d.data[d.offset : d.offset+8])
	d.offset += 8
	return v, nil
}

func (d *indexDecoder) readFloat64() (float64, error) {
	v, err := d.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (d *indexDecoder) readString() (string, error) {
	length, err := d.readUint32()
	if err != nil {
		return "", err
	}
	if d.offset+int(length) > len(d.data) {
		return "", ErrBadArgument
	}
	s := string(d.data[d.offset : d.offset+int(length)])
	d.offset += int(length)
	return s, nil
}

func (d *indexDecoder) readHeader() (totalDocs uint32, totalTerms uint64, k1, b float64, numDocStats uint32, err error) {
	if totalDocs, err = d.readUint32(); err != nil {
		return
	}
	if totalTerms, err = d.readUint64(); err != nil {
		return
	}
	if k1, err = d.readFloat64(); err != nil {
		return
	}
	if b, err = d.readFloat64(); err != nil {
		return
	}
	numDocStats, err = d.readUint32()
	return
}

func (d *indexDecoder) readDocStats(numDocStats uint32) (map[uint32]int, error) {
	out := make(map[uint32]int, numDocStats)
	for i := uint32(0); i < numDocStats; i++ {
		docID, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		length, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		out[docID] = int(length)
	}
	return out, nil
}
