package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// Binary layout, all integers little-endian:
//
//	u32 term_count
//	term_count x { u16 term_len, term_len bytes of UTF-8, u16 posting_count }
//	sum(posting_count) x u16 document_id
//
// Document ids are not stored next to their term. They follow the header
// block as one flat run, term by term, in header order.
const (
	MaxTerms      = math.MaxUint32
	MaxTermBytes  = math.MaxUint16
	MaxPostings   = math.MaxUint16
	MaxDocumentID = math.MaxUint16
)

// CheckBinaryLimits reports the first value in ix that does not fit its field
// in the binary layout.
func CheckBinaryLimits(ix *index.InvertedIndex) error {
	if uint64(ix.Len()) > MaxTerms {
		return fmt.Errorf("%d terms exceed limit %d: %w", ix.Len(), uint64(MaxTerms), apperrors.ErrOverflow)
	}
	for _, entry := range ix.Entries() {
		if len(entry.Term) > MaxTermBytes {
			return fmt.Errorf("term %.32q... is %d bytes, limit %d: %w",
				entry.Term, len(entry.Term), MaxTermBytes, apperrors.ErrOverflow)
		}
		if len(entry.Postings) > MaxPostings {
			return fmt.Errorf("term %q has %d postings, limit %d: %w",
				entry.Term, len(entry.Postings), MaxPostings, apperrors.ErrOverflow)
		}
		for _, id := range entry.Postings {
			if id < 0 || id > MaxDocumentID {
				return fmt.Errorf("term %q: document id %d outside 0..%d: %w",
					entry.Term, id, MaxDocumentID, apperrors.ErrOverflow)
			}
		}
	}
	return nil
}

// EncodeBinary writes ix in the binary layout.
func EncodeBinary(w io.Writer, ix *index.InvertedIndex) error {
	if err := CheckBinaryLimits(ix); err != nil {
		return err
	}
	entries := ix.Entries()
	buf := make([]byte, 0, 64)

	buf = binary.LittleEndian.AppendUint32(buf[:0], uint32(len(entries)))
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing term count: %w", err)
	}
	for _, entry := range entries {
		buf = binary.LittleEndian.AppendUint16(buf[:0], uint16(len(entry.Term)))
		buf = append(buf, entry.Term...)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(entry.Postings)))
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("writing header for term %q: %w", entry.Term, err)
		}
	}
	for _, entry := range entries {
		buf = buf[:0]
		for _, id := range entry.Postings {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(id))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
	}
	return nil
}

// headerRecord is one term's entry in the header block. Decoding keeps these
// in a slice because the trailing id block is consumed in header order.
type headerRecord struct {
	term     string
	termLen  uint16
	postings uint16
}

// DecodeBinary reads an index in the binary layout. Short reads, invalid
// UTF-8, repeated terms and bytes after the last document id are reported as
// ErrMalformed.
func DecodeBinary(r io.Reader) (*index.InvertedIndex, error) {
	br := bufio.NewReader(r)
	scratch := make([]byte, 4)

	if err := readFull(br, scratch[:4], "term count"); err != nil {
		return nil, err
	}
	termCount := binary.LittleEndian.Uint32(scratch[:4])

	records := make([]headerRecord, 0, min(termCount, 1<<16))
	for i := uint32(0); i < termCount; i++ {
		if err := readFull(br, scratch[:2], "term length"); err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
		termLen := binary.LittleEndian.Uint16(scratch[:2])
		termBytes := make([]byte, termLen)
		if err := readFull(br, termBytes, "term bytes"); err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
		if !utf8.Valid(termBytes) {
			return nil, fmt.Errorf("header %d: term is not valid UTF-8: %w", i, apperrors.ErrMalformed)
		}
		if err := readFull(br, scratch[:2], "posting count"); err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
		records = append(records, headerRecord{
			term:     string(termBytes),
			termLen:  termLen,
			postings: binary.LittleEndian.Uint16(scratch[:2]),
		})
	}

	ix := index.New()
	for _, rec := range records {
		postings := make(index.PostingList, rec.postings)
		for j := range postings {
			if err := readFull(br, scratch[:2], "document id"); err != nil {
				return nil, fmt.Errorf("postings for term %q: %w", rec.term, err)
			}
			postings[j] = int(binary.LittleEndian.Uint16(scratch[:2]))
		}
		if err := ix.Set(rec.term, postings); err != nil {
			return nil, err
		}
	}

	if _, err := br.ReadByte(); err == nil {
		return nil, fmt.Errorf("unexpected data after postings block: %w", apperrors.ErrMalformed)
	} else if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return ix, nil
}

func readFull(r io.Reader, buf []byte, what string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated %s: %w", what, apperrors.ErrMalformed)
		}
		return fmt.Errorf("reading %s: %w", what, err)
	}
	return nil
}
