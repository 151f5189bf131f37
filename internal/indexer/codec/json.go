package codec

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// EncodeJSON writes ix as a single JSON object, {"term": [ids...], ...},
// with terms in insertion order.
func EncodeJSON(w io.Writer, ix *index.InvertedIndex) error {
	bw := bufio.NewWriter(w)
	bw.WriteByte('{')
	for i, entry := range ix.Entries() {
		if i > 0 {
			bw.WriteString(", ")
		}
		key, err := json.Marshal(entry.Term)
		if err != nil {
			return fmt.Errorf("marshaling term %q: %w", entry.Term, err)
		}
		bw.Write(key)
		bw.WriteString(": [")
		for j, id := range entry.Postings {
			if j > 0 {
				bw.WriteString(", ")
			}
			bw.WriteString(strconv.Itoa(id))
		}
		bw.WriteByte(']')
	}
	bw.WriteByte('}')
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing json index: %w", err)
	}
	return nil
}

// DecodeJSON reads an index written by EncodeJSON. The object is walked token
// by token so term order survives the round trip.
func DecodeJSON(r io.Reader) (*index.InvertedIndex, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	ix := index.New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, jsonError("reading term", err)
		}
		term, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected term key, got %v: %w", tok, apperrors.ErrMalformed)
		}
		var raw *[]json.Number
		if err := dec.Decode(&raw); err != nil {
			return nil, jsonError(fmt.Sprintf("postings for term %q", term), err)
		}
		if raw == nil {
			return nil, fmt.Errorf("postings for term %q are null: %w", term, apperrors.ErrMalformed)
		}
		postings := make(index.PostingList, 0, len(*raw))
		for _, n := range *raw {
			id, err := strconv.Atoi(n.String())
			if err != nil {
				return nil, fmt.Errorf("term %q: document id %s is not an integer: %w", term, n, apperrors.ErrMalformed)
			}
			postings = append(postings, id)
		}
		if err := ix.Set(term, postings); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after index object: %w", apperrors.ErrMalformed)
	}
	return ix, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return jsonError("reading index object", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v: %w", want, tok, apperrors.ErrMalformed)
	}
	return nil
}

func jsonError(what string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%s: %v: %w", what, err, apperrors.ErrMalformed)
	}
	return fmt.Errorf("%s: %w", what, err)
}
