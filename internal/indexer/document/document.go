// Package document loads the tab-delimited corpus that the index is built
// from. Each line is "<id>\t<content>"; ids are integers and content keeps
// any further tabs. Lines are lower-cased before they are split.
package document

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// Document is a single corpus entry.
type Document struct {
	ID      int
	Content string
}

// Corpus maps document ids to lower-cased content and remembers the order in
// which ids were first seen. A repeated id replaces the earlier content but
// keeps its original position.
type Corpus struct {
	order   []int
	content map[int]string
}

func NewCorpus() *Corpus {
	return &Corpus{content: make(map[int]string)}
}

// Put stores content under id.
func (c *Corpus) Put(id int, content string) {
	if _, exists := c.content[id]; !exists {
		c.order = append(c.order, id)
	}
	c.content[id] = content
}

func (c *Corpus) Get(id int) (string, bool) {
	content, ok := c.content[id]
	return content, ok
}

func (c *Corpus) Len() int {
	return len(c.order)
}

// IDs returns document ids in first-seen order.
func (c *Corpus) IDs() []int {
	ids := make([]int, len(c.order))
	copy(ids, c.order)
	return ids
}

// Each calls fn for every document in first-seen order.
func (c *Corpus) Each(fn func(Document)) {
	for _, id := range c.order {
		fn(Document{ID: id, Content: c.content[id]})
	}
}

// LoadFile reads a corpus file. A missing path fails with ErrNotFound before
// any parsing; the first malformed line aborts the load with ErrMalformed.
func LoadFile(path string) (*Corpus, error) {
	slog.Default().With("component", "document-loader").
		Info("loading documents to build inverted index", "path", path)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("corpus %q: %w", path, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("stat corpus %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("corpus %q is a directory: %w", path, apperrors.ErrNotFound)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	corpus, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %q: %w", path, err)
	}
	return corpus, nil
}

// Read parses corpus lines from r.
func Read(r io.Reader) (*Corpus, error) {
	corpus := NewCorpus()
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			doc, parseErr := ParseLine(line)
			if parseErr != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, parseErr)
			}
			corpus.Put(doc.ID, doc.Content)
		}
		if err == io.EOF {
			return corpus, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", lineNo+1, err)
		}
	}
}

// ParseLine splits a single corpus line into a Document. The trailing newline
// is dropped and the whole line is lower-cased first.
func ParseLine(line string) (Document, error) {
	line = strings.ToLower(strings.ReplaceAll(line, "\n", ""))
	idText, content, ok := strings.Cut(line, "\t")
	if !ok {
		return Document{}, fmt.Errorf("missing tab separator: %w", apperrors.ErrMalformed)
	}
	id, err := parseID(idText)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Content: content}, nil
}

func parseID(text string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("document id %q is not an integer: %w", text, apperrors.ErrMalformed)
	}
	if id < 0 {
		return 0, fmt.Errorf("document id %d is negative: %w", id, apperrors.ErrMalformed)
	}
	return id, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// LoadDB reads (id, content) rows produced by query. Content is lower-cased
// and repeated ids overwrite earlier rows, as with LoadFile.
func LoadDB(ctx context.Context, db *sql.DB, query string) (*Corpus, error) {
	slog.Default().With("component", "document-loader").
		Info("loading documents from postgres to build inverted index")
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying corpus: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows rowScanner) (*Corpus, error) {
	corpus := NewCorpus()
	row := 0
	for rows.Next() {
		row++
		var (
			id      int64
			content sql.NullString
		)
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("scanning corpus row %d: %w", row, err)
		}
		if id < 0 {
			return nil, fmt.Errorf("row %d: document id %d is negative: %w", row, id, apperrors.ErrMalformed)
		}
		corpus.Put(int(id), strings.ToLower(content.String))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w", err)
	}
	return corpus, nil
}
