package document

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCorpus(t, "12\tAnarchism is a Political philosophy\n7\tAutism\tis a\tdisorder\n0\tCat dog")
	corpus, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got, want := corpus.IDs(), []int{12, 7, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	content, ok := corpus.Get(12)
	if !ok || content != "anarchism is a political philosophy" {
		t.Errorf("Get(12) = %q, %v", content, ok)
	}
	content, _ = corpus.Get(7)
	if content != "autism\tis a\tdisorder" {
		t.Errorf("embedded tabs not preserved: %q", content)
	}
	content, _ = corpus.Get(0)
	if content != "cat dog" {
		t.Errorf("last line without newline: %q", content)
	}
}

func TestLoadFileDuplicateIDOverwrites(t *testing.T) {
	path := writeCorpus(t, "1\tfirst\n2\tsecond\n1\treplaced\n")
	corpus, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", corpus.Len())
	}
	if got := corpus.IDs(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("IDs() = %v, want first-seen order", got)
	}
	if content, _ := corpus.Get(1); content != "replaced" {
		t.Errorf("Get(1) = %q, want replaced", content)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "fdskdownfilepath"), t.TempDir()} {
		_, err := LoadFile(path)
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("LoadFile(%q) error = %v, want ErrNotFound", path, err)
		}
	}
}

func TestLoadFileMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    string
	}{
		{"no tab", "1\tok\nno tab here\n", "line 2"},
		{"non numeric id", "abc\tcontent\n", "line 1"},
		{"negative id", "-4\tcontent\n", "line 1"},
		{"blank line", "1\tok\n\n2\tok\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeCorpus(t, tt.content))
			if !errors.Is(err, apperrors.ErrMalformed) {
				t.Fatalf("error = %v, want ErrMalformed", err)
			}
			if !strings.Contains(err.Error(), tt.line) {
				t.Errorf("error %q does not name %s", err, tt.line)
			}
		})
	}
}

func TestParseLineTrimsIDWhitespace(t *testing.T) {
	doc, err := ParseLine(" 42 \tHello\n")
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != 42 || doc.Content != "hello" {
		t.Errorf("ParseLine() = %+v", doc)
	}
}

type fakeRows struct {
	ids      []int64
	contents []sql.NullString
	pos      int
}

func (f *fakeRows) Next() bool {
	f.pos++
	return f.pos <= len(f.ids)
}

func (f *fakeRows) Scan(dest ...any) error {
	*dest[0].(*int64) = f.ids[f.pos-1]
	*dest[1].(*sql.NullString) = f.contents[f.pos-1]
	return nil
}

func (f *fakeRows) Err() error { return nil }

func TestScanRows(t *testing.T) {
	rows := &fakeRows{
		ids: []int64{3, 1, 3},
		contents: []sql.NullString{
			{String: "Old Text", Valid: true},
			{Valid: false},
			{String: "New TEXT", Valid: true},
		},
	}
	corpus, err := scanRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if got := corpus.IDs(); !reflect.DeepEqual(got, []int{3, 1}) {
		t.Errorf("IDs() = %v", got)
	}
	if content, _ := corpus.Get(3); content != "new text" {
		t.Errorf("Get(3) = %q", content)
	}
	if content, ok := corpus.Get(1); !ok || content != "" {
		t.Errorf("Get(1) = %q, %v", content, ok)
	}
}

func TestScanRowsRejectsNegativeID(t *testing.T) {
	rows := &fakeRows{ids: []int64{-1}, contents: []sql.NullString{{String: "x", Valid: true}}}
	if _, err := scanRows(rows); !errors.Is(err, apperrors.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}
