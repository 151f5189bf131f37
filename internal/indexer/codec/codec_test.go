package codec

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

func buildIndex(t *testing.T, lines string) *index.InvertedIndex {
	t.Helper()
	corpus, err := document.Read(strings.NewReader(lines))
	if err != nil {
		t.Fatal(err)
	}
	return index.Build(corpus)
}

const sampleCorpus = "0\tCat dog\n1\tcat\n2\tdog\n25\tAutism is a developmental disorder\n39\tAutism, many MANY words\n7\tÜber café naïve\n"

func TestRoundTrip(t *testing.T) {
	original := buildIndex(t, sampleCorpus)
	for _, strategy := range []Strategy{StrategyBinary, StrategyJSON} {
		t.Run(string(strategy), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "inverted.index")
			if err := Dump(original, path, strategy); err != nil {
				t.Fatalf("Dump() error = %v", err)
			}
			loaded, err := Load(path, strategy)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !loaded.Equal(original) {
				t.Errorf("loaded index differs from original")
			}
			if !reflect.DeepEqual(loaded.Terms(), original.Terms()) {
				t.Errorf("term order not preserved: %v vs %v", loaded.Terms(), original.Terms())
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Errorf("temp file left behind: %v", err)
			}
		})
	}
}

func TestRoundTripEmptyIndex(t *testing.T) {
	for _, strategy := range []Strategy{StrategyBinary, StrategyJSON} {
		path := filepath.Join(t.TempDir(), "empty.index")
		if err := Dump(index.New(), path, strategy); err != nil {
			t.Fatal(err)
		}
		loaded, err := Load(path, strategy)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.Len() != 0 {
			t.Errorf("%s: Len() = %d", strategy, loaded.Len())
		}
	}
}

func TestEncodeBinaryLayout(t *testing.T) {
	ix := index.New()
	ix.Add("cat", 0)
	ix.Add("cat", 1)
	ix.Add("dog", 0)
	ix.Add("é", 2)

	var buf bytes.Buffer
	if err := EncodeBinary(&buf, ix); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		3, 0, 0, 0, // term_count
		3, 0, 'c', 'a', 't', 2, 0,
		3, 0, 'd', 'o', 'g', 1, 0,
		2, 0, 0xc3, 0xa9, 1, 0,
		0, 0, 1, 0, // cat
		0, 0, // dog
		2, 0, // é
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("EncodeBinary() =\n% x\nwant\n% x", buf.Bytes(), want)
	}

	decoded, err := DecodeBinary(bytes.NewReader(want))
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(ix) {
		t.Error("decoded index differs")
	}
}

func TestEncodeJSONLayout(t *testing.T) {
	ix := index.New()
	ix.Add("dog", 2)
	ix.Add("cat", 0)
	ix.Add("cat", 1)

	var buf bytes.Buffer
	if err := EncodeJSON(&buf, ix); err != nil {
		t.Fatal(err)
	}
	want := `{"dog": [2], "cat": [0, 1]}`
	if buf.String() != want {
		t.Errorf("EncodeJSON() = %s, want %s", buf.String(), want)
	}
}

func TestDecodeBinaryMalformed(t *testing.T) {
	valid := []byte{1, 0, 0, 0, 1, 0, 'a', 2, 0, 5, 0, 6, 0}
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short count", valid[:2]},
		{"missing header", valid[:4]},
		{"short term", valid[:6]},
		{"missing posting count", valid[:7]},
		{"truncated postings", valid[:11]},
		{"trailing bytes", append(append([]byte{}, valid...), 0)},
		{"invalid utf8", []byte{1, 0, 0, 0, 1, 0, 0xff, 0, 0}},
		{"empty term", []byte{1, 0, 0, 0, 0, 0, 0, 0}},
		{"duplicate term", []byte{2, 0, 0, 0, 1, 0, 'a', 0, 0, 1, 0, 'a', 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBinary(bytes.NewReader(tt.data))
			if !errors.Is(err, apperrors.ErrMalformed) {
				t.Errorf("DecodeBinary() error = %v, want ErrMalformed", err)
			}
		})
	}
	if _, err := DecodeBinary(bytes.NewReader(valid)); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	tests := []string{
		``,
		`[]`,
		`{"cat": [1, 2]`,
		`{"cat": "nope"}`,
		`{"cat": null}`,
		`{"cat": [1.5]}`,
		`{"cat": [1], "cat": [2]}`,
		`{"Cat": [1]}`,
		`{"cat": [1]} {}`,
	}
	for _, in := range tests {
		if _, err := DecodeJSON(strings.NewReader(in)); !errors.Is(err, apperrors.ErrMalformed) {
			t.Errorf("DecodeJSON(%q) error = %v, want ErrMalformed", in, err)
		}
	}
}

func TestLoadTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inverted.index")
	if err := Dump(buildIndex(t, sampleCorpus), path, StrategyBinary); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-3], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, StrategyBinary); !errors.Is(err, apperrors.ErrMalformed) {
		t.Errorf("Load() error = %v, want ErrMalformed", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	for _, strategy := range []Strategy{StrategyBinary, StrategyJSON} {
		for _, path := range []string{"/no/such/path", "", t.TempDir()} {
			_, err := Load(path, strategy)
			if !errors.Is(err, apperrors.ErrNotFound) {
				t.Errorf("Load(%q, %s) error = %v, want ErrNotFound", path, strategy, err)
			}
			if errors.Is(err, apperrors.ErrMalformed) {
				t.Errorf("Load(%q, %s) reported a parse error", path, strategy)
			}
		}
	}
}

func TestUnsupportedStrategy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inverted.index")
	if err := Dump(index.New(), path, Strategy("abfds")); !errors.Is(err, apperrors.ErrUnsupportedStrategy) {
		t.Errorf("Dump() error = %v, want ErrUnsupportedStrategy", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("Dump with unsupported strategy created files: %v", entries)
	}
	if _, err := Load(path, Strategy("xml")); !errors.Is(err, apperrors.ErrUnsupportedStrategy) {
		t.Errorf("Load() error = %v, want ErrUnsupportedStrategy", err)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
		err  bool
	}{
		{"json", StrategyJSON, false},
		{"JSON", StrategyJSON, false},
		{"binary", StrategyBinary, false},
		{"struct", StrategyBinary, false},
		{"abfds", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.err {
			if !errors.Is(err, apperrors.ErrUnsupportedStrategy) {
				t.Errorf("ParseStrategy(%q) error = %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestBinaryWidthLimits(t *testing.T) {
	t.Run("document id", func(t *testing.T) {
		ix := buildIndex(t, "70000\twide id\n1\tnarrow id\n")
		path := filepath.Join(t.TempDir(), "inverted.index")
		err := Dump(ix, path, StrategyBinary)
		if !errors.Is(err, apperrors.ErrOverflow) {
			t.Fatalf("Dump() error = %v, want ErrOverflow", err)
		}
		if !strings.Contains(err.Error(), "70000") {
			t.Errorf("error does not name the offending id: %v", err)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Errorf("index file created despite overflow")
		}
		if err := Dump(ix, path, StrategyJSON); err != nil {
			t.Errorf("json strategy has no width limits, got %v", err)
		}
	})

	t.Run("posting count", func(t *testing.T) {
		ix := index.New()
		for id := 0; id <= MaxPostings; id++ {
			ix.Add("common", id)
		}
		if err := CheckBinaryLimits(ix); !errors.Is(err, apperrors.ErrOverflow) {
			t.Errorf("CheckBinaryLimits() error = %v, want ErrOverflow", err)
		}
	})

	t.Run("term length", func(t *testing.T) {
		ix := index.New()
		ix.Add(strings.Repeat("a", MaxTermBytes+1), 1)
		if err := EncodeBinary(&bytes.Buffer{}, ix); !errors.Is(err, apperrors.ErrOverflow) {
			t.Errorf("EncodeBinary() error = %v, want ErrOverflow", err)
		}
	})

	t.Run("limits inclusive", func(t *testing.T) {
		ix := index.New()
		ix.Add(strings.Repeat("b", MaxTermBytes), MaxDocumentID)
		var buf bytes.Buffer
		if err := EncodeBinary(&buf, ix); err != nil {
			t.Fatalf("EncodeBinary() error = %v", err)
		}
		decoded, err := DecodeBinary(&buf)
		if err != nil || !decoded.Equal(ix) {
			t.Errorf("round trip at limits failed: %v", err)
		}
	})
}
