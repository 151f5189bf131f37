// Package codec persists an inverted index to disk and loads it back. Two
// strategies exist: a JSON object for humans and a compact little-endian
// binary layout, which is the default.
package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

type Strategy string

const (
	StrategyJSON   Strategy = "json"
	StrategyBinary Strategy = "binary"
)

// Names lists the strategy names accepted on the command line.
var Names = []string{"json", "binary", "struct"}

// ParseStrategy maps a user-supplied name to a Strategy. "struct" is an alias
// for the binary layout.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return StrategyJSON, nil
	case "binary", "struct":
		return StrategyBinary, nil
	default:
		return "", fmt.Errorf("%q (want one of %s): %w",
			name, strings.Join(Names, ", "), apperrors.ErrUnsupportedStrategy)
	}
}

func (s Strategy) validate() error {
	switch s {
	case StrategyJSON, StrategyBinary:
		return nil
	default:
		return fmt.Errorf("%q: %w", string(s), apperrors.ErrUnsupportedStrategy)
	}
}

// Encode writes ix to w using strategy.
func Encode(w io.Writer, ix *index.InvertedIndex, strategy Strategy) error {
	switch strategy {
	case StrategyJSON:
		return EncodeJSON(w, ix)
	case StrategyBinary:
		return EncodeBinary(w, ix)
	default:
		return strategy.validate()
	}
}

// Decode reads an index from r using strategy.
func Decode(r io.Reader, strategy Strategy) (*index.InvertedIndex, error) {
	switch strategy {
	case StrategyJSON:
		return DecodeJSON(r)
	case StrategyBinary:
		return DecodeBinary(r)
	default:
		return nil, strategy.validate()
	}
}

// Dump writes ix to path. The file is written to path+".tmp" and renamed
// into place once complete, so a failed dump never leaves a partial index at
// path. Binary width limits are checked before any file is created.
func Dump(ix *index.InvertedIndex, path string, strategy Strategy) error {
	if err := strategy.validate(); err != nil {
		return err
	}
	if strategy == StrategyBinary {
		if err := CheckBinaryLimits(ix); err != nil {
			return err
		}
	}
	slog.Default().With("component", "codec").Info("dump inverted index",
		"path", path,
		"strategy", string(strategy),
		"terms", ix.Len(),
	)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating index directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	committed := false
	defer func() {
		f.Close()
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, ix, strategy); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing index file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	committed = true
	return nil
}

// Load reads an index from path. A missing path (or a directory) fails with
// ErrNotFound before any decoding is attempted.
func Load(path string, strategy Strategy) (*index.InvertedIndex, error) {
	if err := strategy.validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index %q: %w", path, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("stat index %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("index %q is a directory: %w", path, apperrors.ErrNotFound)
	}

	slog.Default().With("component", "codec").Info("load inverted index",
		"path", path,
		"strategy", string(strategy),
		"bytes", info.Size(),
	)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	ix, err := Decode(f, strategy)
	if err != nil {
		return nil, fmt.Errorf("decoding index %q: %w", path, err)
	}
	return ix, nil
}
