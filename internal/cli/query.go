package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

const stdinPath = "-"

type queryOptions struct {
	indexPath  string
	strategy   string
	queries    []string
	utf8File   string
	cp1251File string
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Answer AND queries against a stored index",
		Long: `Answer conjunctive word queries against a stored index.

Each query is a whitespace-separated list of words. For every query one line
is printed: the ids of the documents containing all of its words, ascending
and comma-separated, or an empty line when nothing matches.

Queries come from exactly one source: repeated -q flags, or a file with one
query per line (read until the first empty line). Use "-" to read the file
from stdin.

A -q flag takes every word up to the next -q, so "-q cat dog -q bird" asks
two queries. Other flags go before the first -q.`,
		Example: `  invindex query -i inverted.index -q cat dog -q bird
  invindex query -s json --query-file-utf8 queries.txt
  cat queries.txt | invindex query --query-file-cp1251 -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				queries, err := extendQueries(opts.queries, args)
				if err != nil {
					return err
				}
				opts.queries = queries
			}
			cfg := root.cfg
			opts.indexPath = stringFlag(cmd, "index", opts.indexPath, cfg.Index.Output)
			opts.strategy = stringFlag(cmd, "strategy", opts.strategy, cfg.Index.Strategy)
			return runQuery(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.indexPath, "index", "i", "inverted.index", "Path of the index to query")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "binary", "Storage strategy of the index: json, binary or struct")
	cmd.Flags().StringArrayVarP(&opts.queries, "query", "q", nil, "Query words, e.g. -q \"cat dog\" (repeatable)")
	cmd.Flags().StringVar(&opts.utf8File, "query-file-utf8", "", "File of UTF-8 queries, one per line")
	cmd.Flags().StringVar(&opts.cp1251File, "query-file-cp1251", "", "File of windows-1251 queries, one per line")
	cmd.MarkFlagsMutuallyExclusive("query", "query-file-utf8", "query-file-cp1251")
	cmd.MarkFlagsOneRequired("query", "query-file-utf8", "query-file-cp1251")
	// Stop flag parsing at the first query word; extendQueries handles the
	// rest of the command line.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func runQuery(cmd *cobra.Command, opts *queryOptions) error {
	ix, _, err := loadIndex(opts.indexPath, opts.strategy, nil)
	if err != nil {
		return err
	}
	exec := executor.New(ix, nil)

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()
	answer := func(plan *parser.QueryPlan) error {
		_, err := fmt.Fprintln(out, executor.String(exec.Query(plan.Terms)))
		return err
	}

	switch {
	case len(opts.queries) > 0:
		for _, q := range opts.queries {
			if err := answer(parser.Parse(q)); err != nil {
				return err
			}
		}
		return nil
	case opts.utf8File != "":
		return streamQueries(cmd, opts.utf8File, false, answer)
	default:
		return streamQueries(cmd, opts.cp1251File, true, answer)
	}
}

// extendQueries folds the words left after flag parsing into the -q queries:
// words join the query before them and a further -q starts a new one.
func extendQueries(queries, rest []string) ([]string, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("unexpected arguments %q: query words follow -q: %w", rest, apperrors.ErrInvalidInput)
	}
	queries = slices.Clone(queries)
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "-q" || arg == "--query":
			if i+1 == len(rest) {
				return nil, fmt.Errorf("%s needs a query: %w", arg, apperrors.ErrInvalidInput)
			}
			i++
			queries = append(queries, rest[i])
		case strings.HasPrefix(arg, "--query="):
			queries = append(queries, strings.TrimPrefix(arg, "--query="))
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("flag %q after query words, put it before -q: %w", arg, apperrors.ErrInvalidInput)
		default:
			last := len(queries) - 1
			queries[last] += " " + arg
		}
	}
	return queries, nil
}

func streamQueries(cmd *cobra.Command, path string, cp1251 bool, fn func(*parser.QueryPlan) error) error {
	var r io.Reader
	if path == stdinPath {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("query file %q: %w", path, apperrors.ErrNotFound)
			}
			return fmt.Errorf("opening query file: %w", err)
		}
		defer f.Close()
		r = f
	}
	if cp1251 {
		r = charmap.Windows1251.NewDecoder().Reader(r)
	}
	return parser.Stream(r, fn)
}
