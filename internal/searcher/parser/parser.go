// Package parser turns raw query text into the term list the executor
// intersects. Every whitespace-separated word is a term; there are no
// operators, since all queries are conjunctive.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type QueryPlan struct {
	Terms    []string
	RawQuery string
}

func Parse(query string) *QueryPlan {
	return &QueryPlan{
		Terms:    strings.Fields(query),
		RawQuery: query,
	}
}

// Stream reads one query per line from r and calls fn for each, stopping at
// the first empty line or at EOF.
func Stream(r io.Reader, fn func(*QueryPlan) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading queries: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return nil
		}
		if fnErr := fn(Parse(line)); fnErr != nil {
			return fnErr
		}
		if err == io.EOF {
			return nil
		}
	}
}
