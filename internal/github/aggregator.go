package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPageSize is the search page size; 100 is the API maximum.
	DefaultPageSize = 100

	// maxPagesPerQuery bounds pagination so a misbehaving API cannot
	// spin forever against the rate-limit budget.
	maxPagesPerQuery = 100
)

// Query is one search query with its display label.
type Query struct {
	Label string
	Query string
}

// Summary is one deduplicated repository in the aggregation output.
// Label names the query that saw the repository first.
type Summary struct {
	Label string
	Repo
}

// Result is one run's full aggregation output, ordered by query then by
// API result order. It is rebuilt from scratch every run.
type Result struct {
	Repos []Summary
}

// PartialError reports that some queries failed while others produced
// results. The accompanying Result still carries everything collected.
type PartialError struct {
	Errs []error
}

func (e *PartialError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d queries failed: %s", len(e.Errs), strings.Join(msgs, "; "))
}

func (e *PartialError) Unwrap() []error { return e.Errs }

// Searcher is the page-fetch capability Aggregator consumes; *Client
// satisfies it.
type Searcher interface {
	SearchRepositories(ctx context.Context, query string, pageSize int, cursor string) (*SearchPage, error)
}

type Aggregator struct {
	client Searcher
	logger *slog.Logger
}

func NewAggregator(client Searcher, logger *slog.Logger) *Aggregator {
	return &Aggregator{client: client, logger: logger}
}

// Aggregate pages every query to completion and merges the results into
// one deduplicated report keyed by repository URL.
//
// Pages within one query are strictly sequential (each cursor comes from
// the previous page); independent queries run concurrently. When a
// repository is matched by more than one query, the first query in the
// given order wins and later matches are dropped, so counts are never
// summed across duplicates.
//
// A failing query removes only its own contribution: the returned Result
// holds every other query's repositories and the error is a
// *PartialError wrapping the per-query causes.
func (a *Aggregator) Aggregate(ctx context.Context, queries []Query, pageSize int) (*Result, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("no search queries given")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	perQuery := make([][]Repo, len(queries))
	queryErrs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			repos, err := a.paginate(gctx, q, pageSize)
			perQuery[i] = repos
			if err != nil {
				queryErrs[i] = fmt.Errorf("query %q: %w", q.Label, err)
			}
			// never abort sibling queries
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{}
	seen := make(map[string]bool)
	for i, q := range queries {
		for _, r := range perQuery[i] {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			result.Repos = append(result.Repos, Summary{Label: q.Label, Repo: r})
		}
	}

	var errs []error
	for _, err := range queryErrs {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return result, &PartialError{Errs: errs}
	}
	return result, nil
}

// paginate fetches one query's pages in order until the API reports no
// more results, a page comes back empty, or the page ceiling is hit.
// Repos fetched before a mid-query failure are returned alongside the error.
func (a *Aggregator) paginate(ctx context.Context, q Query, pageSize int) ([]Repo, error) {
	var repos []Repo
	cursor := ""
	for pages := 0; pages < maxPagesPerQuery; pages++ {
		page, err := a.client.SearchRepositories(ctx, q.Query, pageSize, cursor)
		if err != nil {
			return repos, err
		}
		repos = append(repos, page.Repos...)
		if !page.HasMore || len(page.Repos) == 0 {
			return repos, nil
		}
		cursor = page.EndCursor
	}
	a.logger.Warn("page ceiling reached, truncating query", "label", q.Label, "pages", maxPagesPerQuery)
	return repos, nil
}
