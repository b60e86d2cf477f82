// Package github talks to the GitHub GraphQL API: repository search with
// cursor pagination, and the multi-query issue/PR aggregation built on it.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultEndpoint is the GraphQL endpoint of github.com.
	DefaultEndpoint = "https://api.github.com/graphql"

	// DefaultTimeout bounds one request. Ten seconds is the documented
	// upper limit for REST calls; GraphQL has no clearer figure.
	DefaultTimeout = 10 * time.Second

	maxRetryElapsed = 30 * time.Second
)

// ErrNoToken reports a missing access token. Checked before any request
// is issued; without credentials no query can succeed.
var ErrNoToken = errors.New("no GitHub token: set GH_TOKEN or GITHUB_TOKEN")

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode  int
	Message     string
	RateLimited bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api: status %d: %s", e.StatusCode, e.Message)
}

// TokenFromEnv reads the pre-obtained access token.
func TokenFromEnv() (string, error) {
	for _, key := range []string{"GH_TOKEN", "GITHUB_TOKEN"} {
		if tok := os.Getenv(key); tok != "" {
			return tok, nil
		}
	}
	return "", ErrNoToken
}

// Repo is one repository summary from a search page.
type Repo struct {
	URL             string
	Name            string
	DefaultBranch   string
	HeadOID         string
	LatestRelease   string
	LatestReleaseAt time.Time
	OpenIssues      int
	OpenPRs         int
}

// SearchPage is one page of search results plus its continuation state.
type SearchPage struct {
	Repos     []Repo
	EndCursor string
	HasMore   bool
}

type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client

	logger *slog.Logger
}

func NewClient(token string, logger *slog.Logger) *Client {
	return &Client{
		Token:      token,
		BaseURL:    DefaultEndpoint,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
}

// WithBaseURL returns a copy pointed at a different endpoint (httptest,
// GitHub Enterprise).
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.BaseURL = baseURL
	return &cp
}

// WithHTTPClient returns a copy using a custom HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.HTTPClient = hc
	return &cp
}

const searchQuery = `query($query: String!, $first: Int!, $cursor: String) {
  search(query: $query, type: REPOSITORY, first: $first, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    nodes {
      ... on Repository {
        url
        name
        defaultBranchRef { name target { oid } }
        latestRelease { name publishedAt }
        issues(states: OPEN) { totalCount }
        pullRequests(states: OPEN) { totalCount }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type searchResponse struct {
	Data struct {
		Search struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []repoNode `json:"nodes"`
		} `json:"search"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type repoNode struct {
	URL              string `json:"url"`
	Name             string `json:"name"`
	DefaultBranchRef *struct {
		Name   string `json:"name"`
		Target *struct {
			OID string `json:"oid"`
		} `json:"target"`
	} `json:"defaultBranchRef"`
	LatestRelease *struct {
		Name        string    `json:"name"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"latestRelease"`
	Issues struct {
		TotalCount int `json:"totalCount"`
	} `json:"issues"`
	PullRequests struct {
		TotalCount int `json:"totalCount"`
	} `json:"pullRequests"`
}

// SearchRepositories fetches one page of repository search results.
// An empty cursor requests the first page. Rate-limit responses are
// retried with exponential backoff, bounded; everything else fails fast.
func (c *Client) SearchRepositories(ctx context.Context, query string, pageSize int, cursor string) (*SearchPage, error) {
	if c.Token == "" {
		return nil, ErrNoToken
	}

	variables := map[string]any{
		"query": query,
		"first": pageSize,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	body, err := json.Marshal(graphQLRequest{Query: searchQuery, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxRetryElapsed

	var page *SearchPage
	err = backoff.Retry(func() error {
		p, reqErr := c.searchOnce(ctx, body)
		if reqErr != nil {
			var apiErr *APIError
			if errors.As(reqErr, &apiErr) && apiErr.RateLimited {
				c.logger.Warn("github rate limited, backing off", "status", apiErr.StatusCode)
				return reqErr
			}
			return backoff.Permanent(reqErr)
		}
		page = p
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) searchOnce(ctx context.Context, body []byte) (*SearchPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "grove")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	const maxResponseSize = 10 * 1024 * 1024
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// GitHub signals rate limiting with 429, or 403 once the quota hits zero.
		limited := resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Message:     strings.TrimSpace(string(respBody)),
			RateLimited: limited,
		}
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: parsed.Errors[0].Message}
	}

	page := &SearchPage{
		EndCursor: parsed.Data.Search.PageInfo.EndCursor,
		HasMore:   parsed.Data.Search.PageInfo.HasNextPage,
	}
	for _, n := range parsed.Data.Search.Nodes {
		if n.URL == "" {
			continue
		}
		r := Repo{
			URL:        n.URL,
			Name:       n.Name,
			OpenIssues: n.Issues.TotalCount,
			OpenPRs:    n.PullRequests.TotalCount,
		}
		if n.DefaultBranchRef != nil {
			r.DefaultBranch = n.DefaultBranchRef.Name
			if n.DefaultBranchRef.Target != nil {
				r.HeadOID = n.DefaultBranchRef.Target.OID
			}
		}
		if n.LatestRelease != nil {
			r.LatestRelease = n.LatestRelease.Name
			r.LatestReleaseAt = n.LatestRelease.PublishedAt
		}
		page.Repos = append(page.Repos, r)
	}
	return page, nil
}
