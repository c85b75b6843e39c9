package github

import (
	"context"
	"fmt"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// NewClient creates a GitHub client that waits out primary and secondary
// rate limits. An empty token yields an anonymous client (60 requests/hour).
func NewClient(token string) (*Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	return &Client{Client: ghClient}, nil
}

// CommitsBehind reports how many commits the default branch of owner/name
// has gained since revision.
func (c *Client) CommitsBehind(ctx context.Context, owner, name, revision string) (int, error) {
	repo, _, err := c.Repositories.Get(ctx, owner, name)
	if err != nil {
		return 0, fmt.Errorf("get repository %s/%s: %w", owner, name, err)
	}

	comparison, _, err := c.Repositories.CompareCommits(ctx, owner, name, revision, repo.GetDefaultBranch(), nil)
	if err != nil {
		return 0, fmt.Errorf("compare %s...%s: %w", revision, repo.GetDefaultBranch(), err)
	}
	return comparison.GetAheadBy(), nil
}
