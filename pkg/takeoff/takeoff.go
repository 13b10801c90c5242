// Package takeoff implements the merge-on-request pipeline behind the
// Takeoff Slack bot: extracting a pull request reference and merge intent
// from free-text messages, checking the sender against an allow-list, and
// driving a single merge attempt against the GitHub API.
package takeoff

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	// HTTP client configuration constants.
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	idleConnTimeoutSec  = 90
	// requestTimeout bounds every GitHub API call.
	requestTimeout = 30 * time.Second
	// defaultMergeMethod is the merge strategy sent to GitHub.
	defaultMergeMethod = "squash"
)

// Client drives merge attempts against the GitHub API.
type Client struct {
	github interface {
		pullRequest(ctx context.Context, owner, repo string, number int) (*githubPullRequest, error)
		combinedStatus(ctx context.Context, owner, repo, sha string) (*githubCombinedStatus, error)
		checkRuns(ctx context.Context, owner, repo, sha string) (*githubCheckRuns, error)
		merge(ctx context.Context, owner, repo string, number int, method string) error
	}
	logger      *slog.Logger
	token       string // kept for recreating the client with a new transport
	mergeMethod string
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		// Wrap the transport with retry logic if not already wrapped
		if httpClient.Transport == nil {
			httpClient.Transport = &RetryTransport{Base: http.DefaultTransport}
		} else if _, ok := httpClient.Transport.(*RetryTransport); !ok {
			httpClient.Transport = &RetryTransport{Base: httpClient.Transport}
		}
		c.github = &githubClient{client: httpClient, token: c.token, api: githubAPI}
	}
}

// WithMergeMethod sets the merge strategy ("merge", "squash", or "rebase").
func WithMergeMethod(method string) Option {
	return func(c *Client) {
		c.mergeMethod = method
	}
}

// NewClient creates a new Client with the given GitHub token.
// If token is empty, the WithHTTPClient option must be provided.
func NewClient(token string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeoutSec * time.Second,
		DisableCompression:  false,
		DisableKeepAlives:   false,
	}
	c := &Client{
		logger:      slog.Default(),
		token:       token,
		mergeMethod: defaultMergeMethod,
		github: &githubClient{
			client: &http.Client{
				Transport: &RetryTransport{Base: transport},
				Timeout:   requestTimeout,
			},
			token: token,
			api:   githubAPI,
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}
