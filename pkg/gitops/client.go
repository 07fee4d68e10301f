// Package gitops wraps the go-git operations the publisher needs: a
// single-branch clone of the documentation branch, a clone-local commit
// identity, and a stage/commit/push sequence that refuses to create empty
// commits.
package gitops

import (
	"context"
	"fmt"
	"os"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Client is a handle on one clone of the documentation repository. The zero
// value is not usable; construct it with NewClient and call Clone before any
// other operation.
type Client struct {
	url    string
	branch string
	auth   *Auth

	repo     *goGit.Repository
	repoPath string

	identityName  string
	identityEmail string
}

// NewClient prepares a client for the given repository URL and branch.
// auth may be nil for unauthenticated (local/file) remotes, which the tests
// use.
func NewClient(auth *Auth, url, branch string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("git URL cannot be empty")
	}
	if branch == "" {
		return nil, fmt.Errorf("git branch cannot be empty")
	}
	return &Client{
		auth:   auth,
		url:    url,
		branch: branch,
	}, nil
}

// Path returns the working directory of the clone. Empty before Clone.
func (client *Client) Path() string { return client.repoPath }

// Clone checks out the client's branch — and only that branch — into dir.
//
// Other branches of the remote are never fetched: the publisher has no
// business with them, and a docs branch is typically far smaller than the
// rest of the repository.
func (client *Client) Clone(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	cloneOptions := &goGit.CloneOptions{
		URL:           client.url,
		ReferenceName: plumbing.NewBranchReferenceName(client.branch),
		SingleBranch:  true,
	}

	method, err := client.authMethod()
	if err != nil {
		return err
	}
	cloneOptions.Auth = method

	repo, err := goGit.PlainCloneContext(ctx, dir, false, cloneOptions)
	if err != nil {
		return fmt.Errorf("failed to clone branch %s of %s: %w", client.branch, client.url, err)
	}

	client.repo = repo
	client.repoPath = dir
	return nil
}

// authMethod resolves the transport auth once per operation; nil auth means
// the remote needs none.
func (client *Client) authMethod() (transport.AuthMethod, error) {
	if client.auth == nil {
		return nil, nil
	}
	return client.auth.Method()
}
