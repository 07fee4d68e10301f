package gitops

import (
	"context"
	"errors"
	"fmt"
	"time"

	goGit "github.com/go-git/go-git/v5"
	goGitConfig "github.com/go-git/go-git/v5/config"
	goGitObject "github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNothingToCommit is returned by CommitAll when the working tree matches
// the checked-out branch exactly. Callers treat it as "already published".
var ErrNothingToCommit = errors.New("nothing to commit")

// SetIdentity configures user.name/user.email in the clone's local config,
// leaving the ambient (global) git identity untouched. All commits made
// through this client use this identity.
func (client *Client) SetIdentity(name, email string) error {
	if client.repo == nil {
		return fmt.Errorf("repository is not cloned yet")
	}

	cfg, err := client.repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read repository config: %w", err)
	}
	cfg.User.Name = name
	cfg.User.Email = email
	if err := client.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to write repository config: %w", err)
	}

	client.identityName = name
	client.identityEmail = email
	return nil
}

// CommitAll stages every change in the working tree (additions, edits and
// deletions) and commits them with the given message.
//
// Returns ErrNothingToCommit when staging leaves the tree clean, so an
// unchanged documentation tree never produces an empty commit.
func (client *Client) CommitAll(message string) (string, error) {
	if client.repo == nil {
		return "", fmt.Errorf("repository is not cloned yet")
	}
	if client.identityName == "" || client.identityEmail == "" {
		return "", fmt.Errorf("commit identity is not configured")
	}

	worktree, err := client.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get working tree: %w", err)
	}

	if err := worktree.AddWithOptions(&goGit.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get working tree status: %w", err)
	}
	if status.IsClean() {
		return "", ErrNothingToCommit
	}

	hash, err := worktree.Commit(message, &goGit.CommitOptions{
		Author: &goGitObject.Signature{
			Name:  client.identityName,
			Email: client.identityEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return hash.String(), nil
}

// Push sends the client's branch to origin in a single attempt. A rejected
// push (for example a non-fast-forward caused by a concurrent publisher) is
// returned as an error; recovery is a re-run, not an internal retry.
func (client *Client) Push(ctx context.Context) error {
	if client.repo == nil {
		return fmt.Errorf("repository is not cloned yet")
	}

	method, err := client.authMethod()
	if err != nil {
		return err
	}

	refSpec := goGitConfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", client.branch, client.branch))
	err = client.repo.PushContext(ctx, &goGit.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []goGitConfig.RefSpec{refSpec},
		Auth:       method,
	})
	if err != nil && err != goGit.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to push branch %s: %w", client.branch, err)
	}
	return nil
}
