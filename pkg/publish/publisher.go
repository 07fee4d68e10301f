// Package publish replaces one project's subtree on the documentation
// branch with freshly generated output and pushes the result.
//
// The sequence is clone → replace subtree → commit → push, and the commit
// only happens when the tree actually changed, so re-running with identical
// documentation is a no-op rather than a string of empty commits.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/margo/docpush/pkg/gitops"
)

// Publisher carries everything one publish run needs. Fields are filled by
// the caller from the publish config and the run context; the Publisher
// itself never reads the environment.
type Publisher struct {
	// URL and Branch locate the documentation repository.
	URL    string
	Branch string

	// Project names the subtree this run owns. Everything under it is
	// replaced; everything outside it is left byte-identical.
	Project string

	// RepoSlug identifies the source repository in the commit message.
	RepoSlug string

	// DocDir is the generated documentation tree to upload.
	DocDir string

	// WorkDir is where the clone is created. Empty means os.TempDir().
	WorkDir string

	// BotName/BotEmail are the clone-local commit identity.
	BotName  string
	BotEmail string

	// Auth is the transport credential. Nil for local (test) remotes.
	Auth *gitops.Auth

	Log *zap.SugaredLogger
}

// Run executes one publish attempt. Every error is fatal to the run: a
// requested publish that did not land must fail the pipeline, unlike a gate
// skip. The clone directory is removed on return, best effort.
func (p *Publisher) Run(ctx context.Context) error {
	if _, err := os.Stat(p.DocDir); err != nil {
		return fmt.Errorf("generated documentation not found at %s: %w", p.DocDir, err)
	}

	workDir := p.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	cloneDir := filepath.Join(workDir, "docpush-"+uuid.NewString())
	defer os.RemoveAll(cloneDir)

	client, err := gitops.NewClient(p.Auth, p.URL, p.Branch)
	if err != nil {
		return err
	}

	p.Log.Infow("cloning documentation branch", "url", p.URL, "branch", p.Branch)
	if err := client.Clone(ctx, cloneDir); err != nil {
		return err
	}

	if err := client.SetIdentity(p.BotName, p.BotEmail); err != nil {
		return err
	}

	if err := p.replaceSubtree(client.Path()); err != nil {
		return err
	}

	message := fmt.Sprintf("doc upload for %s (%s)", p.Project, p.RepoSlug)
	hash, err := client.CommitAll(message)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		p.Log.Infow("documentation unchanged, nothing to publish", "project", p.Project)
		return nil
	}
	if err != nil {
		return err
	}

	p.Log.Infow("pushing documentation", "branch", p.Branch, "commit", hash)
	if err := client.Push(ctx); err != nil {
		return err
	}

	p.Log.Infow("documentation published", "project", p.Project, "commit", hash)
	return nil
}

// replaceSubtree deletes the project's subtree from the clone and copies the
// generated documentation tree in its place. Only paths under the project
// directory are touched.
func (p *Publisher) replaceSubtree(cloneDir string) error {
	target := filepath.Join(cloneDir, p.Project)

	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove existing subtree %s: %w", p.Project, err)
	}
	if err := copyTree(p.DocDir, target); err != nil {
		return fmt.Errorf("failed to copy documentation into %s: %w", p.Project, err)
	}
	return nil
}
