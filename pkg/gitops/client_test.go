package gitops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goGit "github.com/go-git/go-git/v5"
	goGitConfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	goGitObject "github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignature() *goGitObject.Signature {
	return &goGitObject.Signature{
		Name:  "seed",
		Email: "seed@example.com",
		When:  time.Now(),
	}
}

// seedRemote creates a bare repository with one commit on master containing
// the given files, plus an extra "unrelated" branch at the same commit.
func seedRemote(t *testing.T, files map[string]string) string {
	t.Helper()

	bareDir := t.TempDir()
	_, err := goGit.PlainInit(bareDir, true)
	require.NoError(t, err)

	srcDir := t.TempDir()
	repo, err := goGit.PlainInit(srcDir, false)
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	for path, content := range files {
		full := filepath.Join(srcDir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	require.NoError(t, worktree.AddWithOptions(&goGit.AddOptions{All: true}))

	hash, err := worktree.Commit("seed commit", &goGit.CommitOptions{Author: testSignature()})
	require.NoError(t, err)

	err = repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("unrelated"), hash))
	require.NoError(t, err)

	_, err = repo.CreateRemote(&goGitConfig.RemoteConfig{Name: "origin", URLs: []string{bareDir}})
	require.NoError(t, err)
	err = repo.Push(&goGit.PushOptions{RefSpecs: []goGitConfig.RefSpec{
		"refs/heads/master:refs/heads/master",
		"refs/heads/unrelated:refs/heads/unrelated",
	}})
	require.NoError(t, err)

	return bareDir
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil, "", "master")
	require.Error(t, err)

	_, err = NewClient(nil, "/some/remote", "")
	require.Error(t, err)

	client, err := NewClient(nil, "/some/remote", "master")
	require.NoError(t, err)
	assert.Empty(t, client.Path())
}

func TestCloneFetchesOnlyTargetBranch(t *testing.T) {
	remote := seedRemote(t, map[string]string{"index.html": "<html/>"})

	client, err := NewClient(nil, remote, "master")
	require.NoError(t, err)

	cloneDir := filepath.Join(t.TempDir(), "clone")
	require.NoError(t, client.Clone(context.Background(), cloneDir))
	assert.Equal(t, cloneDir, client.Path())

	_, err = os.Stat(filepath.Join(cloneDir, "index.html"))
	require.NoError(t, err)

	// The unrelated branch must not have been fetched.
	_, err = client.repo.Reference(plumbing.NewRemoteReferenceName("origin", "unrelated"), true)
	require.Error(t, err)
}

func TestOperationsRequireClone(t *testing.T) {
	client, err := NewClient(nil, "/some/remote", "master")
	require.NoError(t, err)

	require.Error(t, client.SetIdentity("bot", "bot@example.com"))

	_, err = client.CommitAll("msg")
	require.Error(t, err)

	require.Error(t, client.Push(context.Background()))
}

func TestSetIdentityIsLocalToClone(t *testing.T) {
	remote := seedRemote(t, map[string]string{"index.html": "<html/>"})

	client, err := NewClient(nil, remote, "master")
	require.NoError(t, err)
	require.NoError(t, client.Clone(context.Background(), filepath.Join(t.TempDir(), "clone")))

	require.NoError(t, client.SetIdentity("doc upload bot", "nobody@example.com"))

	cfg, err := client.repo.Config()
	require.NoError(t, err)
	assert.Equal(t, "doc upload bot", cfg.User.Name)
	assert.Equal(t, "nobody@example.com", cfg.User.Email)
}

func TestCommitAllRequiresIdentity(t *testing.T) {
	remote := seedRemote(t, map[string]string{"index.html": "<html/>"})

	client, err := NewClient(nil, remote, "master")
	require.NoError(t, err)
	require.NoError(t, client.Clone(context.Background(), filepath.Join(t.TempDir(), "clone")))

	_, err = client.CommitAll("msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity")
}

func TestCommitAllNothingToCommit(t *testing.T) {
	remote := seedRemote(t, map[string]string{"index.html": "<html/>"})

	client, err := NewClient(nil, remote, "master")
	require.NoError(t, err)
	require.NoError(t, client.Clone(context.Background(), filepath.Join(t.TempDir(), "clone")))
	require.NoError(t, client.SetIdentity("doc upload bot", "nobody@example.com"))

	_, err = client.CommitAll("nothing changed")
	require.ErrorIs(t, err, ErrNothingToCommit)
}

func TestCommitAllAndPush(t *testing.T) {
	remote := seedRemote(t, map[string]string{"index.html": "<html/>"})

	client, err := NewClient(nil, remote, "master")
	require.NoError(t, err)
	require.NoError(t, client.Clone(context.Background(), filepath.Join(t.TempDir(), "clone")))
	require.NoError(t, client.SetIdentity("doc upload bot", "nobody@example.com"))

	// One modification, one addition, one deletion.
	require.NoError(t, os.WriteFile(filepath.Join(client.Path(), "index.html"), []byte("<html>v2</html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(client.Path(), "new.html"), []byte("<html/>"), 0644))

	hash, err := client.CommitAll("doc upload for myproject (owner/repo)")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	require.NoError(t, client.Push(context.Background()))

	bare, err := goGit.PlainOpen(remote)
	require.NoError(t, err)
	ref, err := bare.Reference(plumbing.NewBranchReferenceName("master"), true)
	require.NoError(t, err)
	assert.Equal(t, hash, ref.Hash().String())

	commit, err := bare.CommitObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, "doc upload for myproject (owner/repo)", commit.Message)
	assert.Equal(t, "doc upload bot", commit.Author.Name)
	assert.Equal(t, "nobody@example.com", commit.Author.Email)
}

func TestPushUpToDateIsNotAnError(t *testing.T) {
	remote := seedRemote(t, map[string]string{"index.html": "<html/>"})

	client, err := NewClient(nil, remote, "master")
	require.NoError(t, err)
	require.NoError(t, client.Clone(context.Background(), filepath.Join(t.TempDir(), "clone")))

	require.NoError(t, client.Push(context.Background()))
}

func TestAuthMethodMissingKeyFile(t *testing.T) {
	auth := &Auth{PrivateKeyFile: filepath.Join(t.TempDir(), "missing_key")}
	_, err := auth.Method()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load ssh key")
}
