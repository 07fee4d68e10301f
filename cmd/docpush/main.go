// docpush is a post-build CI step: after the build, tests and documentation
// generation succeed, it publishes the generated docs to a dedicated branch
// of a documentation repository — but only from the designated release
// branch, non-pull-request builds, and the canonical toolchain channel.
//
// A gate skip exits 0 (the build must not fail just because this run was
// not the one to publish from); credential or publish failures exit 1.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kr/pretty"
	"go.uber.org/zap"

	"github.com/margo/docpush/pkg/gate"
	"github.com/margo/docpush/pkg/gitops"
	"github.com/margo/docpush/pkg/publish"
	"github.com/margo/docpush/pkg/secrets"
	"github.com/margo/docpush/pkg/types"
)

func main() {
	configPath := flag.String(
		"config",
		"doc-upload.yaml",
		"Path to the YAML publish configuration file",
	)
	workDir := flag.String(
		"workdir",
		"",
		"Directory for the temporary publish clone (defaults to the system temp dir)",
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nDocumentation publish bot\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}

	err = run(logger.Sugar(), *configPath, *workDir)
	if err != nil {
		logger.Sugar().Errorw("doc upload failed", "error", err)
	}
	// Flush before the exit-code decision: os.Exit does not run defers.
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run executes the full sequence: config → run context → gate → credential →
// publish. The ordering is load-bearing: the gate is fully resolved before
// any credential material is touched, and the credential is materialized
// (and permission-restricted) before any network operation starts.
func run(logger *zap.SugaredLogger, configPath, workDir string) error {
	cfg, err := types.NewConfigManager(configPath).LoadAndValidateConfig()
	if err != nil {
		return err
	}

	runCtx := types.NewRunContext(os.LookupEnv)
	logger.Debugw("run context", "context", pretty.Sprint(runCtx))

	decision := gate.Evaluate(runCtx, gate.Config{
		ReleaseBranch: cfg.ReleaseBranch,
		Channel:       cfg.Channel,
	})
	if !decision.Proceed() {
		logger.Infow("skipping doc upload", "reason", decision.Reason)
		return nil
	}
	logger.Infow("doc upload gate passed",
		"branch", runCtx.Branch,
		"channel", runCtx.Channel,
		"repoSlug", runCtx.RepoSlug,
	)

	keyFile, err := deployKeyPath()
	if err != nil {
		return err
	}
	materializer := secrets.Materializer{SecretID: cfg.SecretID}
	if err := materializer.Materialize(cfg.EncryptedKeyFile, keyFile); err != nil {
		return err
	}
	defer os.Remove(keyFile)

	publisher := &publish.Publisher{
		URL:      cfg.DocsRepoURL(),
		Branch:   cfg.DocsBranch,
		Project:  cfg.Project,
		RepoSlug: runCtx.RepoSlug,
		DocDir:   cfg.DocDir,
		WorkDir:  workDir,
		BotName:  cfg.BotName,
		BotEmail: cfg.BotEmail,
		Auth: &gitops.Auth{
			User:           "git",
			PrivateKeyFile: keyFile,
			KnownHostsFile: cfg.KnownHostsFile,
		},
		Log: logger,
	}

	return publisher.Run(context.Background())
}

// deployKeyPath places the decrypted key under the user's ssh directory,
// mirroring where the encrypted credential workflow expects it.
func deployKeyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ssh", "docpush_deploy_key"), nil
}
