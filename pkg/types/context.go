package types

// LookupFunc resolves a named environment value. It matches the signature of
// os.LookupEnv so tests can substitute a map-backed lookup.
type LookupFunc func(name string) (string, bool)

// Environment variable names consumed by the run context. They are read
// exactly once at startup; nothing re-reads the environment mid-run.
const (
	EnvBranch      = "CI_BRANCH"
	EnvPullRequest = "CI_PULL_REQUEST"
	EnvChannel     = "TOOLCHAIN_CHANNEL"
	EnvRepoSlug    = "CI_REPO_SLUG"
)

// RunContext captures the facts about the surrounding CI run that the gate
// and the publisher need. It is built once from the environment and treated
// as an immutable record afterwards.
type RunContext struct {
	// Branch is the source branch the build ran against, e.g. "master".
	Branch string

	// PullRequest is the raw pull-request indicator from the CI system.
	// Publishing requires the literal string "false"; every other value,
	// including empty/unset, is treated as a pull-request build.
	PullRequest string

	// Channel is the toolchain release track the build used, e.g. "stable".
	Channel string

	// RepoSlug identifies the originating repository ("owner/name") and is
	// embedded in the publish commit message for traceability.
	RepoSlug string
}

// NewRunContext reads the run context from the given lookup function.
// Missing variables become empty strings; the gate decides what that means.
func NewRunContext(lookup LookupFunc) RunContext {
	get := func(name string) string {
		v, _ := lookup(name)
		return v
	}
	return RunContext{
		Branch:      get(EnvBranch),
		PullRequest: get(EnvPullRequest),
		Channel:     get(EnvChannel),
		RepoSlug:    get(EnvRepoSlug),
	}
}
