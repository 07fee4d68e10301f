// Package gate decides whether a documentation publish should happen at all.
//
// The decision is expressed as a value rather than by aborting the process,
// so "skip" stays an ordinary, testable outcome: a publish that is skipped
// by the gate still exits zero, because not being the canonical run to
// publish from is not a failure of the build.
package gate

import (
	"fmt"

	"github.com/margo/docpush/pkg/types"
)

// Decision is the gate's verdict for one run.
type Decision struct {
	proceed bool

	// Reason explains a skip in human-readable form. Empty on proceed.
	Reason string
}

// Proceed reports whether publishing should go ahead.
func (d Decision) Proceed() bool { return d.proceed }

func proceed() Decision           { return Decision{proceed: true} }
func skip(reason string) Decision { return Decision{Reason: reason} }

// PullRequestFalse is the only pull-request indicator value that permits
// publishing. Anything else, including unset, is handled as a pull-request
// build so forks can never trigger an upload.
const PullRequestFalse = "false"

// Config holds the gate targets: the one branch and toolchain channel a
// publish is permitted from.
type Config struct {
	ReleaseBranch string
	Channel       string
}

// Evaluate checks the run context against the gate config. Conditions are
// evaluated in order and the first unmet one short-circuits into a skip;
// unknown channel values skip like any other mismatch, they are not errors.
func Evaluate(rc types.RunContext, cfg Config) Decision {
	if rc.Branch != cfg.ReleaseBranch {
		return skip(fmt.Sprintf("branch %q is not the release branch %q", rc.Branch, cfg.ReleaseBranch))
	}
	if rc.PullRequest != PullRequestFalse {
		return skip(fmt.Sprintf("run is a pull request build (indicator %q)", rc.PullRequest))
	}
	if rc.Channel != cfg.Channel {
		return skip(fmt.Sprintf("toolchain channel %q is not the publish channel %q", rc.Channel, cfg.Channel))
	}
	return proceed()
}
