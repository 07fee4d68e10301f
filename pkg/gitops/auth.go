package gitops

import (
	"fmt"

	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	cryptossh "golang.org/x/crypto/ssh"
)

// Auth holds the credentials used to reach the documentation repository.
//
// Publishing authenticates over SSH with a deploy key that pkg/secrets
// materialized for this run; HTTPS tokens are deliberately not supported
// here because the encrypted credential the pipeline carries is a private
// key.
type Auth struct {
	// User is the SSH user, "git" for the common hosting services.
	User string

	// PrivateKeyFile is the path of the decrypted deploy key.
	PrivateKeyFile string

	// KnownHostsFile optionally pins the remote host key. When empty, any
	// host key is accepted — CI workers start with an empty known_hosts and
	// the deploy key is scoped to a single docs repository.
	KnownHostsFile string
}

// Method builds the go-git transport auth method for this credential.
func (a *Auth) Method() (*gitssh.PublicKeys, error) {
	user := a.User
	if user == "" {
		user = "git"
	}

	keys, err := gitssh.NewPublicKeysFromFile(user, a.PrivateKeyFile, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load ssh key %s: %w", a.PrivateKeyFile, err)
	}

	if a.KnownHostsFile != "" {
		callback, err := gitssh.NewKnownHostsCallback(a.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", a.KnownHostsFile, err)
		}
		keys.HostKeyCallback = callback
	} else {
		keys.HostKeyCallback = cryptossh.InsecureIgnoreHostKey()
	}

	return keys, nil
}
