package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// PublishConfig describes where and how documentation is published. It is
// the committed, non-secret half of the publish setup; the deploy key
// material lives in the environment (see pkg/secrets).
type PublishConfig struct {
	// Project names the subtree of the docs branch owned by this repository.
	Project string `mapstructure:"project" validate:"required"`

	// DocsRepo is the target repository, either an "owner/name" slug on
	// github.com or a full clone URL/path.
	DocsRepo string `mapstructure:"docsRepo" validate:"required"`

	// DocsBranch is the branch documentation is published to.
	DocsBranch string `mapstructure:"docsBranch" validate:"required"`

	// SecretID is interpolated into the names of the decryption-parameter
	// environment variables (encrypted_<id>_key / encrypted_<id>_iv).
	SecretID string `mapstructure:"secretId" validate:"required"`

	// EncryptedKeyFile is the path of the encrypted deploy key inside the
	// repository checkout.
	EncryptedKeyFile string `mapstructure:"encryptedKeyFile" validate:"required"`

	// DocDir is where the external documentation generator left its output.
	DocDir string `mapstructure:"docDir" validate:"required"`

	// ReleaseBranch and Channel are the gate targets: the only source
	// branch and toolchain track publishing is permitted from.
	ReleaseBranch string `mapstructure:"releaseBranch" validate:"required"`
	Channel       string `mapstructure:"channel" validate:"required"`

	// BotName/BotEmail form the commit identity configured locally in the
	// publish clone, so commits are attributable regardless of who ran CI.
	BotName  string `mapstructure:"botName" validate:"required"`
	BotEmail string `mapstructure:"botEmail" validate:"required"`

	// KnownHostsFile optionally pins the remote's host key. When empty the
	// transport accepts any host key, which is the usual CI arrangement.
	KnownHostsFile string `mapstructure:"knownHostsFile"`
}

// DocsRepoURL returns the clone URL for DocsRepo. A bare "owner/name" slug
// is expanded to an SSH URL on github.com; anything that already looks like
// a URL or local path is used verbatim (tests rely on this).
func (c *PublishConfig) DocsRepoURL() string {
	if strings.Contains(c.DocsRepo, "://") || strings.Contains(c.DocsRepo, "@") || strings.HasPrefix(c.DocsRepo, "/") || strings.HasPrefix(c.DocsRepo, ".") {
		return c.DocsRepo
	}
	return fmt.Sprintf("git@github.com:%s.git", c.DocsRepo)
}

// ConfigManager interface
type ConfigManager interface {
	LoadAndValidateConfig() (*PublishConfig, error)
}

// configManager implementation
type configManager struct {
	validator      *validator.Validate
	configFilePath string
}

// NewConfigManager creates a new ConfigManager for the given config file.
func NewConfigManager(completeFilePath string) ConfigManager {
	return &configManager{
		validator:      validator.New(),
		configFilePath: completeFilePath,
	}
}

// LoadAndValidateConfig loads the publish configuration, applies defaults
// and validates the result.
func (cm *configManager) LoadAndValidateConfig() (*PublishConfig, error) {
	v := viper.New()
	v.SetConfigFile(cm.configFilePath)

	v.SetDefault("docsBranch", "gh-pages")
	v.SetDefault("encryptedKeyFile", "master.key.enc")
	v.SetDefault("docDir", "target/doc")
	v.SetDefault("releaseBranch", "master")
	v.SetDefault("channel", "stable")
	v.SetDefault("botName", "doc upload bot")
	v.SetDefault("botEmail", "nobody@example.com")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config PublishConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cm.validator.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
