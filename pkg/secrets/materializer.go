// Package secrets turns the at-rest encrypted deploy key into a usable
// credential file for the duration of one run.
//
// The ciphertext is produced ahead of time with
//
//	openssl aes-256-cbc -K <hex key> -iv <hex iv> -in deploy_key -out master.key.enc
//
// and the matching key/iv pair is injected by the CI system under variable
// names derived from a per-repository secret id. Decryption here is
// byte-compatible with `openssl aes-256-cbc -d` for the same parameters.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/margo/docpush/pkg/types"
)

const (
	keySize = 32 // AES-256
	ivSize  = aes.BlockSize

	// keyFileMode restricts the materialized key to its owner. SSH refuses
	// group/other-readable identity files, and nothing else may see it.
	keyFileMode = os.FileMode(0600)
)

// KeyVarName and IVVarName build the environment variable names holding the
// decryption parameters for the given secret id. The names are constructed
// explicitly rather than discovered by scanning the environment.
func KeyVarName(secretID string) string { return fmt.Sprintf("encrypted_%s_key", secretID) }
func IVVarName(secretID string) string  { return fmt.Sprintf("encrypted_%s_iv", secretID) }

// Materializer decrypts one encrypted deploy key to a file.
type Materializer struct {
	// SecretID selects the key/iv environment variable pair.
	SecretID string

	// Lookup resolves environment values; defaults to os.LookupEnv.
	Lookup types.LookupFunc
}

// Materialize decrypts encryptedFile into destFile and restricts the result
// to owner read/write before returning. Every failure is fatal to the run:
// the caller must not attempt a publish with partial credential state.
//
// Error messages name the failing stage only; neither the key, the iv nor
// the plaintext ever appears in an error or a log line.
func (m Materializer) Materialize(encryptedFile, destFile string) error {
	lookup := m.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	key, err := resolveHexParam(lookup, KeyVarName(m.SecretID), keySize)
	if err != nil {
		return err
	}
	iv, err := resolveHexParam(lookup, IVVarName(m.SecretID), ivSize)
	if err != nil {
		return err
	}

	ciphertext, err := os.ReadFile(encryptedFile)
	if err != nil {
		return fmt.Errorf("failed to read encrypted credential %s: %w", encryptedFile, err)
	}

	plaintext, err := decryptAESCBC(ciphertext, key, iv)
	if err != nil {
		return fmt.Errorf("failed to decrypt credential %s: %w", encryptedFile, err)
	}

	if err := os.MkdirAll(filepath.Dir(destFile), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := os.WriteFile(destFile, plaintext, keyFileMode); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	// WriteFile's mode is masked by the umask and ignored entirely when the
	// file already existed, so the permission bits are enforced separately.
	if err := os.Chmod(destFile, keyFileMode); err != nil {
		return fmt.Errorf("failed to restrict credential file permissions: %w", err)
	}

	return nil
}

// resolveHexParam reads one hex-encoded decryption parameter and enforces
// its decoded length.
func resolveHexParam(lookup types.LookupFunc, name string, wantLen int) ([]byte, error) {
	raw, ok := lookup(name)
	if !ok || raw == "" {
		return nil, fmt.Errorf("decryption parameter %s is not set", name)
	}
	val, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decryption parameter %s is not valid hex", name)
	}
	if len(val) != wantLen {
		return nil, fmt.Errorf("decryption parameter %s has wrong length (want %d bytes)", name, wantLen)
	}
	return val, nil
}

// decryptAESCBC decrypts an AES-256-CBC ciphertext and strips its PKCS#7
// padding. A padding error almost always means a wrong key or iv.
func decryptAESCBC(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of the block size", len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return stripPKCS7(plaintext)
}

func stripPKCS7(data []byte) ([]byte, error) {
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return nil, fmt.Errorf("invalid padding (wrong key or iv?)")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("invalid padding (wrong key or iv?)")
		}
	}
	return data[:len(data)-pad], nil
}
