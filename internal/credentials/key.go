// Package credentials manages the service-account key lifecycle: loading,
// schema validation, protected in-memory storage, and the temporary key file
// that is removed on every exit path.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/awnumar/memguard"

	steperrors "github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/errors"
)

// Key holds validated service-account key material. The raw JSON lives in a
// memguard enclave, encrypted at rest in memory and protected from swapping.
type Key struct {
	enclave *memguard.Enclave

	// Identity fields parsed once at load time so callers can log which
	// account is in use without reopening the enclave.
	ClientEmail string
	ProjectID   string

	mu        sync.Mutex
	tempPath  string
	destroyed bool
}

// keyIdentity is the non-secret subset of the key file.
type keyIdentity struct {
	ClientEmail string `json:"client_email"`
	ProjectID   string `json:"project_id"`
}

// Resolve loads a key from the step input, which may be a filesystem path, a
// file:// URL (the Bitrise generic-file-storage convention), or the raw JSON
// document itself.
func Resolve(input string) (*Key, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, steperrors.InputError{
			Input:      "service_account_json_key_path",
			Message:    "no service account key provided",
			Suggestion: "Point the input at the JSON key file, or supply the key content directly",
		}
	}

	if strings.HasPrefix(trimmed, "{") {
		return FromJSON([]byte(trimmed))
	}

	path := strings.TrimPrefix(trimmed, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, steperrors.UserError{
			Message:    fmt.Sprintf("Failed to read service account key at %s", path),
			Details:    err.Error(),
			Suggestion: "Check the path and file permissions",
			Err:        err,
		}
	}
	return FromJSON(data)
}

// FromJSON validates raw key material and seals it in a protected buffer.
// The caller retains ownership of data and should zero it when possible.
func FromJSON(data []byte) (*Key, error) {
	if err := ValidateServiceAccountJSON(data); err != nil {
		return nil, err
	}

	var identity keyIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to parse key identity: %w", err)
	}

	return &Key{
		enclave:     memguard.NewEnclave(data),
		ClientEmail: identity.ClientEmail,
		ProjectID:   identity.ProjectID,
	}, nil
}

// Materialize writes the key to a 0600 temp file under dir (or the system
// temp dir when dir is empty) and returns its path. The file is tracked and
// removed by Close.
func (k *Key) Materialize(dir string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return "", fmt.Errorf("credentials key has been destroyed")
	}
	if k.tempPath != "" {
		return k.tempPath, nil
	}

	locked, err := k.enclave.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open key material: %w", err)
	}
	defer locked.Destroy()

	f, err := os.CreateTemp(dir, "service-account-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create credentials file: %w", err)
	}

	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to restrict credentials file permissions: %w", err)
	}

	if _, err := f.Write(locked.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to close credentials file: %w", err)
	}

	k.tempPath = f.Name()
	return k.tempPath, nil
}

// Path returns the materialized temp file path, or empty if none exists.
func (k *Key) Path() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tempPath
}

// Close removes the materialized key file and marks the key destroyed.
// It is idempotent and safe to defer immediately after Resolve, which is how
// the check command guarantees cleanup on failure paths.
func (k *Key) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return nil
	}
	k.destroyed = true
	k.enclave = nil

	if k.tempPath == "" {
		return nil
	}

	path := k.tempPath
	k.tempPath = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file %s: %w", filepath.Base(path), err)
	}
	return nil
}
