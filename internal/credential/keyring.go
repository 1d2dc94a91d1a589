package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"

	"github.com/nhle/companytinder/internal/model"
)

// ServiceName is the keyring service all secrets are filed under.
const ServiceName = "CompanyTinder"

// ErrNotFound is returned by Get when no secret is stored under a key.
var ErrNotFound = errors.New("credential not found")

// defaultBackends is the backend preference order when the config names none.
var defaultBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.SecretServiceBackend,
	keyring.WinCredBackend,
	keyring.PassBackend,
	keyring.FileBackend,
}

// Keyring stores small string secrets by key in the OS keyring.
type Keyring struct {
	ring keyring.Keyring
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// Open returns a Keyring backed by the first available OS backend.
func Open(cfg model.KeyringConfig) (*Keyring, error) {
	backends := defaultBackends
	if len(cfg.Backends) > 0 {
		backends = make([]keyring.BackendType, 0, len(cfg.Backends))
		for _, b := range cfg.Backends {
			backends = append(backends, keyring.BackendType(b))
		}
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          backends,
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("companytinder-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// Get retrieves a secret by key. It returns ErrNotFound when the key
// holds nothing.
func (k *Keyring) Get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a secret by key, replacing any previous value.
func (k *Keyring) Set(key string, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: ServiceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a secret by key. Deleting a missing key is not an error.
func (k *Keyring) Delete(key string) error {
	err := k.ring.Remove(key)
	// The file backend reports a missing key as the bare os.Remove error.
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
