package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the credential record as a JSON blob in the OS-native
// credential storage (macOS Keychain, Windows Credential Manager, Linux
// Secret Service).
type KeyringStore struct {
	service string
	user    string

	mu sync.Mutex
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore using the given service and user
// identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Load returns the stored record. A missing keyring entry yields the zero
// Record; other failures are logged and degrade to the zero Record.
func (k *KeyringStore) Load(ctx context.Context) Record {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.load(ctx)
}

// Save persists the record best-effort.
func (k *KeyringStore) Save(ctx context.Context, rec Record) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.save(ctx, rec)
}

// Update merges the partial into the stored record, persists and returns
// the merged result.
func (k *KeyringStore) Update(ctx context.Context, p Partial) Record {
	k.mu.Lock()
	defer k.mu.Unlock()

	merged := p.Apply(k.load(ctx))
	k.save(ctx, merged)
	return merged
}

func (k *KeyringStore) load(ctx context.Context) Record {
	data, err := keyring.Get(k.service, k.user)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to read credentials from keyring", "service", k.service, "error", err)
		}
		return Record{}
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		slog.ErrorContext(ctx, "failed to parse credentials from keyring", "service", k.service, "error", err)
		return Record{}
	}
	return rec
}

func (k *KeyringStore) save(ctx context.Context, rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode credentials", "error", err)
		return
	}
	if err := keyring.Set(k.service, k.user, string(data)); err != nil {
		slog.ErrorContext(ctx, "failed to persist credentials to keyring", "service", k.service, "error", err)
	}
}
