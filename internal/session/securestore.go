package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/cryptox"
	"github.com/pawkeeper/mobilesession/internal/logging"
	"github.com/pawkeeper/mobilesession/internal/storage"
)

// TokenStore persists the current token set at rest. Implementations must
// be safe to call before any session exists.
type TokenStore interface {
	// Load returns the stored tokens, or (nil, nil) when none are stored.
	Load(ctx context.Context) (*AuthTokens, error)

	// Store overwrites the stored token set.
	Store(ctx context.Context, tokens *AuthTokens) error

	// Clear erases the stored token set. Clearing an empty store is fine.
	Clear(ctx context.Context) error
}

// sealedBlob is the on-disk envelope of the encrypted token set.
type sealedBlob struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// EncryptedTokenStore keeps the token set AES-GCM-encrypted in the durable
// KV store, keyed by a device secret and the per-install salt. An
// unreadable blob (tampering, secret rotation) is treated as absent, never
// as fatal.
type EncryptedTokenStore struct {
	kv     storage.KV
	secret []byte
	log    logging.Logger

	mu  sync.Mutex
	key []byte
}

func NewEncryptedTokenStore(kv storage.KV, deviceSecret []byte, log logging.Logger) *EncryptedTokenStore {
	return &EncryptedTokenStore{kv: kv, secret: deviceSecret, log: log}
}

// ensureKey derives the store key lazily. The salt is the installation id,
// minted once per install and cached in the KV store.
func (s *EncryptedTokenStore) ensureKey(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	salt, err := s.kv.GetItem(ctx, common.KeyInstallationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	if salt == nil {
		salt = []byte(uuid.NewString())
		if err := s.kv.SetItem(ctx, common.KeyInstallationID, salt); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
		}
	}

	s.key = cryptox.DeriveKey(s.secret, salt)
	return s.key, nil
}

func (s *EncryptedTokenStore) Load(ctx context.Context) (*AuthTokens, error) {
	raw, err := s.kv.GetItem(ctx, common.KeySecureTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	if raw == nil {
		return nil, nil
	}

	key, err := s.ensureKey(ctx)
	if err != nil {
		return nil, err
	}

	var blob sealedBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		s.log.Warn(ctx, "secure token blob unreadable, treating as absent", "err", err)
		return nil, nil
	}

	var tokens AuthTokens
	if err := cryptox.OpenValue(blob.Ciphertext, blob.Nonce, key, &tokens); err != nil {
		s.log.Warn(ctx, "secure token blob failed decryption, treating as absent", "err", err)
		return nil, nil
	}
	return &tokens, nil
}

func (s *EncryptedTokenStore) Store(ctx context.Context, tokens *AuthTokens) error {
	key, err := s.ensureKey(ctx)
	if err != nil {
		return err
	}

	ciphertext, nonce, err := cryptox.SealValue(tokens, key)
	if err != nil {
		return fmt.Errorf("failed to seal tokens: %w", err)
	}

	raw, err := json.Marshal(sealedBlob{Nonce: nonce, Ciphertext: ciphertext})
	if err != nil {
		return err
	}
	if err := s.kv.SetItem(ctx, common.KeySecureTokens, raw); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *EncryptedTokenStore) Clear(ctx context.Context) error {
	if err := s.kv.RemoveItem(ctx, common.KeySecureTokens); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}
