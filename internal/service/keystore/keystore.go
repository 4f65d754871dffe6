package keystore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"DripView/pkg/cache"
)

const (
	MinKeyLength = 20

	hkdfInfo = "rapidapiKey"
	keySize  = 32 // AES-256
	ivSize   = 12
)

var (
	ErrKeyNotSet           = errors.New("keystore: provider key not set")
	ErrMisconfiguredSecret = errors.New("keystore: server secret not configured")
	ErrInvalidKey          = errors.New("keystore: invalid provider key")
)

// record is the stored form of an encrypted key.
type record struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
}

// Store keeps each user's provider key encrypted with a per-user key
// derived from the server secret.
type Store struct {
	secret []byte
	cache  cache.Service
}

func New(secret string, c cache.Service) *Store {
	return &Store{secret: []byte(secret), cache: c}
}

// Key returns the storage key for userID.
func Key(userID string) string {
	return "user:" + userID + ":rapidapiKey"
}

// Save encrypts key for userID, replacing any previous value.
func (s *Store) Save(ctx context.Context, userID, key string) error {
	key = strings.TrimSpace(key)
	if len(key) < MinKeyLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidKey, MinKeyLength)
	}
	gcm, err := s.aead(userID)
	if err != nil {
		return err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return fmt.Errorf("generate iv: %w", err)
	}
	ct := gcm.Seal(nil, iv, []byte(key), nil)

	rec := record{
		IV:         base64.StdEncoding.EncodeToString(iv),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}
	if err := s.cache.Set(ctx, Key(userID), rec, 0); err != nil {
		return fmt.Errorf("store key: %w", err)
	}
	return nil
}

// Get returns the decrypted key. A record that no longer decrypts (secret
// rotated, corrupted) reads as ErrKeyNotSet.
func (s *Store) Get(ctx context.Context, userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMisconfiguredSecret
	}
	rec, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}

	iv, err := base64.StdEncoding.DecodeString(rec.IV)
	if err != nil || len(iv) != ivSize {
		return "", ErrKeyNotSet
	}
	ct, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return "", ErrKeyNotSet
	}
	gcm, err := s.aead(userID)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, iv, ct, nil)
	if err != nil {
		return "", ErrKeyNotSet
	}
	return string(plain), nil
}

// HasKey reports whether a non-empty record exists. It does not decrypt.
func (s *Store) HasKey(ctx context.Context, userID string) (bool, error) {
	rec, err := s.load(ctx, userID)
	if errors.Is(err, ErrKeyNotSet) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Ciphertext != "", nil
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.cache.Delete(ctx, Key(userID)); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, userID string) (*record, error) {
	var rec record
	if err := s.cache.Get(ctx, Key(userID), &rec); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrKeyNotSet
		}
		return nil, fmt.Errorf("load key: %w", err)
	}
	return &rec, nil
}

// aead derives the user's AES-256-GCM cipher:
// HKDF-SHA256(secret, salt=userID, info="rapidapiKey").
func (s *Store) aead(userID string) (cipher.AEAD, error) {
	if len(s.secret) == 0 {
		return nil, ErrMisconfiguredSecret
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.secret, []byte(userID), []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
