package usecase

import (
	"context"

	domrepo "DripView/internal/domain/repository"
)

// KeysUseCase manages the caller's stored provider key.
type KeysUseCase struct {
	store domrepo.KeyStore
}

func NewKeysUseCase(store domrepo.KeyStore) *KeysUseCase {
	return &KeysUseCase{store: store}
}

func (uc *KeysUseCase) Save(ctx context.Context, userID, key string) error {
	return uc.store.Save(ctx, userID, key)
}

func (uc *KeysUseCase) Status(ctx context.Context, userID string) (bool, error) {
	return uc.store.HasKey(ctx, userID)
}

func (uc *KeysUseCase) Delete(ctx context.Context, userID string) error {
	return uc.store.Delete(ctx, userID)
}

// Resolve returns the decrypted key used for provider calls.
func (uc *KeysUseCase) Resolve(ctx context.Context, userID string) (string, error) {
	return uc.store.Get(ctx, userID)
}
