// Package repository declares storage ports used by the archive service.
package repository

import (
	"context"

	"github.com/and161185/wave-portal/internal/model"
)

// WaveRepository persists archived waves.
type WaveRepository interface {
	// SaveBatch stores waves, skipping ids that already exist, and returns how many were new.
	SaveBatch(ctx context.Context, waves []model.ArchivedWave) (int, error)

	// Recent returns up to limit waves of a contract, newest first.
	Recent(ctx context.Context, contract string, limit int) ([]model.ArchivedWave, error)

	// Latest returns the newest wave of a contract or errs.ErrNotFound.
	Latest(ctx context.Context, contract string) (model.ArchivedWave, error)

	// Count returns the number of archived waves of a contract.
	Count(ctx context.Context, contract string) (int64, error)
}
