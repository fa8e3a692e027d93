// Package service contains the archive use cases on top of the contract gateway and storage.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/and161185/wave-portal/internal/convert"
	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/limiter"
	"github.com/and161185/wave-portal/internal/model"
	"github.com/and161185/wave-portal/internal/repository"
)

// Source is the read side of the contract. *contract.Gateway implements it.
type Source interface {
	Address() common.Address
	History(ctx context.Context) ([]model.WaveEntry, error)
	Subscribe(ctx context.Context, onNewEntry func(model.WaveEntry)) (event.Subscription, error)
}

// Health receives the archiver's liveness.
type Health interface {
	SetServing(serving bool)
}

// ArchiveService mirrors every wave of one contract into a repository.
type ArchiveService struct {
	src      Source
	repo     repository.WaveRepository
	lim      limiter.Limiter
	health   Health
	log      *zap.Logger
	maxBatch int
}

// NewArchiveService constructs the service. maxBatch <= 0 selects 500.
func NewArchiveService(src Source, repo repository.WaveRepository, lim limiter.Limiter, health Health, log *zap.Logger, maxBatch int) *ArchiveService {
	if maxBatch <= 0 {
		maxBatch = 500
	}
	return &ArchiveService{src: src, repo: repo, lim: lim, health: health, log: log, maxBatch: maxBatch}
}

func (s *ArchiveService) contract() string { return s.src.Address().Hex() }

// Backfill stores the full on-chain history and returns how many waves were new.
func (s *ArchiveService) Backfill(ctx context.Context) (int, error) {
	if last, err := s.repo.Latest(ctx, s.contract()); err == nil {
		s.log.Info("resuming archive", zap.Time("last_submitted_at", last.SubmittedAt))
	} else if !errors.Is(err, errs.ErrNotFound) {
		return 0, fmt.Errorf("latest: %w", err)
	}

	entries, err := s.src.History(ctx)
	if err != nil {
		return 0, err
	}
	rows := convert.ToArchivedBatch(s.src.Address(), entries)
	total := 0
	for _, chunk := range lo.Chunk(rows, s.maxBatch) {
		n, err := s.repo.SaveBatch(ctx, chunk)
		if err != nil {
			return total, fmt.Errorf("save batch: %w", err)
		}
		total += n
	}
	s.log.Info("backfill done", zap.Int("on_chain", len(entries)), zap.Int("new", total))
	return total, nil
}

// Run subscribes, backfills and then stores live events until ctx is cancelled. A dropped
// subscription marks the service not serving, waits on the limiter, and starts over so no wave
// emitted during the gap is lost.
func (s *ArchiveService) Run(ctx context.Context) error {
	defer s.health.SetServing(false)
	for {
		if err := s.lim.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		err := s.follow(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.health.SetServing(false)
		s.log.Warn("archive interrupted, retrying", zap.Error(err))
	}
}

func (s *ArchiveService) follow(ctx context.Context) error {
	// Subscribe before taking the snapshot: a wave mined in between is then buffered in live
	// and stored after the backfill. Duplicates collapse on the content id.
	live := make(chan model.WaveEntry, 256)
	done := make(chan struct{})
	sub, err := s.src.Subscribe(ctx, func(e model.WaveEntry) {
		select {
		case live <- e:
		case <-done:
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	defer close(done)

	if _, err := s.Backfill(ctx); err != nil {
		return err
	}

	s.health.SetServing(true)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil {
				err = fmt.Errorf("%w: subscription closed", errs.ErrChainCallFailed)
			}
			return err
		case e := <-live:
			s.store(ctx, e)
		}
	}
}

func (s *ArchiveService) store(ctx context.Context, e model.WaveEntry) {
	w := convert.ToArchived(s.src.Address(), e)
	n, err := s.repo.SaveBatch(ctx, []model.ArchivedWave{w})
	if err != nil {
		// The next backfill picks it up.
		s.log.Warn("store live wave", zap.String("id", w.ID.String()), zap.Error(err))
		return
	}
	s.log.Info("archived wave",
		zap.String("id", w.ID.String()),
		zap.String("author", string(w.Author)),
		zap.Bool("new", n > 0),
	)
}

// Recent returns up to limit archived waves, newest first. limit is clamped to [1, 1000].
func (s *ArchiveService) Recent(ctx context.Context, limit int) ([]model.ArchivedWave, error) {
	limit = max(1, min(limit, 1000))
	return s.repo.Recent(ctx, s.contract(), limit)
}

// Count returns the number of archived waves.
func (s *ArchiveService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.contract())
}
