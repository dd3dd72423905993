package service

import (
	"context"

	"github.com/aidar/rookie-board/internal/aggregator"
	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/repository"
)

// LeaderboardCache memoizes computed leaderboards
type LeaderboardCache interface {
	Get(key string) ([]aggregator.LeaderboardEntry, bool)
	Generation() uint64
	SetIfUnchanged(key string, value []aggregator.LeaderboardEntry, gen uint64) bool
	Invalidate(key string) int
}

// LeaderboardService serves the ranked rookie list
type LeaderboardService struct {
	memberRepo repository.MemberRepository
	txRepo     repository.TransactionRepository
	cache      LeaderboardCache
}

// NewLeaderboardService creates a new LeaderboardService
func NewLeaderboardService(
	memberRepo repository.MemberRepository,
	txRepo repository.TransactionRepository,
	cache LeaderboardCache,
) *LeaderboardService {
	return &LeaderboardService{
		memberRepo: memberRepo,
		txRepo:     txRepo,
		cache:      cache,
	}
}

// Get returns the leaderboard with the row of viewerSubject flagged.
// The shared cached slice is never modified. A result computed while an award
// was being written is returned to this caller but not cached.
func (s *LeaderboardService) Get(ctx context.Context, viewerSubject string) ([]aggregator.LeaderboardEntry, error) {
	gen := s.cache.Generation()
	entries, ok := s.cache.Get(LeaderboardCacheKey)
	if !ok {
		var err error
		entries, err = s.compute(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.SetIfUnchanged(LeaderboardCacheKey, entries, gen)
	}

	return aggregator.MarkViewer(entries, viewerSubject), nil
}

func (s *LeaderboardService) compute(ctx context.Context) ([]aggregator.LeaderboardEntry, error) {
	role := domain.RoleRookie
	rookies, err := s.memberRepo.List(ctx, domain.MemberFilter{Role: &role})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(rookies))
	for i, m := range rookies {
		ids[i] = m.ID
	}

	var txs []*domain.Transaction
	if len(ids) > 0 {
		txs, err = s.txRepo.ListByMembers(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	return aggregator.Leaderboard(rookies, txs), nil
}
