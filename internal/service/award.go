package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/repository"
)

const (
	// LeaderboardCacheKey is the cache namespace invalidated by every award
	LeaderboardCacheKey = "leaderboard"

	maxDescriptionLength = 500
)

// Invalidator drops cached entries by key prefix
type Invalidator interface {
	Invalidate(key string) int
}

// AwardRecorder counts award outcomes
type AwardRecorder interface {
	RecordAward(outcome string, points int)
}

type nopAwardRecorder struct{}

func (nopAwardRecorder) RecordAward(string, int) {}

// AwardRequest is a request to give the same amount to several members
type AwardRequest struct {
	MemberIDs      []string `json:"member_ids"`
	Amount         int      `json:"amount"`
	Description    string   `json:"description"`
	IdempotencyKey string   `json:"-"`
}

// AwardResult reports how many beneficiaries were affected
type AwardResult struct {
	Count    int  `json:"count"`
	Replayed bool `json:"replayed"`
}

// AwardService records point transactions
type AwardService struct {
	memberRepo repository.MemberRepository
	txRepo     repository.TransactionRepository
	cache      Invalidator
	logger     *slog.Logger
	recorder   AwardRecorder
}

// NewAwardService creates a new AwardService. A nil recorder disables award metrics.
func NewAwardService(
	memberRepo repository.MemberRepository,
	txRepo repository.TransactionRepository,
	cache Invalidator,
	logger *slog.Logger,
	recorder AwardRecorder,
) *AwardService {
	if recorder == nil {
		recorder = nopAwardRecorder{}
	}
	return &AwardService{
		memberRepo: memberRepo,
		txRepo:     txRepo,
		cache:      cache,
		logger:     logger,
		recorder:   recorder,
	}
}

// Award gives req.Amount points to each member in req.MemberIDs on behalf of actorID.
// Denied requests never reach the store or the cache. Request text is validated
// only after authorization, so a caller without rights always sees the denial.
// The leaderboard cache is invalidated after the insert commits.
func (s *AwardService) Award(ctx context.Context, actorID string, req AwardRequest) (*AwardResult, error) {
	actor, err := loadActor(ctx, s.memberRepo, actorID)
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.MemberIDs)
	targets := []*domain.Member{}
	if len(ids) > 0 {
		targets, err = s.memberRepo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	if decision := Authorize(actor, targets, req.Amount); !decision.Allowed {
		s.logger.Info("award denied",
			"member_id", actor.ID,
			"reason", string(decision.Reason),
			"count", len(ids),
		)
		s.recorder.RecordAward("denied", 0)
		return nil, decision.Err()
	}

	description, err := validateAward(req)
	if err != nil {
		return nil, err
	}

	if len(targets) != len(ids) {
		return nil, domain.ErrMemberNotFound
	}

	txs := make([]*domain.Transaction, 0, len(targets))
	for _, t := range targets {
		txs = append(txs, &domain.Transaction{
			MemberID:    t.ID,
			GivenByID:   actor.ID,
			Amount:      req.Amount,
			Description: description,
		})
	}

	replayed, err := s.txRepo.Insert(ctx, req.IdempotencyKey, txs)
	if err != nil {
		s.recorder.RecordAward("failed", 0)
		return nil, err
	}

	if replayed {
		s.logger.Info("award replayed", "member_id", actor.ID, "count", len(txs))
		s.recorder.RecordAward("replayed", 0)
		return &AwardResult{Count: len(txs), Replayed: true}, nil
	}

	s.cache.Invalidate(LeaderboardCacheKey)

	s.logger.Info("points awarded",
		"member_id", actor.ID,
		"count", len(txs),
		"amount", req.Amount,
	)
	s.recorder.RecordAward("recorded", abs(req.Amount)*len(txs))

	return &AwardResult{Count: len(txs)}, nil
}

// validateAward checks what the policy does not: the amount fits the ledger
// column and the description is present and bounded. It returns the trimmed description.
func validateAward(req AwardRequest) (string, error) {
	if req.Amount > math.MaxInt32 || req.Amount < math.MinInt32 {
		return "", domain.Invalid("amount", "is out of range")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return "", domain.Invalid("description", "is required")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return "", domain.Invalid("description", "must be at most 500 characters")
	}
	return description, nil
}

// loadActor re-reads the session member so authorization always uses the stored role.
// A session pointing at a vanished member is treated as unauthenticated.
func loadActor(ctx context.Context, repo repository.MemberRepository, actorID string) (*domain.Member, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthenticated
	}
	actor, err := repo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return actor, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
