package service

import (
	"context"
	"time"

	"github.com/aidar/rookie-board/internal/aggregator"
	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/repository"
)

// Profile is a member page: the member, full history and total score
type Profile struct {
	Member       *domain.Member            `json:"member"`
	Transactions []*domain.TransactionView `json:"transactions"`
	TotalPoints  int                       `json:"total_points"`
}

// ProfileService handles member profiles
type ProfileService struct {
	memberRepo repository.MemberRepository
	txRepo     repository.TransactionRepository
	loc        *time.Location
}

// NewProfileService creates a new ProfileService
func NewProfileService(
	memberRepo repository.MemberRepository,
	txRepo repository.TransactionRepository,
	loc *time.Location,
) *ProfileService {
	if loc == nil {
		loc = time.UTC
	}
	return &ProfileService{
		memberRepo: memberRepo,
		txRepo:     txRepo,
		loc:        loc,
	}
}

// Get returns the profile of memberID with history newest first
func (s *ProfileService) Get(ctx context.Context, memberID string) (*Profile, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	txs, err := s.txRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		Member:       member,
		Transactions: txs,
		TotalPoints:  aggregator.Total(txs),
	}, nil
}

// Calendar returns the month calendar of memberID grouped by description
func (s *ProfileService) Calendar(ctx context.Context, memberID string, year, month int) (*aggregator.ProfileCalendar, error) {
	m, err := parseMonth(year, month)
	if err != nil {
		return nil, err
	}

	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		return nil, err
	}

	txs, err := s.txRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	return aggregator.BuildProfileCalendar(m, txs, s.loc), nil
}
