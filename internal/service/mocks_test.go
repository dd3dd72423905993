package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/aidar/rookie-board/internal/domain"
)

// MockMemberRepository is a mock implementation of repository.MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	args := m.Called(ctx, id)
	member, _ := args.Get(0).(*domain.Member)
	return member, args.Error(1)
}

func (m *MockMemberRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Member, error) {
	args := m.Called(ctx, ids)
	members, _ := args.Get(0).([]*domain.Member)
	return members, args.Error(1)
}

func (m *MockMemberRepository) GetByExternalUsername(ctx context.Context, username string) (*domain.Member, error) {
	args := m.Called(ctx, username)
	member, _ := args.Get(0).(*domain.Member)
	return member, args.Error(1)
}

func (m *MockMemberRepository) GetBySubject(ctx context.Context, subjectID string) (*domain.Member, error) {
	args := m.Called(ctx, subjectID)
	member, _ := args.Get(0).(*domain.Member)
	return member, args.Error(1)
}

func (m *MockMemberRepository) List(ctx context.Context, filter domain.MemberFilter) ([]*domain.Member, error) {
	args := m.Called(ctx, filter)
	members, _ := args.Get(0).([]*domain.Member)
	return members, args.Error(1)
}

func (m *MockMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) Upsert(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockMemberRepository) LinkSubject(ctx context.Context, memberID, subjectID string, avatarURL *string) error {
	args := m.Called(ctx, memberID, subjectID, avatarURL)
	return args.Error(0)
}

func (m *MockMemberRepository) UpdateAvatar(ctx context.Context, memberID, avatarURL string) error {
	args := m.Called(ctx, memberID, avatarURL)
	return args.Error(0)
}

// MockClanRepository is a mock implementation of repository.ClanRepository
type MockClanRepository struct {
	mock.Mock
}

func (m *MockClanRepository) GetByID(ctx context.Context, id string) (*domain.Clan, error) {
	args := m.Called(ctx, id)
	clan, _ := args.Get(0).(*domain.Clan)
	return clan, args.Error(1)
}

func (m *MockClanRepository) List(ctx context.Context) ([]*domain.Clan, error) {
	args := m.Called(ctx)
	clans, _ := args.Get(0).([]*domain.Clan)
	return clans, args.Error(1)
}

func (m *MockClanRepository) Upsert(ctx context.Context, name, logoURL string) (*domain.Clan, error) {
	args := m.Called(ctx, name, logoURL)
	clan, _ := args.Get(0).(*domain.Clan)
	return clan, args.Error(1)
}

// MockTransactionRepository is a mock implementation of repository.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Insert(ctx context.Context, idempotencyKey string, txs []*domain.Transaction) (bool, error) {
	args := m.Called(ctx, idempotencyKey, txs)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) ListByMember(ctx context.Context, memberID string) ([]*domain.TransactionView, error) {
	args := m.Called(ctx, memberID)
	txs, _ := args.Get(0).([]*domain.TransactionView)
	return txs, args.Error(1)
}

func (m *MockTransactionRepository) ListByMembers(ctx context.Context, memberIDs []string) ([]*domain.Transaction, error) {
	args := m.Called(ctx, memberIDs)
	txs, _ := args.Get(0).([]*domain.Transaction)
	return txs, args.Error(1)
}

func (m *MockTransactionRepository) ListByTimeRange(ctx context.Context, from, to time.Time) ([]*domain.TransactionView, error) {
	args := m.Called(ctx, from, to)
	txs, _ := args.Get(0).([]*domain.TransactionView)
	return txs, args.Error(1)
}

// MockInvalidator records cache invalidations
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(key string) int {
	args := m.Called(key)
	return args.Int(0)
}

type countingRecorder struct {
	awards map[string]int
	points int
	logins map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{awards: map[string]int{}, logins: map[string]int{}}
}

func (r *countingRecorder) RecordAward(outcome string, points int) {
	r.awards[outcome]++
	r.points += points
}

func (r *countingRecorder) RecordLogin(outcome string) {
	r.logins[outcome]++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func member(id string, role domain.Role, clanID string) *domain.Member {
	m := &domain.Member{
		ID:               id,
		ExternalUsername: id,
		DisplayName:      id,
		Role:             role,
	}
	if clanID != "" {
		m.ClanID = ptr(clanID)
	}
	return m
}
