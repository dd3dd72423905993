package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aidar/rookie-board/internal/domain"
)

type awardFixture struct {
	members *MockMemberRepository
	txs     *MockTransactionRepository
	cache   *MockInvalidator
	rec     *countingRecorder
	svc     *AwardService
}

func newAwardFixture() *awardFixture {
	f := &awardFixture{
		members: new(MockMemberRepository),
		txs:     new(MockTransactionRepository),
		cache:   new(MockInvalidator),
		rec:     newCountingRecorder(),
	}
	f.svc = NewAwardService(f.members, f.txs, f.cache, discardLogger(), f.rec)
	return f
}

func (f *awardFixture) assertNothingWritten(t *testing.T) {
	t.Helper()
	f.txs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
	f.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestAwardService_Award(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	captain := member("cap", domain.RoleCaptain, "clan-1")
	r1 := member("r1", domain.RoleRookie, "clan-1")
	r2 := member("r2", domain.RoleRookie, "clan-1")

	f.members.On("GetByID", ctx, "cap").Return(captain, nil)
	f.members.On("GetByIDs", ctx, []string{"r1", "r2"}).Return([]*domain.Member{r1, r2}, nil)
	f.txs.On("Insert", ctx, "key-1", mock.MatchedBy(func(txs []*domain.Transaction) bool {
		if len(txs) != 2 {
			return false
		}
		for _, tx := range txs {
			if tx.GivenByID != "cap" || tx.Amount != 5 || tx.Description != "quiz-1/1" {
				return false
			}
		}
		return txs[0].MemberID == "r1" && txs[1].MemberID == "r2"
	})).Return(false, nil)
	f.cache.On("Invalidate", LeaderboardCacheKey).Return(1)

	result, err := f.svc.Award(ctx, "cap", AwardRequest{
		MemberIDs:      []string{"r1", "r2", "r1", " "},
		Amount:         5,
		Description:    "  quiz-1/1 ",
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	assert.False(t, result.Replayed)
	assert.Equal(t, 1, f.rec.awards["recorded"])
	assert.Equal(t, 10, f.rec.points)
	f.members.AssertExpectations(t)
	f.txs.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestAwardService_CaptainOutsideClanIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	f.members.On("GetByID", ctx, "cap").Return(member("cap", domain.RoleCaptain, "clan-2"), nil)
	f.members.On("GetByIDs", ctx, []string{"r"}).Return([]*domain.Member{member("r", domain.RoleRookie, "clan-1")}, nil)

	_, err := f.svc.Award(ctx, "cap", AwardRequest{MemberIDs: []string{"r"}, Amount: 5})

	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, domain.DenyScope, denied.Reason)
	assert.Equal(t, 1, f.rec.awards["denied"])
	f.assertNothingWritten(t)
}

func TestAwardService_OrganizerZeroAmountIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	f.members.On("GetByID", ctx, "org").Return(member("org", domain.RoleOrganizer, ""), nil)
	f.members.On("GetByIDs", ctx, []string{"r"}).Return([]*domain.Member{member("r", domain.RoleRookie, "clan-1")}, nil)

	_, err := f.svc.Award(ctx, "org", AwardRequest{MemberIDs: []string{"r"}, Amount: 0})

	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, domain.DenyInvalidAmount, denied.Reason)
	f.assertNothingWritten(t)
}

func TestAwardService_EmptyTargetsIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	f.members.On("GetByID", ctx, "org").Return(member("org", domain.RoleOrganizer, ""), nil)

	_, err := f.svc.Award(ctx, "org", AwardRequest{Amount: 5})

	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, domain.DenyInvalidAmount, denied.Reason)
	f.members.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
	f.assertNothingWritten(t)
}

func TestAwardService_RookieIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	f.members.On("GetByID", ctx, "r1").Return(member("r1", domain.RoleRookie, "clan-1"), nil)
	f.members.On("GetByIDs", ctx, []string{"r2"}).Return([]*domain.Member{member("r2", domain.RoleRookie, "clan-1")}, nil)

	_, err := f.svc.Award(ctx, "r1", AwardRequest{MemberIDs: []string{"r2"}, Amount: 5})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	f.assertNothingWritten(t)
}

func TestAwardService_UnknownTarget(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	f.members.On("GetByID", ctx, "org").Return(member("org", domain.RoleOrganizer, ""), nil)
	f.members.On("GetByIDs", ctx, []string{"r1", "ghost"}).Return([]*domain.Member{member("r1", domain.RoleRookie, "")}, nil)

	_, err := f.svc.Award(ctx, "org", AwardRequest{MemberIDs: []string{"r1", "ghost"}, Amount: 5, Description: "quiz"})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
	f.assertNothingWritten(t)
}

func TestAwardService_ReplayDoesNotInvalidate(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	f.members.On("GetByID", ctx, "org").Return(member("org", domain.RoleOrganizer, ""), nil)
	f.members.On("GetByIDs", ctx, []string{"r1"}).Return([]*domain.Member{member("r1", domain.RoleRookie, "")}, nil)
	f.txs.On("Insert", ctx, "key-1", mock.Anything).Return(true, nil)

	result, err := f.svc.Award(ctx, "org", AwardRequest{MemberIDs: []string{"r1"}, Amount: 5, Description: "quiz", IdempotencyKey: "key-1"})
	require.NoError(t, err)

	assert.True(t, result.Replayed)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 1, f.rec.awards["replayed"])
	f.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestAwardService_InsertFailureDoesNotInvalidate(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()
	boom := errors.New("insert failed")

	f.members.On("GetByID", ctx, "org").Return(member("org", domain.RoleOrganizer, ""), nil)
	f.members.On("GetByIDs", ctx, []string{"r1"}).Return([]*domain.Member{member("r1", domain.RoleRookie, "")}, nil)
	f.txs.On("Insert", ctx, "", mock.Anything).Return(false, boom)

	_, err := f.svc.Award(ctx, "org", AwardRequest{MemberIDs: []string{"r1"}, Amount: -2, Description: "penalty"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.rec.awards["failed"])
	f.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestAwardService_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		req   AwardRequest
		field string
	}{
		{"missing description", AwardRequest{MemberIDs: []string{"r1"}, Amount: 5}, "description"},
		{"blank description", AwardRequest{MemberIDs: []string{"r1"}, Amount: 5, Description: "   "}, "description"},
		{"long description", AwardRequest{MemberIDs: []string{"r1"}, Amount: 5, Description: strings.Repeat("x", 501)}, "description"},
		{"amount above column range", AwardRequest{MemberIDs: []string{"r1"}, Amount: math.MaxInt32 + 1, Description: "quiz"}, "amount"},
		{"amount below column range", AwardRequest{MemberIDs: []string{"r1"}, Amount: math.MinInt32 - 1, Description: "quiz"}, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAwardFixture()
			f.members.On("GetByID", ctx, "org").Return(member("org", domain.RoleOrganizer, ""), nil)
			f.members.On("GetByIDs", ctx, []string{"r1"}).Return([]*domain.Member{member("r1", domain.RoleRookie, "")}, nil)

			_, err := f.svc.Award(ctx, "org", tt.req)

			var invalid *domain.ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
			f.assertNothingWritten(t)
		})
	}
}

func TestAwardService_DenialWinsOverValidation(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	f.members.On("GetByID", ctx, "r1").Return(member("r1", domain.RoleRookie, "clan-1"), nil)
	f.members.On("GetByIDs", ctx, []string{"r2"}).Return([]*domain.Member{member("r2", domain.RoleRookie, "clan-1")}, nil)

	_, err := f.svc.Award(ctx, "r1", AwardRequest{
		MemberIDs:   []string{"r2"},
		Amount:      5,
		Description: strings.Repeat("x", 501),
	})

	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, domain.DenyRole, denied.Reason)
	f.assertNothingWritten(t)
}

func TestAwardService_UnknownActor(t *testing.T) {
	ctx := context.Background()
	f := newAwardFixture()

	f.members.On("GetByID", ctx, "gone").Return(nil, domain.ErrMemberNotFound)

	_, err := f.svc.Award(ctx, "gone", AwardRequest{MemberIDs: []string{"r1"}, Amount: 5})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.Award(ctx, "", AwardRequest{MemberIDs: []string{"r1"}, Amount: 5})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	f.assertNothingWritten(t)
}
