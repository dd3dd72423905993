package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aidar/rookie-board/internal/domain"
)

func TestAuthorize(t *testing.T) {
	captain := member("cap", domain.RoleCaptain, "clan-2")
	organizer := member("org", domain.RoleOrganizer, "")
	rookieSameClan := member("r2", domain.RoleRookie, "clan-2")
	rookieOtherClan := member("r1", domain.RoleRookie, "clan-1")
	rookieNoClan := member("r0", domain.RoleRookie, "")
	otherCaptain := member("cap1", domain.RoleCaptain, "clan-1")

	tests := []struct {
		name    string
		actor   *domain.Member
		targets []*domain.Member
		amount  int
		want    Decision
	}{
		{"rookie cannot award", member("r", domain.RoleRookie, "clan-2"), []*domain.Member{rookieSameClan}, 5, deny(domain.DenyRole)},
		{"missing actor", nil, []*domain.Member{rookieSameClan}, 5, deny(domain.DenyRole)},
		{"captain own clan", captain, []*domain.Member{rookieSameClan}, 5, allow()},
		{"captain negative correction", captain, []*domain.Member{rookieSameClan}, -3, allow()},
		{"captain other clan", captain, []*domain.Member{rookieOtherClan}, 5, deny(domain.DenyScope)},
		{"captain mixed clans", captain, []*domain.Member{rookieSameClan, rookieOtherClan}, 5, deny(domain.DenyScope)},
		{"captain clanless rookie", captain, []*domain.Member{rookieNoClan}, 5, deny(domain.DenyScope)},
		{"captain targets captain", captain, []*domain.Member{member("cap3", domain.RoleCaptain, "clan-2")}, 5, deny(domain.DenyScope)},
		{"clanless captain", member("cap0", domain.RoleCaptain, ""), []*domain.Member{rookieNoClan}, 5, deny(domain.DenyScope)},
		{"organizer any clan", organizer, []*domain.Member{rookieSameClan, rookieOtherClan, rookieNoClan}, 5, allow()},
		{"organizer targets captain", organizer, []*domain.Member{otherCaptain}, 5, deny(domain.DenyScope)},
		{"organizer zero amount", organizer, []*domain.Member{rookieOtherClan}, 0, deny(domain.DenyInvalidAmount)},
		{"no targets", organizer, nil, 5, deny(domain.DenyInvalidAmount)},
		{"scope before amount", captain, []*domain.Member{rookieOtherClan}, 0, deny(domain.DenyScope)},
		{"role before everything", member("r", domain.RoleRookie, ""), nil, 0, deny(domain.DenyRole)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.actor, tt.targets, tt.amount))
		})
	}
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, allow().Err())

	err := deny(domain.DenyScope).Err()
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	var denied *domain.AccessDeniedError
	if assert.ErrorAs(t, err, &denied) {
		assert.Equal(t, domain.DenyScope, denied.Reason)
	}
}

func TestCanManageRoster(t *testing.T) {
	assert.True(t, CanManageRoster(member("c", domain.RoleCaptain, "x")).Allowed)
	assert.True(t, CanManageRoster(member("o", domain.RoleOrganizer, "")).Allowed)
	assert.Equal(t, deny(domain.DenyRole), CanManageRoster(member("r", domain.RoleRookie, "x")))
	assert.Equal(t, deny(domain.DenyRole), CanManageRoster(nil))
}
