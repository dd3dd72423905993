package service

import (
	"context"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/repository"
)

// RoleGroup lists the members of one role
type RoleGroup struct {
	Role     domain.Role      `json:"role"`
	Members  []*domain.Member `json:"members"`
	Linked   int              `json:"linked"`
	Unlinked int              `json:"unlinked"`
}

// Overview is the organizer view of all members
type Overview struct {
	Groups   []RoleGroup    `json:"groups"`
	Clans    []*domain.Clan `json:"clans"`
	Total    int            `json:"total"`
	Linked   int            `json:"linked"`
	Unlinked int            `json:"unlinked"`
}

// AdminService serves organizer-only views
type AdminService struct {
	memberRepo repository.MemberRepository
	clanRepo   repository.ClanRepository
}

// NewAdminService creates a new AdminService
func NewAdminService(memberRepo repository.MemberRepository, clanRepo repository.ClanRepository) *AdminService {
	return &AdminService{
		memberRepo: memberRepo,
		clanRepo:   clanRepo,
	}
}

// Overview groups every member by role (organizers, captains, rookies) with
// link counts. Only organizers may see it.
func (s *AdminService) Overview(ctx context.Context, actorID string) (*Overview, error) {
	actor, err := loadActor(ctx, s.memberRepo, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleOrganizer {
		return nil, domain.Deny(domain.DenyRole)
	}

	members, err := s.memberRepo.List(ctx, domain.MemberFilter{})
	if err != nil {
		return nil, err
	}

	clans, err := s.clanRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	order := []domain.Role{domain.RoleOrganizer, domain.RoleCaptain, domain.RoleRookie}
	index := make(map[domain.Role]int, len(order))
	overview := &Overview{
		Groups: make([]RoleGroup, len(order)),
		Clans:  clans,
	}
	for i, role := range order {
		index[role] = i
		overview.Groups[i] = RoleGroup{Role: role, Members: []*domain.Member{}}
	}

	for _, m := range members {
		i, ok := index[m.Role]
		if !ok {
			continue
		}
		g := &overview.Groups[i]
		g.Members = append(g.Members, m)
		if m.IsLinked() {
			g.Linked++
			overview.Linked++
		} else {
			g.Unlinked++
			overview.Unlinked++
		}
		overview.Total++
	}

	return overview, nil
}
