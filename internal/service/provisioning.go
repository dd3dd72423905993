package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/repository"
	"github.com/aidar/rookie-board/internal/roster"
)

// ProvisionResult counts what a roster application touched
type ProvisionResult struct {
	Clans   int
	Members int
}

// ProvisioningService pre-provisions clans and allow-listed members
type ProvisioningService struct {
	memberRepo repository.MemberRepository
	clanRepo   repository.ClanRepository
	logger     *slog.Logger
}

// NewProvisioningService creates a new ProvisioningService
func NewProvisioningService(
	memberRepo repository.MemberRepository,
	clanRepo repository.ClanRepository,
	logger *slog.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		memberRepo: memberRepo,
		clanRepo:   clanRepo,
		logger:     logger,
	}
}

// Apply upserts every clan and member of r. Existing subject links are kept,
// so re-running a roster never logs anybody out.
func (s *ProvisioningService) Apply(ctx context.Context, r *roster.Roster) (*ProvisionResult, error) {
	clanIDs := make(map[string]string, len(r.Clans))
	for _, c := range r.Clans {
		clan, err := s.clanRepo.Upsert(ctx, c.Name, c.LogoURL)
		if err != nil {
			return nil, fmt.Errorf("upsert clan %q: %w", c.Name, err)
		}
		clanIDs[c.Name] = clan.ID
	}

	for _, m := range r.Members {
		member := &domain.Member{
			ExternalUsername: m.GitHubUsername,
			DisplayName:      m.Name,
			AvatarURL:        m.AvatarURL,
			Role:             m.Role,
		}
		if m.Clan != "" {
			id, ok := clanIDs[m.Clan]
			if !ok {
				return nil, fmt.Errorf("member %q: %w", m.GitHubUsername, domain.ErrClanNotFound)
			}
			member.ClanID = &id
		}

		if err := s.memberRepo.Upsert(ctx, member); err != nil {
			return nil, fmt.Errorf("upsert member %q: %w", m.GitHubUsername, err)
		}
	}

	s.logger.Info("roster applied", "clans", len(r.Clans), "count", len(r.Members))
	return &ProvisionResult{Clans: len(r.Clans), Members: len(r.Members)}, nil
}
