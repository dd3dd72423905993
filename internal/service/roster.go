package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/repository"
)

const (
	maxUsernameAttempts = 5
	maxNameLength       = 100
	usernameSuffixLen   = 6
)

// AddRookieRequest describes a rookie added by a captain or organizer
type AddRookieRequest struct {
	Name           string `json:"name"`
	GitHubUsername string `json:"github_username"`
}

// RosterService manages the rookies of a clan
type RosterService struct {
	memberRepo repository.MemberRepository
	logger     *slog.Logger
	suffix     func() string
}

// NewRosterService creates a new RosterService
func NewRosterService(memberRepo repository.MemberRepository, logger *slog.Logger) *RosterService {
	return &RosterService{
		memberRepo: memberRepo,
		logger:     logger,
		suffix:     randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:usernameSuffixLen]
}

// ListManageableRookies returns the rookies actorID may award: the own clan
// for a captain, every rookie for an organizer
func (s *RosterService) ListManageableRookies(ctx context.Context, actorID string) ([]*domain.Member, error) {
	actor, err := loadActor(ctx, s.memberRepo, actorID)
	if err != nil {
		return nil, err
	}
	if err := CanManageRoster(actor).Err(); err != nil {
		return nil, err
	}

	role := domain.RoleRookie
	filter := domain.MemberFilter{Role: &role}
	if actor.Role == domain.RoleCaptain {
		if actor.ClanID == nil {
			return []*domain.Member{}, nil
		}
		filter.ClanID = actor.ClanID
	}

	return s.memberRepo.List(ctx, filter)
}

// AddRookie creates an unlinked rookie in the actor's clan. Without a username
// one is synthesized from the name plus a random suffix, retrying on collision.
func (s *RosterService) AddRookie(ctx context.Context, actorID string, req AddRookieRequest) (*domain.Member, error) {
	actor, err := loadActor(ctx, s.memberRepo, actorID)
	if err != nil {
		return nil, err
	}
	if err := CanManageRoster(actor).Err(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if len([]rune(name)) > maxNameLength {
		return nil, domain.Invalid("name", "must be at most 100 characters")
	}

	member := &domain.Member{
		DisplayName: name,
		Role:        domain.RoleRookie,
		ClanID:      actor.ClanID,
	}

	if username := strings.ToLower(strings.TrimSpace(req.GitHubUsername)); username != "" {
		if err := s.createWithUsername(ctx, member, username); err != nil {
			return nil, err
		}
	} else if err := s.createWithSyntheticUsername(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("rookie added",
		"member_id", member.ID,
		"username", member.ExternalUsername,
		"actor_id", actor.ID,
	)
	return member, nil
}

func (s *RosterService) createWithUsername(ctx context.Context, member *domain.Member, username string) error {
	exists, err := s.memberRepo.UsernameExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrUsernameTaken
	}

	member.ExternalUsername = username
	return s.memberRepo.Create(ctx, member)
}

func (s *RosterService) createWithSyntheticUsername(ctx context.Context, member *domain.Member) error {
	base := slugify(member.DisplayName)

	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		username := base + "-" + s.suffix()

		exists, err := s.memberRepo.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		member.ExternalUsername = username
		err = s.memberRepo.Create(ctx, member)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrUsernameTaken) {
			return err
		}
		s.logger.Warn("synthetic username collided on insert", "username", username, "attempt", attempt)
	}

	return domain.ErrUsernameTaken
}

// slugify lower-cases name and replaces every run of characters outside
// [a-z0-9] with a single dash
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "rookie"
	}
	return slug
}
