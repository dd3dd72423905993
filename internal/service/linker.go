package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/repository"
)

// LinkOutcome is the result kind of an account linking attempt
type LinkOutcome int

// Possible linking outcomes
const (
	// LinkDenied means the username is not on the allow-list
	LinkDenied LinkOutcome = iota
	// LinkLinked means the member was already bound to this subject
	LinkLinked
	// LinkLinkedNow means the subject has just been bound to the member
	LinkLinkedNow
)

func (o LinkOutcome) String() string {
	switch o {
	case LinkLinked:
		return "linked"
	case LinkLinkedNow:
		return "linked_now"
	default:
		return "denied"
	}
}

// LinkResult describes the outcome of AccountLinker.Link
type LinkResult struct {
	Outcome LinkOutcome
	Member  *domain.Member
}

// Allowed reports whether the subject may use the service
func (r LinkResult) Allowed() bool {
	return r.Outcome != LinkDenied && r.Member != nil
}

// LoginRecorder counts login outcomes
type LoginRecorder interface {
	RecordLogin(outcome string)
}

type nopLoginRecorder struct{}

func (nopLoginRecorder) RecordLogin(string) {}

// AccountLinker gates access by the pre-provisioned allow-list and binds
// external subjects to members
type AccountLinker struct {
	memberRepo repository.MemberRepository
	logger     *slog.Logger
	recorder   LoginRecorder
}

// NewAccountLinker creates a new AccountLinker. A nil recorder disables login metrics.
func NewAccountLinker(memberRepo repository.MemberRepository, logger *slog.Logger, recorder LoginRecorder) *AccountLinker {
	if recorder == nil {
		recorder = nopLoginRecorder{}
	}
	return &AccountLinker{
		memberRepo: memberRepo,
		logger:     logger,
		recorder:   recorder,
	}
}

// ResolveUsername derives the allow-list key from provider profile data:
// provider username, then preferred username, then the local part of the
// email, then "unknown". The result is lower-cased.
func ResolveUsername(p domain.Profile) string {
	for _, candidate := range []string{p.Username, p.PreferredUsername, emailLocalPart(p.Email)} {
		if c := strings.TrimSpace(candidate); c != "" {
			return strings.ToLower(c)
		}
	}
	return "unknown"
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Link decides whether identity may use the service and binds its subject to
// the matching member. Store failures are returned as errors and never grant access.
func (l *AccountLinker) Link(ctx context.Context, identity domain.Identity) (LinkResult, error) {
	username := ResolveUsername(identity.Profile)
	log := l.logger.With("subject_id", identity.SubjectID, "username", username)

	member, err := l.memberRepo.GetByExternalUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			log.Info("login denied: username not on allow-list")
			l.recorder.RecordLogin(LinkDenied.String())
			return LinkResult{Outcome: LinkDenied}, nil
		}
		l.recorder.RecordLogin("failed")
		return LinkResult{}, err
	}

	avatar := strings.TrimSpace(identity.Profile.AvatarURL)

	if member.IsLinkedTo(identity.SubjectID) {
		if avatar != "" && avatar != member.AvatarURL {
			if err := l.memberRepo.UpdateAvatar(ctx, member.ID, avatar); err != nil {
				l.recorder.RecordLogin("failed")
				return LinkResult{}, err
			}
			member.AvatarURL = avatar
		}
		l.recorder.RecordLogin(LinkLinked.String())
		return LinkResult{Outcome: LinkLinked, Member: member}, nil
	}

	var avatarPtr *string
	if avatar != "" {
		avatarPtr = &avatar
	}
	if err := l.memberRepo.LinkSubject(ctx, member.ID, identity.SubjectID, avatarPtr); err != nil {
		l.recorder.RecordLogin("failed")
		return LinkResult{}, err
	}

	if member.IsLinked() {
		log.Warn("replacing stale subject link", "member_id", member.ID)
	}
	subject := identity.SubjectID
	member.SubjectID = &subject
	if avatarPtr != nil {
		member.AvatarURL = avatar
	}

	log.Info("member linked", "member_id", member.ID)
	l.recorder.RecordLogin(LinkLinkedNow.String())
	return LinkResult{Outcome: LinkLinkedNow, Member: member}, nil
}
