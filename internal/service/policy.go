package service

import "github.com/aidar/rookie-board/internal/domain"

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Reason  domain.DenyReason
}

// Err converts a denial into a domain.AccessDeniedError, nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.Deny(d.Reason)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason domain.DenyReason) Decision { return Decision{Reason: reason} }

// Authorize decides whether actor may award amount points to targets.
// Rules are evaluated in order: role, scope, amount. The actor must be the
// stored member, never a caller-supplied role.
func Authorize(actor *domain.Member, targets []*domain.Member, amount int) Decision {
	if actor == nil || !actor.Role.CanAward() {
		return deny(domain.DenyRole)
	}

	for _, t := range targets {
		if t.Role != domain.RoleRookie {
			return deny(domain.DenyScope)
		}
		if actor.Role == domain.RoleCaptain && !t.InClan(actor.ClanID) {
			return deny(domain.DenyScope)
		}
	}

	if amount == 0 || len(targets) == 0 {
		return deny(domain.DenyInvalidAmount)
	}

	return allow()
}

// CanManageRoster decides whether actor may list and add rookies
func CanManageRoster(actor *domain.Member) Decision {
	if actor == nil || !actor.Role.CanAward() {
		return deny(domain.DenyRole)
	}
	return allow()
}
