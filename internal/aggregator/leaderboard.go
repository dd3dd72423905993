package aggregator

import (
	"slices"

	"github.com/aidar/rookie-board/internal/domain"
)

// LeaderboardEntry is one ranked rookie.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	MemberID    string `json:"member_id"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	ClanName    string `json:"clan_name,omitempty"`
	TotalPoints int    `json:"total_points"`
	IsViewer    bool   `json:"is_viewer"`

	// SubjectID is used to compute IsViewer at read time and never leaves the server.
	SubjectID string `json:"-"`
}

// Totals sums transaction amounts per beneficiary.
func Totals(txs []*domain.Transaction) map[string]int {
	totals := make(map[string]int)
	for _, t := range txs {
		totals[t.MemberID] += t.Amount
	}
	return totals
}

// Leaderboard ranks every rookie in members by the sum of their transactions,
// highest first. Members without transactions score zero. Ties keep the input
// order. IsViewer is left false; see MarkViewer.
func Leaderboard(members []*domain.Member, txs []*domain.Transaction) []LeaderboardEntry {
	totals := Totals(txs)

	entries := make([]LeaderboardEntry, 0, len(members))
	for _, m := range members {
		if m.Role != domain.RoleRookie {
			continue
		}
		e := LeaderboardEntry{
			MemberID:    m.ID,
			Name:        m.DisplayName,
			AvatarURL:   m.AvatarURL,
			ClanName:    m.ClanName,
			TotalPoints: totals[m.ID],
		}
		if m.SubjectID != nil {
			e.SubjectID = *m.SubjectID
		}
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		return b.TotalPoints - a.TotalPoints
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// MarkViewer returns a copy of entries with IsViewer set on the row linked to
// subjectID. The input slice is not modified, so it can be shared through a cache.
func MarkViewer(entries []LeaderboardEntry, subjectID string) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(entries))
	copy(out, entries)
	if subjectID == "" {
		return out
	}
	for i := range out {
		out[i].IsViewer = out[i].SubjectID == subjectID
	}
	return out
}
