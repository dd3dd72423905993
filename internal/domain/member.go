package domain

import "time"

// Role определяет уровень привилегий участника
type Role string

// Возможные роли участников
const (
	RoleRookie    Role = "rookie"    // Получает очки, но не может их выдавать
	RoleCaptain   Role = "captain"   // Выдает очки новичкам своего клана
	RoleOrganizer Role = "organizer" // Выдает очки любым новичкам
)

// Valid проверяет, что роль входит в список известных
func (r Role) Valid() bool {
	switch r {
	case RoleRookie, RoleCaptain, RoleOrganizer:
		return true
	}
	return false
}

// CanAward возвращает true для ролей, которым разрешено начислять очки
func (r Role) CanAward() bool {
	return r == RoleCaptain || r == RoleOrganizer
}

// Member представляет участника лидерборда
type Member struct {
	ID               string    `json:"id"`
	SubjectID        *string   `json:"-"`               // Идентификатор у OAuth провайдера, nil до первой привязки
	ExternalUsername string    `json:"github_username"` // Ключ allow-list, всегда в нижнем регистре
	DisplayName      string    `json:"name"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	Role             Role      `json:"role"`
	ClanID           *string   `json:"clan_id,omitempty"`
	ClanName         string    `json:"clan_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsLinked возвращает true если участник уже привязан к внешнему аккаунту
func (m *Member) IsLinked() bool {
	return m.SubjectID != nil && *m.SubjectID != ""
}

// IsLinkedTo проверяет привязку к конкретному внешнему субъекту
func (m *Member) IsLinkedTo(subjectID string) bool {
	return m.IsLinked() && *m.SubjectID == subjectID
}

// InClan проверяет принадлежность участника к клану
func (m *Member) InClan(clanID *string) bool {
	if m.ClanID == nil || clanID == nil {
		return false
	}
	return *m.ClanID == *clanID
}

// MemberFilter задает условия выборки участников (пустые поля не фильтруют)
type MemberFilter struct {
	Role   *Role
	ClanID *string
}
