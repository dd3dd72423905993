package repository

import (
	"context"
	"time"

	"github.com/aidar/rookie-board/internal/domain"
)

// MemberRepository определяет методы для работы с участниками
type MemberRepository interface {
	// GetByID получает участника по ID вместе с названием клана
	GetByID(ctx context.Context, id string) (*domain.Member, error)

	// GetByIDs получает участников по списку ID, отсутствующие ID пропускаются
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Member, error)

	// GetByExternalUsername ищет участника по github username (ключ allow-list)
	GetByExternalUsername(ctx context.Context, username string) (*domain.Member, error)

	// GetBySubject ищет участника, привязанного к внешнему субъекту
	GetBySubject(ctx context.Context, subjectID string) (*domain.Member, error)

	// List возвращает участников по фильтру, отсортированных по имени
	List(ctx context.Context, filter domain.MemberFilter) ([]*domain.Member, error)

	// Create создает нового участника без привязки к внешнему аккаунту
	Create(ctx context.Context, member *domain.Member) error

	// Upsert создает или обновляет предзаведенного участника по username, привязку не трогает
	Upsert(ctx context.Context, member *domain.Member) error

	// UsernameExists проверяет занятость github username
	UsernameExists(ctx context.Context, username string) (bool, error)

	// LinkSubject привязывает внешний субъект к участнику, снимая его со всех остальных
	LinkSubject(ctx context.Context, memberID, subjectID string, avatarURL *string) error

	// UpdateAvatar обновляет аватар участника
	UpdateAvatar(ctx context.Context, memberID, avatarURL string) error
}

// ClanRepository определяет методы для работы с кланами
type ClanRepository interface {
	// GetByID получает клан по ID
	GetByID(ctx context.Context, id string) (*domain.Clan, error)

	// List возвращает все кланы
	List(ctx context.Context) ([]*domain.Clan, error)

	// Upsert создает клан или обновляет логотип существующего (по имени)
	Upsert(ctx context.Context, name, logoURL string) (*domain.Clan, error)
}

// TransactionRepository определяет методы для работы с журналом транзакций
type TransactionRepository interface {
	// Insert атомарно вставляет пачку транзакций.
	// Ключ idempotencyKey привязан к автору начисления. Повтор с тем же содержимым ничего не вставляет
	// и возвращает replayed = true, повтор с другим содержимым возвращает domain.ErrIdempotencyConflict.
	Insert(ctx context.Context, idempotencyKey string, txs []*domain.Transaction) (replayed bool, err error)

	// ListByMember возвращает историю участника (новые первыми) с данными автора начисления
	ListByMember(ctx context.Context, memberID string) ([]*domain.TransactionView, error)

	// ListByMembers возвращает транзакции всех указанных получателей
	ListByMembers(ctx context.Context, memberIDs []string) ([]*domain.Transaction, error)

	// ListByTimeRange возвращает транзакции, созданные в [from, to), с данными получателя и автора
	ListByTimeRange(ctx context.Context, from, to time.Time) ([]*domain.TransactionView, error)
}
