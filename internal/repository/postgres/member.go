package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidar/rookie-board/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02" // например, не-UUID в параметре ::uuid
)

// isInvalidInput reports whether err is a malformed-literal error, which for
// ID lookups means the ID cannot exist.
func isInvalidInput(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidText
}

// memberColumns is shared by every member query so scanMember stays in sync.
const memberColumns = `
	m.id, m.auth_subject_id, m.github_username, m.name, COALESCE(m.avatar_url, ''),
	m.role, m.clan_id, COALESCE(c.name, ''), m.created_at
`

const memberFrom = `
	FROM members m
	LEFT JOIN clans c ON c.id = m.clan_id
`

// MemberRepository реализует repository.MemberRepository для PostgreSQL
type MemberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository создает новый экземпляр MemberRepository
func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.ID,
		&m.SubjectID,
		&m.ExternalUsername,
		&m.DisplayName,
		&m.AvatarURL,
		&m.Role,
		&m.ClanID,
		&m.ClanName,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMembers(rows pgx.Rows) ([]*domain.Member, error) {
	defer rows.Close()

	members := []*domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepository) getOne(ctx context.Context, where string, arg any) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + memberFrom + ` WHERE ` + where

	m, err := scanMember(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidInput(err) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

// GetByID получает участника по ID
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	return r.getOne(ctx, `m.id = $1::uuid`, id)
}

// GetByExternalUsername ищет участника по github username
func (r *MemberRepository) GetByExternalUsername(ctx context.Context, username string) (*domain.Member, error) {
	return r.getOne(ctx, `m.github_username = $1`, username)
}

// GetBySubject ищет участника по привязанному внешнему субъекту
func (r *MemberRepository) GetBySubject(ctx context.Context, subjectID string) (*domain.Member, error) {
	return r.getOne(ctx, `m.auth_subject_id = $1`, subjectID)
}

// GetByIDs получает участников по списку ID
func (r *MemberRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Member, error) {
	if len(ids) == 0 {
		return []*domain.Member{}, nil
	}

	query := `SELECT ` + memberColumns + memberFrom + ` WHERE m.id = ANY($1::uuid[]) ORDER BY m.name`

	rows, err := r.db.Query(ctx, query, ids)
	if err == nil {
		var members []*domain.Member
		members, err = collectMembers(rows)
		if err == nil {
			return members, nil
		}
	}
	if isInvalidInput(err) {
		return nil, domain.ErrMemberNotFound
	}
	return nil, err
}

// List возвращает участников по фильтру
func (r *MemberRepository) List(ctx context.Context, filter domain.MemberFilter) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + memberFrom + `
		WHERE ($1::text IS NULL OR m.role = $1::text)
		  AND ($2::uuid IS NULL OR m.clan_id = $2::uuid)
		ORDER BY m.name, m.id
	`

	var role *string
	if filter.Role != nil {
		s := string(*filter.Role)
		role = &s
	}

	rows, err := r.db.Query(ctx, query, role, filter.ClanID)
	if err != nil {
		return nil, err
	}
	return collectMembers(rows)
}

// Create создает нового участника
func (r *MemberRepository) Create(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (github_username, name, avatar_url, role, clan_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5::uuid)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		member.ExternalUsername,
		member.DisplayName,
		member.AvatarURL,
		string(member.Role),
		member.ClanID,
	).Scan(&member.ID, &member.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == codeUniqueViolation {
				return domain.ErrUsernameTaken
			}
			if pgErr.Code == codeForeignKeyViolation {
				return domain.ErrClanNotFound
			}
		}
		return err
	}
	return nil
}

// Upsert создает или обновляет предзаведенного участника по github username
func (r *MemberRepository) Upsert(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (github_username, name, avatar_url, role, clan_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5::uuid)
		ON CONFLICT (github_username) DO UPDATE
		SET name = EXCLUDED.name,
		    avatar_url = COALESCE(EXCLUDED.avatar_url, members.avatar_url),
		    role = EXCLUDED.role,
		    clan_id = EXCLUDED.clan_id,
		    updated_at = NOW()
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		member.ExternalUsername,
		member.DisplayName,
		member.AvatarURL,
		string(member.Role),
		member.ClanID,
	).Scan(&member.ID, &member.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
			return domain.ErrClanNotFound
		}
		return err
	}
	return nil
}

// UsernameExists проверяет занятость github username
func (r *MemberRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM members WHERE github_username = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// LinkSubject привязывает внешний субъект к участнику.
// Субъект сначала снимается с любого другого участника, чтобы привязка оставалась единственной.
func (r *MemberRepository) LinkSubject(ctx context.Context, memberID, subjectID string, avatarURL *string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore error as it will fail if transaction was committed
	}()

	unlink := `
		UPDATE members
		SET auth_subject_id = NULL, updated_at = NOW()
		WHERE auth_subject_id = $1 AND id <> $2::uuid
	`
	if _, err := tx.Exec(ctx, unlink, subjectID, memberID); err != nil {
		return err
	}

	link := `
		UPDATE members
		SET auth_subject_id = $1,
		    avatar_url = COALESCE(NULLIF($2, ''), avatar_url),
		    updated_at = NOW()
		WHERE id = $3::uuid
	`
	result, err := tx.Exec(ctx, link, subjectID, avatarURL, memberID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}

	return tx.Commit(ctx)
}

// UpdateAvatar обновляет аватар участника
func (r *MemberRepository) UpdateAvatar(ctx context.Context, memberID, avatarURL string) error {
	query := `
		UPDATE members
		SET avatar_url = $1, updated_at = NOW()
		WHERE id = $2::uuid
	`

	result, err := r.db.Exec(ctx, query, avatarURL, memberID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}
