package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidar/rookie-board/internal/domain"
)

// ClanRepository реализует repository.ClanRepository для PostgreSQL
type ClanRepository struct {
	db *pgxpool.Pool
}

// NewClanRepository создает новый экземпляр ClanRepository
func NewClanRepository(db *pgxpool.Pool) *ClanRepository {
	return &ClanRepository{db: db}
}

// GetByID получает клан по ID
func (r *ClanRepository) GetByID(ctx context.Context, id string) (*domain.Clan, error) {
	query := `
		SELECT id, name, COALESCE(logo_url, '')
		FROM clans
		WHERE id = $1::uuid
	`

	var clan domain.Clan
	err := r.db.QueryRow(ctx, query, id).Scan(&clan.ID, &clan.Name, &clan.LogoURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidInput(err) {
			return nil, domain.ErrClanNotFound
		}
		return nil, err
	}
	return &clan, nil
}

// List возвращает все кланы по алфавиту
func (r *ClanRepository) List(ctx context.Context) ([]*domain.Clan, error) {
	query := `SELECT id, name, COALESCE(logo_url, '') FROM clans ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clans := []*domain.Clan{}
	for rows.Next() {
		var clan domain.Clan
		if err := rows.Scan(&clan.ID, &clan.Name, &clan.LogoURL); err != nil {
			return nil, err
		}
		clans = append(clans, &clan)
	}
	return clans, rows.Err()
}

// Upsert создает клан или обновляет логотип существующего
func (r *ClanRepository) Upsert(ctx context.Context, name, logoURL string) (*domain.Clan, error) {
	query := `
		INSERT INTO clans (name, logo_url)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (name) DO UPDATE
		SET logo_url = COALESCE(EXCLUDED.logo_url, clans.logo_url)
		RETURNING id, name, COALESCE(logo_url, '')
	`

	var clan domain.Clan
	if err := r.db.QueryRow(ctx, query, name, logoURL).Scan(&clan.ID, &clan.Name, &clan.LogoURL); err != nil {
		return nil, err
	}
	return &clan, nil
}
