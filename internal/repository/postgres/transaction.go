package postgres

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidar/rookie-board/internal/domain"
)

// TransactionRepository реализует repository.TransactionRepository для PostgreSQL
type TransactionRepository struct {
	db *pgxpool.Pool
}

// NewTransactionRepository создает новый экземпляр TransactionRepository
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert inserts all rows in one database transaction. When idempotencyKey is
// not empty it is claimed for the awarder first. A key the awarder already
// claimed for the same beneficiaries, amount and description means the request
// was processed before: nothing is inserted and replayed is true. The same key
// with a different payload fails with domain.ErrIdempotencyConflict.
func (r *TransactionRepository) Insert(ctx context.Context, idempotencyKey string, txs []*domain.Transaction) (bool, error) {
	if len(txs) == 0 {
		return false, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore error as it will fail if transaction was committed
	}()

	var requestKey *string
	if idempotencyKey != "" {
		request := newAwardRequest(txs)

		claim := `
			INSERT INTO award_requests (given_by_id, idempotency_key, member_ids, amount, description)
			VALUES ($1::uuid, $2, $3::text[]::uuid[], $4, $5)
			ON CONFLICT (given_by_id, idempotency_key) DO NOTHING
		`
		result, err := tx.Exec(ctx, claim,
			request.GivenByID, idempotencyKey, request.MemberIDs, request.Amount, request.Description)
		if err != nil {
			return false, err
		}
		if result.RowsAffected() == 0 {
			var stored awardRequest
			stored.GivenByID = request.GivenByID
			lookup := `
				SELECT member_ids::text[], amount, description
				FROM award_requests
				WHERE given_by_id = $1::uuid AND idempotency_key = $2
			`
			err := tx.QueryRow(ctx, lookup, request.GivenByID, idempotencyKey).
				Scan(&stored.MemberIDs, &stored.Amount, &stored.Description)
			if err != nil {
				return false, err
			}
			if !stored.matches(request) {
				return false, domain.ErrIdempotencyConflict
			}
			return true, nil
		}
		requestKey = &idempotencyKey
	}

	query := `
		INSERT INTO transactions (member_id, given_by_id, amount, description, request_key)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5)
		RETURNING id, created_at
	`

	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(query, t.MemberID, t.GivenByID, t.Amount, t.Description, requestKey)
	}

	results := tx.SendBatch(ctx, batch)
	for _, t := range txs {
		if err := results.QueryRow().Scan(&t.ID, &t.CreatedAt); err != nil {
			_ = results.Close()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
				return false, domain.ErrMemberNotFound
			}
			return false, err
		}
	}
	if err := results.Close(); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return false, nil
}

// awardRequest is the payload an idempotency key is bound to
type awardRequest struct {
	GivenByID   string
	MemberIDs   []string
	Amount      int
	Description string
}

func newAwardRequest(txs []*domain.Transaction) awardRequest {
	req := awardRequest{
		GivenByID:   txs[0].GivenByID,
		MemberIDs:   make([]string, 0, len(txs)),
		Amount:      txs[0].Amount,
		Description: txs[0].Description,
	}
	for _, t := range txs {
		req.MemberIDs = append(req.MemberIDs, strings.ToLower(t.MemberID))
	}
	slices.Sort(req.MemberIDs)
	return req
}

// matches compares payloads ignoring the order of beneficiaries
func (a awardRequest) matches(b awardRequest) bool {
	x := slices.Clone(a.MemberIDs)
	y := slices.Clone(b.MemberIDs)
	for i := range x {
		x[i] = strings.ToLower(x[i])
	}
	for i := range y {
		y[i] = strings.ToLower(y[i])
	}
	slices.Sort(x)
	slices.Sort(y)
	return a.GivenByID == b.GivenByID &&
		a.Amount == b.Amount &&
		a.Description == b.Description &&
		slices.Equal(x, y)
}

const transactionViewQuery = `
	SELECT t.id, t.member_id, t.given_by_id, t.amount, t.description, t.created_at,
	       m.name, COALESCE(m.avatar_url, ''),
	       g.name, g.role
	FROM transactions t
	JOIN members m ON m.id = t.member_id
	JOIN members g ON g.id = t.given_by_id
`

func collectViews(rows pgx.Rows) ([]*domain.TransactionView, error) {
	defer rows.Close()

	views := []*domain.TransactionView{}
	for rows.Next() {
		var v domain.TransactionView
		if err := rows.Scan(
			&v.ID,
			&v.MemberID,
			&v.GivenByID,
			&v.Amount,
			&v.Description,
			&v.CreatedAt,
			&v.MemberName,
			&v.MemberAvatarURL,
			&v.GivenByName,
			&v.GivenByRole,
		); err != nil {
			return nil, err
		}
		views = append(views, &v)
	}
	return views, rows.Err()
}

// ListByMember returns a member's history, newest first.
func (r *TransactionRepository) ListByMember(ctx context.Context, memberID string) ([]*domain.TransactionView, error) {
	query := transactionViewQuery + `
		WHERE t.member_id = $1::uuid
		ORDER BY t.created_at DESC, t.id
	`

	rows, err := r.db.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	return collectViews(rows)
}

// ListByMembers returns every transaction whose beneficiary is in memberIDs.
func (r *TransactionRepository) ListByMembers(ctx context.Context, memberIDs []string) ([]*domain.Transaction, error) {
	if len(memberIDs) == 0 {
		return []*domain.Transaction{}, nil
	}

	query := `
		SELECT id, member_id, given_by_id, amount, description, created_at
		FROM transactions
		WHERE member_id = ANY($1::uuid[])
	`

	rows, err := r.db.Query(ctx, query, memberIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []*domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.MemberID, &t.GivenByID, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

// ListByTimeRange returns transactions created in [from, to), newest first.
func (r *TransactionRepository) ListByTimeRange(ctx context.Context, from, to time.Time) ([]*domain.TransactionView, error) {
	query := transactionViewQuery + `
		WHERE t.created_at >= $1 AND t.created_at < $2
		ORDER BY t.created_at DESC, t.id
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	return collectViews(rows)
}
