package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devlinkgh/backend/internal/models"
)

// PG implements Store over a pgx pool.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

var _ Store = (*PG)(nil)

func (s *PG) WalletBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `
		SELECT wallet_balance FROM users WHERE id = $1
	`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

func (s *PG) AdjustWallet(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	var newBalance int64
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = now()
		WHERE id = $2 AND wallet_balance + $1 >= 0
		RETURNING wallet_balance
	`, delta, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, s.missingOr(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID, ErrInsufficientFunds)
	}
	return newBalance, err
}

func (s *PG) CreditEscrow(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error) {
	var newBalance int64
	err := s.pool.QueryRow(ctx, `
		UPDATE projects SET escrow_balance = escrow_balance + $1, updated_at = now()
		WHERE id = $2 AND escrow_balance + total_paid + $1 <= budget
		RETURNING escrow_balance
	`, amount, projectID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, s.missingOr(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, projectID, ErrEscrowOverBudget)
	}
	return newBalance, err
}

func (s *PG) DebitEscrow(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error) {
	var newBalance int64
	err := s.pool.QueryRow(ctx, `
		UPDATE projects SET escrow_balance = escrow_balance - $1, updated_at = now()
		WHERE id = $2 AND escrow_balance >= $1
		RETURNING escrow_balance
	`, amount, projectID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, s.missingOr(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, projectID, ErrInsufficientFunds)
	}
	return newBalance, err
}

func (s *PG) DebitEscrowForPayout(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error) {
	var newBalance int64
	err := s.pool.QueryRow(ctx, `
		UPDATE projects
		SET escrow_balance = escrow_balance - $1, total_paid = total_paid + $1, updated_at = now()
		WHERE id = $2 AND escrow_balance >= $1
		RETURNING escrow_balance
	`, amount, projectID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, s.missingOr(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, projectID, ErrInsufficientFunds)
	}
	return newBalance, err
}

func (s *PG) ReversePayoutDebit(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error) {
	var newBalance int64
	err := s.pool.QueryRow(ctx, `
		UPDATE projects
		SET escrow_balance = escrow_balance + $1, total_paid = total_paid - $1, updated_at = now()
		WHERE id = $2 AND total_paid >= $1
		RETURNING escrow_balance
	`, amount, projectID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return newBalance, err
}

func (s *PG) AppendEntry(ctx context.Context, t *models.Transaction) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, direction, amount, category, status, reference, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, t.ID, t.UserID, t.Direction, t.Amount, t.Category, t.Status, t.Reference, t.Description).Scan(&t.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateReference
	}
	return err
}

func (s *PG) FindEntryByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	var t models.Transaction
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, direction, amount, category, status, reference, description, created_at
		FROM transactions WHERE reference = $1
	`, ref).Scan(&t.ID, &t.UserID, &t.Direction, &t.Amount, &t.Category, &t.Status, &t.Reference, &t.Description, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PG) ListEntriesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, direction, amount, category, status, reference, description, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PG) ListEntries(ctx context.Context, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, direction, amount, category, status, reference, description, created_at
		FROM transactions ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*models.Transaction, error) {
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Direction, &t.Amount, &t.Category, &t.Status, &t.Reference, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// missingOr disambiguates a zero-row conditional UPDATE: ErrNotFound when
// the row does not exist, otherwise the given guard failure.
func (s *PG) missingOr(ctx context.Context, existsQuery string, id uuid.UUID, guardErr error) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, existsQuery, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return guardErr
}
