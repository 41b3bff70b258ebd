package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nmehta6/churnbank/internal/apperrors"
	"github.com/nmehta6/churnbank/internal/core/domain"
	portsrepo "github.com/nmehta6/churnbank/internal/core/ports/repositories"
)

type PgxLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new repository for account data.
func NewLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepository {
	return &PgxLedgerRepository{pool: pool}
}

const accountColumns = `account_id, owner_id, name, class, currency_code, balance, credit_limit, status, risk_tier, last_activity_at, created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.AccountID,
		&account.OwnerID,
		&account.Name,
		&account.Class,
		&account.CurrencyCode,
		&account.Balance,
		&account.CreditLimit,
		&account.Status,
		&account.RiskTier,
		&account.LastActivityAt,
		&account.CreatedAt,
		&account.CreatedBy,
		&account.LastUpdatedAt,
		&account.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SaveAccount inserts a new account or updates an existing one. Balance is
// deliberately excluded from the update path: balances change only through
// the transaction log append.
func (r *PgxLedgerRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (account_id) DO UPDATE
		SET name = EXCLUDED.name,
		    status = EXCLUDED.status,
		    last_updated_at = EXCLUDED.last_updated_at,
		    last_updated_by = EXCLUDED.last_updated_by;
	`
	_, err := r.pool.Exec(ctx, query,
		account.AccountID,
		account.OwnerID,
		account.Name,
		account.Class,
		account.CurrencyCode,
		account.Balance,
		account.CreditLimit,
		account.Status,
		account.RiskTier,
		account.LastActivityAt,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxLedgerRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	account, err := scanAccount(r.pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account by ID %s: %w", accountID, err)
	}
	return account, nil
}

// FindAccountsByIDs retrieves multiple accounts by IDs. Missing ids are
// absent from the returned map.
func (r *PgxLedgerRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1);`
	rows, err := r.pool.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by IDs: %w", err)
	}
	defer rows.Close()

	accountsMap := make(map[string]domain.Account)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accountsMap[account.AccountID] = *account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accountsMap, nil
}

// UpdateRiskTier overwrites the stored risk tier after a scoring run.
func (r *PgxLedgerRepository) UpdateRiskTier(ctx context.Context, accountID string, tier domain.RiskTier, now time.Time) error {
	query := `
		UPDATE accounts
		SET risk_tier = $2, last_updated_at = $3
		WHERE account_id = $1;
	`
	cmdTag, err := r.pool.Exec(ctx, query, accountID, tier, now)
	if err != nil {
		return fmt.Errorf("failed to update risk tier for account %s: %w", accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
