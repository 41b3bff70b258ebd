package pgsql

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nmehta6/churnbank/internal/apperrors"
	"github.com/nmehta6/churnbank/internal/core/domain"
	portsrepo "github.com/nmehta6/churnbank/internal/core/ports/repositories"
	"github.com/nmehta6/churnbank/internal/utils/pagination"
)

type PgxTransactionLogRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionLogRepository creates a new repository for the append-only
// transaction log.
func NewTransactionLogRepository(pool *pgxpool.Pool) portsrepo.TransactionLogRepository {
	return &PgxTransactionLogRepository{pool: pool}
}

// Append applies the balance deltas and inserts the log record within one DB
// transaction. Account rows are locked FOR UPDATE in ascending id order, the
// same order the processor's lock table uses, and the balance floor is
// re-checked as a final guard.
func (r *PgxTransactionLogRepository) Append(ctx context.Context, txn domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	accountIDs := make([]string, 0, len(balanceChanges))
	for id := range balanceChanges {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	lockQuery := `
		SELECT account_id, balance, credit_limit
		FROM accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, lockQuery, accountIDs)
	if err != nil {
		return fmt.Errorf("failed to lock account rows: %w", err)
	}

	locked := 0
	for rows.Next() {
		var id string
		var balance, creditLimit decimal.Decimal
		if err := rows.Scan(&id, &balance, &creditLimit); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan locked account row: %w", err)
		}
		if balance.Add(balanceChanges[id]).LessThan(creditLimit.Neg()) {
			rows.Close()
			return apperrors.ErrInsufficientFunds
		}
		locked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating locked account rows: %w", err)
	}
	if locked != len(accountIDs) {
		return fmt.Errorf("%w: could not lock all accounts for %s", apperrors.ErrNotFound, txn.TransactionID)
	}

	updateQuery := `
		UPDATE accounts
		SET balance = balance + $2, last_activity_at = $3, last_updated_at = $3
		WHERE account_id = $1;
	`
	batch := &pgx.Batch{}
	for _, id := range accountIDs {
		batch.Queue(updateQuery, id, balanceChanges[id], txn.CompletedAt)
	}
	insertQuery := `
		INSERT INTO transactions (transaction_id, account_id, target_account_id, type, amount, currency_code, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	batch.Queue(insertQuery,
		txn.TransactionID,
		txn.AccountID,
		txn.TargetAccountID,
		txn.Type,
		txn.Amount,
		txn.CurrencyCode,
		txn.Status,
		txn.CreatedAt,
		txn.CompletedAt,
	)

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to execute commit batch for transaction %s: %w", txn.TransactionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction %s: %w", txn.TransactionID, err)
	}
	return nil
}

const transactionColumns = `transaction_id, account_id, target_account_id, type, amount, currency_code, status, created_at, completed_at`

func scanTransaction(rows pgx.Rows) (domain.Transaction, error) {
	var txn domain.Transaction
	err := rows.Scan(
		&txn.TransactionID,
		&txn.AccountID,
		&txn.TargetAccountID,
		&txn.Type,
		&txn.Amount,
		&txn.CurrencyCode,
		&txn.Status,
		&txn.CreatedAt,
		&txn.CompletedAt,
	)
	return txn, err
}

// ListByAccount returns records touching an account, most recent first, with
// (created_at, transaction_id) keyset pagination.
func (r *PgxTransactionLogRepository) ListByAccount(ctx context.Context, accountID string, filter portsrepo.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE (account_id = $1 OR target_account_id = $1)
	`
	args := []any{accountID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if nextToken != nil {
		createdAt, id, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		args = append(args, createdAt, id)
		query += fmt.Sprintf(" AND (created_at, transaction_id) < ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, limit+1) // fetch one extra row to know whether more remain
	query += fmt.Sprintf(" ORDER BY created_at DESC, transaction_id DESC LIMIT $%d;", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan transaction row for account %s: %w", accountID, err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating transaction rows for account %s: %w", accountID, err)
	}

	var token *string
	if len(transactions) > limit {
		transactions = transactions[:limit]
		last := transactions[len(transactions)-1]
		encoded := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		token = &encoded
	}

	return transactions, token, nil
}

// AggregateByAccount returns the committed record count and amount sum over
// an account's full history.
func (r *PgxTransactionLogRepository) AggregateByAccount(ctx context.Context, accountID string) (portsrepo.TransactionAggregate, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1 OR target_account_id = $1;
	`
	var agg portsrepo.TransactionAggregate
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&agg.Count, &agg.Sum); err != nil {
		return portsrepo.TransactionAggregate{}, fmt.Errorf("failed to aggregate transactions for account %s: %w", accountID, err)
	}
	return agg, nil
}
