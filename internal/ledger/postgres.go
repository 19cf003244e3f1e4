package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxTxAttempts = 3

	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
)

// PostgresStore persists balances, deposits and transfers in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureBalance creates the user's balance row if it does not exist yet.
func (s *PostgresStore) EnsureBalance(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx, `INSERT INTO balances (user_id, amount, locked) VALUES ($1, 0, 0)
        ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// Balance returns the current available and locked funds for a user.
func (s *PostgresStore) Balance(ctx context.Context, userID int64) (Balance, error) {
	b := Balance{UserID: userID}
	err := s.db.QueryRow(ctx, `SELECT amount, locked FROM balances WHERE user_id = $1`, userID).
		Scan(&b.Amount, &b.Locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// OnRamp fetches a deposit by token.
func (s *PostgresStore) OnRamp(ctx context.Context, token string) (OnRampTransaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+onRampColumns+` FROM on_ramp_transactions WHERE token = $1`, token)
	txn, err := scanOnRamp(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return OnRampTransaction{}, ErrInvalidToken
	}
	return txn, err
}

// OnRampsByUser lists a user's deposits, newest first.
func (s *PostgresStore) OnRampsByUser(ctx context.Context, userID int64, limit int) ([]OnRampTransaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+onRampColumns+` FROM on_ramp_transactions
        WHERE user_id = $1 ORDER BY start_time DESC, id DESC LIMIT $2`, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOnRamps(rows)
}

// TransfersByUser lists transfers sent or received by a user, newest first.
func (s *PostgresStore) TransfersByUser(ctx context.Context, userID int64, limit int) ([]P2PTransfer, error) {
	rows, err := s.db.Query(ctx, `SELECT id, from_user_id, to_user_id, amount, created_at
        FROM p2p_transfers WHERE from_user_id = $1 OR to_user_id = $1
        ORDER BY created_at DESC, id DESC LIMIT $2`, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]P2PTransfer, 0)
	for rows.Next() {
		var t P2PTransfer
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Timestamp = t.Timestamp.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// StaleOnRamps lists deposits still Processing that started before the cutoff.
func (s *PostgresStore) StaleOnRamps(ctx context.Context, before time.Time, limit int) ([]OnRampTransaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+onRampColumns+` FROM on_ramp_transactions
        WHERE status = $1 AND start_time < $2 ORDER BY start_time LIMIT $3`,
		StatusProcessing.String(), before.UTC(), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOnRamps(rows)
}

// Atomically runs fn in a read-committed transaction. Serialization failures and
// deadlocks restart the whole unit.
func (s *PostgresStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return fmt.Errorf("transaction aborted after %d attempts: %w", maxTxAttempts, err)
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) LockBalances(ctx context.Context, userIDs ...int64) (map[int64]Balance, error) {
	ids := append([]int64(nil), userIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make(map[int64]Balance, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		b := Balance{UserID: id}
		err := t.tx.QueryRow(ctx, `SELECT amount, locked FROM balances WHERE user_id = $1 FOR UPDATE`, id).
			Scan(&b.Amount, &b.Locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrBalanceNotFound
			}
			return nil, err
		}
		out[id] = b
	}
	return out, nil
}

func (t *postgresTx) SaveBalance(ctx context.Context, b Balance) error {
	if b.Amount < 0 || b.Locked < 0 {
		return ErrNegativeBalance
	}
	cmd, err := t.tx.Exec(ctx, `UPDATE balances SET amount = $2, locked = $3, updated_at = now()
        WHERE user_id = $1`, b.UserID, b.Amount, b.Locked)
	if err != nil {
		if hasCode(err, pgCheckViolation) {
			return ErrNegativeBalance
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBalanceNotFound
	}
	return nil
}

func (t *postgresTx) LockOnRamp(ctx context.Context, token string) (OnRampTransaction, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+onRampColumns+` FROM on_ramp_transactions
        WHERE token = $1 FOR UPDATE`, token)
	txn, err := scanOnRamp(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return OnRampTransaction{}, ErrInvalidToken
	}
	return txn, err
}

func (t *postgresTx) InsertOnRamp(ctx context.Context, txn OnRampTransaction) (OnRampTransaction, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO on_ramp_transactions (token, user_id, amount, status, provider, start_time)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		txn.Token, txn.UserID, txn.Amount, txn.Status.String(), txn.Provider, txn.StartTime.UTC()).
		Scan(&txn.ID)
	if err != nil {
		if hasCode(err, pgUniqueViolation) {
			return OnRampTransaction{}, ErrDuplicateToken
		}
		return OnRampTransaction{}, err
	}
	return txn, nil
}

func (t *postgresTx) SetOnRampStatus(ctx context.Context, token string, status Status) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE on_ramp_transactions SET status = $2 WHERE token = $1`, token, status.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (t *postgresTx) InsertTransfer(ctx context.Context, transfer P2PTransfer) (P2PTransfer, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO p2p_transfers (from_user_id, to_user_id, amount, created_at)
        VALUES ($1, $2, $3, $4) RETURNING id`,
		transfer.FromUserID, transfer.ToUserID, transfer.Amount, transfer.Timestamp.UTC()).
		Scan(&transfer.ID)
	if err != nil {
		return P2PTransfer{}, err
	}
	return transfer, nil
}

const onRampColumns = `id, token, user_id, amount, status, provider, start_time`

func scanOnRamp(row pgx.Row) (OnRampTransaction, error) {
	var (
		txn    OnRampTransaction
		status string
	)
	if err := row.Scan(&txn.ID, &txn.Token, &txn.UserID, &txn.Amount, &status, &txn.Provider, &txn.StartTime); err != nil {
		return OnRampTransaction{}, err
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return OnRampTransaction{}, err
	}
	txn.Status = parsed
	txn.StartTime = txn.StartTime.UTC()
	return txn, nil
}

func collectOnRamps(rows pgx.Rows) ([]OnRampTransaction, error) {
	out := make([]OnRampTransaction, 0)
	for rows.Next() {
		txn, err := scanOnRamp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}
