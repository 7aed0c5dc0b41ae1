package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"landlock/pkg/domain"
	"landlock/pkg/platform/sentinel"
	"landlock/pkg/requestcontext"
)

// Postgres backs the substrate with PostgreSQL. First-writer-wins creation
// maps to INSERT .. ON CONFLICT DO NOTHING, atomicity to a serializable
// transaction, and reads inside a transaction take row locks so two settlement
// attempts on the same records serialize instead of interleaving.
//
// Balances are stored as BIGINT; amounts above MaxInt64 are rejected as
// overflow before they reach the database.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS ledger_records (
	address    TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	data       JSONB NOT NULL,
	balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_accounts (
	owner   TEXT PRIMARY KEY,
	balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
);
`

// Migrate creates the substrate tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

func (p *Postgres) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	pgtx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	if err := fn(&postgresTx{tx: pgtx}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, addr Address) (*Record, error) {
	return scanRecord(p.pool.QueryRow(ctx,
		`SELECT address, kind, data, balance, created_at, updated_at
		 FROM ledger_records WHERE address = $1`, string(addr)))
}

func (p *Postgres) Balance(ctx context.Context, owner domain.PublicKey) (uint64, error) {
	var balance int64
	err := p.pool.QueryRow(ctx,
		`SELECT balance FROM ledger_accounts WHERE owner = $1`, string(owner)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read account balance: %w", err)
	}
	return uint64(balance), nil
}

func (p *Postgres) Credit(ctx context.Context, owner domain.PublicKey, amount uint64) error {
	if amount > math.MaxInt64 {
		return sentinel.ErrOverflow
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO ledger_accounts (owner, balance) VALUES ($1, $2)
		 ON CONFLICT (owner) DO UPDATE SET balance = ledger_accounts.balance + EXCLUDED.balance`,
		string(owner), int64(amount))
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	return nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Create(ctx context.Context, kind string, addr Address, data []byte) error {
	now := requestcontext.Now(ctx)
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO ledger_records (address, kind, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (address) DO NOTHING`,
		string(addr), kind, data, now)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrAlreadyExists
	}
	return nil
}

func (t *postgresTx) Get(ctx context.Context, addr Address) (*Record, error) {
	return scanRecord(t.tx.QueryRow(ctx,
		`SELECT address, kind, data, balance, created_at, updated_at
		 FROM ledger_records WHERE address = $1 FOR UPDATE`, string(addr)))
}

func (t *postgresTx) Put(ctx context.Context, addr Address, data []byte) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ledger_records SET data = $2, updated_at = $3 WHERE address = $1`,
		string(addr), data, requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (t *postgresTx) Reclaim(ctx context.Context, addr Address, recipient domain.PublicKey) error {
	var balance int64
	err := t.tx.QueryRow(ctx,
		`DELETE FROM ledger_records WHERE address = $1 RETURNING balance`,
		string(addr)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reclaim record: %w", err)
	}
	if balance > 0 {
		if err := t.creditAccount(ctx, recipient, uint64(balance)); err != nil {
			return err
		}
	}
	return nil
}

func (t *postgresTx) Deposit(ctx context.Context, from domain.PublicKey, to Address, amount uint64) error {
	if amount > math.MaxInt64 {
		return sentinel.ErrOverflow
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE ledger_accounts SET balance = balance - $2 WHERE owner = $1 AND balance >= $2`,
		string(from), int64(amount))
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrInsufficientFunds
	}
	tag, err = t.tx.Exec(ctx,
		`UPDATE ledger_records SET balance = balance + $2, updated_at = $3 WHERE address = $1`,
		string(to), int64(amount), requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("credit record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (t *postgresTx) Release(ctx context.Context, from Address, to domain.PublicKey, amount uint64) error {
	if amount > math.MaxInt64 {
		return sentinel.ErrOverflow
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE ledger_records SET balance = balance - $2, updated_at = $3
		 WHERE address = $1 AND balance >= $2`,
		string(from), int64(amount), requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("debit record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrInsufficientFunds
	}
	return t.creditAccount(ctx, to, amount)
}

func (t *postgresTx) creditAccount(ctx context.Context, owner domain.PublicKey, amount uint64) error {
	if amount > math.MaxInt64 {
		return sentinel.ErrOverflow
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ledger_accounts (owner, balance) VALUES ($1, $2)
		 ON CONFLICT (owner) DO UPDATE SET balance = ledger_accounts.balance + EXCLUDED.balance`,
		string(owner), int64(amount))
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var addr, kind string
	var balance int64
	err := row.Scan(&addr, &kind, &rec.Data, &balance, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	rec.Address = Address(addr)
	rec.Kind = kind
	rec.Balance = uint64(balance)
	return &rec, nil
}
