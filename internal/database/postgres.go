package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/odvcencio/refledger/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresDB struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*PostgresDB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Close() error { return p.db.Close() }

func (p *PostgresDB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresDB) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, pgSchema)
	return err
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ledgers (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	owner TEXT NOT NULL,
	default_branch TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
	id BIGSERIAL PRIMARY KEY,
	ledger TEXT NOT NULL,
	kind TEXT NOT NULL,
	branch_key TEXT NOT NULL DEFAULT '',
	branch TEXT NOT NULL DEFAULT '',
	old_oid TEXT NOT NULL DEFAULT '',
	new_oid TEXT NOT NULL DEFAULT '',
	size BIGINT NOT NULL DEFAULT 0,
	old_name TEXT NOT NULL DEFAULT '',
	new_name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_ledger ON notifications(ledger, id);
`

func (p *PostgresDB) CreateUser(ctx context.Context, user *models.User) error {
	return p.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		user.Username, user.Email, user.PasswordHash).Scan(&user.ID)
}

func (p *PostgresDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(p.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id))
}

func (p *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(p.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`, username))
}

func (p *PostgresDB) CreateLedger(ctx context.Context, l *models.Ledger) error {
	return p.db.QueryRowContext(ctx,
		`INSERT INTO ledgers (name, owner, default_branch) VALUES ($1, $2, $3) RETURNING id`,
		l.Name, l.Owner, l.DefaultBranch).Scan(&l.ID)
}

func (p *PostgresDB) DeleteLedger(ctx context.Context, name string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM ledgers WHERE name = $1`, name)
	return err
}

func (p *PostgresDB) GetLedger(ctx context.Context, name string) (*models.Ledger, error) {
	return scanLedger(p.db.QueryRowContext(ctx,
		`SELECT id, name, owner, default_branch, created_at FROM ledgers WHERE name = $1`, name))
}

func (p *PostgresDB) ListLedgers(ctx context.Context, owner string) ([]models.Ledger, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, owner, default_branch, created_at FROM ledgers WHERE owner = $1 ORDER BY name`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgers(rows)
}

func (p *PostgresDB) AllLedgers(ctx context.Context) ([]models.Ledger, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, owner, default_branch, created_at FROM ledgers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgers(rows)
}

func (p *PostgresDB) UpdateLedgerDefaultBranch(ctx context.Context, name, branch string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE ledgers SET default_branch = $1 WHERE name = $2`, branch, name)
	return err
}

func (p *PostgresDB) AppendNotification(ctx context.Context, n *models.Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	return p.db.QueryRowContext(ctx,
		`INSERT INTO notifications (ledger, kind, branch_key, branch, old_oid, new_oid, size, old_name, new_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		n.Ledger, string(n.Kind), branchKeyText(n.BranchKey), n.Branch,
		n.OldOID.String(), n.NewOID.String(), n.Size, n.OldName, n.NewName, n.Timestamp).Scan(&n.ID)
}

func (p *PostgresDB) ListNotifications(ctx context.Context, ledger string, afterID int64, limit int) ([]models.Notification, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, ledger, kind, branch_key, branch, old_oid, new_oid, size, old_name, new_name, created_at
		 FROM notifications WHERE ledger = $1 AND id > $2 ORDER BY id LIMIT $3`,
		ledger, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}
