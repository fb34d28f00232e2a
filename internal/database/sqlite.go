package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odvcencio/refledger/internal/models"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func OpenSQLite(dsn string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Enable WAL mode and foreign keys
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) Close() error { return s.db.Close() }

func (s *SQLiteDB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteDB) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ledgers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	owner TEXT NOT NULL,
	default_branch TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ledger TEXT NOT NULL,
	kind TEXT NOT NULL,
	branch_key TEXT NOT NULL DEFAULT '',
	branch TEXT NOT NULL DEFAULT '',
	old_oid TEXT NOT NULL DEFAULT '',
	new_oid TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	old_name TEXT NOT NULL DEFAULT '',
	new_name TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_ledger ON notifications(ledger, id);
`

func (s *SQLiteDB) CreateUser(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash)
	if err != nil {
		return err
	}
	user.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username))
}

func (s *SQLiteDB) CreateLedger(ctx context.Context, l *models.Ledger) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ledgers (name, owner, default_branch) VALUES (?, ?, ?)`,
		l.Name, l.Owner, l.DefaultBranch)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteDB) DeleteLedger(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ledgers WHERE name = ?`, name)
	return err
}

func (s *SQLiteDB) GetLedger(ctx context.Context, name string) (*models.Ledger, error) {
	return scanLedger(s.db.QueryRowContext(ctx,
		`SELECT id, name, owner, default_branch, created_at FROM ledgers WHERE name = ?`, name))
}

func (s *SQLiteDB) ListLedgers(ctx context.Context, owner string) ([]models.Ledger, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner, default_branch, created_at FROM ledgers WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgers(rows)
}

func (s *SQLiteDB) AllLedgers(ctx context.Context) ([]models.Ledger, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner, default_branch, created_at FROM ledgers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgers(rows)
}

func (s *SQLiteDB) UpdateLedgerDefaultBranch(ctx context.Context, name, branch string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ledgers SET default_branch = ? WHERE name = ?`, branch, name)
	return err
}

func (s *SQLiteDB) AppendNotification(ctx context.Context, n *models.Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (ledger, kind, branch_key, branch, old_oid, new_oid, size, old_name, new_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Ledger, string(n.Kind), branchKeyText(n.BranchKey), n.Branch,
		n.OldOID.String(), n.NewOID.String(), n.Size, n.OldName, n.NewName, n.Timestamp)
	if err != nil {
		return err
	}
	n.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteDB) ListNotifications(ctx context.Context, ledger string, afterID int64, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ledger, kind, branch_key, branch, old_oid, new_oid, size, old_name, new_name, created_at
		 FROM notifications WHERE ledger = ? AND id > ? ORDER BY id LIMIT ?`,
		ledger, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// Shared row scanning for both backends.

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanLedger(row rowScanner) (*models.Ledger, error) {
	var l models.Ledger
	if err := row.Scan(&l.ID, &l.Name, &l.Owner, &l.DefaultBranch, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLedgers(rows *sql.Rows) ([]models.Ledger, error) {
	var out []models.Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func collectNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var kind, branchKey, oldOID, newOID string
		if err := rows.Scan(&n.ID, &n.Ledger, &kind, &branchKey, &n.Branch,
			&oldOID, &newOID, &n.Size, &n.OldName, &n.NewName, &n.Timestamp); err != nil {
			return nil, err
		}
		n.Kind = models.NotificationKind(kind)
		if branchKey != "" {
			if key, err := uuid.Parse(branchKey); err == nil {
				n.BranchKey = key
			}
		}
		if o, err := models.ParseOID(oldOID); err == nil {
			n.OldOID = o
		}
		if o, err := models.ParseOID(newOID); err == nil {
			n.NewOID = o
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func branchKeyText(key uuid.UUID) string {
	if key == (uuid.UUID{}) {
		return ""
	}
	return key.String()
}
