package database

import (
	"context"

	"github.com/odvcencio/refledger/internal/models"
)

// DB defines the data access interface. Implemented by SQLite and PostgreSQL
// backends.
type DB interface {
	Close() error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Ledgers
	CreateLedger(ctx context.Context, l *models.Ledger) error
	DeleteLedger(ctx context.Context, name string) error
	GetLedger(ctx context.Context, name string) (*models.Ledger, error)
	ListLedgers(ctx context.Context, owner string) ([]models.Ledger, error)
	AllLedgers(ctx context.Context) ([]models.Ledger, error)
	UpdateLedgerDefaultBranch(ctx context.Context, name, branch string) error

	// Notifications: the persisted, append-only observable event log.
	AppendNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, ledger string, afterID int64, limit int) ([]models.Notification, error)
}
