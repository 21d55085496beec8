package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/models"
)

// DB is the durable form of the ticket ledger, backed by a single SQLite
// file. Only the ledger store writes through it.
type DB struct {
	Bun *bun.DB
}

// CreateSchema creates the tickets table if it does not exist yet.
func (d *DB) CreateSchema(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.Ticket)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// ReplaceAll swaps the entire durable ledger for the given batch in one
// transaction. A failed replace leaves the previous ledger untouched.
func (d *DB) ReplaceAll(ctx context.Context, tickets []models.Ticket) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("1 = 1").
			Exec(ctx); err != nil {
			return err
		}
		if len(tickets) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&tickets).Exec(ctx)
		return err
	})
}

// MarkRedeemed persists the redeemed flag and timestamp for one ticket.
func (d *DB) MarkRedeemed(ctx context.Context, ticket models.Ticket) error {
	res, err := d.Bun.NewUpdate().
		Model(&ticket).
		Column("redeemed", "redeemed_at").
		Where("id = ?", ticket.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// LoadAll reads the full durable ledger in import order.
func (d *DB) LoadAll(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
