package repository

import (
	"context"
	"fmt"

	"fitfinder/ingest/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ItemRepository interface {
	ItemExists(ctx context.Context, name string) (bool, error)
	// InsertItem writes item and its variants in one transaction. A unique
	// violation on item_name is reported as AlreadyExists rather than an
	// error, and nothing is written.
	InsertItem(ctx context.Context, item domain.Item, variants domain.ItemVariants) (domain.InsertOutcome, error)
}

type itemRepository struct {
	db Querier
}

func NewItemRepository(db Querier) ItemRepository {
	return &itemRepository{
		db: db,
	}
}

func (r *itemRepository) ItemExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE item_name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check item %q: %w", name, err)
	}
	return exists, nil
}

func (r *itemRepository) InsertItem(ctx context.Context, item domain.Item, variants domain.ItemVariants) (domain.InsertOutcome, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.InsertOutcome{}, fmt.Errorf("failed to begin item transaction: %w", err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO items (item_name, price, item_gender) VALUES ($1, $2, $3) RETURNING itemid`,
		item.Name, item.Price, item.Gender,
	).Scan(&id)
	if isUniqueViolationOnConstraint(err, itemNameConstraintName) {
		return domain.AlreadyExists(), nil
	}
	if err != nil {
		return domain.InsertOutcome{}, fmt.Errorf("failed to insert item %q: %w", item.Name, err)
	}

	if err := insertVariants(ctx, tx, variants.WithItemID(id)); err != nil {
		return domain.InsertOutcome{}, fmt.Errorf("failed to insert variants for item %q: %w", item.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.InsertOutcome{}, fmt.Errorf("failed to commit item %q: %w", item.Name, err)
	}
	return domain.Inserted(id), nil
}

func insertVariants(ctx context.Context, tx pgx.Tx, variants domain.ItemVariants) error {
	batch := &pgx.Batch{}
	for _, s := range variants.Sizes {
		batch.Queue(`INSERT INTO sizes (itemid, size) VALUES ($1, $2)`, s.ItemID, s.Size)
	}
	for _, c := range variants.Colors {
		batch.Queue(`INSERT INTO colors (itemid, color, photo_url) VALUES ($1, $2, $3)`, c.ItemID, c.Color, c.PhotoURL)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}
