package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"order-intake-bot/internal/catalog"
	"order-intake-bot/internal/model"
)

type InventoryRepository interface {
	SeedFromCatalog(ctx context.Context, entries []catalog.Entry) error
	ListAvailable(ctx context.Context) ([]*model.Product, error)
	Get(ctx context.Context, name string) (*model.Product, error)
	Reserve(ctx context.Context, name string, quantity int) error
	Release(ctx context.Context, name string, quantity int) error
}

type inventoryRepoImpl struct {
	db       *gorm.DB
	snapshot *catalog.File
	log      zerolog.Logger
}

func NewInventoryRepository(db *gorm.DB, snapshot *catalog.File, log zerolog.Logger) InventoryRepository {
	return &inventoryRepoImpl{
		db:       db,
		snapshot: snapshot,
		log:      log,
	}
}

// SeedFromCatalog makes the catalog file authoritative at startup: every
// entry is upserted with the stock and position the file carries.
func (r *inventoryRepoImpl) SeedFromCatalog(ctx context.Context, entries []catalog.Entry) error {
	products := make([]model.Product, len(entries))
	for i, e := range entries {
		products[i] = model.Product{
			Name:     e.Name,
			Link:     e.Link,
			Stock:    e.Stock,
			Position: i,
		}
	}
	if len(products) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"link", "stock", "position"}),
	}).Create(&products).Error
}

func (r *inventoryRepoImpl) ListAvailable(ctx context.Context) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("stock > 0").
		Order("position").
		Find(&products).Error

	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *inventoryRepoImpl) Get(ctx context.Context, name string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	return &product, nil
}

// Reserve is the single stock-decrement point. The check and the decrement
// run as one conditional UPDATE inside a transaction, so two concurrent
// reservations against the same product can never both pass the check.
func (r *inventoryRepoImpl) Reserve(ctx context.Context, name string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Product{}).
			Where("name = ? AND stock >= ?", name, quantity).
			Update("stock", gorm.Expr("stock - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var product model.Product
			if err := tx.Where("name = ?", name).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound
				}
				return err
			}
			return &InsufficientStockError{Product: name, Requested: quantity, Available: product.Stock}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.writeSnapshot(ctx)
	return nil
}

func (r *inventoryRepoImpl) Release(ctx context.Context, name string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}

	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("name = ?", name).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}

	r.writeSnapshot(ctx)
	return nil
}

// writeSnapshot mirrors the database counts back into the catalog file. The
// database is authoritative, so a failed snapshot is logged rather than
// turned into a reservation failure.
func (r *inventoryRepoImpl) writeSnapshot(ctx context.Context) {
	if r.snapshot == nil {
		return
	}

	var products []model.Product
	if err := r.db.WithContext(ctx).Order("position").Find(&products).Error; err != nil {
		r.log.Error().Err(err).Msg("read products for catalog snapshot")
		return
	}

	entries := make([]catalog.Entry, len(products))
	for i, p := range products {
		entries[i] = catalog.Entry{Name: p.Name, Link: p.Link, Stock: p.Stock}
	}
	if err := r.snapshot.Write(entries); err != nil {
		r.log.Error().Err(err).Msg("write catalog snapshot")
	}
}
