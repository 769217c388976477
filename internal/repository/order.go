package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"order-intake-bot/internal/model"
)

type Stats struct {
	TotalOrders   int64
	TotalQuantity int64
	PaymentCounts map[string]int64
}

type PendingReview struct {
	OrderID     uint
	UserID      int64
	ProductName string
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	UpdatePayment(ctx context.Context, orderID uint, method, info string) error
	MarkReviewed(ctx context.Context, orderID uint) error
	ForUser(ctx context.Context, userID int64) ([]*model.Order, error)
	LatestPendingReview(ctx context.Context, userID int64) (*model.Order, error)
	PendingReview(ctx context.Context) ([]PendingReview, error)
	All(ctx context.Context) ([]*model.Order, error)
	Stats(ctx context.Context) (*Stats, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) UpdatePayment(ctx context.Context, orderID uint, method, info string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_method": method,
			"payment_info":   info,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepoImpl) MarkReviewed(ctx context.Context, orderID uint) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("review_sent", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepoImpl) ForUser(ctx context.Context, userID int64) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) LatestPendingReview(ctx context.Context, userID int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND review_sent = ?", userID, false).
		Order("created_at DESC, id DESC").
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) PendingReview(ctx context.Context) ([]PendingReview, error) {
	var pending []PendingReview
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("id AS order_id, user_id, product_name").
		Where("review_sent = ?", false).
		Order("id").
		Scan(&pending).Error

	if err != nil {
		return nil, err
	}

	return pending, nil
}

func (r *orderRepoImpl) All(ctx context.Context) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{PaymentCounts: map[string]int64{}}

	if err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&stats.TotalQuantity).Error
	if err != nil {
		return nil, err
	}

	rows, err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("payment_method, COUNT(*)").
		Where("payment_method IS NOT NULL").
		Group("payment_method").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var count int64
		if err := rows.Scan(&method, &count); err != nil {
			return nil, err
		}
		stats.PaymentCounts[method] = count
	}

	return stats, rows.Err()
}
