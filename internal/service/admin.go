package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"order-intake-bot/internal/repository"
)

type AdminService interface {
	Stats(ctx context.Context) (*repository.Stats, error)
	// ExportCSV serializes every order, newest first. Returns nil when the
	// ledger is empty.
	ExportCSV(ctx context.Context) ([]byte, error)
}

type adminServiceImpl struct {
	orders repository.OrderRepository
}

func NewAdminService(orders repository.OrderRepository) AdminService {
	return &adminServiceImpl{
		orders: orders,
	}
}

func (s *adminServiceImpl) Stats(ctx context.Context) (*repository.Stats, error) {
	return s.orders.Stats(ctx)
}

func (s *adminServiceImpl) ExportCSV(ctx context.Context) ([]byte, error) {
	orders, err := s.orders.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{
		"ID", "User ID", "Quantity", "Customer Name", "Order Number",
		"Payment Method", "Payment Info", "Review Sent", "Created At",
		"Product Name", "Product Link",
	}); err != nil {
		return nil, err
	}

	for _, o := range orders {
		reviewed := "no"
		if o.ReviewSent {
			reviewed = "yes"
		}
		record := []string{
			strconv.FormatUint(uint64(o.ID), 10),
			strconv.FormatInt(o.UserID, 10),
			strconv.Itoa(o.Quantity),
			orDash(o.CustomerName),
			orDash(o.OrderRef),
			orDashPtr(o.PaymentMethod),
			orDashPtr(o.PaymentInfo),
			reviewed,
			o.CreatedAt.Format("2006-01-02 15:04:05"),
			o.ProductName,
			o.ProductLink,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func orDashPtr(s *string) string {
	if s == nil {
		return "-"
	}
	return orDash(*s)
}
