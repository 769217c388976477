package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"order-intake-bot/internal/repository"
)

// ReminderService nags users whose orders still await a review screenshot.
// A sweep reads the ledger and queues one reminder per pending order; it
// mutates nothing, so re-running it is safe.
type ReminderService interface {
	Sweep(ctx context.Context)
}

type reminderServiceImpl struct {
	orders repository.OrderRepository
	notify Notifier
	log    zerolog.Logger
}

func NewReminderService(orders repository.OrderRepository, notify Notifier, log zerolog.Logger) ReminderService {
	return &reminderServiceImpl{
		orders: orders,
		notify: notify,
		log:    log,
	}
}

func (s *reminderServiceImpl) Sweep(ctx context.Context) {
	pending, err := s.orders.PendingReview(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("load orders pending review")
		return
	}

	for _, p := range pending {
		s.notify.Push(p.UserID, fmt.Sprintf(
			"Hello! Please send a screenshot of your review for %s.", p.ProductName))
	}
	if len(pending) > 0 {
		s.log.Info().Int("count", len(pending)).Msg("review reminders queued")
	}
}
