package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"order-intake-bot/internal/model"
	"order-intake-bot/internal/repository"
	"order-intake-bot/internal/session"
)

// Callback identifiers carried in button events.
const (
	productPrefix = "product_"
	dataZelle     = "zelle"
	dataVenmo     = "venmo"
	dataCancel    = "cancel"
)

const (
	msgChooseProduct     = "Hello! Choose your order:"
	msgSoldOut           = "All products are sold out."
	msgUnavailable       = "This product is unavailable or sold out."
	msgOrderInProgress   = "You already have an order in progress. Finish it or press Cancel."
	msgQuantityInvalid   = "Enter a positive whole number."
	msgAskName           = "Enter your full name:"
	msgAskOrderRef       = "Enter your Amazon order number:"
	msgAskPayment        = "How would you like to be paid?"
	msgPickPayment       = "Pick a payment method using the buttons above."
	msgPaymentSaved      = "Payment details saved."
	msgCancelled         = "Order cancelled."
	msgUseStart          = "Use /start to choose a product."
	msgEmptyText         = "Please send a text message."
	msgUnknownAction     = "Unknown action."
	msgGenericFailure    = "Something went wrong, please try again."
	msgNothingPending    = "You have no order awaiting a review screenshot."
	msgReviewThanks      = "Thank you for your review!"
	msgReviewSaveFailure = "Could not save your screenshot, please try again."
	msgNoOrders          = "You have no orders yet."
)

type Notifier interface {
	Push(chatID int64, text string)
}

type PhotoStore interface {
	Save(userID int64, orderID uint, r io.Reader) error
}

// IntakeService drives the order conversation. Every user input is matched
// against the draft's current step; invalid input re-prompts without
// advancing, infrastructure failures leave the session where it was.
type IntakeService interface {
	Start(ctx context.Context, userID int64) []Reply
	HandleButton(ctx context.Context, userID int64, data string) []Reply
	HandleText(ctx context.Context, userID int64, text string) []Reply
	HandlePhoto(ctx context.Context, userID int64, photo io.Reader) []Reply
	MyOrders(ctx context.Context, userID int64) []Reply
}

type intakeServiceImpl struct {
	inventory repository.InventoryRepository
	orders    repository.OrderRepository
	sessions  *session.Store
	photos    PhotoStore
	notify    Notifier
	adminID   int64
	log       zerolog.Logger
}

func NewIntakeService(
	inventory repository.InventoryRepository,
	orders repository.OrderRepository,
	sessions *session.Store,
	photos PhotoStore,
	notify Notifier,
	adminID int64,
	log zerolog.Logger,
) IntakeService {
	return &intakeServiceImpl{
		inventory: inventory,
		orders:    orders,
		sessions:  sessions,
		photos:    photos,
		notify:    notify,
		adminID:   adminID,
		log:       log,
	}
}

// Start discards any in-flight draft and offers the products still in stock.
func (s *intakeServiceImpl) Start(ctx context.Context, userID int64) []Reply {
	products, err := s.inventory.ListAvailable(ctx)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("list available products")
		return single(msgGenericFailure)
	}

	_ = s.sessions.Do(userID, func(d *model.Draft) error {
		d.Reset()
		return nil
	})

	if len(products) == 0 {
		return single(msgSoldOut)
	}

	choices := make([]Choice, len(products))
	for i, p := range products {
		choices[i] = Choice{Label: p.Name, Data: productPrefix + p.Name}
	}
	return []Reply{{Text: msgChooseProduct, Choices: choices}}
}

func (s *intakeServiceImpl) HandleButton(ctx context.Context, userID int64, data string) []Reply {
	var replies []Reply
	_ = s.sessions.Do(userID, func(d *model.Draft) error {
		switch {
		case data == dataCancel:
			// reserved stock is deliberately not released here
			d.Reset()
			replies = single(msgCancelled)
		case strings.HasPrefix(data, productPrefix):
			replies = s.chooseProduct(ctx, d, strings.TrimPrefix(data, productPrefix))
		case data == dataZelle || data == dataVenmo:
			replies = s.choosePaymentMethod(d, data)
		default:
			replies = single(msgUnknownAction)
		}
		return nil
	})
	return replies
}

func (s *intakeServiceImpl) HandleText(ctx context.Context, userID int64, text string) []Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return single(msgEmptyText)
	}

	var replies []Reply
	_ = s.sessions.Do(userID, func(d *model.Draft) error {
		switch d.Step {
		case model.StepIdle:
			replies = single(msgUseStart)
		case model.StepProductChosen:
			replies = s.collectQuantity(ctx, d, text)
		case model.StepQuantityChosen:
			d.CustomerName = text
			d.Step = model.StepNameCollected
			replies = single(msgAskOrderRef)
		case model.StepNameCollected:
			replies = s.collectReference(ctx, userID, d, text)
		case model.StepAwaitingPayment:
			if d.AwaitingPaymentInfo && d.OrderID != 0 {
				replies = s.collectPaymentInfo(ctx, d, text)
			} else {
				replies = single(msgPickPayment)
			}
		}
		return nil
	})
	return replies
}

// HandlePhoto attaches a review screenshot to the user's most recent order
// still waiting for one. It does not touch the draft, so it works mid-flow.
func (s *intakeServiceImpl) HandlePhoto(ctx context.Context, userID int64, photo io.Reader) []Reply {
	order, err := s.orders.LatestPendingReview(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return single(msgNothingPending)
		}
		s.log.Error().Err(err).Int64("user_id", userID).Msg("look up order pending review")
		return single(msgGenericFailure)
	}

	if err := s.photos.Save(userID, order.ID, photo); err != nil {
		s.log.Error().Err(err).Uint("order_id", order.ID).Msg("save review screenshot")
		return single(msgReviewSaveFailure)
	}

	if err := s.orders.MarkReviewed(ctx, order.ID); err != nil {
		s.log.Error().Err(err).Uint("order_id", order.ID).Msg("mark order reviewed")
		return single(msgGenericFailure)
	}

	return single(msgReviewThanks)
}

func (s *intakeServiceImpl) MyOrders(ctx context.Context, userID int64) []Reply {
	orders, err := s.orders.ForUser(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("list user orders")
		return single(msgGenericFailure)
	}
	if len(orders) == 0 {
		return single(msgNoOrders)
	}

	var b strings.Builder
	b.WriteString("Your orders:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "\nID: %d\nProduct: %s\nQuantity: %d\nDate: %s\n",
			o.ID, o.ProductName, o.Quantity, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return single(strings.TrimRight(b.String(), "\n"))
}

func (s *intakeServiceImpl) chooseProduct(ctx context.Context, d *model.Draft, name string) []Reply {
	if d.Step != model.StepIdle {
		return single(msgOrderInProgress)
	}

	product, err := s.inventory.Get(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return single(msgUnavailable)
		}
		s.log.Error().Err(err).Str("product", name).Msg("look up product")
		return single(msgGenericFailure)
	}
	if product.Stock <= 0 {
		return single(msgUnavailable)
	}

	d.ProductName = product.Name
	d.ProductLink = product.Link
	d.Step = model.StepProductChosen

	return []Reply{
		{Text: "Product link:\n" + product.Link},
		{Text: fmt.Sprintf("You picked %s.\nEnter the quantity:", product.Name)},
	}
}

func (s *intakeServiceImpl) collectQuantity(ctx context.Context, d *model.Draft, text string) []Reply {
	quantity, err := strconv.Atoi(text)
	if err != nil || quantity <= 0 {
		return single(msgQuantityInvalid)
	}

	// sole stock-decrement point of the whole flow
	if err := s.inventory.Reserve(ctx, d.ProductName, quantity); err != nil {
		var insufficient *repository.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			return single(fmt.Sprintf("Sorry, only %d left in stock.", insufficient.Available))
		case errors.Is(err, repository.ErrProductNotFound):
			s.log.Warn().Str("product", d.ProductName).Msg("draft references a product that no longer exists")
			return single(msgGenericFailure)
		default:
			s.log.Error().Err(err).Str("product", d.ProductName).Int("quantity", quantity).Msg("reserve stock")
			return single(msgGenericFailure)
		}
	}

	d.Quantity = quantity
	d.Step = model.StepQuantityChosen
	return single(msgAskName)
}

func (s *intakeServiceImpl) collectReference(ctx context.Context, userID int64, d *model.Draft, text string) []Reply {
	// Stock was already debited at the quantity step, so only product
	// existence can be meaningfully re-checked before the ledger insert.
	if _, err := s.inventory.Get(ctx, d.ProductName); err != nil {
		s.log.Error().Err(err).Str("product", d.ProductName).Msg("product vanished before order insert")
		return single(msgGenericFailure)
	}

	order := &model.Order{
		UserID:       userID,
		ProductName:  d.ProductName,
		ProductLink:  d.ProductLink,
		Quantity:     d.Quantity,
		CustomerName: d.CustomerName,
		OrderRef:     text,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		// the reservation stays held so a retry of this step can still
		// commit the order it paid for
		s.log.Error().Err(err).
			Int64("user_id", userID).
			Str("product", d.ProductName).
			Int("quantity", d.Quantity).
			Msg("insert order")
		return single(msgGenericFailure)
	}

	d.OrderRef = text
	d.OrderID = order.ID
	d.Step = model.StepAwaitingPayment

	s.notify.Push(s.adminID, fmt.Sprintf("New order\nID: %d\nProduct: %s\nQuantity: %d",
		order.ID, d.ProductName, d.Quantity))

	return []Reply{{
		Text: msgAskPayment,
		Choices: []Choice{
			{Label: "Zelle", Data: dataZelle},
			{Label: "Venmo", Data: dataVenmo},
			{Label: "Cancel", Data: dataCancel},
		},
	}}
}

func (s *intakeServiceImpl) choosePaymentMethod(d *model.Draft, data string) []Reply {
	if d.Step != model.StepAwaitingPayment || d.OrderID == 0 {
		return single(msgUseStart)
	}

	d.PaymentMethod = capitalize(data)
	d.AwaitingPaymentInfo = true
	return single(fmt.Sprintf("You chose %s.\nEnter your payment details:", d.PaymentMethod))
}

func (s *intakeServiceImpl) collectPaymentInfo(ctx context.Context, d *model.Draft, text string) []Reply {
	if err := s.orders.UpdatePayment(ctx, d.OrderID, d.PaymentMethod, text); err != nil {
		s.log.Error().Err(err).Uint("order_id", d.OrderID).Msg("update payment")
		return single(msgGenericFailure)
	}

	s.notify.Push(s.adminID, fmt.Sprintf("Payment recorded\nID: %d\nMethod: %s\nDetails: %s",
		d.OrderID, d.PaymentMethod, text))

	product := d.ProductName
	d.Reset()

	return []Reply{
		{Text: msgPaymentSaved},
		{Text: fmt.Sprintf("Please send a screenshot of your review for %s.", product)},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
