package service_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"order-intake-bot/internal/catalog"
	"order-intake-bot/internal/client"
	"order-intake-bot/internal/model"
	"order-intake-bot/internal/repository"
	"order-intake-bot/internal/service"
	"order-intake-bot/internal/session"
)

const adminID int64 = 42

type sentMsg struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []sentMsg
}

func (f *fakeNotifier) Push(chatID int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sentMsg{chatID: chatID, text: text})
}

func (f *fakeNotifier) sent() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.msgs...)
}

type savedPhoto struct {
	userID  int64
	orderID uint
}

type fakePhotoStore struct {
	mu    sync.Mutex
	saved []savedPhoto
	fail  bool
}

func (f *fakePhotoStore) Save(userID int64, orderID uint, r io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return io.ErrUnexpectedEOF
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	f.saved = append(f.saved, savedPhoto{userID: userID, orderID: orderID})
	return nil
}

type fixture struct {
	svc       service.IntakeService
	inventory repository.InventoryRepository
	orders    repository.OrderRepository
	sessions  *session.Store
	notifier  *fakeNotifier
	photos    *fakePhotoStore
}

func newFixture(t *testing.T, entries []catalog.Entry) *fixture {
	t.Helper()

	db, err := client.InitSqliteClient(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)

	inventory := repository.NewInventoryRepository(db, nil, zerolog.Nop())
	require.NoError(t, inventory.SeedFromCatalog(context.Background(), entries))

	f := &fixture{
		inventory: inventory,
		orders:    repository.NewOrderRepository(db),
		sessions:  session.NewStore(),
		notifier:  &fakeNotifier{},
		photos:    &fakePhotoStore{},
	}
	f.svc = service.NewIntakeService(
		f.inventory, f.orders, f.sessions, f.photos, f.notifier, adminID, zerolog.Nop())
	return f
}

func (f *fixture) stock(t *testing.T, name string) int {
	t.Helper()
	product, err := f.inventory.Get(context.Background(), name)
	require.NoError(t, err)
	return product.Stock
}

func widgetCatalog(stock int) []catalog.Entry {
	return []catalog.Entry{{Name: "Widget", Link: "https://example.com/widget", Stock: stock}}
}

func TestFullOrderFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))
	const userA int64 = 7

	replies := f.svc.Start(ctx, userA)
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Choices, 1)
	require.Equal(t, "Widget", replies[0].Choices[0].Label)
	require.Equal(t, "product_Widget", replies[0].Choices[0].Data)

	replies = f.svc.HandleButton(ctx, userA, "product_Widget")
	require.Len(t, replies, 2)
	require.Contains(t, replies[0].Text, "https://example.com/widget")
	require.Contains(t, replies[1].Text, "quantity")

	replies = f.svc.HandleText(ctx, userA, "2")
	require.Contains(t, replies[0].Text, "full name")
	require.Equal(t, 1, f.stock(t, "Widget"))

	replies = f.svc.HandleText(ctx, userA, "Alice")
	require.Contains(t, replies[0].Text, "order number")

	replies = f.svc.HandleText(ctx, userA, "REF1")
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Choices, 3)

	orders, err := f.orders.ForUser(ctx, userA)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, 2, orders[0].Quantity)
	require.Equal(t, "Alice", orders[0].CustomerName)
	require.Equal(t, "REF1", orders[0].OrderRef)
	require.False(t, orders[0].ReviewSent)
	require.Nil(t, orders[0].PaymentMethod)

	notices := f.notifier.sent()
	require.Len(t, notices, 1)
	require.Equal(t, adminID, notices[0].chatID)
	require.Contains(t, notices[0].text, "New order")

	replies = f.svc.HandleButton(ctx, userA, "zelle")
	require.Contains(t, replies[0].Text, "Zelle")

	replies = f.svc.HandleText(ctx, userA, "zelle@example.com")
	require.Len(t, replies, 2)
	require.Contains(t, replies[1].Text, "Widget")

	orders, err = f.orders.ForUser(ctx, userA)
	require.NoError(t, err)
	require.Equal(t, "Zelle", *orders[0].PaymentMethod)
	require.Equal(t, "zelle@example.com", *orders[0].PaymentInfo)
	require.False(t, orders[0].ReviewSent)

	// session cleared after the payment step
	require.Equal(t, model.StepIdle, f.sessions.Snapshot(userA).Step)

	replies = f.svc.HandlePhoto(ctx, userA, strings.NewReader("screenshot"))
	require.Contains(t, replies[0].Text, "Thank you")
	require.Len(t, f.photos.saved, 1)
	require.Equal(t, orders[0].ID, f.photos.saved[0].orderID)

	orders, err = f.orders.ForUser(ctx, userA)
	require.NoError(t, err)
	require.True(t, orders[0].ReviewSent)

	replies = f.svc.HandlePhoto(ctx, userA, strings.NewReader("again"))
	require.Contains(t, replies[0].Text, "no order awaiting")
}

func TestQuantityValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))
	const user int64 = 7

	f.svc.Start(ctx, user)
	f.svc.HandleButton(ctx, user, "product_Widget")

	for _, input := range []string{"0", "-3", "abc", "1.5"} {
		replies := f.svc.HandleText(ctx, user, input)
		require.Contains(t, replies[0].Text, "positive whole number", "input %q", input)
	}

	require.Equal(t, 3, f.stock(t, "Widget"))
	require.Equal(t, model.StepProductChosen, f.sessions.Snapshot(user).Step)

	orders, err := f.orders.ForUser(ctx, user)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestQuantityExceedsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))
	const user int64 = 7

	f.svc.Start(ctx, user)
	f.svc.HandleButton(ctx, user, "product_Widget")

	replies := f.svc.HandleText(ctx, user, "5")
	require.Contains(t, replies[0].Text, "only 3 left")

	require.Equal(t, 3, f.stock(t, "Widget"))
	require.Equal(t, model.StepProductChosen, f.sessions.Snapshot(user).Step)
}

func TestTextBeforeProductChosen(t *testing.T) {
	f := newFixture(t, widgetCatalog(3))

	replies := f.svc.HandleText(context.Background(), 7, "hello")
	require.Contains(t, replies[0].Text, "/start")
}

func TestCancelKeepsReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))
	const user int64 = 7

	f.svc.Start(ctx, user)
	f.svc.HandleButton(ctx, user, "product_Widget")
	f.svc.HandleText(ctx, user, "2")

	replies := f.svc.HandleButton(ctx, user, "cancel")
	require.Contains(t, replies[0].Text, "cancelled")

	require.Equal(t, model.StepIdle, f.sessions.Snapshot(user).Step)
	// cancellation does not refund reserved stock
	require.Equal(t, 1, f.stock(t, "Widget"))

	orders, err := f.orders.ForUser(ctx, user)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestStartWhenEverythingSoldOut(t *testing.T) {
	f := newFixture(t, widgetCatalog(0))

	replies := f.svc.Start(context.Background(), 7)
	require.Len(t, replies, 1)
	require.Empty(t, replies[0].Choices)
	require.Contains(t, replies[0].Text, "sold out")
}

func TestChooseSoldOutProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(0))
	const user int64 = 7

	replies := f.svc.HandleButton(ctx, user, "product_Widget")
	require.Contains(t, replies[0].Text, "unavailable")
	require.Equal(t, model.StepIdle, f.sessions.Snapshot(user).Step)
}

func TestChooseUnknownProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))

	replies := f.svc.HandleButton(ctx, 7, "product_Gadget")
	require.Contains(t, replies[0].Text, "unavailable")
}

func TestProductButtonMidFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))
	const user int64 = 7

	f.svc.Start(ctx, user)
	f.svc.HandleButton(ctx, user, "product_Widget")

	replies := f.svc.HandleButton(ctx, user, "product_Widget")
	require.Contains(t, replies[0].Text, "in progress")
	require.Equal(t, model.StepProductChosen, f.sessions.Snapshot(user).Step)
}

func TestPaymentMethodBeforeOrderCommitted(t *testing.T) {
	f := newFixture(t, widgetCatalog(3))

	replies := f.svc.HandleButton(context.Background(), 7, "zelle")
	require.Contains(t, replies[0].Text, "/start")
}

func TestPaymentInfoRequiresMethodFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))
	const user int64 = 7

	f.svc.Start(ctx, user)
	f.svc.HandleButton(ctx, user, "product_Widget")
	f.svc.HandleText(ctx, user, "1")
	f.svc.HandleText(ctx, user, "Alice")
	f.svc.HandleText(ctx, user, "REF1")

	replies := f.svc.HandleText(ctx, user, "zelle@example.com")
	require.Contains(t, replies[0].Text, "payment method")

	orders, err := f.orders.ForUser(ctx, user)
	require.NoError(t, err)
	require.Nil(t, orders[0].PaymentMethod)
}

func TestStartResetsDraftMidFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))
	const user int64 = 7

	f.svc.Start(ctx, user)
	f.svc.HandleButton(ctx, user, "product_Widget")
	f.svc.HandleText(ctx, user, "2")

	f.svc.Start(ctx, user)
	require.Equal(t, model.Draft{}, f.sessions.Snapshot(user))
}

func TestPhotoWithoutPendingOrder(t *testing.T) {
	f := newFixture(t, widgetCatalog(3))

	replies := f.svc.HandlePhoto(context.Background(), 7, strings.NewReader("img"))
	require.Contains(t, replies[0].Text, "no order awaiting")
	require.Empty(t, f.photos.saved)
}

func TestPhotoSaveFailureLeavesOrderPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, widgetCatalog(3))
	const user int64 = 7

	order := &model.Order{UserID: user, ProductName: "Widget", Quantity: 1}
	require.NoError(t, f.orders.Create(ctx, order))

	f.photos.fail = true
	replies := f.svc.HandlePhoto(ctx, user, strings.NewReader("img"))
	require.Contains(t, replies[0].Text, "Could not save")

	pending, err := f.orders.LatestPendingReview(ctx, user)
	require.NoError(t, err)
	require.Equal(t, order.ID, pending.ID)
}
