// Package telegram adapts Telegram updates to the intake service's event
// model and renders its replies. All conversation logic lives behind the
// service interfaces; this package only moves messages.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"order-intake-bot/internal/service"
)

const (
	msgAccessDenied   = "Access denied."
	msgUnknownCommand = "Unknown command."
	msgNoExport       = "No orders to export."
	msgExportDone     = "All orders exported to CSV."
	msgExportFailed   = "Export failed."
	msgPhotoFailed    = "Could not fetch your photo, please try again."
)

type Bot struct {
	api     *tgbotapi.BotAPI
	intake  service.IntakeService
	admin   service.AdminService
	adminID int64
	timeout int
	log     zerolog.Logger
}

func NewBot(
	token string,
	pollTimeout int,
	adminID int64,
	intake service.IntakeService,
	admin service.AdminService,
	log zerolog.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	return &Bot{
		api:     api,
		intake:  intake,
		admin:   admin,
		adminID: adminID,
		timeout: pollTimeout,
		log:     log,
	}, nil
}

// Send implements the notification queue's sender.
func (b *Bot) Send(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Run long-polls for updates until ctx is cancelled. Updates are handled in
// their own goroutines; the session store serializes per-user work.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Str("username", b.api.Self.UserName).Msg("bot running")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("answer callback query")
	}
	if q.Message == nil {
		return
	}
	b.reply(q.Message.Chat.ID, b.intake.HandleButton(ctx, q.From.ID, q.Data))
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	default:
		b.reply(msg.Chat.ID, b.intake.HandleText(ctx, msg.From.ID, msg.Text))
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.reply(chatID, b.intake.Start(ctx, userID))
	case "myorders":
		b.reply(chatID, b.intake.MyOrders(ctx, userID))
	case "allorders":
		if userID != b.adminID {
			b.send(chatID, msgAccessDenied)
			return
		}
		b.sendExport(ctx, chatID)
	case "stats":
		if userID != b.adminID {
			b.send(chatID, msgAccessDenied)
			return
		}
		b.sendStats(ctx, chatID)
	default:
		b.send(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	largest := msg.Photo[len(msg.Photo)-1]
	url, err := b.api.GetFileDirectURL(largest.FileID)
	if err != nil {
		b.log.Warn().Err(err).Msg("resolve photo file url")
		b.send(msg.Chat.ID, msgPhotoFailed)
		return
	}

	resp, err := http.Get(url)
	if err != nil {
		b.log.Warn().Err(err).Msg("download photo")
		b.send(msg.Chat.ID, msgPhotoFailed)
		return
	}
	defer resp.Body.Close()

	b.reply(msg.Chat.ID, b.intake.HandlePhoto(ctx, msg.From.ID, resp.Body))
}

func (b *Bot) sendExport(ctx context.Context, chatID int64) {
	data, err := b.admin.ExportCSV(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("export orders")
		b.send(chatID, msgExportFailed)
		return
	}
	if data == nil {
		b.send(chatID, msgNoExport)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "all_orders.csv", Bytes: data})
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error().Err(err).Msg("send export document")
		b.send(chatID, msgExportFailed)
		return
	}
	b.send(chatID, msgExportDone)
}

func (b *Bot) sendStats(ctx context.Context, chatID int64) {
	stats, err := b.admin.Stats(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("load stats")
		b.send(chatID, msgExportFailed)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Stats:\nTotal orders: %d\nTotal items sold: %d\nPayments:\n",
		stats.TotalOrders, stats.TotalQuantity)

	if len(stats.PaymentCounts) == 0 {
		sb.WriteString("no payment data")
	} else {
		methods := make([]string, 0, len(stats.PaymentCounts))
		for m := range stats.PaymentCounts {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			fmt.Fprintf(&sb, "%s: %d\n", m, stats.PaymentCounts[m])
		}
	}

	b.send(chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) reply(chatID int64, replies []service.Reply) {
	for _, r := range replies {
		msg := tgbotapi.NewMessage(chatID, r.Text)
		if len(r.Choices) > 0 {
			rows := make([][]tgbotapi.InlineKeyboardButton, len(r.Choices))
			for i, c := range r.Choices {
				rows[i] = tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
			}
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send reply")
		}
	}
}

func (b *Bot) send(chatID int64, text string) {
	if err := b.Send(chatID, text); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}
